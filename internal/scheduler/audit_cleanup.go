// Package scheduler triggers periodic background work.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/robfig/cron/v3"

	"github.com/mrlokans/locallibrary/internal/tasks"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Enqueuer saves tasks for the workers. *tasks.Client satisfies it.
type Enqueuer interface {
	Enqueue(ctx context.Context, tasks ...backlite.Task) ([]string, error)
}

// ValidateSchedule checks a five-field cron expression.
func ValidateSchedule(schedule string) error {
	_, err := parser.Parse(schedule)
	return err
}

// NextRun returns the first activation of schedule after from.
func NextRun(schedule string, from time.Time) (time.Time, error) {
	sched, err := parser.Parse(schedule)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(from), nil
}

// AuditCleanupScheduler enqueues an audit cleanup task on a cron schedule.
type AuditCleanupScheduler struct {
	queue         Enqueuer
	schedule      string
	retentionDays int

	cron    *cron.Cron
	mu      sync.Mutex
	running bool
}

func NewAuditCleanupScheduler(queue Enqueuer, schedule string, retentionDays int) *AuditCleanupScheduler {
	return &AuditCleanupScheduler{
		queue:         queue,
		schedule:      schedule,
		retentionDays: retentionDays,
		cron:          cron.New(cron.WithParser(parser)),
	}
}

// Start registers the job and starts the cron runner. An empty schedule
// disables the scheduler.
func (s *AuditCleanupScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	if s.schedule == "" {
		log.Printf("Audit cleanup scheduler: disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(s.schedule, s.enqueue); err != nil {
		return fmt.Errorf("invalid audit cleanup schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.running = true

	next, _ := NextRun(s.schedule, time.Now())
	log.Printf("Audit cleanup scheduler: started with schedule '%s', keeping %d days. Next run: %v",
		s.schedule, s.retentionDays, next)
	return nil
}

// Stop waits for a running job to finish.
func (s *AuditCleanupScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	log.Printf("Audit cleanup scheduler: stopped")
}

func (s *AuditCleanupScheduler) enqueue() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ids, err := s.queue.Enqueue(ctx, tasks.CleanupAuditEventsTask{RetentionDays: s.retentionDays})
	if err != nil {
		log.Printf("Audit cleanup scheduler: failed to enqueue cleanup: %v", err)
		return
	}
	log.Printf("Audit cleanup scheduler: enqueued task %v", ids)
}
