package tasks

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

const CleanupAuditEventsQueue = "cleanup_audit_events"

// AuditEventCleaner deletes audit history. *audit.Service satisfies it.
type AuditEventCleaner interface {
	DeleteOldEvents(retention time.Duration) (int64, error)
}

// CleanupAuditEventsTask removes audit events older than RetentionDays.
type CleanupAuditEventsTask struct {
	RetentionDays int `json:"retention_days"`
}

func (t CleanupAuditEventsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        CleanupAuditEventsQueue,
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration: 24 * time.Hour,
			Data:     &backlite.RetainData{OnlyFailed: true},
		},
	}
}

func (t CleanupAuditEventsTask) retention(fallbackDays int) (time.Duration, int) {
	days := t.RetentionDays
	if days <= 0 {
		days = fallbackDays
	}
	return time.Duration(days) * 24 * time.Hour, days
}

// CleanupAuditEvents returns the processor for CleanupAuditEventsTask. Tasks
// without a retention use defaultDays.
func CleanupAuditEvents(cleaner AuditEventCleaner, defaultDays int) backlite.QueueProcessor[CleanupAuditEventsTask] {
	return func(ctx context.Context, task CleanupAuditEventsTask) error {
		if cleaner == nil {
			return errors.New("audit cleaner not configured")
		}
		retention, days := task.retention(defaultDays)

		deleted, err := cleaner.DeleteOldEvents(retention)
		if err != nil {
			return err
		}
		log.Printf("[TASK] Removed %d audit events older than %d days", deleted, days)
		return nil
	}
}

func NewCleanupAuditEventsQueue(cleaner AuditEventCleaner, defaultDays int) backlite.Queue {
	return backlite.NewQueue(CleanupAuditEvents(cleaner, defaultDays))
}
