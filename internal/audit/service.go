package audit

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mrlokans/locallibrary/internal/database/audit"
	"github.com/mrlokans/locallibrary/internal/entities"
)

const maxTextLen = 500

// Service provides high-level audit logging functionality.
type Service struct {
	repo    *audit.Repository
	pending sync.WaitGroup
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository) *Service {
	return &Service{repo: repo}
}

// Actor identifies who triggered an audited action.
type Actor struct {
	UserID    uint
	IPAddress string
	UserAgent string
}

// Log records a generic audit event.
func (s *Service) Log(event *entities.AuditEvent) error {
	return s.repo.LogEvent(event)
}

// LogAsync records an audit event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.AuditEvent) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.repo.LogEvent(event); err != nil {
			log.Printf("Failed to log audit event: %v", err)
		}
	}()
}

// Wait blocks until every event queued with LogAsync has been written.
func (s *Service) Wait() {
	s.pending.Wait()
}

// LogChange records a create, update or delete performed through the admin layer.
func (s *Service) LogChange(actor Actor, eventType entities.AuditEventType, entityType, entityID, entityName string, err error) {
	event := s.newEvent(actor, eventType, entityType+"_"+string(eventType))
	event.Description = fmt.Sprintf("%s %s: %s", verb(eventType), entityType, entityName)
	event.EntityType = entityType
	event.EntityID = entityID
	markFailure(event, err)

	s.LogAsync(event)
}

// LogLoan records a lend or return of a book instance.
func (s *Service) LogLoan(actor Actor, action, instanceID, description string, err error) {
	event := s.newEvent(actor, entities.AuditEventLoan, "bookinstance_"+action)
	event.Description = truncate(description, maxTextLen)
	event.EntityType = "bookinstance"
	event.EntityID = instanceID
	markFailure(event, err)

	s.LogAsync(event)
}

// LogAuth records an authentication event.
func (s *Service) LogAuth(actor Actor, action string, success bool) {
	event := s.newEvent(actor, entities.AuditEventAuth, action)
	if !success {
		event.Status = entities.AuditStatusFailed
	}

	s.LogAsync(event)
}

// ListEvents retrieves paginated audit events.
func (s *Service) ListEvents(filter audit.Filter, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.ListEvents(filter, limit, offset)
}

// DeleteOldEvents removes events older than the specified duration.
func (s *Service) DeleteOldEvents(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	return s.repo.DeleteOldEvents(cutoff)
}

func (s *Service) newEvent(actor Actor, eventType entities.AuditEventType, action string) *entities.AuditEvent {
	return &entities.AuditEvent{
		UserID:    actor.UserID,
		EventType: eventType,
		Action:    action,
		IPAddress: actor.IPAddress,
		UserAgent: truncate(actor.UserAgent, maxTextLen),
		Status:    entities.AuditStatusSuccess,
	}
}

func markFailure(event *entities.AuditEvent, err error) {
	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), maxTextLen)
	}
}

func verb(eventType entities.AuditEventType) string {
	switch eventType {
	case entities.AuditEventCreate:
		return "Created"
	case entities.AuditEventUpdate:
		return "Updated"
	case entities.AuditEventDelete:
		return "Deleted"
	default:
		return string(eventType)
	}
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
