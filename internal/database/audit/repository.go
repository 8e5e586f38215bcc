package audit

import (
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/locallibrary/internal/entities"
)

const defaultPageSize = 50

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Filter narrows an audit event listing. Zero fields are ignored.
type Filter struct {
	UserID     uint
	EventType  entities.AuditEventType
	EntityType string
	EntityID   string
}

// LogEvent saves an audit event to the database.
func (r *Repository) LogEvent(event *entities.AuditEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	return r.db.Create(event).Error
}

// ListEvents retrieves paginated audit events, most recent first.
func (r *Repository) ListEvents(filter Filter, limit, offset int) ([]entities.AuditEvent, int64, error) {
	var events []entities.AuditEvent
	var total int64

	query := r.db.Model(&entities.AuditEvent{})
	if filter.UserID > 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.EventType != "" {
		query = query.Where("event_type = ?", filter.EventType)
	}
	if filter.EntityType != "" {
		query = query.Where("entity_type = ?", filter.EntityType)
	}
	if filter.EntityID != "" {
		query = query.Where("entity_id = ?", filter.EntityID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}

	err := query.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&events).Error
	return events, total, err
}

// DeleteOldEvents removes audit events older than the specified time.
// Returns the number of deleted events.
func (r *Repository) DeleteOldEvents(olderThan time.Time) (int64, error) {
	result := r.db.Where("created_at < ?", olderThan).Delete(&entities.AuditEvent{})
	return result.RowsAffected, result.Error
}

// GetEventByID retrieves a single audit event by ID.
func (r *Repository) GetEventByID(id uint) (*entities.AuditEvent, error) {
	var event entities.AuditEvent
	err := r.db.First(&event, id).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}
