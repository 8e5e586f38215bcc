package audit

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/locallibrary/internal/entities"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "audit.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.AuditEvent{})
	require.NoError(t, err)

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	return db
}

func TestRepository_LogEvent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	event := &entities.AuditEvent{
		UserID:      1,
		EventType:   entities.AuditEventCreate,
		Action:      "book_create",
		Description: "Created book Emma",
		EntityType:  "book",
		EntityID:    "1",
		Status:      entities.AuditStatusSuccess,
	}

	err := repo.LogEvent(event)
	require.NoError(t, err)
	assert.NotZero(t, event.ID)
	assert.False(t, event.CreatedAt.IsZero())
}

func TestRepository_ListEvents(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	for i := 0; i < 15; i++ {
		event := &entities.AuditEvent{
			UserID:      1,
			EventType:   entities.AuditEventCreate,
			Action:      "author_create",
			Description: "Test event",
			EntityType:  "author",
			Status:      entities.AuditStatusSuccess,
			CreatedAt:   time.Now().Add(time.Duration(-i) * time.Hour),
		}
		require.NoError(t, repo.LogEvent(event))
	}

	for i := 0; i < 5; i++ {
		event := &entities.AuditEvent{
			UserID:      2,
			EventType:   entities.AuditEventDelete,
			Action:      "book_delete",
			Description: "Test delete event",
			EntityType:  "book",
			EntityID:    "7",
			Status:      entities.AuditStatusSuccess,
		}
		require.NoError(t, repo.LogEvent(event))
	}

	t.Run("all events", func(t *testing.T) {
		events, total, err := repo.ListEvents(Filter{}, 50, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(20), total)
		assert.Len(t, events, 20)
	})

	t.Run("user events", func(t *testing.T) {
		events, total, err := repo.ListEvents(Filter{UserID: 1}, 50, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(15), total)
		assert.Len(t, events, 15)
	})

	t.Run("by type", func(t *testing.T) {
		events, total, err := repo.ListEvents(Filter{EventType: entities.AuditEventDelete}, 50, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		for _, e := range events {
			assert.Equal(t, entities.AuditEventDelete, e.EventType)
		}
	})

	t.Run("by entity", func(t *testing.T) {
		_, total, err := repo.ListEvents(Filter{EntityType: "book", EntityID: "7"}, 50, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)

		_, total, err = repo.ListEvents(Filter{EntityType: "book", EntityID: "8"}, 50, 0)
		require.NoError(t, err)
		assert.Zero(t, total)
	})

	t.Run("pagination", func(t *testing.T) {
		events, total, err := repo.ListEvents(Filter{UserID: 1}, 5, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(15), total)
		assert.Len(t, events, 5)

		events2, _, err := repo.ListEvents(Filter{UserID: 1}, 5, 5)
		require.NoError(t, err)
		assert.Len(t, events2, 5)
		assert.NotEqual(t, events[0].ID, events2[0].ID)
	})

	t.Run("order by created_at desc", func(t *testing.T) {
		events, _, err := repo.ListEvents(Filter{UserID: 1}, 10, 0)
		require.NoError(t, err)
		for i := 1; i < len(events); i++ {
			assert.False(t, events[i].CreatedAt.After(events[i-1].CreatedAt))
		}
	})
}

func TestRepository_DeleteOldEvents(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	now := time.Now()

	oldEvent := &entities.AuditEvent{
		UserID:    1,
		EventType: entities.AuditEventLoan,
		Action:    "bookinstance_return",
		Status:    entities.AuditStatusSuccess,
		CreatedAt: now.Add(-48 * time.Hour),
	}
	newEvent := &entities.AuditEvent{
		UserID:    1,
		EventType: entities.AuditEventDelete,
		Action:    "genre_delete",
		Status:    entities.AuditStatusSuccess,
		CreatedAt: now.Add(-1 * time.Hour),
	}

	require.NoError(t, repo.LogEvent(oldEvent))
	require.NoError(t, repo.LogEvent(newEvent))

	deleted, err := repo.DeleteOldEvents(now.Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	events, total, err := repo.ListEvents(Filter{}, 50, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, events, 1)
	assert.Equal(t, "genre_delete", events[0].Action)
}

func TestRepository_GetEventByID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	event := &entities.AuditEvent{
		UserID:    1,
		EventType: entities.AuditEventUpdate,
		Action:    "language_update",
		Status:    entities.AuditStatusSuccess,
	}

	require.NoError(t, repo.LogEvent(event))

	t.Run("existing event", func(t *testing.T) {
		found, err := repo.GetEventByID(event.ID)
		require.NoError(t, err)
		assert.Equal(t, event.ID, found.ID)
		assert.Equal(t, "language_update", found.Action)
	})

	t.Run("non-existing event", func(t *testing.T) {
		_, err := repo.GetEventByID(999)
		assert.Error(t, err)
	})
}
