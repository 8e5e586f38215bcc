package tasks

import (
	"time"

	"github.com/mrlokans/locallibrary/internal/config"
)

// Config holds the task queue settings.
type Config struct {
	Workers         int           // concurrent workers
	ReleaseAfter    time.Duration // stuck tasks return to the queue after this
	CleanupInterval time.Duration // how often finished tasks are purged
	Retention       time.Duration // how long finished tasks are kept
	AuditRetention  int           // days of audit history kept by the cleanup task
}

func DefaultConfig() Config {
	return Config{
		Workers:         1,
		ReleaseAfter:    15 * time.Minute,
		CleanupInterval: time.Hour,
		Retention:       24 * time.Hour,
		AuditRetention:  30,
	}
}

// FromAppConfig builds a Config from the application settings, falling back
// to the defaults for unset values.
func FromAppConfig(cfg *config.Config) Config {
	out := DefaultConfig()
	if cfg.Tasks.Workers > 0 {
		out.Workers = cfg.Tasks.Workers
	}
	if cfg.Tasks.ReleaseAfter > 0 {
		out.ReleaseAfter = cfg.Tasks.ReleaseAfter
	}
	if cfg.Tasks.CleanupInterval > 0 {
		out.CleanupInterval = cfg.Tasks.CleanupInterval
	}
	if cfg.Tasks.RetentionDuration > 0 {
		out.Retention = cfg.Tasks.RetentionDuration
	}
	if cfg.Audit.RetentionDays > 0 {
		out.AuditRetention = cfg.Audit.RetentionDays
	}
	return out
}
