package config

import (
	"time"

	"github.com/spf13/viper"
)

type AuthMode string

const (
	AuthModeNone  AuthMode = "none"  // Single-user mode, every request acts as the default user
	AuthModeLocal AuthMode = "local" // Local user database with sessions (default)
)

type DatabaseDriver string

const (
	DatabaseDriverSQLite   DatabaseDriver = "sqlite"
	DatabaseDriverPostgres DatabaseDriver = "postgres"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Audit
		Tasks
		Auth
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Driver DatabaseDriver
		Path   string // SQLite file path
		DSN    string // Postgres connection string
		Debug  bool   // Log every SQL statement
	}
	Audit struct {
		RetentionDays   int    // Days to keep audit events (default: 30)
		CleanupSchedule string // Cron format: "30 3 * * *" = daily at 03:30
	}
	Tasks struct {
		Enabled           bool
		Workers           int
		MaxRetries        int
		RetryDelay        time.Duration
		TaskTimeout       time.Duration
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
	Auth struct {
		Mode            AuthMode
		SessionSecret   string
		SessionLifetime time.Duration
		TokenExpiry     time.Duration
		BcryptCost      int
		SecureCookies   bool // Set to false for local dev without HTTPS

		// Rate limiting configuration
		MaxLoginAttempts int           // Max failed attempts before lockout (default: 5)
		RateLimitWindow  time.Duration // Time window for counting attempts (default: 15m)
		LockoutDuration  time.Duration // How long to lock out (default: 30m)
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8000)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 5)

	v.SetDefault("database_driver", string(DatabaseDriverSQLite))
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("database_dsn", "")
	v.SetDefault("database_debug", false)

	v.SetDefault("audit_retention_days", 30)
	v.SetDefault("audit_cleanup_schedule", "30 3 * * *") // Daily at 03:30

	// Auth defaults
	v.SetDefault("auth_mode", string(AuthModeLocal))
	v.SetDefault("auth_session_secret", "")       // Auto-generated if empty
	v.SetDefault("auth_session_lifetime", "24h")  // 24 hours
	v.SetDefault("auth_token_expiry", "720h")     // 30 days
	v.SetDefault("auth_bcrypt_cost", 12)          // bcrypt cost factor
	v.SetDefault("auth_secure_cookies", true)     // HTTPS-only cookies
	v.SetDefault("auth_max_login_attempts", 5)    // Max failed attempts
	v.SetDefault("auth_rate_limit_window", "15m") // Window for counting attempts
	v.SetDefault("auth_lockout_duration", "30m")  // Lockout duration

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 1)
	v.SetDefault("task_max_retries", 3)
	v.SetDefault("task_retry_delay", "1m")
	v.SetDefault("task_timeout", "5m")
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Driver: DatabaseDriver(v.GetString("DATABASE_DRIVER")),
			Path:   v.GetString("DATABASE_PATH"),
			DSN:    v.GetString("DATABASE_DSN"),
			Debug:  v.GetBool("DATABASE_DEBUG"),
		},
		Audit: Audit{
			RetentionDays:   v.GetInt("AUDIT_RETENTION_DAYS"),
			CleanupSchedule: v.GetString("AUDIT_CLEANUP_SCHEDULE"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			MaxRetries:        v.GetInt("TASK_MAX_RETRIES"),
			RetryDelay:        v.GetDuration("TASK_RETRY_DELAY"),
			TaskTimeout:       v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
		Auth: Auth{
			Mode:             AuthMode(v.GetString("AUTH_MODE")),
			SessionSecret:    v.GetString("AUTH_SESSION_SECRET"),
			SessionLifetime:  v.GetDuration("AUTH_SESSION_LIFETIME"),
			TokenExpiry:      v.GetDuration("AUTH_TOKEN_EXPIRY"),
			BcryptCost:       v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:    v.GetBool("AUTH_SECURE_COOKIES"),
			MaxLoginAttempts: v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:  v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:  v.GetDuration("AUTH_LOCKOUT_DURATION"),
		},
	}
}
