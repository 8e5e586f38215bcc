package http

import (
	"github.com/mrlokans/locallibrary/internal/admin"
	"github.com/mrlokans/locallibrary/internal/audit"
	"github.com/mrlokans/locallibrary/internal/auth"
	"github.com/mrlokans/locallibrary/internal/config"
)

// CatalogStore is the whole catalog surface the router wires into controllers.
// *catalog.Repository satisfies it.
type CatalogStore interface {
	StatsStore
	LoanStore
	AdminStore
}

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Catalog  CatalogStore
	Users    UserStore
	Database Pinger
	Auditor  *audit.Service // optional
	Registry *admin.Registry
	Tasks    TaskQueue // optional, enables /admin/tasks

	// Authentication. A nil AuthMiddleware runs every request as the default user.
	AuthService    *auth.Service
	SessionManager *auth.SessionManager
	AuthMiddleware *auth.Middleware
	AuthController *auth.AuthController // optional, serves /login and /api/auth
	AuthConfig     config.Auth
	CSRFSecret     []byte // empty disables CSRF protection

	// Application info
	Version string
}

func (cfg RouterConfig) auditLogger() AuditLogger {
	if cfg.Auditor == nil {
		return nil
	}
	return cfg.Auditor
}

func (cfg RouterConfig) sessionStore() SessionStore {
	if cfg.SessionManager == nil {
		return nil
	}
	return cfg.SessionManager
}
