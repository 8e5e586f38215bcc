package auth

import (
	"database/sql"
	"encoding/gob"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"

	"github.com/mrlokans/locallibrary/internal/config"
	"github.com/mrlokans/locallibrary/internal/entities"
)

// Session data keys
const (
	SessionKeyUserID    = "user_id"
	SessionKeyUsername  = "username"
	SessionKeyRole      = "role"
	SessionKeyLoginAt   = "login_at"
	SessionKeyNumVisits = "num_visits"
)

func init() {
	gob.Register(entities.UserRole(""))
	gob.Register(time.Time{})
}

// SessionManager wraps scs.SessionManager with catalog-specific helpers.
// Anonymous visitors get a session too so per-visitor counters persist.
type SessionManager struct {
	*scs.SessionManager
}

// NewSessionManager creates a configured session manager. SQLite deployments
// keep sessions in the catalog database, other drivers fall back to memory.
func NewSessionManager(sqlDB *sql.DB, driver config.DatabaseDriver, cfg config.Auth) (*SessionManager, error) {
	sm := scs.New()

	if driver == config.DatabaseDriverSQLite && sqlDB != nil {
		_, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			expiry REAL NOT NULL
		);
		CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`)
		if err != nil {
			return nil, err
		}
		sm.Store = sqlite3store.New(sqlDB)
	} else {
		sm.Store = memstore.New()
	}

	lifetime := cfg.SessionLifetime
	if lifetime <= 0 {
		lifetime = 24 * time.Hour
	}
	sm.Lifetime = lifetime
	sm.IdleTimeout = lifetime / 2

	sm.Cookie.Name = "sessionid"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = cfg.SecureCookies
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Path = "/"

	return &SessionManager{SessionManager: sm}, nil
}

// CreateSession binds the session to a user after password verification.
func (sm *SessionManager) CreateSession(r *http.Request, user *entities.User) error {
	// New token on login prevents session fixation.
	if err := sm.RenewToken(r.Context()); err != nil {
		return err
	}

	sm.Put(r.Context(), SessionKeyUserID, int(user.ID))
	sm.Put(r.Context(), SessionKeyUsername, user.Username)
	sm.Put(r.Context(), SessionKeyRole, user.Role)
	sm.Put(r.Context(), SessionKeyLoginAt, time.Now())

	return nil
}

// DestroySession removes all session data and invalidates the session.
func (sm *SessionManager) DestroySession(r *http.Request) error {
	return sm.Destroy(r.Context())
}

// GetUserID retrieves the user ID from the session, 0 when anonymous.
func (sm *SessionManager) GetUserID(r *http.Request) uint {
	return uint(sm.GetInt(r.Context(), SessionKeyUserID))
}

// GetUserRole retrieves the user role from the session.
func (sm *SessionManager) GetUserRole(r *http.Request) entities.UserRole {
	role, _ := sm.Get(r.Context(), SessionKeyRole).(entities.UserRole)
	return role
}

// IsAuthenticated returns true if the session belongs to a user.
func (sm *SessionManager) IsAuthenticated(r *http.Request) bool {
	return sm.GetUserID(r) != 0
}

// SessionData holds the session information for a request.
type SessionData struct {
	UserID   uint
	Username string
	Role     entities.UserRole
	LoginAt  time.Time
}

// GetSessionData retrieves all user session data at once, nil when anonymous.
func (sm *SessionManager) GetSessionData(r *http.Request) *SessionData {
	userID := sm.GetUserID(r)
	if userID == 0 {
		return nil
	}

	loginAt, _ := sm.Get(r.Context(), SessionKeyLoginAt).(time.Time)

	return &SessionData{
		UserID:   userID,
		Username: sm.GetString(r.Context(), SessionKeyUsername),
		Role:     sm.GetUserRole(r),
		LoginAt:  loginAt,
	}
}
