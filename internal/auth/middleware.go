package auth

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/locallibrary/internal/config"
	"github.com/mrlokans/locallibrary/internal/entities"
)

// Context keys for user data
const (
	ContextKeyUser     = "auth_user"
	ContextKeyUserID   = "auth_user_id"
	ContextKeyUsername = "auth_username"
	ContextKeyRole     = "auth_role"
	ContextKeyAuthType = "auth_type"
)

// AuthType indicates how the user was authenticated.
type AuthType string

const (
	AuthTypeNone      AuthType = "none"
	AuthTypeAnonymous AuthType = "anonymous"
	AuthTypeSession   AuthType = "session"
	AuthTypeBearer    AuthType = "bearer"
)

// DefaultUserID is used when authentication is disabled.
const DefaultUserID = uint(0)

// Middleware identifies the requesting user and guards restricted routes.
type Middleware struct {
	service        *Service
	sessionManager *SessionManager
	config         config.Auth
}

// NewMiddleware creates a new authentication middleware.
func NewMiddleware(service *Service, sessionManager *SessionManager, cfg config.Auth) *Middleware {
	return &Middleware{
		service:        service,
		sessionManager: sessionManager,
		config:         cfg,
	}
}

// Handler returns a Gin middleware that resolves the current user from a
// Bearer token or session cookie. Catalog pages are public, so unresolved
// requests continue as anonymous. Use RequireAuth, RequireRole and
// RequirePermission to restrict routes.
func (m *Middleware) Handler() gin.HandlerFunc {
	if m.config.Mode == config.AuthModeNone {
		return func(c *gin.Context) {
			c.Set(ContextKeyUserID, DefaultUserID)
			c.Set(ContextKeyAuthType, AuthTypeNone)
			c.Next()
		}
	}

	return func(c *gin.Context) {
		if user := m.tryBearerAuth(c); user != nil {
			setUserContext(c, user, AuthTypeBearer)
		} else if user := m.trySessionAuth(c); user != nil {
			setUserContext(c, user, AuthTypeSession)
		} else {
			c.Set(ContextKeyUserID, DefaultUserID)
			c.Set(ContextKeyAuthType, AuthTypeAnonymous)
		}
		c.Next()
	}
}

func (m *Middleware) tryBearerAuth(c *gin.Context) *entities.User {
	token, ok := bearerToken(c)
	if !ok {
		return nil
	}

	user, err := m.service.ValidateToken(token)
	if err != nil {
		return nil
	}
	return user
}

func (m *Middleware) trySessionAuth(c *gin.Context) *entities.User {
	if m.sessionManager == nil {
		return nil
	}

	userID := m.sessionManager.GetUserID(c.Request)
	if userID == 0 {
		return nil
	}

	user, err := m.service.GetUserByID(userID)
	if err != nil {
		return nil
	}
	return user
}

func bearerToken(c *gin.Context) (string, bool) {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func setUserContext(c *gin.Context, user *entities.User, authType AuthType) {
	c.Set(ContextKeyUser, user)
	c.Set(ContextKeyUserID, user.ID)
	c.Set(ContextKeyUsername, user.Username)
	c.Set(ContextKeyRole, user.Role)
	c.Set(ContextKeyAuthType, authType)
}

// isAPIRequest determines if this is an API request vs web browser request.
func isAPIRequest(c *gin.Context) bool {
	path := c.Request.URL.Path
	if strings.HasPrefix(path, "/api/") || strings.HasPrefix(path, "/admin/api/") {
		return true
	}
	if strings.Contains(c.GetHeader("Accept"), "application/json") {
		return true
	}
	return c.GetHeader("Authorization") != ""
}

// denyAnonymous rejects an unauthenticated request: API clients get 401,
// browsers are redirected to the login page.
func denyAnonymous(c *gin.Context) {
	if isAPIRequest(c) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "authentication required",
		})
		return
	}

	c.Redirect(http.StatusFound, "/login?next="+url.QueryEscape(c.Request.URL.RequestURI()))
	c.Abort()
}

func denyForbidden(c *gin.Context, reason string) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
		"error": reason,
	})
}

// RequireAuth rejects anonymous requests.
func (m *Middleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.config.Mode == config.AuthModeNone {
			c.Next()
			return
		}
		if GetUser(c) == nil {
			denyAnonymous(c)
			return
		}
		c.Next()
	}
}

// RequireRole rejects requests from users outside the given roles.
func (m *Middleware) RequireRole(roles ...entities.UserRole) gin.HandlerFunc {
	roleSet := make(map[entities.UserRole]bool, len(roles))
	for _, r := range roles {
		roleSet[r] = true
	}

	return func(c *gin.Context) {
		if m.config.Mode == config.AuthModeNone {
			c.Next()
			return
		}
		user := GetUser(c)
		if user == nil {
			denyAnonymous(c)
			return
		}
		if !roleSet[user.Role] {
			denyForbidden(c, "insufficient permissions")
			return
		}
		c.Next()
	}
}

// RequirePermission rejects requests from users lacking the named permission.
// Admins hold every permission implicitly.
func (m *Middleware) RequirePermission(codename string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.config.Mode == config.AuthModeNone {
			c.Next()
			return
		}
		user := GetUser(c)
		if user == nil {
			denyAnonymous(c)
			return
		}
		if !user.HasPermission(codename) {
			denyForbidden(c, "missing permission "+codename)
			return
		}
		c.Next()
	}
}

// GetUser returns the authenticated user, or nil for anonymous requests.
func GetUser(c *gin.Context) *entities.User {
	if u, exists := c.Get(ContextKeyUser); exists {
		if user, ok := u.(*entities.User); ok {
			return user
		}
	}
	return nil
}

// GetUserID retrieves the authenticated user's ID from the context.
// Returns DefaultUserID (0) if not authenticated or auth is disabled.
func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextKeyUserID); exists {
		if userID, ok := id.(uint); ok {
			return userID
		}
	}
	return DefaultUserID
}

// GetUsername retrieves the authenticated user's username from the context.
func GetUsername(c *gin.Context) string {
	return c.GetString(ContextKeyUsername)
}

// GetUserRole retrieves the authenticated user's role from the context.
func GetUserRole(c *gin.Context) entities.UserRole {
	if r, exists := c.Get(ContextKeyRole); exists {
		if role, ok := r.(entities.UserRole); ok {
			return role
		}
	}
	return ""
}

// GetAuthType retrieves the authentication method used.
func GetAuthType(c *gin.Context) AuthType {
	if t, exists := c.Get(ContextKeyAuthType); exists {
		if authType, ok := t.(AuthType); ok {
			return authType
		}
	}
	return AuthTypeAnonymous
}

// HasPermission reports whether the request may act with the given permission.
// Everything is permitted when authentication is disabled.
func HasPermission(c *gin.Context, codename string) bool {
	if GetAuthType(c) == AuthTypeNone {
		return true
	}
	user := GetUser(c)
	return user != nil && user.HasPermission(codename)
}

// IsAuthenticated returns true if the request is authenticated or auth is disabled.
func IsAuthenticated(c *gin.Context) bool {
	return GetUser(c) != nil || GetAuthType(c) == AuthTypeNone
}
