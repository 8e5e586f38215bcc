package auth

import (
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/locallibrary/internal/audit"
	"github.com/mrlokans/locallibrary/internal/config"
	"github.com/mrlokans/locallibrary/internal/entities"
)

// EventLogger records authentication events.
type EventLogger interface {
	LogAuth(actor audit.Actor, action string, success bool)
}

// isLocalPath reports whether path is safe to redirect to after login.
func isLocalPath(path string) bool {
	switch {
	case path == "",
		!strings.HasPrefix(path, "/"),
		strings.HasPrefix(path, "//"),
		strings.Contains(path, "://"),
		strings.Contains(path, "\\"):
		return false
	}
	return true
}

// sanitizeRedirectPath returns a safe redirect path, defaulting to "/" if invalid.
func sanitizeRedirectPath(path string) string {
	if isLocalPath(path) {
		return path
	}
	return "/"
}

type loginRequest struct {
	Username string `form:"username" json:"username" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
	Next     string `form:"next" json:"next"`
}

type setupRequest struct {
	Username string `form:"username" json:"username" binding:"required"`
	Email    string `form:"email" json:"email" binding:"required,email"`
	Password string `form:"password" json:"password" binding:"required"`
}

type changePasswordRequest struct {
	OldPassword string `form:"old_password" json:"old_password" binding:"required"`
	NewPassword string `form:"new_password" json:"new_password" binding:"required"`
}

// AuthController serves login, logout, first-run setup and token endpoints.
type AuthController struct {
	service        *Service
	sessionManager *SessionManager
	middleware     *Middleware
	events         EventLogger
	rateLimiter    *RateLimiter
	setupMu        sync.Mutex
}

// NewAuthController creates a new authentication controller. events may be nil.
func NewAuthController(service *Service, sessionManager *SessionManager, middleware *Middleware, events EventLogger, cfg config.Auth) *AuthController {
	return &AuthController{
		service:        service,
		sessionManager: sessionManager,
		middleware:     middleware,
		events:         events,
		rateLimiter: NewRateLimiter(RateLimitConfig{
			MaxAttempts:     cfg.MaxLoginAttempts,
			WindowDuration:  cfg.RateLimitWindow,
			LockoutDuration: cfg.LockoutDuration,
		}),
	}
}

// RegisterRoutes registers authentication routes on the router.
func (ac *AuthController) RegisterRoutes(router *gin.Engine) {
	router.GET("/login", ac.LoginPage)
	router.POST("/login", ac.Login)
	router.POST("/logout", ac.Logout)
	router.POST("/setup", ac.Setup)

	api := router.Group("/api/auth", ac.middleware.RequireAuth())
	api.GET("/me", ac.Me)
	api.POST("/password", ac.ChangePassword)
	api.POST("/token", ac.GenerateToken)
	api.DELETE("/token", ac.RevokeToken)
}

// Stop releases the rate limiter's background goroutine.
func (ac *AuthController) Stop() {
	ac.rateLimiter.Stop()
}

// LoginPage tells the client where to go after login and hands out a CSRF token.
func (ac *AuthController) LoginPage(c *gin.Context) {
	hasUsers, err := ac.service.HasUsers()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"authenticated":  GetUser(c) != nil,
		"next":           sanitizeRedirectPath(c.Query("next")),
		"csrf_token":     GetCSRFToken(c),
		"setup_required": !hasUsers,
	})
}

// Login verifies credentials and starts a session.
func (ac *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}
	next := sanitizeRedirectPath(req.Next)
	actor := actorFromRequest(c, 0)

	if allowed, retryAfter := ac.rateLimiter.Allow(actor.IPAddress, req.Username); !allowed {
		c.Header("Retry-After", retryAfter.String())
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":       "too many login attempts",
			"retry_after": retryAfter.String(),
		})
		return
	}

	user, err := ac.service.Authenticate(req.Username, req.Password)
	if err != nil {
		ac.rateLimiter.RecordFailure(actor.IPAddress, req.Username)
		ac.logAuth(actor, "login_failed", false)

		if errors.Is(err, ErrAccountLocked) {
			c.JSON(http.StatusForbidden, gin.H{"error": "account is locked, try again later"})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
		return
	}

	ac.rateLimiter.RecordSuccess(actor.IPAddress, req.Username)

	if err := ac.sessionManager.CreateSession(c.Request, user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}

	actor.UserID = user.ID
	ac.logAuth(actor, "login", true)

	c.JSON(http.StatusOK, gin.H{"user": user, "next": next})
}

// Logout destroys the session.
func (ac *AuthController) Logout(c *gin.Context) {
	userID := ac.sessionManager.GetUserID(c.Request)
	if err := ac.sessionManager.DestroySession(c.Request); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to end session"})
		return
	}
	if userID != 0 {
		ac.logAuth(actorFromRequest(c, userID), "logout", true)
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Setup creates the first admin account. It is refused once any user exists.
func (ac *AuthController) Setup(c *gin.Context) {
	ac.setupMu.Lock()
	defer ac.setupMu.Unlock()

	hasUsers, err := ac.service.HasUsers()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}
	if hasUsers {
		c.JSON(http.StatusConflict, gin.H{"error": "setup already completed"})
		return
	}

	var req setupRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid setup request", "details": err.Error()})
		return
	}

	user, err := ac.service.CreateUser(req.Username, req.Email, req.Password, entities.UserRoleAdmin)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, ErrUserExists) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	if err := ac.sessionManager.CreateSession(c.Request, user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}

	ac.logAuth(actorFromRequest(c, user.ID), "setup", true)
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// Me returns the authenticated user with their permissions.
func (ac *AuthController) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": GetUser(c), "auth_type": GetAuthType(c)})
}

// ChangePassword replaces the authenticated user's password.
func (ac *AuthController) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "old_password and new_password are required"})
		return
	}

	err := ac.service.ChangePassword(GetUserID(c), req.OldPassword, req.NewPassword)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"message": "password changed"})
	case errors.Is(err, ErrInvalidPassword):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "current password is incorrect"})
	case errors.Is(err, ErrPasswordTooShort), errors.Is(err, ErrPasswordTooLong):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to change password"})
	}
}

// GenerateToken creates a new API token for the authenticated user.
func (ac *AuthController) GenerateToken(c *gin.Context) {
	userID := GetUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	token, err := ac.service.GenerateToken(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	ac.logAuth(actorFromRequest(c, userID), "token_generate", true)
	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"message": "Store this token securely, it will not be shown again",
	})
}

// RevokeToken revokes the API token for the authenticated user.
func (ac *AuthController) RevokeToken(c *gin.Context) {
	userID := GetUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	if err := ac.service.RevokeToken(userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke token"})
		return
	}

	ac.logAuth(actorFromRequest(c, userID), "token_revoke", true)
	c.JSON(http.StatusOK, gin.H{"message": "token revoked"})
}

func (ac *AuthController) logAuth(actor audit.Actor, action string, success bool) {
	if ac.events != nil {
		ac.events.LogAuth(actor, action, success)
	}
}

// ActorFromRequest builds the audit actor for the current request.
func ActorFromRequest(c *gin.Context) audit.Actor {
	return actorFromRequest(c, GetUserID(c))
}

func actorFromRequest(c *gin.Context, userID uint) audit.Actor {
	return audit.Actor{
		UserID:    userID,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}
