package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/locallibrary/internal/admin"
	"github.com/mrlokans/locallibrary/internal/auth"
	"github.com/mrlokans/locallibrary/internal/config"
	"github.com/mrlokans/locallibrary/internal/entities"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())
	if cfg.AuthConfig.SecureCookies {
		router.Use(auth.StrictTransportSecurityMiddleware())
	}

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.AuthConfig.SecureCookies, cfg.AuthService))
	}

	// Sessions carry the visit counter in every auth mode
	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}

	mw := cfg.AuthMiddleware
	if mw == nil {
		mw = auth.NewMiddleware(nil, nil, config.Auth{Mode: config.AuthModeNone})
	}
	router.Use(mw.Handler())

	registry := cfg.Registry
	if registry == nil {
		registry = admin.Default()
	}

	health := NewHealthController(cfg.Database, cfg.Version)
	home := NewHomeController(cfg.Catalog, cfg.sessionStore())
	books := NewBooksController(cfg.Catalog)
	authors := NewAuthorsController(cfg.Catalog)
	loans := NewLoansController(cfg.Catalog)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	if cfg.AuthController != nil {
		cfg.AuthController.RegisterRoutes(router)
	}

	// Catalog pages
	router.GET("/", home.Index)
	catalog := router.Group("/catalog")
	{
		catalog.GET("/", home.Index)
		catalog.GET("/books", books.List)
		catalog.GET("/book/:id", books.Detail)
		catalog.GET("/authors", authors.List)
		catalog.GET("/author/:id", authors.Detail)
		catalog.GET("/mybooks", mw.RequireAuth(), loans.MyBooks)
		catalog.GET("/borrowed", mw.RequirePermission(entities.PermissionCanMarkReturned), loans.Borrowed)
	}

	// Admin interface
	staff := router.Group("/admin", mw.RequireRole(entities.UserRoleAdmin, entities.UserRoleLibrarian))
	{
		adminController := NewAdminController(cfg.Catalog, cfg.Users, registry, cfg.auditLogger())
		adminController.RegisterRoutes(staff.Group("/api"), mw.RequirePermission(entities.PermissionCanMarkReturned))

		if cfg.Auditor != nil {
			auditController := NewAuditController(cfg.Auditor)
			staff.GET("/audit", auditController.GetAuditEvents)
			staff.GET("/audit/types", auditController.EventTypes)
		}
	}

	if cfg.Users != nil {
		usersController := NewUsersController(cfg.Users, cfg.auditLogger())
		admins := router.Group("/admin", mw.RequireRole(entities.UserRoleAdmin))
		admins.GET("/users", usersController.ListUsers)
		admins.GET("/permissions", usersController.ListPermissions)
		admins.PUT("/users/:id/role", usersController.SetRole)
		admins.POST("/users/:id/permissions/:codename", usersController.GrantPermission)
		admins.DELETE("/users/:id/permissions/:codename", usersController.RevokePermission)
	}

	if cfg.Tasks != nil {
		tasksController := NewTasksController(cfg.Tasks)
		taskRoutes := router.Group("/admin/tasks", mw.RequireRole(entities.UserRoleAdmin))
		taskRoutes.GET("/types", tasksController.ListTaskTypes)
		taskRoutes.POST("/:type/run", tasksController.RunTask)
		taskRoutes.GET("/:id", tasksController.GetTaskStatus)
	}

	return router
}
