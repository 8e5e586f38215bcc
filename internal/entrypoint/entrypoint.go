// Package entrypoint assembles the application and runs the HTTP server.
package entrypoint

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/locallibrary/internal/admin"
	"github.com/mrlokans/locallibrary/internal/audit"
	"github.com/mrlokans/locallibrary/internal/auth"
	"github.com/mrlokans/locallibrary/internal/config"
	"github.com/mrlokans/locallibrary/internal/database"
	auditrepo "github.com/mrlokans/locallibrary/internal/database/audit"
	"github.com/mrlokans/locallibrary/internal/database/catalog"
	"github.com/mrlokans/locallibrary/internal/database/users"
	http_controllers "github.com/mrlokans/locallibrary/internal/http"
	"github.com/mrlokans/locallibrary/internal/scheduler"
	"github.com/mrlokans/locallibrary/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve listens until SIGINT or SIGTERM, then runs onShutdown and drains the server.
func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting server at %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server Shutdown: %v", err)
	}

	log.Println("Server exiting")
}

// csrfSecret decodes AUTH_SESSION_SECRET, or generates a per-process secret.
func csrfSecret(configured string) ([]byte, error) {
	if configured != "" {
		if secret, err := hex.DecodeString(configured); err == nil {
			return secret, nil
		}
		return []byte(configured), nil
	}
	secret, err := auth.GenerateSessionSecret()
	if err != nil {
		return nil, err
	}
	log.Printf("Generated session secret (set AUTH_SESSION_SECRET to persist)")
	return hex.DecodeString(secret)
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting LocalLibrary v%s", version)

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	catalogRepo := catalog.NewRepository(db.DB)
	usersRepo := users.NewRepository(db.DB)
	auditService := audit.NewService(auditrepo.NewRepository(db.DB))

	var taskClient *tasks.Client
	var cleanupScheduler *scheduler.AuditCleanupScheduler
	var taskCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskCfg := tasks.FromAppConfig(cfg)
		taskClient, err = tasks.NewClient(tasks.QueuePath(cfg.Database.Path), taskCfg)
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()
		taskClient.Register(tasks.NewCleanupAuditEventsQueue(auditService, taskCfg.AuditRetention))

		var taskCtx context.Context
		taskCtx, taskCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)

		cleanupScheduler = scheduler.NewAuditCleanupScheduler(taskClient, cfg.Audit.CleanupSchedule, taskCfg.AuditRetention)
		if err := cleanupScheduler.Start(); err != nil {
			log.Fatalf("Failed to start audit cleanup scheduler: %v", err)
		}
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatalf("Failed to get SQL DB for sessions: %v", err)
	}
	sessionManager, err := auth.NewSessionManager(sqlDB, db.Driver, cfg.Auth)
	if err != nil {
		log.Fatalf("Failed to initialize session manager: %v", err)
	}

	authService := auth.NewService(db.DB, cfg.Auth)
	authMiddleware := auth.NewMiddleware(authService, sessionManager, cfg.Auth)

	var authController *auth.AuthController
	var secret []byte
	if cfg.Auth.Mode == config.AuthModeLocal {
		log.Printf("Authentication mode: local")
		authController = auth.NewAuthController(authService, sessionManager, authMiddleware, auditService, cfg.Auth)
		defer authController.Stop()

		if secret, err = csrfSecret(cfg.Auth.SessionSecret); err != nil {
			log.Fatalf("Failed to generate CSRF secret: %v", err)
		}

		if hasUsers, _ := authService.HasUsers(); !hasUsers {
			log.Printf("No users found. Visit /setup to create an administrator account.")
		}
	} else {
		log.Printf("Authentication mode: none (no authentication required)")
	}

	routerCfg := http_controllers.RouterConfig{
		Catalog:        catalogRepo,
		Users:          usersRepo,
		Database:       db,
		Auditor:        auditService,
		Registry:       admin.Default(),
		AuthService:    authService,
		SessionManager: sessionManager,
		AuthMiddleware: authMiddleware,
		AuthController: authController,
		AuthConfig:     cfg.Auth,
		CSRFSecret:     secret,
		Version:        version,
	}
	if taskClient != nil {
		routerCfg.Tasks = taskClient
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		if cleanupScheduler != nil {
			cleanupScheduler.Stop()
		}
		if taskClient != nil {
			taskClient.Stop(ctx)
			taskCancel()
		}
		auditService.Wait()
	}

	Serve(router, cfg, onShutdown)
}
