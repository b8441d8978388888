package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/kindle-enex/internal/audit"
	"github.com/mrlokans/kindle-enex/internal/config"
	"github.com/mrlokans/kindle-enex/internal/crypto"
	"github.com/mrlokans/kindle-enex/internal/database"
	"github.com/mrlokans/kindle-enex/internal/database/conversions"
	"github.com/mrlokans/kindle-enex/internal/exporters"
	http_controllers "github.com/mrlokans/kindle-enex/internal/http"
	"github.com/mrlokans/kindle-enex/internal/scheduler"
	"github.com/mrlokans/kindle-enex/internal/services"
	"github.com/mrlokans/kindle-enex/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// CheckOutputDir creates the export directory if needed and verifies it is writable.
func CheckOutputDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("export output directory is not set")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("export output directory %s cannot be created: %w", dir, err)
	}

	probe, err := os.CreateTemp(dir, ".kindle-enex-*")
	if err != nil {
		return fmt.Errorf("export output directory %s is not writable: %w", dir, err)
	}
	probe.Close()
	return os.Remove(probe.Name())
}

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	log.Printf("Checking export directory: %s\n", cfg.Export.OutputDir)
	if err := CheckOutputDir(cfg.Export.OutputDir); err != nil {
		log.Fatalf("%v", err)
		return
	}

	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// kill (no param) sends SIGTERM, Ctrl+C sends SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop background work before the server so no new tasks get queued
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting kindle-enex v%s", version)

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	repo := conversions.NewRepository(db.DB)

	var auditor *audit.Auditor
	if cfg.Audit.Enabled {
		auditor = audit.NewAuditor(cfg.Audit.Dir)
		log.Printf("Audit snapshots enabled, writing to %s", cfg.Audit.Dir)
	}

	svcCfg := services.ConvertServiceConfig{
		Exporter:      exporters.NewEnexExporter(exporters.WithApplication(cfg.Export.Application)),
		Store:         repo,
		OutputDir:     cfg.Export.OutputDir,
		MaxInputBytes: cfg.Export.MaxInputBytes,
	}
	if auditor != nil {
		svcCfg.Auditor = auditor
	}
	converter := services.NewConvertService(svcCfg)

	// Task queue and cleanup scheduler
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	var cleanupScheduler *scheduler.CleanupScheduler
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.Config{
			Workers:         cfg.Tasks.Workers,
			ReleaseAfter:    cfg.Tasks.ReleaseAfter,
			CleanupInterval: cfg.Tasks.CleanupInterval,
		})
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		var auditCleaner tasks.AuditCleaner
		if auditor != nil {
			auditCleaner = auditor
		}
		taskClient.Register(tasks.NewCleanupConversionsQueue(repo, auditCleaner))

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)

		cleanupScheduler = scheduler.NewCleanupScheduler(taskClient, cfg.Cleanup.Schedule, cfg.Cleanup.RetentionDays)
		if cfg.Cleanup.Enabled {
			if err := cleanupScheduler.Start(taskCtx); err != nil {
				log.Fatalf("Failed to start cleanup scheduler: %v", err)
			}
		} else {
			log.Printf("Cleanup scheduler: disabled")
		}
	} else {
		log.Printf("Task queue disabled, history cleanup will not run")
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatalf("Failed to get SQL DB for sessions: %v", err)
	}
	sessionManager, err := http_controllers.NewSessionManager(sqlDB, cfg.Session.Lifetime, cfg.Session.SecureCookies)
	if err != nil {
		log.Fatalf("Failed to initialize session manager: %v", err)
	}

	var csrfSecret []byte
	if cfg.Session.Secret != "" {
		csrfSecret = crypto.DecodeSecret(cfg.Session.Secret)
	} else {
		csrfSecret, err = crypto.GenerateSecret()
		if err != nil {
			log.Fatalf("Failed to generate CSRF secret: %v", err)
		}
		log.Printf("Generated session secret (set SESSION_SECRET to persist)")
	}

	routerCfg := http_controllers.RouterConfig{
		Converter:      converter,
		Database:       db,
		SessionManager: sessionManager,
		CSRFSecret:     csrfSecret,
		SecureCookies:  cfg.Session.SecureCookies,
		MaxInputBytes:  cfg.Export.MaxInputBytes,
		Version:        version,
	}
	if cleanupScheduler != nil {
		routerCfg.Cleanup = cleanupScheduler
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		if cleanupScheduler != nil {
			cleanupScheduler.Stop()
		}
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, onShutdown)
}
