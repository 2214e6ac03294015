package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/finware/notify/internal/api"
	"github.com/finware/notify/internal/app"
	iauth "github.com/finware/notify/internal/auth"
	"github.com/finware/notify/internal/bus"
	"github.com/finware/notify/internal/database"
	"github.com/finware/notify/internal/handlers"
	"github.com/finware/notify/internal/intake"
	"github.com/finware/notify/internal/maintenance"
	"github.com/finware/notify/internal/models"
	"github.com/finware/notify/internal/services"
	"github.com/finware/notify/internal/store"
	"github.com/finware/notify/internal/stream"
	"github.com/finware/notify/pkg/logger"
)

const defaultShutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("notify-server", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	var configPath string
	fs.StringVar(&configPath, "config", "", "Path to configuration directory or file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadApplicationConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := app.ConfigureLogging(cfg.Server.LogLevel); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync() // best effort

	log := logger.WithModule("bootstrap")

	db, err := initialiseDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(db, log)

	notificationStore, err := store.NewGormStore(db)
	if err != nil {
		return fmt.Errorf("initialise notification store: %w", err)
	}

	deliveryBus := bus.New[models.Notification](bus.WithQueueDepth(cfg.Stream.QueueDepth))
	defer deliveryBus.Close()

	notificationSvc, err := services.NewNotificationService(notificationStore, deliveryBus)
	if err != nil {
		return fmt.Errorf("initialise notification service: %w", err)
	}

	liveCounter, err := stream.NewLiveCounter(notificationSvc)
	if err != nil {
		return fmt.Errorf("initialise live counter: %w", err)
	}

	dispatcher, err := intake.NewDispatcher(notificationSvc)
	if err != nil {
		return fmt.Errorf("initialise event dispatcher: %w", err)
	}

	jwtService, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return fmt.Errorf("initialise jwt service: %w", err)
	}

	notificationHandler, err := handlers.NewNotificationHandler(notificationSvc, liveCounter)
	if err != nil {
		return fmt.Errorf("initialise notification handler: %w", err)
	}

	intakeHandler, err := handlers.NewIntakeHandler(dispatcher)
	if err != nil {
		return fmt.Errorf("initialise intake handler: %w", err)
	}

	reporter := maintenance.NewReporter(db, deliveryBus.Registry(),
		maintenance.WithRetentionDays(cfg.Maintenance.RetentionDays),
	)
	if err := reporter.Start(); err != nil {
		return fmt.Errorf("start maintenance jobs: %w", err)
	}
	defer func() {
		stopCtx := reporter.Stop()
		<-stopCtx.Done()
	}()

	router := api.NewRouter(api.Dependencies{
		DB:             db,
		JWT:            jwtService,
		Notifications:  notificationHandler,
		Intake:         intakeHandler,
		IntakeToken:    cfg.Intake.Token,
		MetricsEnabled: cfg.Monitoring.Prometheus.Enabled,
		MetricsPath:    cfg.Monitoring.Prometheus.Endpoint,
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	if err, ok := <-serverErr; ok && err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("server stopped gracefully")
	return nil
}

func loadApplicationConfig(path string) (*app.Config, error) {
	switch {
	case strings.TrimSpace(path) == "":
		return app.LoadConfig()
	default:
		info, err := os.Stat(path)
		if err == nil {
			if info.IsDir() {
				return app.LoadConfig(path)
			}
			return app.LoadConfig(filepath.Dir(path))
		}
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config path %q does not exist", path)
		}
		return nil, fmt.Errorf("stat config path: %w", err)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.DatabaseConfig()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	logger.WithModule("database").Info("database connected",
		zap.String("driver", dbCfg.Driver),
	)
	return db, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
