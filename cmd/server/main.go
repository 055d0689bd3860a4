package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/c4hero/hero-approval/internal/application/dispatcher"
	"github.com/c4hero/hero-approval/internal/application/outbox"
	"github.com/c4hero/hero-approval/internal/application/service"
	"github.com/c4hero/hero-approval/internal/config"
	"github.com/c4hero/hero-approval/internal/infrastructure/persistence/repository"
	"github.com/c4hero/hero-approval/internal/infrastructure/persistence/sqlite"
	"github.com/c4hero/hero-approval/internal/infrastructure/storage"
	"github.com/c4hero/hero-approval/internal/infrastructure/worker"
	httpiface "github.com/c4hero/hero-approval/internal/interfaces/http"
	"github.com/c4hero/hero-approval/pkg/database"
	"github.com/c4hero/hero-approval/pkg/utils"
)

func main() {
	// Load .env if present
	_ = gotenv.Load()

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting approval workflow engine",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	// Initialize database
	sqlDB, err := database.Open(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer sqlDB.Close()

	// Run migrations
	migrator := database.NewMigrator(sqlDB, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Transaction manager
	db := sqlite.NewDB(sqlDB, logger)

	// Repositories
	docRepo := repository.NewDocumentRepository(sqlDB, logger)
	lineRepo := repository.NewLineRepository(sqlDB, logger)
	refRepo := repository.NewReferenceRepository(sqlDB, logger)
	attRepo := repository.NewAttachmentRepository(sqlDB, logger)
	seqRepo := repository.NewSequenceRepository(sqlDB, logger)
	templateRepo := repository.NewTemplateRepository(sqlDB, logger)
	bookmarkRepo := repository.NewBookmarkRepository(sqlDB, logger)
	outboxRepo := repository.NewOutboxRepository(sqlDB, logger)
	notifRepo := repository.NewNotificationRepository(sqlDB, logger)
	employeeRepo := repository.NewEmployeeRepository(sqlDB, logger)

	// Attachment storage
	if err := os.MkdirAll(cfg.Storage.BaseDir, 0755); err != nil {
		logger.Fatal("Failed to create storage directory", zap.Error(err))
	}
	attachmentStore := storage.NewLocalAttachmentStore(
		cfg.Storage.BaseDir,
		cfg.Storage.URLPrefix,
		[]byte(cfg.Storage.SigningKey),
		logger,
	)

	kvLogger := utils.NewKVLogger(logger)

	// Event pipeline
	publisher := outbox.NewPublisher(outboxRepo)
	eventDispatcher := dispatcher.New(kvLogger)

	// Services
	allocator := service.NewSequenceAllocator(seqRepo, kvLogger)
	workflowService := service.NewWorkflowService(
		docRepo, lineRepo, refRepo, attRepo, templateRepo,
		allocator, attachmentStore, publisher, employeeRepo, db,
		cfg.Sequence.Prefix, kvLogger,
	)
	queryService := service.NewQueryService(
		docRepo, lineRepo, refRepo, attRepo, templateRepo, bookmarkRepo,
		attachmentStore, employeeRepo, kvLogger,
	)
	notificationService := service.NewNotificationService(notifRepo, refRepo, employeeRepo, kvLogger)
	notificationService.Register(eventDispatcher)

	// Background workers
	workerManager := worker.NewManager(logger)
	workerManager.Register(worker.NewOutboxRelay(worker.OutboxRelayConfig{
		PollInterval: cfg.Outbox.PollInterval,
		BatchSize:    cfg.Outbox.BatchSize,
	}, outboxRepo, eventDispatcher, logger))
	workerManager.Register(worker.NewReminder(worker.ReminderConfig{
		SweepInterval: cfg.Reminder.SweepInterval,
		WaitThreshold: cfg.Reminder.WaitThreshold,
		BatchSize:     cfg.Reminder.BatchSize,
	}, lineRepo, docRepo, publisher, db, logger))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := workerManager.StartAll(ctx); err != nil {
		logger.Fatal("Failed to start workers", zap.Error(err))
	}

	// HTTP server
	server := httpiface.NewServer(httpiface.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, workflowService, queryService, notificationService, attachmentStore, kvLogger)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(ctx)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			logger.Error("HTTP server failed", zap.Error(err))
		}
	}

	cancel()

	if err := workerManager.StopAll(); err != nil {
		logger.Error("Worker shutdown error", zap.Error(err))
	}
	if err := server.Stop(); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}
