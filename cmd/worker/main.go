package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/planora/planora-api/internal/config"
	"github.com/planora/planora-api/internal/database"
	"github.com/planora/planora-api/internal/logger"
	"github.com/planora/planora-api/internal/notify"
	"github.com/planora/planora-api/internal/queue"
	"github.com/planora/planora-api/internal/workers"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

func main() {
	// Parse command-line flags
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Override debug mode if flag is set
	debugMode := cfg.WorkerDebugMode || *debugFlag

	// Initialize logger
	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		if syncErr := zapLogger.Sync(); syncErr != nil {
			// Ignore sync errors in production
			_ = syncErr
		}
	}()

	zapLogger.Info("starting_worker",
		zap.Bool("debug_mode", debugMode),
		zap.Int("schedule_horizon_days", cfg.ScheduleHorizonDays),
		zap.Bool("telegram_configured", cfg.TelegramBotToken != ""),
	)

	// Initialize database connection
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()

	zapLogger.Info("connected_to_database")

	// Initialize repositories
	userRepo := database.NewUserRepository(db)
	taskRepo := database.NewTaskRepository(db)
	examRepo := database.NewExamRepository(db)

	// Initialize RabbitMQ queue
	jobQueue, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq", zap.Error(err))
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()

	zapLogger.Info("connected_to_rabbitmq",
		zap.Int("prefetch", cfg.RabbitMQPrefetch),
	)

	// Initialize the delivery channel: Telegram when configured, the log
	// notifier otherwise
	var notifier notify.Notifier = notify.NewLogNotifier(zapLogger)
	if cfg.TelegramBotToken != "" {
		telegramNotifier, err := notify.NewTelegramNotifier(cfg.TelegramBotToken, notifier, zapLogger)
		if err != nil {
			zapLogger.Warn("failed_to_connect_to_telegram_falling_back_to_log", zap.Error(err))
		} else {
			notifier = telegramNotifier
		}
	}

	horizon := time.Duration(cfg.ScheduleHorizonDays) * 24 * time.Hour
	reminderWorker := workers.NewReminderWorker(
		userRepo,
		taskRepo,
		examRepo,
		notifier,
		jobQueue,
		horizon,
		zapLogger,
	)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Schedule the daily due scan fan-out
	scheduler := cron.New()
	if _, err := scheduler.AddFunc("0 7 * * *", func() {
		if err := workers.EnqueueDueScans(ctx, userRepo, jobQueue, zapLogger); err != nil {
			zapLogger.Error("failed_to_enqueue_due_scans", zap.Error(err))
		}
	}); err != nil {
		zapLogger.Fatal("failed_to_schedule_due_scans", zap.Error(err))
	}
	scheduler.Start()
	defer scheduler.Stop()
	zapLogger.Info("due_scan_schedule_registered", zap.String("spec", "0 7 * * *"))

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start consuming messages
	msgChan, errChan, err := jobQueue.Consume(ctx, cfg.RabbitMQPrefetch)
	if err != nil {
		zapLogger.Fatal("failed_to_start_consuming", zap.Error(err))
	}

	zapLogger.Info("worker_started")

	// Process messages
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgChan:
				if !ok {
					zapLogger.Info("message_channel_closed")
					return
				}

				if err := reminderWorker.ProcessJob(ctx, msg); err != nil {
					zapLogger.Error("failed_to_process_job",
						zap.Error(err),
						zap.String("job_id", msg.GetJob().ID.String()),
						zap.String("job_type", string(msg.GetJob().Type)),
					)
				}
			}
		}
	}()

	// Handle errors
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-errChan:
				if !ok {
					return
				}
				zapLogger.Error("queue_error", zap.Error(err))
			}
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	zapLogger.Info("shutdown_signal_received")

	// Cancel context to stop processing
	cancel()

	zapLogger.Info("worker_stopped")
}
