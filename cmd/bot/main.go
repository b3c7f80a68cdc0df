package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"license_notification_bot/internal/app"
	"license_notification_bot/internal/domain/license"
	"license_notification_bot/internal/infra/broker"
	"license_notification_bot/internal/infra/config"
	idb "license_notification_bot/internal/infra/database"
	"license_notification_bot/internal/infra/loader"
	"license_notification_bot/internal/infra/logger"
	"license_notification_bot/internal/infra/scheduler"
	"license_notification_bot/internal/infra/sheets"
	"license_notification_bot/internal/infra/storage"
	"license_notification_bot/internal/infra/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("Could not load application configuration: %v", err)
	}
	logger.Init(cfg)

	mainLogger := logger.Component("main")
	mainLogger.WithFields(logrus.Fields{
		"environment": cfg.Environment,
		"group":       cfg.GroupName,
		"data_dir":    cfg.DataDir,
	}).Info("License Notification Bot starting...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Remote sources, loaded after the local directory in this order.
	var remotes []license.Source

	if cfg.SheetEnabled() {
		sheetSource, err := sheets.NewSource(ctx, cfg.SheetID, cfg.SheetRange, sheets.Credentials{
			CredentialsFile: cfg.GoogleCredentialsFile,
			APIKey:          cfg.GoogleAPIKey,
		})
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not create Google Sheets client")
		}
		remotes = append(remotes, sheetSource)
		mainLogger.WithField("source", sheetSource.Name()).Info("Google Sheets source enabled")
	}

	var db *sql.DB
	if cfg.DatabaseEnabled() {
		db, err = idb.NewPostgresConnection(ctx, cfg.DatabaseURL)
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not connect to database")
		}
		defer db.Close()
		pgSource := idb.NewPostgresLicenseSource(db, cfg.LicenseTable)
		remotes = append(remotes, pgSource)
		mainLogger.WithField("source", pgSource.Name()).Info("Database connection established, license table source enabled")
	}

	if cfg.ObjectStorageEnabled() {
		client, err := storage.NewMinIO(cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3UseTLS, cfg.S3Bucket)
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not create object storage client")
		}
		objSource := storage.NewObjectSource(client, cfg.S3Prefix, logger.Component("object_source"))
		remotes = append(remotes, objSource)
		mainLogger.WithField("source", objSource.Name()).Info("Object storage source enabled")
	}

	var publisher app.AlertPublisher
	if cfg.KafkaEnabled() {
		kafkaPublisher := broker.NewKafkaAlertPublisher(cfg.KafkaBrokers, cfg.KafkaAlertTopic)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
		mainLogger.WithField("topic", cfg.KafkaAlertTopic).Info("Alert events will be published to Kafka")
	}

	aggregator := app.NewAggregator(
		cfg.DataDir,
		loader.NewFileLoader(),
		remotes,
		app.RemoteFailurePolicy(cfg.RemoteFailurePolicy),
		logger.Component("aggregator"),
	)

	// Initialize Telegram Bot
	telebotLogger := logger.Component("telebot")
	pref := telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) { // Global error handler
			logCtx := telebotLogger.WithError(err)
			if c != nil && c.Sender() != nil && c.Chat() != nil {
				logCtx = logCtx.WithField("sender_id", c.Sender().ID).WithField("chat_id", c.Chat().ID)
			}
			logCtx.Error("Telegram handler error")
		},
	}
	bot, err := telebot.NewBot(pref)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not create Telegram bot")
	}
	adapter := telegram.NewTelebotAdapter(bot, logger.Component("telegram"))

	notificationService := app.NewExpiryNotificationService(
		aggregator,
		adapter,
		publisher,
		cfg.GroupName,
		logger.Component("notification_service"),
	)

	telegram.RegisterBotCommands(ctx, bot, cfg, notificationService, logger.Component("telegram"))
	mainLogger.Info("Bot command handlers registered.")

	licenseScheduler := scheduler.NewLicenseScheduler(
		notificationService,
		time.Duration(cfg.IntervalMinutes)*time.Minute,
		time.Duration(cfg.CycleTimeoutMinutes)*time.Minute,
		logger.Component("scheduler"),
	)
	if cfg.IntervalMinutes < int(scheduler.MinInterval/time.Minute) {
		mainLogger.WithField("configured_minutes", cfg.IntervalMinutes).
			Warnf("INTERVAL_MINUTES is below the minimum, using %s", licenseScheduler.Interval())
	}

	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		if err := licenseScheduler.Run(ctx, adapter.Ready()); err != nil {
			mainLogger.WithError(err).Error("License scheduler exited with error")
		}
	}()

	adapter.Start()
	mainLogger.Info("Application setup complete. Bot and scheduler are running.")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit // Block until a signal is received

	mainLogger.Info("Shutting down application...")
	cancel()
	<-schedulerDone
	adapter.Stop()
	mainLogger.Info("Application shut down gracefully.")
}
