package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/simaogato/ratewatch/internal/adapter/feed/coinmarketcap"
	kafkaadapter "github.com/simaogato/ratewatch/internal/adapter/messaging/kafka"
	"github.com/simaogato/ratewatch/internal/adapter/repository/postgres"
	"github.com/simaogato/ratewatch/internal/config"
	"github.com/simaogato/ratewatch/internal/domain"
	"github.com/simaogato/ratewatch/internal/usecase/ingestion"
	"github.com/simaogato/ratewatch/internal/usecase/seeder"
	"github.com/simaogato/ratewatch/internal/usecase/variation"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg := config.Load(logger)
	clock := domain.SystemClock{}

	// 1. Database and instrument store
	db, err := postgres.NewDB(cfg.Postgres.ConnString())
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()

	store := postgres.NewInstrumentRepository(db,
		domain.WithRetentionWindow(cfg.Detection.LookbackWindow, cfg.Detection.EvictionMargin))

	// 2. Collaborators: price feed and notification producer
	feedClient := coinmarketcap.NewClient(cfg.Feed.BaseURL, cfg.Feed.APIKey, cfg.Detection.ReferenceCurrency)

	notificationWriter := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Kafka.Broker),
		Topic:        cfg.Kafka.NotificationTopic,
		Balancer:     &kafkago.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}
	defer notificationWriter.Close()
	notifier := kafkaadapter.NewNotifier(notificationWriter, clock, logger)

	// 3. Use cases
	detector := variation.NewDetector(cfg.Detection.LookbackWindow, clock, logger)
	ingestionService := ingestion.NewService(feedClient, store, detector, notifier, clock, logger, ingestion.Config{
		Threshold:      cfg.Detection.Threshold,
		LookbackWindow: cfg.Detection.LookbackWindow,
		EvictionMargin: cfg.Detection.EvictionMargin,
	})

	if err := seeder.NewSeeder(store, clock, logger).Seed(ctx); err != nil {
		logger.WithError(err).Fatal("failed to seed baseline instrument")
	}

	// 4. Trigger consumer
	triggerReader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  []string{cfg.Kafka.Broker},
		Topic:    cfg.Kafka.TriggerTopic,
		GroupID:  cfg.Kafka.TriggerGroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer triggerReader.Close()

	consumer := kafkaadapter.NewTriggerConsumer(triggerReader, ingestionService.RunCycle, logger)

	logger.Info("ratewatch started")
	if err := consumer.Run(ctx); err != nil {
		logger.WithError(err).Fatal("trigger consumer stopped with error")
	}
	logger.Info("ratewatch shutdown complete")
}
