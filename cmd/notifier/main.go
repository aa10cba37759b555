package main

import (
	"context"
	"os/signal"
	"peek/backend/internal/config"
	"peek/backend/internal/database"
	"peek/backend/internal/logging"
	"peek/backend/internal/notify"
	"peek/backend/internal/push"
	"peek/backend/internal/queue"
	"peek/backend/internal/repository"
	"syscall"

	"go.uber.org/zap"
)

// The notifier worker consumes bestie actions from Kafka and fans them out.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}
	if err := logging.Init(cfg.LogLevel); err != nil {
		panic(err)
	}
	defer logging.Sync()

	if err := database.Connect(cfg.DatabaseURL); err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pusher, err := push.NewFromConfig(ctx, cfg)
	if err != nil {
		logging.Fatal("Failed to create push provider", zap.Error(err))
	}
	notifier := notify.NewNotifier(
		repository.NewBestieRepository(database.DB),
		repository.NewSubscriptionRepository(database.DB),
		pusher,
		cfg.FanoutConcurrency,
	)

	consumer := queue.NewConsumer(cfg.Brokers(), cfg.KafkaTopic, cfg.KafkaGroupID, cfg.DispatchTimeout)
	defer consumer.Close()

	logging.Info("Notifier worker started",
		zap.Strings("brokers", cfg.Brokers()),
		zap.String("topic", cfg.KafkaTopic),
		zap.String("group", cfg.KafkaGroupID))

	if err := consumer.Run(ctx, notifier); err != nil {
		logging.Fatal("Consumer stopped", zap.Error(err))
	}
	logging.Info("Notifier worker stopped")
}
