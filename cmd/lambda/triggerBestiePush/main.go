package main

import (
	"context"
	"peek/backend/internal/apigw"
	"peek/backend/internal/config"
	"peek/backend/internal/database"
	"peek/backend/internal/logging"
	"peek/backend/internal/notify"
	"peek/backend/internal/push"
	"peek/backend/internal/repository"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"
)

var (
	cfg      *config.Config
	notifier *notify.Notifier
)

func init() {
	var err error
	cfg, err = config.LoadConfig()
	if err != nil {
		panic(err)
	}
	if err := logging.Init(cfg.LogLevel); err != nil {
		panic(err)
	}
	if err := database.Connect(cfg.DatabaseURL); err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}

	pusher, err := push.NewFromConfig(context.Background(), cfg)
	if err != nil {
		logging.Fatal("Failed to create push provider", zap.Error(err))
	}
	notifier = notify.NewNotifier(
		repository.NewBestieRepository(database.DB),
		repository.NewSubscriptionRepository(database.DB),
		pusher,
		cfg.FanoutConcurrency,
	)
}

func main() {
	defer logging.Sync()
	lambda.Start(apigw.TriggerHandler(cfg.JWTSecret, repository.NewDirectory(database.DB), notifier))
}
