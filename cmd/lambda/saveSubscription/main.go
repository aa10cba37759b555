package main

import (
	"peek/backend/internal/apigw"
	"peek/backend/internal/config"
	"peek/backend/internal/database"
	"peek/backend/internal/logging"
	"peek/backend/internal/repository"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"
)

var (
	cfg  *config.Config
	subs repository.SubscriptionRepository
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
	subs = repository.NewSubscriptionRepository(database.DB)
}

func main() {
	defer logging.Sync()
	lambda.Start(apigw.SaveSubscriptionHandler(cfg.JWTSecret, subs))
}
