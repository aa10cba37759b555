package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"peek/backend/internal/auth"
	"peek/backend/internal/config"
	"peek/backend/internal/database"
	"peek/backend/internal/handler"
	"peek/backend/internal/logging"
	"peek/backend/internal/middleware"
	"peek/backend/internal/notify"
	"peek/backend/internal/push"
	"peek/backend/internal/queue"
	"peek/backend/internal/repository"
	"peek/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	// Swagger imports
	_ "peek/backend/docs" // This is important for swag to find the generated docs

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Take a Peek API
// @version         1.0
// @description     Backend of the take a peek photo sharing app: peeks, comments, loves, besties and push notifications.
// @host            localhost:8080
// @BasePath        /api/v1
// @securityDefinitions.apiKey BearerAuth
// @in header
// @name Authorization
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
	handler.SetNotifier(notifier)

	var inline *notify.InlineDispatcher
	switch cfg.NotifyMode {
	case config.NotifyModeKafka:
		producer := queue.NewProducer(cfg.Brokers(), cfg.KafkaTopic)
		defer producer.Close()
		handler.SetDispatcher(producer)
	default:
		inline = notify.NewInlineDispatcher(notifier, cfg.DispatchTimeout)
		handler.SetDispatcher(inline)
	}

	if cfg.MinioAccessKey != "" {
		store, err := storage.NewMinIOStore(ctx, storage.MinIOConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
			PublicURL: cfg.MinioPublicURL,
		})
		if err != nil {
			logging.Fatal("Failed to connect to MinIO", zap.Error(err))
		}
		handler.SetImageStore(store)
	} else {
		logging.Warn("MINIO_ACCESS_KEY is not set, peek uploads are disabled")
	}

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(), middleware.CORS(cfg.CORSAllowedOrigins))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	registerRoutes(router)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logging.Info("Server is running", zap.String("addr", srv.Addr))
		logging.Info("Swagger UI is available at http://localhost:" + cfg.Port + "/swagger/index.html")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logging.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error("Server shutdown failed", zap.Error(err))
	}
	if inline != nil {
		inline.Wait()
	}
}

func registerRoutes(router *gin.Engine) {
	apiV1 := router.Group("/api/v1")
	{
		// Auth routes
		authRoutes := apiV1.Group("/auth")
		{
			authRoutes.POST("/register", handler.RegisterUser)
			authRoutes.POST("/login", handler.LoginUser)
		}

		// User routes (protected)
		userRoutes := apiV1.Group("/users")
		userRoutes.Use(auth.AuthMiddleware())
		{
			userRoutes.GET("", handler.SearchUsers) // Must be before /:id
			userRoutes.GET("/me", handler.GetMe)
			userRoutes.PUT("/me", handler.UpdateMe)
			userRoutes.GET("/:id", handler.GetUserByID)

			// Bestie routes by user id
			userRoutes.POST("/:id/request", handler.SendRequest)
			userRoutes.POST("/:id/accept", handler.AcceptRequest)
			userRoutes.POST("/:id/decline", handler.DeclineRequest)
			userRoutes.POST("/:id/remove", handler.RemoveRelation)
		}

		bestieRoutes := apiV1.Group("/besties")
		bestieRoutes.Use(auth.AuthMiddleware())
		{
			bestieRoutes.GET("", handler.ListBesties)
			bestieRoutes.POST("/request", handler.RequestBestieByEmail)
		}

		// Live events are read by EventSource, which cannot send headers.
		apiV1.GET("/peeks/:id/events", auth.OptionalAuthMiddleware(), handler.StreamPeekEvents)

		peekRoutes := apiV1.Group("/peeks")
		peekRoutes.Use(auth.AuthMiddleware())
		{
			peekRoutes.POST("", handler.CreatePeek)
			peekRoutes.GET("", handler.ListPeeks)
			peekRoutes.GET("/:id", handler.GetPeekByID)
			peekRoutes.DELETE("/:id", handler.DeletePeek)

			peekRoutes.GET("/:id/comments", handler.ListComments)
			peekRoutes.POST("/:id/comments", handler.CreateComment)

			peekRoutes.POST("/:id/love", handler.ToggleLove)
			peekRoutes.GET("/:id/loves", handler.GetLoves)
		}

		apiV1.GET("/push/vapid-public-key", handler.GetVAPIDPublicKey)
		pushRoutes := apiV1.Group("/push")
		pushRoutes.Use(auth.AuthMiddleware())
		{
			pushRoutes.POST("/subscribe", handler.SaveSubscription)
			pushRoutes.POST("/unsubscribe", handler.Unsubscribe)
			pushRoutes.GET("/status", handler.SubscriptionStatus)
		}

		notificationRoutes := apiV1.Group("/notifications")
		notificationRoutes.Use(auth.AuthMiddleware())
		{
			notificationRoutes.POST("/trigger", handler.TriggerNotification)
		}
	}
}
