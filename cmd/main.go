package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yourorg/videotube/internal/config"
	"github.com/yourorg/videotube/internal/events"
	"github.com/yourorg/videotube/internal/handlers"
	"github.com/yourorg/videotube/internal/metrics"
	"github.com/yourorg/videotube/internal/middleware"
	"github.com/yourorg/videotube/internal/repository"
	"github.com/yourorg/videotube/internal/routes"
	service "github.com/yourorg/videotube/internal/services"
	"github.com/yourorg/videotube/internal/storage"
	"github.com/yourorg/videotube/internal/token"
	"github.com/yourorg/videotube/internal/utils"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		panic(err)
	}
	dev := cfg.App.Env == "development"

	logger, _ := utils.NewLogger(dev)
	defer func() { _ = logger.Sync() }()

	// Mongo
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	mc, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		logger.Fatalf("mongo connect: %v", err)
	}
	db := mc.Database(cfg.Mongo.Database)
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		logger.Fatalf("ensure indexes: %v", err)
	}
	userRepo := repository.NewUserRepo(db.Collection("users"))
	subRepo := repository.NewSubscriptionRepo(db.Collection("subscriptions"))
	videoRepo := repository.NewVideoRepo(db.Collection("videos"))

	// S3 media store
	store, err := storage.NewS3Store(context.Background(), cfg.AWS.Region, cfg.AWS.Bucket, cfg.AWS.Endpoint, cfg.S3.PublicRead)
	if err != nil {
		logger.Fatalf("s3 init: %v", err)
	}

	// optional collaborators
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	pub, err := events.NewPublisher(cfg.NATS.URL, logger)
	if err != nil {
		logger.Fatalf("nats connect: %v", err)
	}

	// services
	tokens := token.NewManager(cfg.JWT.Secret, cfg.AccessTTL, cfg.RefreshTTL)
	mediaSvc := service.NewMediaService(store, logger, cfg.UploadTimeout)
	authSvc := service.NewAuthService(userRepo, tokens, logger)
	profileSvc := service.NewProfileService(userRepo, subRepo, videoRepo, logger)

	// fiber app & routes
	app := fiber.New(fiber.Config{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: utils.ErrorHandler,
		BodyLimit:    25 * 1024 * 1024,
	})
	app.Use(metrics.Middleware())

	h := handlers.NewUserHandler(authSvc, profileSvc, mediaSvc, pub, logger, cfg.RequestTimeout)
	limiter := middleware.NewRateLimiter(redisClient, "videotube:ratelimit", cfg.Redis.LoginLimit, cfg.LoginWindow)
	routes.Register(app, h, middleware.RequireAuth(tokens, userRepo), limiter)

	// metrics listener
	if cfg.Metrics.Port > 0 {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
			logger.Infof("metrics listening on %s", addr)
			if err := http.ListenAndServe(addr, mux); err != nil {
				logger.Errorf("metrics listener: %v", err)
			}
		}()
	}

	go func() {
		addr := fmt.Sprintf(":%d", cfg.App.Port)
		logger.Infof("starting videotube api on %s", addr)
		if err := app.Listen(addr); err != nil {
			logger.Fatalf("listen failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info("shutdown requested")
	timeoutCtx, cancel2 := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel2()

	_ = app.Shutdown()
	_ = mc.Disconnect(timeoutCtx)
	if redisClient != nil {
		_ = redisClient.Close()
	}
	pub.Close()
	logger.Info("shutdown completed")
}
