package main

import (
	"context"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"platefinder/internal/auth"
	"platefinder/internal/cache"
	"platefinder/internal/config"
	"platefinder/internal/db"
	"platefinder/internal/handler"
	"platefinder/internal/model"
	"platefinder/internal/notify"
	"platefinder/internal/repository"
	"platefinder/internal/router"
	"platefinder/internal/service"
	"platefinder/internal/session"
	"platefinder/internal/storage"
)

func main() {
	cfg := config.Load()

	e := echo.New()
	e.Use(middleware.RequestID())

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}

	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Restaurant{},
		&model.OpeningHour{},
		&model.RestaurantTag{},
		&model.RestaurantCategory{},
		&model.RestaurantContact{},
		&model.RestaurantImage{},
		&model.Review{},
		&model.ReviewImage{},
	); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})
	cacheClient := cache.New(redisClient)
	sessionStore := session.NewRedisStore(redisClient)
	flows := session.NewFlows(sessionStore)

	gateway, err := storage.NewS3Gateway(context.Background(), cfg.S3Region, cfg.S3Bucket)
	if err != nil {
		log.Fatalf("object storage init: %v", err)
	}

	dispatcher := notify.NewSMTPDispatcher(
		cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom, cfg.SMTPTimeout,
	)

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)
	restaurantRepo := repository.NewRestaurantRepository(gormDB)
	reviewRepo := repository.NewReviewRepository(gormDB)
	txManager := repository.NewTxManager(gormDB)

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	tokenStore := auth.NewTokenStore(redisClient)

	// Initialize services
	authService := service.NewAuthService(userRepo, jwtService, tokenStore)
	verificationService := service.NewVerificationService(userRepo, flows, dispatcher, authService, tokenStore)
	profileService := service.NewProfileService(userRepo, gateway)
	restaurantService := service.NewRestaurantService(txManager, restaurantRepo, gateway, cacheClient)
	reviewService := service.NewReviewService(txManager, reviewRepo, gateway, cacheClient)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(verificationService, authService)
	profileHandler := handler.NewProfileHandler(profileService)
	restaurantHandler := handler.NewRestaurantHandler(restaurantService)
	reviewHandler := handler.NewReviewHandler(reviewService)

	// Register routes
	router.Register(
		e,
		cfg,
		authHandler,
		profileHandler,
		restaurantHandler,
		reviewHandler,
	)

	addr := ":" + cfg.ServerPort
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server start: %v", err)
	}
}
