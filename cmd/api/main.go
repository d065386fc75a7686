package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/statline/statline-engine/internal/adapters/cache"
	adapterHTTP "github.com/statline/statline-engine/internal/adapters/handler/http"
	"github.com/statline/statline-engine/internal/adapters/repository"
	"github.com/statline/statline-engine/internal/core/domain"
	"github.com/statline/statline-engine/internal/core/services"
	"github.com/statline/statline-engine/internal/core/workers"
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	startTime := time.Now()

	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env")
	}

	dbUser := os.Getenv("DB_USER")
	dbPass := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "5432")

	serverPort := getEnv("PORT", "8080")

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("Critical: JWT_SECRET is not set")
	}
	jwtIssuer := getEnv("JWT_ISSUER", "statline-engine")

	tokenHours, err := strconv.Atoi(getEnv("JWT_TTL_HOURS", "24"))
	if err != nil || tokenHours <= 0 {
		log.Fatalf("Critical: invalid JWT_TTL_HOURS: %v", err)
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		dbUser, dbPass, dbHost, dbPort, dbName)

	log.Println("Connecting to database...")

	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		log.Fatalf("Critical: Failed to connect to database: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	log.Println("Database connected successfully.")

	// Redis is optional: without it the API runs uncached and unlimited.
	redisClient, err := cache.NewRedisClient(cache.Config{
		Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
	})
	if err != nil {
		log.Printf("Redis unavailable, continuing without cache: %v", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	var categoryRepo domain.CategoryRepository = repository.NewPostgresCategoryRepository(db)
	if redisClient != nil {
		categoryRepo = repository.NewCachedCategoryRepository(categoryRepo, redisClient)
	}
	userRepo := repository.NewPostgresUserRepository(db)

	reconcileWorker := workers.NewReconcileWorker(repository.NewPostgresCategoryRepository(db))

	categoryService := services.NewCategoryService(categoryRepo, reconcileWorker)
	overviewService := services.NewOverviewService(categoryRepo)
	authService := services.NewAuthService(userRepo)
	tokenService := services.NewTokenService(jwtSecret, jwtIssuer, time.Duration(tokenHours)*time.Hour, userRepo)

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	reconcileWorker.Start(workerCtx)

	router := adapterHTTP.NewRouter(adapterHTTP.RouterDependencies{
		AuthHandler:     adapterHTTP.NewAuthHandler(authService, tokenService),
		CategoryHandler: adapterHTTP.NewCategoryHandler(categoryService),
		OverviewHandler: adapterHTTP.NewOverviewHandler(overviewService),
		TokenService:    tokenService,
		DB:              db,
		Redis:           redisClient,
		StartTime:       startTime,
	})

	srv := &http.Server{
		Addr:         ":" + serverPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Statline Engine running on http://localhost:%s", serverPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Critical server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Stop signal received. Shutting down...")

	stopWorker()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Forced shutdown error:", err)
	}

	log.Println("Server stopped gracefully.")
}
