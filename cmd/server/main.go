package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pagebound/pagebound/internal"
	"github.com/pagebound/pagebound/internal/cache"
	"github.com/pagebound/pagebound/internal/handler"
	"github.com/pagebound/pagebound/internal/middleware"
	"github.com/pagebound/pagebound/internal/mongo"
	"github.com/pagebound/pagebound/internal/routes"
	"github.com/pagebound/pagebound/internal/service"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg)

	// Connect to MongoDB
	logger.Info("Connecting to MongoDB...")
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	db, err := mongo.Connect(connectCtx, cfg.Mongo.URI, cfg.Mongo.Database)
	cancel()
	if err != nil {
		return fmt.Errorf("mongodb connection failed: %w", err)
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Client().Disconnect(disconnectCtx); err != nil {
			logger.Error("mongodb disconnect failed", "error", err)
		}
	}()
	logger.Info("MongoDB connection established")

	logger.Info("Ensuring indexes...")
	if err := mongo.EnsureIndexes(ctx, db); err != nil {
		return fmt.Errorf("index creation failed: %w", err)
	}
	logger.Info("Indexes ensured")

	// Optional Redis cart cache
	var cartCache cache.CartCache
	if cfg.Redis.Addr != "" {
		logger.Info("Connecting to Redis...", "addr", cfg.Redis.Addr)
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			// the cart works without the cache, just slower
			logger.Warn("Redis unavailable, continuing without cart cache", "error", err)
		} else {
			cartCache = cache.NewRedisCache(redisClient)
			defer redisClient.Close()
			logger.Info("Redis cart cache enabled")
		}
	}

	// Initialize stores
	catalogStore := mongo.NewCatalogStore(db)
	cartStore := mongo.NewCartStore(db)
	orderStore := mongo.NewOrderStore(db)

	// Initialize services
	cartService := service.NewCartService(cartStore, catalogStore, cartCache, logger)
	checkoutService := service.NewCheckoutService(cartStore, catalogStore, orderStore, cartCache, logger)
	orderService := service.NewOrderService(orderStore, catalogStore, logger)

	// Metrics
	var metrics *middleware.Metrics
	if cfg.Metrics.Enabled {
		metrics = middleware.NewMetrics(cfg.Metrics.Namespace)
	}

	// Build router
	router := routes.NewRouter(routes.Deps{
		Books:   handler.NewBookHandler(catalogStore, logger),
		Cart:    handler.NewCartHandler(cartService, logger),
		Orders:  handler.NewOrderHandler(checkoutService, orderService, logger),
		Logger:  logger,
		Metrics: metrics,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "addr", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-stop:
		logger.Info("Shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	logger.Info("Server stopped")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("startup failed: %v", err)
	}
}
