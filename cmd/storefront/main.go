package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/motorline/storefront-go/internal/cart"
	"github.com/motorline/storefront-go/internal/catalog"
	"github.com/motorline/storefront-go/internal/config"
	"github.com/motorline/storefront-go/internal/db"
	"github.com/motorline/storefront-go/internal/events"
	httpserver "github.com/motorline/storefront-go/internal/http"
	"github.com/motorline/storefront-go/internal/order"
)

func main() {
	cfg := config.Load()

	logger := log.New(os.Stdout, "[storefront] ", log.LstdFlags|log.Lshortfile)

	// DB
	database := db.MustOpen(cfg.DatabaseDSN)
	defer database.Close()

	if cfg.MigrateOnStart {
		if err := db.RunMigrations(cfg.DatabaseDSN, logger); err != nil {
			logger.Fatalf("migrations: %v", err)
		}
	}

	// Catalog (price oracle) with Redis snapshot cache
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer redisClient.Close()

	catalogClient := catalog.NewClient(cfg.CatalogURL, &http.Client{}, cfg.CatalogTimeout)
	oracle := catalog.NewOracle(catalogClient, catalog.NewRedisCache(redisClient, cfg.CacheTTL), logger)

	// RabbitMQ
	rabbitConn := events.MustDial(cfg.RabbitURL)
	defer rabbitConn.Close()

	publisher, err := events.NewPublisher(rabbitConn)
	if err != nil {
		logger.Fatalf("events publisher: %v", err)
	}
	defer publisher.Close()

	// Services
	cartService := cart.NewService(cart.NewStore(database), oracle, logger)
	orderService := order.NewService(order.NewRepository(database), cartService, oracle, publisher, logger)

	// HTTP
	mux := httpserver.NewRouter(cartService, orderService)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Printf("storefront listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Println("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}
