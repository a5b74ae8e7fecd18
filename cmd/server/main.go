package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"subhlabh/internal/cache"
	"subhlabh/internal/config"
	"subhlabh/internal/infra"
	"subhlabh/internal/repository"
	"subhlabh/internal/router"
	"subhlabh/internal/service"
	"subhlabh/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		infra.SetupLogger(false, "info")
		log.Fatal().Err(err).Msg("failed to load config")
	}
	infra.SetupLogger(cfg.IsProduction(), cfg.LogLevel)

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	// Redis carries caches and receipt jobs only; the API keeps serving without it.
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = infra.NewRedis(cfg.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, running without cache and receipt jobs")
			rdb = nil
		}
	}
	breaker := cache.NewBreaker(cache.BreakerConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Background work is wired here so the pool sees the same repositories as the API.
	userRepo := repository.NewShopUserRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	receipts := worker.NewReceiptWorker(saleRepo, userRepo, cfg.ReceiptStoragePath)
	worker.NewPool(rdb, map[string]worker.Handler{
		worker.JobReceipt: receipts.Process,
	}).Start(ctx, cfg.WorkerPoolSize)

	clock := service.NewClock(userRepo, cfg.DefaultTimezone)
	accounts := service.NewAccountService(userRepo, clock, cfg.AccountDeletionGraceDays)
	worker.StartPurgeCron(ctx, accounts, time.Hour)

	r := router.New(cfg, db, rdb, breaker)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("subhlabh API listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	log.Info().Msg("server exited")
}
