package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CodeWithProBrian/Mpesa/config"
	"github.com/CodeWithProBrian/Mpesa/internal/database"
	"github.com/CodeWithProBrian/Mpesa/internal/logging"
	"github.com/CodeWithProBrian/Mpesa/internal/metrics"
	"github.com/CodeWithProBrian/Mpesa/internal/router"
	"github.com/CodeWithProBrian/Mpesa/pkg/payment"

	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, !cfg.Server.IsProduction())

	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("database")
	}
	if err := database.AutoMigrate(db); err != nil {
		logger.Fatal().Err(err).Msg("migrate")
	}

	var rdb *redis.Client
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis url")
		}
		rdb = redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Fatal().Err(err).Msg("redis ping")
		}
		defer rdb.Close()
		logger.Info().Msg("redis enabled for callback locks and rate limiting")
	}

	metrics.MustRegister()

	var gateway payment.Gateway
	if cfg.Mpesa.Stub {
		logger.Warn().Msg("MPESA_STUB set: STK pushes will not reach Safaricom")
		gateway = &payment.StubGateway{}
	} else {
		gateway = payment.NewDarajaClient(payment.DarajaConfig{
			BaseURL:          cfg.Mpesa.BaseURL,
			ConsumerKey:      cfg.Mpesa.ConsumerKey,
			ConsumerSecret:   cfg.Mpesa.ConsumerSecret,
			Passkey:          cfg.Mpesa.Passkey,
			ShortCode:        cfg.Mpesa.ShortCode,
			CallbackURL:      cfg.Mpesa.CallbackURL,
			AccountReference: cfg.Mpesa.AccountReference,
			TransactionDesc:  cfg.Mpesa.TransactionDesc,
			Timeout:          cfg.Mpesa.RequestTimeout,
			CacheToken:       cfg.Mpesa.CacheToken,
		}, logger)
	}

	engine := router.Setup(cfg, router.Deps{
		DB:      db,
		Redis:   rdb,
		Gateway: gateway,
		Logger:  logger,
	})
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Info().Str("port", cfg.Server.Port).Str("env", cfg.Server.Env).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("listen")
		}
	}()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown")
	}
	logger.Info().Msg("server stopped")
}
