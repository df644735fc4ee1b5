package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"referral-service/internal/config"
	pg "referral-service/internal/infra/db/postgres"
	"referral-service/internal/infra/logging"
	"referral-service/internal/infra/metrics"
	red "referral-service/internal/infra/redis"
	"referral-service/internal/infra/web"
	"referral-service/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, int32(cfg.Database.PoolSize))
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()
	go pg.ReportPoolStats(ctx, pool, 15*time.Second)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect failed")
	}
	defer redisClient.Close()

	// ---- Repositories ----
	deviceRepo := pg.NewDeviceRepo(pool)
	codeRepo := pg.NewReferralCodeRepo(pool)
	submissionRepo := pg.NewSubmissionRepo(pool)
	txManager := pg.NewTxManager(pool)
	banLedger := red.NewBanLedger(redisClient, cfg.Referral.BanThreshold, cfg.Referral.BanWindow)

	// ---- Use cases ----
	deviceUC := usecase.NewDeviceUseCase(deviceRepo, banLedger, logger)
	validationUC := usecase.NewValidationUseCase(deviceUC, codeRepo, banLedger, logger)
	submissionUC := usecase.NewSubmissionUseCase(deviceUC, codeRepo, submissionRepo, banLedger, txManager, logger)
	adminUC := usecase.NewCodeAdminUseCase(codeRepo, submissionRepo, logger)

	// ---- HTTP ----
	srv := web.NewServer(validationUC, submissionUC, deviceUC, adminUC, cfg.Admin.APIKey, cfg.Session.JWTSecret, logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown error")
	}
	cancel()
}
