package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"qrgen/internal/api"
	"qrgen/internal/api/handlers"
	"qrgen/internal/engine/history"
	"qrgen/internal/engine/qrcodes"
	"qrgen/internal/pkg/logger"
	"qrgen/internal/platform/audit"
	"qrgen/internal/platform/config"
	"qrgen/internal/platform/database"
)

func main() {
	configPath := flag.String("config", envOr("QRGEN_CONFIG", "configs/config.yaml"), "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging)

	ledger, err := history.Open(cfg.Storage.HistoryFile)
	if err != nil {
		if errors.Is(err, history.ErrLedgerCorrupt) {
			log.Fatal().Err(err).Str("path", cfg.Storage.HistoryFile).Msg("history file is corrupt, fix or remove it before starting")
		}
		log.Fatal().Err(err).Msg("Failed to open history")
	}

	encoder, err := qrcodes.NewEncoder(qrcodes.EncodeOptions{
		Version:         cfg.QR.Version,
		BoxSize:         cfg.QR.BoxSize,
		Border:          cfg.QR.Border,
		ErrorCorrection: cfg.QR.ErrorCorrection,
		Style:           cfg.QR.Style,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure encoder")
	}

	// Audit trail (optional)
	var auditLogger *audit.Logger
	var recorder qrcodes.Recorder
	if cfg.Audit.Enabled {
		db, err := database.OpenSQLite(cfg.Audit.DBPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open audit database")
		}
		defer db.Close()

		auditLogger = audit.NewLogger(db)
		if err := auditLogger.Migrate(); err != nil {
			log.Fatal().Err(err).Msg("Failed to migrate audit database")
		}
		recorder = auditLogger
	}

	metrics := qrcodes.NewMetrics()
	svc, err := qrcodes.NewService(ledger, encoder, qrcodes.Options{
		OutputDir:    cfg.Storage.OutputDir,
		PublicPrefix: cfg.Storage.PublicPrefix,
		Recorder:     recorder,
		Metrics:      metrics,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise qr code service")
	}

	// Router
	deps := &api.Dependencies{
		WebHandler:     handlers.NewWebHandler(svc),
		QRCodeHandler:  handlers.NewQRCodeHandler(svc),
		AuditHandler:   handlers.NewAuditHandler(auditLogger),
		HealthHandler:  handlers.NewHealthHandler(svc, cfg.Storage.HistoryFile, auditLogger),
		MetricsHandler: handlers.NewMetricsHandler(svc, metrics),
		OutputDir:      svc.OutputDir(),
		PublicPrefix:   svc.PublicPrefix(),
	}
	router := api.NewRouter(deps)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().
			Str("addr", addr).
			Str("output_dir", svc.OutputDir()).
			Str("history_file", ledger.Path()).
			Int("entries", ledger.Len()).
			Bool("audit", cfg.Audit.Enabled).
			Msg("Server starting")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Shutdown failed")
	}
	log.Info().Msg("Server stopped")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
