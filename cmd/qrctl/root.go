package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"qrgen/internal/engine/history"
	"qrgen/internal/engine/qrcodes"
	"qrgen/internal/pkg/logger"
	"qrgen/internal/platform/audit"
	"qrgen/internal/platform/config"
	"qrgen/internal/platform/database"
)

type app struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "qrctl",
		Short:        "qrctl manages generated QR codes from the command line",
		Long:         `qrctl generates, lists and purges QR codes using the same storage and history file as the web server.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", envOr("QRGEN_CONFIG", "configs/config.yaml"), "path to configuration file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newGenerateCmd(a), newListCmd(a), newPurgeCmd(a))
	return root
}

// service builds the same workflow stack the server uses. The returned
// close func is always safe to call.
func (a *app) service() (*qrcodes.Service, func(), error) {
	noop := func() {}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, noop, err
	}

	logCfg := cfg.Logging
	if logCfg.Output == "stdout" {
		logCfg.Output = "stderr"
	}
	logCfg.Level = "warn"
	if a.verbose {
		logCfg.Level = "debug"
	}
	logger.Init(logCfg)

	ledger, err := history.Open(cfg.Storage.HistoryFile)
	if err != nil {
		return nil, noop, err
	}

	encoder, err := qrcodes.NewEncoder(qrcodes.EncodeOptions{
		Version:         cfg.QR.Version,
		BoxSize:         cfg.QR.BoxSize,
		Border:          cfg.QR.Border,
		ErrorCorrection: cfg.QR.ErrorCorrection,
		Style:           cfg.QR.Style,
	})
	if err != nil {
		return nil, noop, err
	}

	closer := noop
	var recorder qrcodes.Recorder
	if cfg.Audit.Enabled {
		db, err := database.OpenSQLite(cfg.Audit.DBPath)
		if err != nil {
			return nil, noop, fmt.Errorf("open audit database: %w", err)
		}
		closer = func() { db.Close() }

		auditLogger := audit.NewLogger(db)
		if err := auditLogger.Migrate(); err != nil {
			closer()
			return nil, noop, err
		}
		recorder = auditLogger
	}

	svc, err := qrcodes.NewService(ledger, encoder, qrcodes.Options{
		OutputDir:    cfg.Storage.OutputDir,
		PublicPrefix: cfg.Storage.PublicPrefix,
		Recorder:     recorder,
	})
	if err != nil {
		closer()
		return nil, noop, err
	}
	return svc, closer, nil
}

// commandContext tags audit events recorded by a command so they can be told
// apart from web requests.
func commandContext(cmd *cobra.Command) context.Context {
	return audit.WithRequest(cmd.Context(), uuid.NewString(), "local", "qrctl")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
