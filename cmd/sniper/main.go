// ====================================
// File: cmd/sniper/main.go
// ====================================
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/lp-sniper/internal/bot"
	"github.com/rovshanmuradov/lp-sniper/internal/config"
	"github.com/rovshanmuradov/lp-sniper/internal/export"
	"github.com/rovshanmuradov/lp-sniper/internal/logger"
)

func main() {
	configPath := flag.String("config", "configs/config.json", "path to config file")
	status := flag.Bool("status", false, "print the saved portfolio and exit")
	debug := flag.Bool("debug", false, "enable debug logging")
	exportFormat := flag.String("export", "", "export the trade log as csv or json and exit")
	exportDir := flag.String("export-dir", "exports", "directory for -export output")
	flag.Parse()

	opts := options{
		configPath:   *configPath,
		status:       *status,
		debug:        *debug,
		exportFormat: *exportFormat,
		exportDir:    *exportDir,
	}
	if err := run(opts); err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}

type options struct {
	configPath   string
	status       bool
	debug        bool
	exportFormat string
	exportDir    string
}

func run(opts options) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return err
	}

	logCfg := logger.DefaultConfig()
	logCfg.LogFile = cfg.Log.File
	logCfg.Development = opts.debug || cfg.Log.Debug
	log, err := logger.New(logCfg)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	if opts.status {
		return bot.Status(ctx, cfg, log.Logger, os.Stdout)
	}
	if opts.exportFormat != "" {
		return exportTrades(cfg.Storage.TradeLogPath, opts, log.Logger)
	}

	log.Info("🚀 Starting LP sniper",
		zap.String("program_id", cfg.ProgramID),
		zap.String("websocket", config.MaskRPCForLogging(cfg.WebSocketURL)),
		zap.Strings("rpc", maskAll(cfg.RPCList)),
		zap.String("storage", cfg.Storage.Backend))

	svc, err := bot.NewService(ctx, cfg, log.Logger)
	if err != nil {
		log.Error("Failed to initialize sniper", zap.Error(err))
		return err
	}

	if err := svc.Run(ctx); err != nil {
		log.Error("Sniper stopped with error", zap.Error(err))
		return err
	}
	log.Info("👋 Sniper stopped")
	return nil
}

func exportTrades(tradeLog string, opts options, log *zap.Logger) error {
	trades, skipped, err := export.ReadJournal(tradeLog)
	if err != nil {
		return err
	}
	if skipped > 0 {
		log.Warn("⚠️ Skipped malformed trade log lines", zap.Int("count", skipped))
	}

	path, err := export.NewTradeExporter(log).ExportTrades(trades, export.ExportOptions{
		Format:    export.ExportFormat(opts.exportFormat),
		OutputDir: opts.exportDir,
	})
	if err != nil {
		return err
	}
	fmt.Println("📤", path)
	return nil
}

func maskAll(urls []string) []string {
	out := make([]string, len(urls))
	for i, u := range urls {
		out[i] = config.MaskRPCForLogging(u)
	}
	return out
}
