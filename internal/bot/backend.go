// internal/bot/backend.go
package bot

import (
	"context"

	"github.com/rovshanmuradov/lp-sniper/internal/config"
	"github.com/rovshanmuradov/lp-sniper/internal/domain"
	"github.com/rovshanmuradov/lp-sniper/internal/storage"
	"github.com/rovshanmuradov/lp-sniper/internal/storage/file"
	"github.com/rovshanmuradov/lp-sniper/internal/storage/postgres"
	"github.com/rovshanmuradov/lp-sniper/internal/storage/redis"
	"github.com/rovshanmuradov/lp-sniper/internal/storage/sqlite"
	"go.uber.org/zap"
)

// openSnapshotStore открывает хранилище портфеля выбранного бэкенда.
// Для sqlite и postgres тот же объект служит журналом сделок.
func openSnapshotStore(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (storage.SnapshotStore, error) {
	switch cfg.Backend {
	case storage.BackendFile, "":
		return file.NewSnapshotStore(cfg.PortfolioPath, logger)
	case storage.BackendSQLite:
		return sqlite.Open(cfg.SQLitePath, logger)
	case storage.BackendPostgres:
		return postgres.Open(cfg.DSN, logger)
	case storage.BackendRedis:
		return redis.Open(ctx, cfg.RedisAddr, cfg.RedisKey, logger)
	default:
		return nil, domain.Errorf(domain.KindConfig, "bot.openSnapshotStore", "unknown storage backend %q", cfg.Backend)
	}
}

// openJournal собирает журнал сделок: JSONL-файл, сам store, если он умеет Append,
// и CSV-копия, если задан trade_csv_path. Файлы закрывает shutdown.
func openJournal(cfg config.StorageConfig, store storage.SnapshotStore, shutdown *ShutdownHandler, logger *zap.Logger) (storage.TradeJournal, error) {
	var journals storage.MultiJournal

	if cfg.TradeLogPath != "" || cfg.Backend == storage.BackendFile || cfg.Backend == "" {
		j, err := file.NewJournal(cfg.TradeLogPath, logger)
		if err != nil {
			return nil, err
		}
		shutdown.Add("trade-log", j)
		journals = append(journals, j)
	}

	if j, ok := store.(storage.TradeJournal); ok {
		journals = append(journals, j)
	}

	if cfg.TradeCSVPath != "" {
		j, err := file.NewCSVJournal(cfg.TradeCSVPath, logger)
		if err != nil {
			return nil, err
		}
		shutdown.Add("trade-csv", j)
		journals = append(journals, j)
	}

	if len(journals) == 0 {
		return nil, domain.Errorf(domain.KindConfig, "bot.openJournal", "no trade journal configured")
	}
	if len(journals) == 1 {
		return journals[0], nil
	}
	return journals, nil
}
