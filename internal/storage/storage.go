// internal/storage/storage.go
package storage

import (
	"context"
	"errors"

	"github.com/rovshanmuradov/lp-sniper/internal/domain"
)

// Backend names accepted by the storage config.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// SnapshotStore хранит портфель целиком: каждый Save перезаписывает предыдущий снимок.
type SnapshotStore interface {
	// Load возвращает пустую карту, если снимка ещё нет
	Load(ctx context.Context) (map[string]domain.Position, error)
	Save(ctx context.Context, positions map[string]domain.Position) error
	Close() error
}

// TradeJournal is the append-only audit log of order attempts.
type TradeJournal interface {
	Append(ctx context.Context, rec domain.TradeRecord) error
	Close() error
}

// MultiJournal пишет каждую запись во все журналы.
type MultiJournal []TradeJournal

func (m MultiJournal) Append(ctx context.Context, rec domain.TradeRecord) error {
	var errs []error
	for _, j := range m {
		if err := j.Append(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiJournal) Close() error {
	var errs []error
	for _, j := range m {
		if err := j.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Clone returns a copy safe to hand to a store while the caller keeps mutating.
func Clone(positions map[string]domain.Position) map[string]domain.Position {
	out := make(map[string]domain.Position, len(positions))
	for k, v := range positions {
		out[k] = v
	}
	return out
}
