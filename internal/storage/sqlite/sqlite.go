// internal/storage/sqlite/sqlite.go
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rovshanmuradov/lp-sniper/internal/domain"
	"github.com/rovshanmuradov/lp-sniper/internal/storage"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Суммы хранятся строками, чтобы не терять точность decimal
const schema = `
CREATE TABLE IF NOT EXISTS positions (
    token_id   TEXT PRIMARY KEY,
    symbol     TEXT     NOT NULL,
    amount     TEXT     NOT NULL,
    price      TEXT     NOT NULL,
    opened_at  DATETIME,
    updated_at DATETIME
);

CREATE TABLE IF NOT EXISTS trades (
    id         TEXT PRIMARY KEY,
    ts         DATETIME NOT NULL,
    side       TEXT     NOT NULL,
    token      TEXT     NOT NULL,
    amount     TEXT     NOT NULL,
    price      TEXT     NOT NULL DEFAULT '0',
    signature  TEXT,
    success    INTEGER  NOT NULL,
    error_kind TEXT,
    error_msg  TEXT
);

CREATE INDEX IF NOT EXISTS idx_trades_token ON trades(token);
CREATE INDEX IF NOT EXISTS idx_trades_ts    ON trades(ts DESC);
`

// Store implements both the snapshot store and the trade journal on one database file.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

var (
	_ storage.SnapshotStore = (*Store)(nil)
	_ storage.TradeJournal  = (*Store)(nil)
)

// Open открывает (или создаёт) базу и применяет схему.
func Open(path string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite.Open: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // один писатель
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite.Open: apply schema: %w", err)
	}
	return &Store{db: db, logger: logger.Named("sqlite")}, nil
}

func (s *Store) Load(ctx context.Context) (map[string]domain.Position, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT token_id, symbol, amount, price, opened_at, updated_at FROM positions`)
	if err != nil {
		return nil, fmt.Errorf("sqlite.Load: %w", err)
	}
	defer rows.Close()

	out := make(map[string]domain.Position)
	for rows.Next() {
		var (
			p               domain.Position
			amount, price   string
			opened, updated sql.NullTime
		)
		if err := rows.Scan(&p.TokenID, &p.Symbol, &amount, &price, &opened, &updated); err != nil {
			return nil, fmt.Errorf("sqlite.Load: scan: %w", err)
		}
		if p.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, domain.E(domain.KindMalformed, "sqlite.Load", err)
		}
		if p.Price, err = decimal.NewFromString(price); err != nil {
			return nil, domain.E(domain.KindMalformed, "sqlite.Load", err)
		}
		if opened.Valid {
			p.OpenedAt = opened.Time.UTC()
		}
		if updated.Valid {
			p.UpdatedAt = updated.Time.UTC()
		}
		out[p.TokenID] = p
	}
	return out, rows.Err()
}

// Save заменяет содержимое таблицы positions одной транзакцией.
func (s *Store) Save(ctx context.Context, positions map[string]domain.Position) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite.Save: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM positions`); err != nil {
		return fmt.Errorf("sqlite.Save: clear: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO positions (token_id, symbol, amount, price, opened_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlite.Save: prepare: %w", err)
	}
	defer stmt.Close()

	for token, p := range positions {
		if _, err := stmt.ExecContext(ctx, token, p.Symbol, p.Amount.String(), p.Price.String(),
			nullTime(p.OpenedAt), nullTime(p.UpdatedAt)); err != nil {
			return fmt.Errorf("sqlite.Save: insert %s: %w", token, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite.Save: commit: %w", err)
	}
	return nil
}

func (s *Store) Append(ctx context.Context, rec domain.TradeRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trades (id, ts, side, token, amount, price, signature, success, error_kind, error_msg)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Timestamp.UTC(), string(rec.Side), rec.Token, rec.Amount.String(), rec.Price.String(),
		rec.Signature, rec.Success, string(rec.ErrorKind), rec.ErrorMsg)
	if err != nil {
		return fmt.Errorf("sqlite.Append: %w", err)
	}
	return nil
}

// Trades returns journal entries for a token, oldest first.
func (s *Store) Trades(ctx context.Context, token string) ([]domain.TradeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ts, side, token, amount, price, signature, success, error_kind, error_msg
		FROM trades WHERE token = ? ORDER BY ts ASC`, token)
	if err != nil {
		return nil, fmt.Errorf("sqlite.Trades: %w", err)
	}
	defer rows.Close()

	var out []domain.TradeRecord
	for rows.Next() {
		var (
			rec                       domain.TradeRecord
			side, amount, price, kind string
			sig, msg                  sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.Timestamp, &side, &rec.Token, &amount, &price,
			&sig, &rec.Success, &kind, &msg); err != nil {
			return nil, fmt.Errorf("sqlite.Trades: scan: %w", err)
		}
		rec.Side = domain.Side(side)
		rec.ErrorKind = domain.Kind(kind)
		rec.Signature = sig.String
		rec.ErrorMsg = msg.String
		rec.Amount, _ = decimal.NewFromString(amount)
		rec.Price, _ = decimal.NewFromString(price)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
