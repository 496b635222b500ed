// internal/storage/file/snapshot.go
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rovshanmuradov/lp-sniper/internal/domain"
	"github.com/rovshanmuradov/lp-sniper/internal/storage"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// entry is the on-disk shape: tokenId -> {symbol, amount, price}.
type entry struct {
	Symbol    string      `json:"symbol"`
	Amount    json.Number `json:"amount"`
	Price     json.Number `json:"price"`
	OpenedAt  *time.Time  `json:"opened_at,omitempty"`
	UpdatedAt *time.Time  `json:"updated_at,omitempty"`
}

// SnapshotStore keeps the portfolio as one JSON document.
type SnapshotStore struct {
	path   string
	mu     sync.Mutex
	logger *zap.Logger
}

var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// NewSnapshotStore проверяет, что каталог доступен для записи.
func NewSnapshotStore(path string, logger *zap.Logger) (*SnapshotStore, error) {
	if path == "" {
		return nil, domain.Errorf(domain.KindConfig, "file.NewSnapshotStore", "empty portfolio path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	return &SnapshotStore{path: path, logger: logger.Named("portfolio_file")}, nil
}

func (s *SnapshotStore) Load(_ context.Context) (map[string]domain.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Info("Portfolio file not found, starting empty", zap.String("path", s.path))
		return map[string]domain.Position{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read portfolio: %w", err)
	}
	if len(data) == 0 {
		return map[string]domain.Position{}, nil
	}

	var raw map[string]entry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, domain.E(domain.KindMalformed, "file.Load", err)
	}

	out := make(map[string]domain.Position, len(raw))
	for token, e := range raw {
		p, err := e.position(token)
		if err != nil {
			return nil, domain.E(domain.KindMalformed, "file.Load", err)
		}
		out[token] = p
	}
	return out, nil
}

// Save пишет во временный файл рядом и переименовывает его поверх старого снимка.
func (s *SnapshotStore) Save(_ context.Context, positions map[string]domain.Position) error {
	raw := make(map[string]entry, len(positions))
	for token, p := range positions {
		raw[token] = newEntry(p)
	}
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode portfolio: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write portfolio: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync portfolio: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace portfolio: %w", err)
	}

	s.logger.Debug("Portfolio saved", zap.Int("positions", len(positions)))
	return nil
}

func (s *SnapshotStore) Close() error { return nil }

func newEntry(p domain.Position) entry {
	e := entry{
		Symbol: p.Symbol,
		Amount: json.Number(p.Amount.String()),
		Price:  json.Number(p.Price.String()),
	}
	if !p.OpenedAt.IsZero() {
		t := p.OpenedAt
		e.OpenedAt = &t
	}
	if !p.UpdatedAt.IsZero() {
		t := p.UpdatedAt
		e.UpdatedAt = &t
	}
	return e
}

func (e entry) position(token string) (domain.Position, error) {
	amount, err := decimal.NewFromString(e.Amount.String())
	if err != nil {
		return domain.Position{}, fmt.Errorf("amount of %s: %w", token, err)
	}
	price := decimal.Zero
	if e.Price != "" {
		if price, err = decimal.NewFromString(e.Price.String()); err != nil {
			return domain.Position{}, fmt.Errorf("price of %s: %w", token, err)
		}
	}
	p := domain.Position{
		TokenID: token,
		Symbol:  e.Symbol,
		Amount:  amount,
		Price:   price,
	}
	if p.Symbol == "" {
		p.Symbol = token
	}
	if e.OpenedAt != nil {
		p.OpenedAt = *e.OpenedAt
	}
	if e.UpdatedAt != nil {
		p.UpdatedAt = *e.UpdatedAt
	}
	return p, nil
}
