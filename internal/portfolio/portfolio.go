// internal/portfolio/portfolio.go
package portfolio

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rovshanmuradov/lp-sniper/internal/domain"
	"github.com/rovshanmuradov/lp-sniper/internal/storage"
	"go.uber.org/zap"
)

// Portfolio holds tracked positions keyed by token id.
// Мутации выполняет только владелец (цикл движка); RWMutex нужен для read-only
// просмотров из других горутин: таблица статуса, метрики.
type Portfolio struct {
	mu        sync.RWMutex
	positions map[string]domain.Position
	store     storage.SnapshotStore
	logger    *zap.Logger
}

func New(store storage.SnapshotStore, logger *zap.Logger) *Portfolio {
	return &Portfolio{
		positions: make(map[string]domain.Position),
		store:     store,
		logger:    logger.Named("portfolio"),
	}
}

// Load replaces the in-memory state with the stored snapshot.
func (p *Portfolio) Load(ctx context.Context) error {
	positions, err := p.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load portfolio: %w", err)
	}

	p.mu.Lock()
	p.positions = make(map[string]domain.Position, len(positions))
	for token, pos := range positions {
		pos.TokenID = token
		p.positions[token] = pos
	}
	n := len(p.positions)
	p.mu.Unlock()

	p.logger.Info("📂 Portfolio loaded", zap.Int("positions", n))
	return nil
}

// Save перезаписывает снимок целиком.
func (p *Portfolio) Save(ctx context.Context) error {
	snapshot := p.Snapshot()
	if err := p.store.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("save portfolio: %w", err)
	}
	return nil
}

func (p *Portfolio) Upsert(pos domain.Position) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.positions[pos.TokenID] = pos
}

// Delete reports whether the token was present.
func (p *Portfolio) Delete(tokenID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.positions[tokenID]
	delete(p.positions, tokenID)
	return ok
}

func (p *Portfolio) Get(tokenID string) (domain.Position, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pos, ok := p.positions[tokenID]
	return pos, ok
}

func (p *Portfolio) Has(tokenID string) bool {
	_, ok := p.Get(tokenID)
	return ok
}

func (p *Portfolio) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.positions)
}

// Positions returns a copy sorted by token id.
func (p *Portfolio) Positions() []domain.Position {
	p.mu.RLock()
	out := make([]domain.Position, 0, len(p.positions))
	for _, pos := range p.positions {
		out = append(out, pos)
	}
	p.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].TokenID < out[j].TokenID })
	return out
}

// Snapshot returns a copy of the underlying map.
func (p *Portfolio) Snapshot() map[string]domain.Position {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return storage.Clone(p.positions)
}
