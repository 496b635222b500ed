// internal/portfolio/portfolio_test.go
package portfolio

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rovshanmuradov/lp-sniper/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type memStore struct {
	mu    sync.Mutex
	data  map[string]domain.Position
	saves int
	err   error
}

func (m *memStore) Load(context.Context) (map[string]domain.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string]domain.Position, len(m.data))
	for k, v := range m.data {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) Save(_ context.Context, positions map[string]domain.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data = positions
	m.saves++
	return nil
}

func (m *memStore) Close() error { return nil }

func pos(token string, amount int64) domain.Position {
	return domain.NewPosition(token, decimal.NewFromInt(amount), decimal.NewFromInt(1))
}

func TestPortfolio_CRUD(t *testing.T) {
	p := New(&memStore{}, zaptest.NewLogger(t))

	p.Upsert(pos("MintB", 2))
	p.Upsert(pos("MintA", 1))
	assert.Equal(t, 2, p.Len())
	assert.True(t, p.Has("MintA"))

	got, ok := p.Get("MintB")
	require.True(t, ok)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(2)))

	p.Upsert(pos("MintB", 5))
	got, _ = p.Get("MintB")
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(5)))

	list := p.Positions()
	require.Len(t, list, 2)
	assert.Equal(t, "MintA", list[0].TokenID)

	assert.True(t, p.Delete("MintA"))
	assert.False(t, p.Delete("MintA"))
	assert.Equal(t, 1, p.Len())
}

func TestPortfolio_SaveLoadRoundTrip(t *testing.T) {
	store := &memStore{}
	p := New(store, zaptest.NewLogger(t))
	p.Upsert(pos("MintA", 100000))
	p.Upsert(pos("MintB", 90000))
	require.NoError(t, p.Save(t.Context()))
	assert.Equal(t, 1, store.saves)

	restored := New(store, zaptest.NewLogger(t))
	require.NoError(t, restored.Load(t.Context()))
	assert.Equal(t, p.Len(), restored.Len())
	for _, want := range p.Positions() {
		got, ok := restored.Get(want.TokenID)
		require.True(t, ok)
		assert.True(t, want.Equal(got))
	}
}

func TestPortfolio_SnapshotIsACopy(t *testing.T) {
	p := New(&memStore{}, zaptest.NewLogger(t))
	p.Upsert(pos("MintA", 1))

	snap := p.Snapshot()
	delete(snap, "MintA")
	assert.True(t, p.Has("MintA"))
}

func TestPortfolio_StoreErrors(t *testing.T) {
	store := &memStore{err: errors.New("disk gone")}
	p := New(store, zaptest.NewLogger(t))

	assert.ErrorContains(t, p.Load(t.Context()), "disk gone")
	assert.ErrorContains(t, p.Save(t.Context()), "disk gone")
}

func TestPortfolio_ConcurrentReaders(t *testing.T) {
	p := New(&memStore{}, zaptest.NewLogger(t))
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = p.Positions()
				_ = p.Len()
			}
		}()
	}
	for j := 0; j < 100; j++ {
		p.Upsert(pos("MintA", int64(j+1)))
	}
	wg.Wait()
	assert.Equal(t, 1, p.Len())
}
