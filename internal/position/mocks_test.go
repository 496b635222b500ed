// internal/position/mocks_test.go
package position

import (
	"context"
	"sync"

	"github.com/rovshanmuradov/lp-sniper/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Quote(ctx context.Context, tokenIn, tokenOut string, amount decimal.Decimal) (decimal.Decimal, error) {
	args := m.Called(ctx, tokenIn, tokenOut, amount)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockGateway) Buy(ctx context.Context, token string, amount decimal.Decimal) (domain.OrderResult, error) {
	args := m.Called(ctx, token, amount)
	return args.Get(0).(domain.OrderResult), args.Error(1)
}

func (m *MockGateway) Sell(ctx context.Context, token string, amount decimal.Decimal) (domain.OrderResult, error) {
	args := m.Called(ctx, token, amount)
	return args.Get(0).(domain.OrderResult), args.Error(1)
}

// decEq matches a decimal argument by value.
func decEq(d decimal.Decimal) any {
	return mock.MatchedBy(func(v decimal.Decimal) bool { return v.Equal(d) })
}

type memStore struct {
	mu    sync.Mutex
	data  map[string]domain.Position
	saves int
}

func (m *memStore) Load(context.Context) (map[string]domain.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]domain.Position, len(m.data))
	for k, v := range m.data {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) Save(_ context.Context, p map[string]domain.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = p
	m.saves++
	return nil
}

func (m *memStore) Close() error { return nil }

type memJournal struct {
	mu      sync.Mutex
	records []domain.TradeRecord
}

func (j *memJournal) Append(_ context.Context, rec domain.TradeRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = append(j.records, rec)
	return nil
}

func (j *memJournal) Close() error { return nil }

type countingRecorder struct {
	buys, sells, failed int
	opened, closed      int
	size                int
}

func (r *countingRecorder) OrderPlaced(side domain.Side, err error) {
	if err != nil {
		r.failed++
	}
	if side == domain.SideBuy {
		r.buys++
	} else {
		r.sells++
	}
}
func (r *countingRecorder) PositionOpened()     { r.opened++ }
func (r *countingRecorder) PositionClosed()     { r.closed++ }
func (r *countingRecorder) PortfolioSize(n int) { r.size = n }
