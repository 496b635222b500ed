// internal/position/manager_test.go
package position

import (
	"errors"
	"math"
	"testing"

	"github.com/rovshanmuradov/lp-sniper/internal/domain"
	"github.com/rovshanmuradov/lp-sniper/internal/portfolio"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	mintA = "7GCihgDB8fe6KNjn2MYtkzZcRjQy3t9GHdC8uHYmW2hr"
	mintB = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
)

type fixture struct {
	gw       *MockGateway
	store    *memStore
	journal  *memJournal
	recorder *countingRecorder
	pf       *portfolio.Portfolio
	m        *Manager
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	f := &fixture{
		gw:       new(MockGateway),
		store:    &memStore{},
		journal:  &memJournal{},
		recorder: &countingRecorder{},
	}
	f.pf = portfolio.New(f.store, zaptest.NewLogger(t))
	m, err := NewManager(cfg, f.gw, f.pf, f.journal, zaptest.NewLogger(t))
	require.NoError(t, err)
	f.m = m.WithRecorder(f.recorder)
	return f
}

func okResult(sig string) domain.OrderResult {
	return domain.OrderResult{Signatures: []string{sig}}
}

func TestOnPoolDetected_OpensBothPositions(t *testing.T) {
	cfg := DefaultConfig()
	f := newFixture(t, cfg)

	f.gw.On("Buy", mock.Anything, mintA, decEq(cfg.OpenAmount)).Return(okResult("buyA"), nil).Once()
	f.gw.On("Buy", mock.Anything, mintB, decEq(cfg.OpenAmount)).Return(okResult("buyB"), nil).Once()
	f.gw.On("Quote", mock.Anything, WSOLMint, mintA, decEq(cfg.OpenAmount)).Return(decimal.NewFromInt(5000), nil)
	f.gw.On("Quote", mock.Anything, WSOLMint, mintB, decEq(cfg.OpenAmount)).Return(decimal.NewFromInt(7000), nil)

	err := f.m.OnPoolDetected(t.Context(), domain.PoolDetection{Signature: "sig", TokenA: mintA, TokenB: mintB})
	require.NoError(t, err)

	for token, price := range map[string]int64{mintA: 5000, mintB: 7000} {
		pos, ok := f.pf.Get(token)
		require.True(t, ok, token)
		assert.True(t, pos.Amount.Equal(cfg.OpenAmount))
		assert.True(t, pos.Price.Equal(decimal.NewFromInt(price)))
	}
	assert.Equal(t, 1, f.store.saves, "portfolio persisted once per pair")
	assert.Len(t, f.store.data, 2)
	require.Len(t, f.journal.records, 2)
	assert.True(t, f.journal.records[0].Success)
	assert.Equal(t, "buyA", f.journal.records[0].Signature)
	assert.Equal(t, 2, f.recorder.opened)
	assert.Equal(t, 2, f.recorder.size)
	f.gw.AssertExpectations(t)
}

func TestOnPoolDetected_BuyFailureOpensNothing(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	f.gw.On("Buy", mock.Anything, mintA, mock.Anything).
		Return(domain.OrderResult{}, domain.Errorf(domain.KindOrder, "swap", "rejected")).Once()
	f.gw.On("Buy", mock.Anything, mintB, mock.Anything).Return(okResult("buyB"), nil).Once()
	f.gw.On("Quote", mock.Anything, WSOLMint, mintB, mock.Anything).Return(decimal.NewFromInt(1), nil)

	require.NoError(t, f.m.OnPoolDetected(t.Context(), domain.PoolDetection{TokenA: mintA, TokenB: mintB}))

	assert.False(t, f.pf.Has(mintA))
	assert.True(t, f.pf.Has(mintB))
	require.Len(t, f.journal.records, 2, "failed attempts are journaled too")
	assert.False(t, f.journal.records[0].Success)
	assert.Equal(t, domain.KindOrder, f.journal.records[0].ErrorKind)
	f.gw.AssertNotCalled(t, "Quote", mock.Anything, WSOLMint, mintA, mock.Anything)
}

func TestOnPoolDetected_PriceFailureRecordsZero(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	f.gw.On("Buy", mock.Anything, mock.Anything, mock.Anything).Return(okResult("buy"), nil)
	f.gw.On("Quote", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(decimal.Zero, domain.Errorf(domain.KindRouteNotFound, "quote", "no routes"))

	require.NoError(t, f.m.OnPoolDetected(t.Context(), domain.PoolDetection{TokenA: mintA, TokenB: mintB}))

	pos, ok := f.pf.Get(mintA)
	require.True(t, ok)
	assert.True(t, pos.Price.IsZero())
	assert.True(t, pos.Amount.Equal(DefaultOpenAmount))
}

func TestOnPoolDetected_SkipsHeldAndBaseTokens(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.pf.Upsert(domain.NewPosition(mintA, decimal.NewFromInt(1), decimal.NewFromInt(1)))

	require.NoError(t, f.m.OnPoolDetected(t.Context(), domain.PoolDetection{TokenA: mintA, TokenB: WSOLMint}))

	f.gw.AssertNotCalled(t, "Buy", mock.Anything, mock.Anything, mock.Anything)
	assert.Zero(t, f.store.saves)
	assert.Empty(t, f.journal.records)
}

func TestEvaluateAll_RemovesZeroAndBase(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.pf.Upsert(domain.Position{TokenID: mintA, Symbol: mintA, Amount: decimal.Zero, Price: decimal.NewFromInt(1)})
	f.pf.Upsert(domain.NewPosition(WSOLMint, decimal.NewFromInt(500), decimal.NewFromInt(1)))

	require.NoError(t, f.m.EvaluateAll(t.Context()))

	assert.Zero(t, f.pf.Len())
	assert.Equal(t, 1, f.store.saves)
	assert.Equal(t, 2, f.recorder.closed)
	f.gw.AssertNotCalled(t, "Quote", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.gw.AssertNotCalled(t, "Sell", mock.Anything, mock.Anything, mock.Anything)

	// Повторный проход по пустому портфелю ничего не сохраняет
	require.NoError(t, f.m.EvaluateAll(t.Context()))
	assert.Equal(t, 1, f.store.saves)
}

func TestEvaluate_RouteNotFoundLeavesPosition(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	pos := domain.NewPosition(mintA, decimal.NewFromInt(100000), decimal.NewFromInt(42))
	f.pf.Upsert(pos)

	f.gw.On("Quote", mock.Anything, WSOLMint, mintA, mock.Anything).
		Return(decimal.Zero, domain.Errorf(domain.KindRouteNotFound, "quote", "no routes"))

	require.NoError(t, f.m.EvaluateAll(t.Context()))

	got, ok := f.pf.Get(mintA)
	require.True(t, ok)
	assert.True(t, got.Amount.Equal(pos.Amount))
	assert.True(t, got.Price.Equal(pos.Price))
	assert.Zero(t, f.store.saves)
	f.gw.AssertNotCalled(t, "Sell", mock.Anything, mock.Anything, mock.Anything)
}

func TestEvaluate_BelowThreshold(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	pos := domain.NewPosition(mintA, decimal.NewFromInt(100000), decimal.NewFromInt(1))

	f.gw.On("Quote", mock.Anything, WSOLMint, mintA, mock.Anything).Return(decimal.NewFromInt(9999999), nil)

	got, removed := f.m.Evaluate(t.Context(), pos)
	assert.False(t, removed)
	assert.True(t, got.Equal(pos))
	f.gw.AssertNotCalled(t, "Sell", mock.Anything, mock.Anything, mock.Anything)
}

func TestEvaluate_SellsFraction(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	pos := domain.NewPosition(mintA, decimal.NewFromInt(100000), decimal.NewFromInt(1))
	f.pf.Upsert(pos)

	f.gw.On("Quote", mock.Anything, WSOLMint, mintA, mock.Anything).Return(DefaultSellThreshold, nil)
	f.gw.On("Sell", mock.Anything, mintA, decEq(decimal.NewFromInt(10000))).Return(okResult("sell1"), nil).Once()

	require.NoError(t, f.m.EvaluateAll(t.Context()))

	got, ok := f.pf.Get(mintA)
	require.True(t, ok)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(90000)), got.Amount.String())
	assert.True(t, got.Price.Equal(decimal.NewFromInt(1)), "reference price is kept")
	assert.Equal(t, 1, f.store.saves)
	require.Len(t, f.journal.records, 1)
	assert.Equal(t, domain.SideSell, f.journal.records[0].Side)
	assert.True(t, f.journal.records[0].Price.Equal(DefaultSellThreshold))
	f.gw.AssertExpectations(t)
}

func TestEvaluate_SellFailureLeavesPosition(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	pos := domain.NewPosition(mintA, decimal.NewFromInt(100000), decimal.NewFromInt(1))

	f.gw.On("Quote", mock.Anything, WSOLMint, mintA, mock.Anything).Return(DefaultSellThreshold.Mul(decimal.NewFromInt(2)), nil)
	f.gw.On("Sell", mock.Anything, mintA, mock.Anything).
		Return(domain.OrderResult{}, domain.Errorf(domain.KindTransport, "swap", "timeout"))

	got, removed := f.m.Evaluate(t.Context(), pos)
	assert.False(t, removed)
	assert.True(t, got.Equal(pos))
	require.Len(t, f.journal.records, 1)
	assert.False(t, f.journal.records[0].Success)
	assert.Equal(t, 1, f.recorder.failed)
}

func TestEvaluate_RepeatedSellsConverge(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	const start = 100000
	pos := domain.NewPosition(mintA, decimal.NewFromInt(start), decimal.NewFromInt(1))

	f.gw.On("Quote", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(DefaultSellThreshold, nil)
	f.gw.On("Sell", mock.Anything, mock.Anything, mock.Anything).Return(okResult("sell"), nil)

	bound := int(math.Ceil(math.Log(start)/-math.Log(0.9))) + 25
	removed := false
	cycles := 0
	for !removed {
		cycles++
		require.LessOrEqual(t, cycles, bound, "sells must converge")
		pos, removed = f.m.Evaluate(t.Context(), pos)
		require.False(t, pos.Amount.IsNegative())
	}
	assert.True(t, pos.Amount.IsZero())
}

func TestEvaluate_MultipleThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ThresholdMode = ThresholdMultiple
	cfg.SellThreshold = decimal.NewFromInt(2)
	f := newFixture(t, cfg)

	pos := domain.NewPosition(mintA, decimal.NewFromInt(1000), decimal.NewFromInt(50))
	f.gw.On("Quote", mock.Anything, WSOLMint, mintA, mock.Anything).Return(decimal.NewFromInt(99), nil).Once()
	got, _ := f.m.Evaluate(t.Context(), pos)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(1000)))

	f.gw.On("Quote", mock.Anything, WSOLMint, mintA, mock.Anything).Return(decimal.NewFromInt(100), nil).Once()
	f.gw.On("Sell", mock.Anything, mintA, decEq(decimal.NewFromInt(100))).Return(okResult("s"), nil).Once()
	got, _ = f.m.Evaluate(t.Context(), pos)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(900)))

	// Без опорной цены правило не срабатывает
	zeroRef := domain.NewPosition(mintB, decimal.NewFromInt(1000), decimal.Zero)
	f.gw.On("Quote", mock.Anything, WSOLMint, mintB, mock.Anything).Return(decimal.NewFromInt(1000000), nil).Once()
	got, _ = f.m.Evaluate(t.Context(), zeroRef)
	assert.True(t, got.Equal(zeroRef))
	f.gw.AssertExpectations(t)
}

func TestSellQuantity(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		amount, want int64
	}{
		{100000, 10000},
		{95, 9},
		{10, 1},
		{9, 9},
		{1, 1},
		{0, 0},
	}
	for _, tt := range tests {
		got := cfg.sellQuantity(decimal.NewFromInt(tt.amount))
		assert.True(t, got.Equal(decimal.NewFromInt(tt.want)), "amount %d: got %s", tt.amount, got)
	}
	assert.True(t, cfg.sellQuantity(decimal.RequireFromString("1.5")).Equal(decimal.RequireFromString("1.5")))
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.QuoteAmount.Equal(cfg.OpenAmount))

	bad := []func(*Config){
		func(c *Config) { c.BaseMint = "" },
		func(c *Config) { c.OpenAmount = decimal.Zero },
		func(c *Config) { c.SellThreshold = decimal.NewFromInt(-1) },
		func(c *Config) { c.SellFraction = decimal.NewFromInt(2) },
		func(c *Config) { c.ThresholdMode = "relative" },
	}
	for i, mutate := range bad {
		c := DefaultConfig()
		mutate(&c)
		err := c.Validate()
		assert.True(t, errors.Is(err, domain.ErrConfigInvalid), "case %d: %v", i, err)
	}
}
