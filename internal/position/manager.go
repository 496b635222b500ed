// internal/position/manager.go
package position

import (
	"context"
	"errors"
	"time"

	"github.com/rovshanmuradov/lp-sniper/internal/domain"
	"github.com/rovshanmuradov/lp-sniper/internal/logger"
	"github.com/rovshanmuradov/lp-sniper/internal/portfolio"
	"github.com/rovshanmuradov/lp-sniper/internal/storage"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Gateway is the order-execution boundary.
type Gateway interface {
	Quote(ctx context.Context, tokenIn, tokenOut string, amount decimal.Decimal) (decimal.Decimal, error)
	Buy(ctx context.Context, token string, amount decimal.Decimal) (domain.OrderResult, error)
	Sell(ctx context.Context, token string, amount decimal.Decimal) (domain.OrderResult, error)
}

// Recorder receives position lifecycle events, usually for metrics.
type Recorder interface {
	OrderPlaced(side domain.Side, err error)
	PositionOpened()
	PositionClosed()
	PortfolioSize(n int)
}

type noopRecorder struct{}

func (noopRecorder) OrderPlaced(domain.Side, error) {}
func (noopRecorder) PositionOpened()                {}
func (noopRecorder) PositionClosed()                {}
func (noopRecorder) PortfolioSize(int)              {}

// Manager opens positions on detected pools and liquidates them on each evaluation pass.
// Вызывать только из одной горутины-владельца портфеля.
type Manager struct {
	cfg       Config
	gateway   Gateway
	portfolio *portfolio.Portfolio
	journal   storage.TradeJournal
	recorder  Recorder
	logger    *zap.Logger
	now       func() time.Time
}

func NewManager(cfg Config, gw Gateway, pf *portfolio.Portfolio, journal storage.TradeJournal, log *zap.Logger) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if gw == nil || pf == nil || journal == nil {
		return nil, domain.Errorf(domain.KindConfig, "position.NewManager", "gateway, portfolio and journal are required")
	}
	return &Manager{
		cfg:       cfg,
		gateway:   gw,
		portfolio: pf,
		journal:   journal,
		recorder:  noopRecorder{},
		logger:    log.Named("position"),
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

func (m *Manager) WithRecorder(r Recorder) *Manager {
	if r != nil {
		m.recorder = r
	}
	return m
}

func (m *Manager) Config() Config { return m.cfg }

// OnPoolDetected открывает позиции по обоим токенам пары и сохраняет портфель.
// Ошибка возвращается только при неудачном сохранении.
func (m *Manager) OnPoolDetected(ctx context.Context, det domain.PoolDetection) error {
	log := logger.WithOperation(m.logger, "pool_detected").With(zap.String("signature", det.Signature))

	opened := 0
	for _, token := range det.Tokens() {
		if m.open(ctx, log, token) {
			opened++
		}
	}
	m.recorder.PortfolioSize(m.portfolio.Len())
	if opened == 0 {
		return nil
	}

	if err := m.portfolio.Save(ctx); err != nil {
		log.Error("❌ Failed to persist portfolio", zap.Error(err))
		return err
	}
	return nil
}

func (m *Manager) open(ctx context.Context, log *zap.Logger, token string) bool {
	log = log.With(zap.String("token", token))
	switch {
	case token == "":
		return false
	case token == m.cfg.BaseMint:
		log.Debug("Skipping base currency")
		return false
	case m.portfolio.Has(token):
		log.Debug("Position already held")
		return false
	}

	res, err := m.gateway.Buy(ctx, token, m.cfg.OpenAmount)
	m.recorder.OrderPlaced(domain.SideBuy, err)
	if err != nil {
		m.record(ctx, domain.NewTradeRecord(domain.SideBuy, token, m.cfg.OpenAmount, res, err))
		log.Warn("⚠️ Buy failed, no position opened",
			zap.String("kind", string(domain.KindOf(err))),
			zap.Error(err))
		return false
	}

	price, err := m.price(ctx, token)
	if err != nil {
		log.Warn("Price lookup failed after buy, recording price 0", zap.Error(err))
	}

	rec := domain.NewTradeRecord(domain.SideBuy, token, m.cfg.OpenAmount, res, nil)
	rec.Price = price
	m.record(ctx, rec)

	pos := domain.NewPosition(token, m.cfg.OpenAmount, price)
	pos.OpenedAt, pos.UpdatedAt = m.now(), m.now()
	m.portfolio.Upsert(pos)
	m.recorder.PositionOpened()

	log.Info("🟢 Position opened",
		zap.String("amount", pos.Amount.String()),
		zap.String("price", price.String()),
		zap.String("tx", res.Signature()))
	return true
}

// Evaluate applies the sell rule to one position. removed=true means the
// position must leave the portfolio.
func (m *Manager) Evaluate(ctx context.Context, pos domain.Position) (domain.Position, bool) {
	log := m.logger.With(zap.String("token", pos.TokenID))

	if pos.TokenID == m.cfg.BaseMint {
		log.Info("Dropping base currency entry")
		return pos, true
	}
	if pos.Closed() {
		return pos, true
	}

	price, err := m.price(ctx, pos.TokenID)
	if err != nil {
		// Нет цены - позиция не трогается в этом цикле
		if errors.Is(err, domain.ErrRouteNotFound) {
			log.Debug("No route for token", zap.Error(err))
		} else {
			log.Warn("Quote failed", zap.Error(err))
		}
		return pos, false
	}

	if !m.cfg.reached(price, pos.Price) {
		log.Debug("Below threshold",
			zap.String("price", price.String()),
			zap.String("threshold", m.cfg.SellThreshold.String()))
		return pos, false
	}

	qty := m.cfg.sellQuantity(pos.Amount)
	res, err := m.gateway.Sell(ctx, pos.TokenID, qty)
	m.recorder.OrderPlaced(domain.SideSell, err)

	rec := domain.NewTradeRecord(domain.SideSell, pos.TokenID, qty, res, err)
	rec.Price = price
	m.record(ctx, rec)

	if err != nil {
		log.Warn("⚠️ Sell failed, position unchanged",
			zap.String("qty", qty.String()),
			zap.String("kind", string(domain.KindOf(err))),
			zap.Error(err))
		return pos, false
	}

	pos.Amount = pos.Amount.Sub(qty)
	if pos.Amount.IsNegative() {
		pos.Amount = decimal.Zero
	}
	pos.UpdatedAt = m.now()

	log.Info("🔴 Partial sell executed",
		zap.String("sold", qty.String()),
		zap.String("left", pos.Amount.String()),
		zap.String("price", price.String()),
		zap.String("tx", res.Signature()))

	return pos, pos.Closed()
}

// EvaluateAll прогоняет Evaluate по снимку портфеля и сохраняет его один раз, если что-то изменилось.
func (m *Manager) EvaluateAll(ctx context.Context) error {
	log := logger.WithOperation(m.logger, "evaluate")
	positions := m.portfolio.Positions()
	if len(positions) == 0 {
		m.recorder.PortfolioSize(0)
		return nil
	}

	changed := 0
	for _, pos := range positions {
		if ctx.Err() != nil {
			break
		}
		updated, removed := m.Evaluate(ctx, pos)
		switch {
		case removed:
			m.portfolio.Delete(pos.TokenID)
			m.recorder.PositionClosed()
			log.Info("🏁 Position closed", zap.String("token", pos.TokenID))
			changed++
		case !updated.Equal(pos):
			m.portfolio.Upsert(updated)
			changed++
		}
	}

	m.recorder.PortfolioSize(m.portfolio.Len())
	log.Debug("Evaluation pass done",
		zap.Int("positions", len(positions)),
		zap.Int("changed", changed))

	if changed == 0 {
		return nil
	}
	// Сохраняем даже при отменённом контексте: изменения уже произошли
	if err := m.portfolio.Save(context.WithoutCancel(ctx)); err != nil {
		log.Error("❌ Failed to persist portfolio", zap.Error(err))
		return err
	}
	return nil
}

// price quotes base -> token for the probe amount.
func (m *Manager) price(ctx context.Context, token string) (decimal.Decimal, error) {
	price, err := m.gateway.Quote(ctx, m.cfg.BaseMint, token, m.cfg.QuoteAmount)
	if err != nil {
		return decimal.Zero, err
	}
	return price, nil
}

func (m *Manager) record(ctx context.Context, rec domain.TradeRecord) {
	if err := m.journal.Append(context.WithoutCancel(ctx), rec); err != nil {
		m.logger.Error("Trade journal append failed",
			zap.String("id", rec.ID),
			zap.Error(err))
	}
}
