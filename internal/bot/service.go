// internal/bot/service.go
package bot

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/rovshanmuradov/lp-sniper/internal/blockchain/solbc"
	"github.com/rovshanmuradov/lp-sniper/internal/config"
	"github.com/rovshanmuradov/lp-sniper/internal/detector"
	"github.com/rovshanmuradov/lp-sniper/internal/eventlistener"
	"github.com/rovshanmuradov/lp-sniper/internal/gateway"
	"github.com/rovshanmuradov/lp-sniper/internal/metrics"
	"github.com/rovshanmuradov/lp-sniper/internal/portfolio"
	"github.com/rovshanmuradov/lp-sniper/internal/position"
	"github.com/rovshanmuradov/lp-sniper/internal/report"
	"github.com/rovshanmuradov/lp-sniper/internal/wallet"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const rpcStatsInterval = 15 * time.Second

var _ Recorder = (*metrics.Collector)(nil)

// Service собирает все компоненты снайпера из конфигурации.
type Service struct {
	config    *config.Config
	logger    *zap.Logger
	wallet    *wallet.Wallet
	client    *solbc.Client
	portfolio *portfolio.Portfolio
	engine    *Engine
	collector *metrics.Collector
	shutdown  *ShutdownHandler
}

// NewService открывает хранилище, загружает портфель и связывает движок.
// При ошибке уже открытые ресурсы закрываются.
func NewService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (svc *Service, err error) {
	logger = logger.Named("bot")
	shutdown := NewShutdownHandler(logger, 10*time.Second)
	defer func() {
		if err != nil {
			_ = shutdown.Shutdown(context.WithoutCancel(ctx))
		}
	}()

	w, err := wallet.Load(cfg.PrivateKey, cfg.WalletFile, cfg.WalletName)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet: %w", err)
	}
	logger.Info("💼 Wallet loaded", zap.String("public_key", w.String()))

	client, err := solbc.NewClient(cfg.RPCList, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create RPC client: %w", err)
	}

	gw, err := gateway.NewClient(cfg.GatewayConfig(), w, client, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create order gateway: %w", err)
	}

	store, err := openSnapshotStore(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	shutdown.Add("storage", store)

	journal, err := openJournal(cfg.Storage, store, shutdown, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open trade journal: %w", err)
	}

	pf := portfolio.New(store, logger)
	if err := pf.Load(ctx); err != nil {
		return nil, err
	}

	posCfg, err := cfg.PositionConfig()
	if err != nil {
		return nil, err
	}

	collector := metrics.NewCollector()
	manager, err := position.NewManager(posCfg, gw, pf, journal, logger)
	if err != nil {
		return nil, err
	}
	manager.WithRecorder(collector)
	collector.PortfolioSize(pf.Len())

	listener := eventlistener.NewEventListener(cfg.WebSocketURL, cfg.ProgramID, cfg.Commitment, logger)
	filter := eventlistener.NewFilter(cfg.PoolMarker, cfg.EventBuffer*4, logger).WithRecorder(collector)
	extractor := detector.NewExtractor(client, detector.NewRaydiumInitDecoder(cfg.ProgramID), logger)

	engine := NewEngine(EngineConfig{
		EvaluationInterval: cfg.EvaluationInterval(),
		ExtractWorkers:     cfg.ExtractWorkers,
		EventBuffer:        cfg.EventBuffer,
	}, listener, filter, extractor, manager, pf, logger).
		WithReporter(report.NewConsole(nil)).
		WithRecorder(collector)

	return &Service{
		config:    cfg,
		logger:    logger,
		wallet:    w,
		client:    client,
		portfolio: pf,
		engine:    engine,
		collector: collector,
		shutdown:  shutdown,
	}, nil
}

// Run блокируется до отмены ctx; ресурсы закрываются на выходе.
func (s *Service) Run(ctx context.Context) error {
	defer func() {
		if err := s.shutdown.Shutdown(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("Shutdown finished with errors", zap.Error(err))
		}
	}()

	s.checkBalance(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.engine.Run(gctx)
	})

	if s.config.MetricsAddr != "" {
		g.Go(func() error {
			return s.collector.Serve(gctx, s.config.MetricsAddr, s.logger)
		})
		g.Go(func() error {
			s.trackRPCNodes(gctx)
			return nil
		})
	}

	return g.Wait()
}

// checkBalance только предупреждает: покупки всё равно будут пробоваться и журналироваться.
func (s *Service) checkBalance(ctx context.Context) {
	balance, err := s.client.GetBalance(ctx, s.wallet.PublicKey)
	if err != nil {
		s.logger.Warn("⚠️ Could not fetch wallet balance", zap.Error(err))
		return
	}

	lamports := decimal.NewFromBigInt(new(big.Int).SetUint64(balance), 0)
	posCfg, _ := s.config.PositionConfig()
	need := posCfg.OpenAmount.Mul(decimal.NewFromInt(2))
	sol := lamports.Shift(-int32(9))

	if lamports.LessThan(need) {
		s.logger.Warn("⚠️ Wallet balance is below two open amounts",
			zap.String("balance_sol", sol.String()),
			zap.String("required_lamports", need.String()))
		return
	}
	s.logger.Info("💰 Wallet balance", zap.String("balance_sol", sol.String()))
}

func (s *Service) trackRPCNodes(ctx context.Context) {
	ticker := time.NewTicker(rpcStatsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.collector.UpdateRPCNodes(s.client.NodeStats())
		}
	}
}

// Status печатает таблицу портфеля из сохранённого снимка.
func Status(ctx context.Context, cfg *config.Config, logger *zap.Logger, out io.Writer) error {
	store, err := openSnapshotStore(ctx, cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer store.Close()

	pf := portfolio.New(store, logger)
	if err := pf.Load(ctx); err != nil {
		return err
	}
	return report.NewConsole(out).Portfolio(pf.Positions())
}
