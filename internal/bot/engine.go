// internal/bot/engine.go
package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rovshanmuradov/lp-sniper/internal/domain"
	"github.com/rovshanmuradov/lp-sniper/internal/eventlistener"
	"github.com/rovshanmuradov/lp-sniper/internal/portfolio"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Source streams raw log notifications until ctx is cancelled.
type Source interface {
	Run(ctx context.Context, out chan<- eventlistener.Notification) error
}

// PoolExtractor resolves the token pair of a matched transaction.
type PoolExtractor interface {
	Extract(ctx context.Context, signature string) (domain.PoolDetection, error)
}

// PositionManager is the part of position.Manager the engine drives.
type PositionManager interface {
	OnPoolDetected(ctx context.Context, det domain.PoolDetection) error
	EvaluateAll(ctx context.Context) error
}

// Reporter prints detections for the operator.
type Reporter interface {
	PoolFound(det domain.PoolDetection) error
}

// Recorder receives engine-level metrics.
type Recorder interface {
	Detection(err error)
	ObserveEvaluation(d time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) Detection(error)                 {}
func (noopRecorder) ObserveEvaluation(time.Duration) {}

type EngineConfig struct {
	EvaluationInterval time.Duration
	ExtractWorkers     int
	EventBuffer        int
}

// Engine связывает подписку, фильтр, извлечение пар и менеджер позиций.
// Портфель меняет только горутина-владелец (ownerLoop).
type Engine struct {
	cfg       EngineConfig
	source    Source
	filter    *eventlistener.Filter
	extractor PoolExtractor
	manager   PositionManager
	portfolio *portfolio.Portfolio
	reporter  Reporter
	recorder  Recorder
	logger    *zap.Logger
}

func NewEngine(
	cfg EngineConfig,
	source Source,
	filter *eventlistener.Filter,
	extractor PoolExtractor,
	manager PositionManager,
	pf *portfolio.Portfolio,
	logger *zap.Logger,
) *Engine {
	if cfg.EvaluationInterval <= 0 {
		cfg.EvaluationInterval = time.Minute
	}
	if cfg.ExtractWorkers <= 0 {
		cfg.ExtractWorkers = 1
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 1
	}
	return &Engine{
		cfg:       cfg,
		source:    source,
		filter:    filter,
		extractor: extractor,
		manager:   manager,
		portfolio: pf,
		recorder:  noopRecorder{},
		logger:    logger.Named("engine"),
	}
}

func (e *Engine) WithReporter(r Reporter) *Engine {
	e.reporter = r
	return e
}

func (e *Engine) WithRecorder(r Recorder) *Engine {
	if r != nil {
		e.recorder = r
	}
	return e
}

// Run blocks until ctx is cancelled or the subscription fails at startup.
// The portfolio is saved once more on the way out.
func (e *Engine) Run(ctx context.Context) error {
	raw := make(chan eventlistener.Notification, e.cfg.EventBuffer)
	matched := make(chan eventlistener.Notification, e.cfg.EventBuffer)
	detections := make(chan domain.PoolDetection, e.cfg.EventBuffer)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(raw)
		return e.source.Run(gctx, raw)
	})

	g.Go(func() error {
		defer close(matched)
		return e.filter.Run(gctx, raw, matched)
	})

	pool := newExtractPool(gctx, e.extractor, e.recorder, e.reporter, matched, detections, e.logger)
	pool.Start(e.cfg.ExtractWorkers)
	g.Go(func() error {
		pool.Wait()
		close(detections)
		return nil
	})

	g.Go(func() error {
		return e.ownerLoop(gctx, detections)
	})

	e.logger.Info("🚀 Engine started",
		zap.Int("extract_workers", e.cfg.ExtractWorkers),
		zap.Duration("evaluation_interval", e.cfg.EvaluationInterval))

	err := g.Wait()

	if saveErr := e.portfolio.Save(context.WithoutCancel(ctx)); saveErr != nil {
		e.logger.Error("❌ Final portfolio save failed", zap.Error(saveErr))
		err = errors.Join(err, saveErr)
	} else {
		e.logger.Info("💾 Portfolio saved", zap.Int("positions", e.portfolio.Len()))
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("engine: %w", err)
	}
	return nil
}

// ownerLoop единственная горутина, которая мутирует портфель.
func (e *Engine) ownerLoop(ctx context.Context, detections <-chan domain.PoolDetection) error {
	ticker := time.NewTicker(e.cfg.EvaluationInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case det, ok := <-detections:
			if !ok {
				return nil
			}
			if err := e.manager.OnPoolDetected(ctx, det); err != nil {
				e.logger.Error("Pool handling failed",
					zap.String("signature", det.Signature),
					zap.Error(err))
			}
		case <-ticker.C:
			start := time.Now()
			if err := e.manager.EvaluateAll(ctx); err != nil {
				e.logger.Error("Evaluation pass failed", zap.Error(err))
			}
			e.recorder.ObserveEvaluation(time.Since(start))
		}
	}
}
