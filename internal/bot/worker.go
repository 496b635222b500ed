// internal/bot/worker.go
package bot

import (
	"context"
	"sync"

	"github.com/rovshanmuradov/lp-sniper/internal/domain"
	"github.com/rovshanmuradov/lp-sniper/internal/eventlistener"
	"github.com/rovshanmuradov/lp-sniper/internal/logger"
	"go.uber.org/zap"
)

// extractPool fetches and decodes matched transactions in parallel so that a
// slow RPC call never stalls the filter.
type extractPool struct {
	wg        sync.WaitGroup
	ctx       context.Context
	in        <-chan eventlistener.Notification
	out       chan<- domain.PoolDetection
	extractor PoolExtractor
	recorder  Recorder
	reporter  Reporter
	logger    *zap.Logger
}

func newExtractPool(
	ctx context.Context,
	extractor PoolExtractor,
	recorder Recorder,
	reporter Reporter,
	in <-chan eventlistener.Notification,
	out chan<- domain.PoolDetection,
	logger *zap.Logger,
) *extractPool {
	return &extractPool{
		ctx:       ctx,
		in:        in,
		out:       out,
		extractor: extractor,
		recorder:  recorder,
		reporter:  reporter,
		logger:    logger,
	}
}

func (wp *extractPool) Start(n int) {
	for i := 0; i < n; i++ {
		wp.wg.Add(1)
		go wp.worker(i + 1)
	}
}

func (wp *extractPool) Wait() {
	wp.wg.Wait()
}

func (wp *extractPool) worker(id int) {
	defer wp.wg.Done()
	log := wp.logger.With(zap.Int("worker_id", id))
	log.Debug("Extract worker started")

	for {
		select {
		case <-wp.ctx.Done():
			return
		case n, ok := <-wp.in:
			if !ok {
				return
			}
			wp.handle(n, log)
		}
	}
}

func (wp *extractPool) handle(n eventlistener.Notification, log *zap.Logger) {
	log = logger.WithSignature(log, n.Signature)
	done := logger.TrackPerformance(log, "extract")
	defer done()

	det, err := wp.extractor.Extract(wp.ctx, n.Signature)
	if wp.ctx.Err() != nil {
		return
	}
	wp.recorder.Detection(err)
	if err != nil {
		// Пропущенный пул допустим: событие не повторяется
		log.Warn("⚠️ Pool extraction failed, event dropped",
			zap.String("kind", string(domain.KindOf(err))),
			zap.Error(err))
		return
	}
	if det.Slot == 0 {
		det.Slot = n.Slot
	}

	log.Info("🎯 New LP found",
		zap.String("token_a", det.TokenA),
		zap.String("token_b", det.TokenB))
	if wp.reporter != nil {
		if err := wp.reporter.PoolFound(det); err != nil {
			log.Debug("Report failed", zap.Error(err))
		}
	}

	select {
	case wp.out <- det:
	case <-wp.ctx.Done():
	}
}
