// internal/bot/mocks_test.go
package bot

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rovshanmuradov/lp-sniper/internal/domain"
	"github.com/rovshanmuradov/lp-sniper/internal/eventlistener"
	"github.com/shopspring/decimal"
)

// sliceSource отдаёт заранее заданные уведомления и ждёт отмены.
type sliceSource struct {
	notes []eventlistener.Notification
	err   error
}

func (s *sliceSource) Run(ctx context.Context, out chan<- eventlistener.Notification) error {
	for _, n := range s.notes {
		select {
		case out <- n:
		case <-ctx.Done():
			return nil
		}
	}
	if s.err != nil {
		return s.err
	}
	<-ctx.Done()
	return nil
}

type fakeExtractor struct {
	mu    sync.Mutex
	calls []string
	fn    func(signature string) (domain.PoolDetection, error)
}

func (f *fakeExtractor) Extract(_ context.Context, signature string) (domain.PoolDetection, error) {
	f.mu.Lock()
	f.calls = append(f.calls, signature)
	f.mu.Unlock()
	return f.fn(signature)
}

func (f *fakeExtractor) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// stubGateway fills every buy and quotes a constant price.
type stubGateway struct {
	price decimal.Decimal
	buys  atomic.Int32
}

func (g *stubGateway) Quote(context.Context, string, string, decimal.Decimal) (decimal.Decimal, error) {
	return g.price, nil
}

func (g *stubGateway) Buy(_ context.Context, token string, _ decimal.Decimal) (domain.OrderResult, error) {
	g.buys.Add(1)
	return domain.OrderResult{Signatures: []string{"buy-" + token}}, nil
}

func (g *stubGateway) Sell(_ context.Context, token string, _ decimal.Decimal) (domain.OrderResult, error) {
	return domain.OrderResult{Signatures: []string{"sell-" + token}}, nil
}

type countingManager struct {
	detections  atomic.Int32
	evaluations atomic.Int32
}

func (m *countingManager) OnPoolDetected(context.Context, domain.PoolDetection) error {
	m.detections.Add(1)
	return nil
}

func (m *countingManager) EvaluateAll(context.Context) error {
	m.evaluations.Add(1)
	return nil
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

func (m *memStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

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

type detectionRecorder struct {
	mu          sync.Mutex
	ok, failed  int
	evaluations int
}

func (r *detectionRecorder) Detection(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.failed++
		return
	}
	r.ok++
}

func (r *detectionRecorder) ObserveEvaluation(time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evaluations++
}

func (r *detectionRecorder) Counts() (ok, failed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ok, r.failed
}

type reportSpy struct {
	mu   sync.Mutex
	dets []domain.PoolDetection
}

func (r *reportSpy) PoolFound(det domain.PoolDetection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dets = append(r.dets, det)
	return nil
}

func (r *reportSpy) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.dets)
}
