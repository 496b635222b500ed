// internal/eventlistener/filter.go
package eventlistener

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// DefaultMarker is the log line fragment Raydium AMM v4 prints when a pool is initialized.
const DefaultMarker = "initialize2"

// Recorder receives filter counters.
type Recorder interface {
	NotificationReceived()
	NotificationMatched()
}

type noopRecorder struct{}

func (noopRecorder) NotificationReceived() {}
func (noopRecorder) NotificationMatched()  {}

// Filter пропускает дальше только успешные транзакции с маркером в логах,
// каждую сигнатуру не более одного раза.
type Filter struct {
	marker   string
	seen     *seenSet
	logger   *zap.Logger
	recorder Recorder
}

func NewFilter(marker string, capacity int, logger *zap.Logger) *Filter {
	if marker == "" {
		marker = DefaultMarker
	}
	if capacity <= 0 {
		capacity = 4096
	}
	return &Filter{
		marker:   marker,
		seen:     newSeenSet(capacity),
		logger:   logger.Named("filter"),
		recorder: noopRecorder{},
	}
}

// WithRecorder sets the counters sink.
func (f *Filter) WithRecorder(r Recorder) *Filter {
	if r != nil {
		f.recorder = r
	}
	return f
}

// Match reports whether n describes a pool creation that was not seen before.
func (f *Filter) Match(n Notification) bool {
	f.recorder.NotificationReceived()

	if n.Failed() || n.Signature == "" {
		return false
	}
	if !containsMarker(n.Logs, f.marker) {
		return false
	}
	if !f.seen.Add(n.Signature) {
		f.logger.Debug("Duplicate notification", zap.String("signature", n.Signature))
		return false
	}

	f.recorder.NotificationMatched()
	return true
}

// Run forwards matching notifications from in to out until ctx is done or in is closed.
func (f *Filter) Run(ctx context.Context, in <-chan Notification, out chan<- Notification) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-in:
			if !ok {
				return nil
			}
			if !f.Match(n) {
				continue
			}
			f.logger.Info("🆕 Pool initialization seen",
				zap.String("signature", n.Signature),
				zap.String("explorer", ExplorerURL(n.Signature)))
			select {
			case out <- n:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// ExplorerURL returns a Solana Explorer link for the transaction.
func ExplorerURL(signature string) string {
	return "https://explorer.solana.com/tx/" + signature
}

func containsMarker(logs []string, marker string) bool {
	for _, line := range logs {
		if strings.Contains(line, marker) {
			return true
		}
	}
	return false
}

// seenSet is a bounded FIFO set of signatures.
type seenSet struct {
	mu    sync.Mutex
	items map[string]struct{}
	order []string
	next  int
}

func newSeenSet(capacity int) *seenSet {
	return &seenSet{
		items: make(map[string]struct{}, capacity),
		order: make([]string, capacity),
	}
}

// Add returns false if key was already present.
func (s *seenSet) Add(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[key]; ok {
		return false
	}
	if old := s.order[s.next]; old != "" {
		delete(s.items, old)
	}
	s.order[s.next] = key
	s.next = (s.next + 1) % len(s.order)
	s.items[key] = struct{}{}
	return true
}
