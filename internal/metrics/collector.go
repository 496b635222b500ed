// internal/metrics/collector.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rovshanmuradov/lp-sniper/internal/domain"
)

const namespace = "lp_sniper"

// Collector owns its registry so tests and several engines never clash on
// the global one.
type Collector struct {
	registry *prometheus.Registry

	notifications      prometheus.Counter
	matched            prometheus.Counter
	detections         *prometheus.CounterVec
	orders             *prometheus.CounterVec
	positionsOpened    prometheus.Counter
	positionsClosed    prometheus.Counter
	portfolioSize      prometheus.Gauge
	evaluationDuration prometheus.Histogram
	rpcNodeRequests    *prometheus.GaugeVec
}

// NewCollector создает новый экземпляр коллектора метрик
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		notifications: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Log notifications received from the subscription",
		}),
		matched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_matched_total",
			Help:      "Notifications carrying the pool creation marker",
		}),
		detections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detections_total",
			Help:      "Pool extraction outcomes by result kind",
		}, []string{"result"}),
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_total",
			Help:      "Order attempts by side and status",
		}, []string{"side", "status"}),
		positionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "positions_opened_total",
			Help:      "Positions opened",
		}),
		positionsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "positions_closed_total",
			Help:      "Positions removed from the portfolio",
		}),
		portfolioSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "portfolio_positions",
			Help:      "Positions currently held",
		}),
		evaluationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluation_duration_seconds",
			Help:      "Duration of a full portfolio evaluation pass",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		rpcNodeRequests: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "node_requests",
			Help:      "Requests served per RPC node by status",
		}, []string{"node", "status"}),
	}

	c.registry.MustRegister(
		c.notifications,
		c.matched,
		c.detections,
		c.orders,
		c.positionsOpened,
		c.positionsClosed,
		c.portfolioSize,
		c.evaluationDuration,
		c.rpcNodeRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func (c *Collector) NotificationReceived() { c.notifications.Inc() }
func (c *Collector) NotificationMatched()  { c.matched.Inc() }

// Detection records an extraction outcome; nil err counts as "ok".
func (c *Collector) Detection(err error) {
	result := "ok"
	if err != nil {
		result = string(domain.KindOf(err))
	}
	c.detections.WithLabelValues(result).Inc()
}

func (c *Collector) OrderPlaced(side domain.Side, err error) {
	status := "success"
	if err != nil {
		status = "failed"
	}
	c.orders.WithLabelValues(string(side), status).Inc()
}

func (c *Collector) PositionOpened()     { c.positionsOpened.Inc() }
func (c *Collector) PositionClosed()     { c.positionsClosed.Inc() }
func (c *Collector) PortfolioSize(n int) { c.portfolioSize.Set(float64(n)) }

func (c *Collector) ObserveEvaluation(d time.Duration) {
	c.evaluationDuration.Observe(d.Seconds())
}

// UpdateRPCNodes publishes per-node counters: {ok, failed, latencyMs}.
func (c *Collector) UpdateRPCNodes(stats map[string][3]uint64) {
	for node, s := range stats {
		c.rpcNodeRequests.WithLabelValues(node, "success").Set(float64(s[0]))
		c.rpcNodeRequests.WithLabelValues(node, "failed").Set(float64(s[1]))
	}
}
