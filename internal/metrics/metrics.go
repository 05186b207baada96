// Package metrics records crawl and delivery counters for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "outage_bot"

// Cycle results.
const (
	CycleFetchError = "fetch_error"
	CycleEmpty      = "empty"
	CycleUnchanged  = "unchanged"
	CycleChanged    = "changed"
)

// Recorder is implemented by Prometheus and by a no-op for tests and for
// runs without a metrics listener.
type Recorder interface {
	IncCycle(result string)
	ObserveFetch(ok bool, attempts int, d time.Duration)
	IncCacheHit()
	SetSections(n int)
	IncVersionChange()
	AddDelivered(chatSections int)
	IncDeliveryFailure()
	IncLedgerFailure()
}

// Prometheus holds collectors registered on its own registry.
type Prometheus struct {
	registry       *prometheus.Registry
	cycles         *prometheus.CounterVec
	fetchTotal     *prometheus.CounterVec
	fetchAttempts  prometheus.Histogram
	fetchDuration  prometheus.Histogram
	cacheHits      prometheus.Counter
	sections       prometheus.Gauge
	versionChanges prometheus.Counter
	delivered      prometheus.Counter
	deliveryFailed prometheus.Counter
	ledgerFailed   prometheus.Counter
}

// NewPrometheus creates the collectors on a fresh registry.
func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Prometheus{
		registry: reg,
		cycles: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crawl_cycles_total",
			Help:      "Scheduler cycles by result",
		}, []string{"result"}),
		fetchTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_total",
			Help:      "Page fetches by outcome",
		}, []string{"status"}),
		fetchAttempts: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_attempts",
			Help:      "HTTP attempts per page fetch",
			Buckets:   []float64{1, 2, 3, 5, 8},
		}),
		fetchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Page fetch duration including retries",
			Buckets:   prometheus.DefBuckets,
		}),
		cacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "page_cache_hits_total",
			Help:      "Fetches served from the page cache",
		}),
		sections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sections",
			Help:      "Sections found by the last crawl",
		}),
		versionChanges: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "version_changes_total",
			Help:      "Times the page version key changed",
		}),
		delivered: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivered_sections_total",
			Help:      "Sections delivered to chats",
		}),
		deliveryFailed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_failures_total",
			Help:      "Notifications that could not be sent",
		}),
		ledgerFailed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_write_failures_total",
			Help:      "Sent sections that could not be recorded",
		}),
	}
}

// IncCycle counts one scheduler cycle. Result is one of the Cycle* values.
func (p *Prometheus) IncCycle(result string) { p.cycles.WithLabelValues(result).Inc() }

func (p *Prometheus) ObserveFetch(ok bool, attempts int, d time.Duration) {
	status := "ok"
	if !ok {
		status = "error"
	}
	p.fetchTotal.WithLabelValues(status).Inc()
	p.fetchAttempts.Observe(float64(attempts))
	p.fetchDuration.Observe(d.Seconds())
}

func (p *Prometheus) IncCacheHit() { p.cacheHits.Inc() }
func (p *Prometheus) SetSections(n int) { p.sections.Set(float64(n)) }
func (p *Prometheus) IncVersionChange() { p.versionChanges.Inc() }
func (p *Prometheus) AddDelivered(n int) { p.delivered.Add(float64(n)) }
func (p *Prometheus) IncDeliveryFailure() { p.deliveryFailed.Inc() }
func (p *Prometheus) IncLedgerFailure() { p.ledgerFailed.Inc() }

// Handler exposes the registry in the Prometheus text format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Registry is used by tests to gather values.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

type noop struct{}

// Noop returns a Recorder that drops everything.
func Noop() Recorder { return noop{} }

func (noop) IncCycle(string) {}
func (noop) ObserveFetch(bool, int, time.Duration) {}
func (noop) IncCacheHit() {}
func (noop) SetSections(int) {}
func (noop) IncVersionChange() {}
func (noop) AddDelivered(int) {}
func (noop) IncDeliveryFailure() {}
func (noop) IncLedgerFailure() {}
