package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "menusync"

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultJoined  = "joined"
)

// Recorder owns a private registry. A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry     *prometheus.Registry
	syncCycles   *prometheus.CounterVec
	syncDuration *prometheus.HistogramVec
	gateDecision *prometheus.CounterVec
	menuReads    *prometheus.CounterVec
	cacheEntries prometheus.GaugeFunc
}

// New registers the service collectors plus Go runtime and process collectors.
// cacheLen, if not nil, is sampled for the cache_entries gauge.
func New(cacheLen func() int) *Recorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Recorder{
		registry: registry,
		syncCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_cycles_total",
			Help:      "Sync cycles by kind and result.",
		}, []string{"kind", "result"}),
		syncDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Wall time of sync cycles that ran.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"kind"}),
		gateDecision: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_decisions_total",
			Help:      "Visitor gate decisions by reason.",
		}, []string{"reason"}),
		menuReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "menu_reads_total",
			Help:      "Menu reads by data source.",
		}, []string{"source"}),
	}
	registry.MustRegister(r.syncCycles, r.syncDuration, r.gateDecision, r.menuReads)

	if cacheLen != nil {
		r.cacheEntries = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_entries",
			Help:      "Entries currently held by the response cache.",
		}, func() float64 { return float64(cacheLen()) })
		registry.MustRegister(r.cacheEntries)
	}
	return r
}

func (r *Recorder) SyncCycle(kind, result string, took time.Duration) {
	if r == nil {
		return
	}
	r.syncCycles.WithLabelValues(kind, result).Inc()
	if result != ResultJoined {
		r.syncDuration.WithLabelValues(kind).Observe(took.Seconds())
	}
}

func (r *Recorder) GateDecision(reason string) {
	if r == nil {
		return
	}
	r.gateDecision.WithLabelValues(reason).Inc()
}

func (r *Recorder) MenuRead(source string) {
	if r == nil {
		return
	}
	r.menuReads.WithLabelValues(source).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
