// Package metrics exposes roster import outcomes to Prometheus.
package metrics

import (
	"net/http"

	"github.com/JonMunkholm/rollcall/internal/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rollcall"

// Collector implements core.Metrics with Prometheus counters.
type Collector struct {
	filesRejected *prometheus.CounterVec
	records       *prometheus.CounterVec
	rateLimited   prometheus.Counter
	committed     prometheus.Counter

	gatherer prometheus.Gatherer
}

var _ core.Metrics = (*Collector)(nil)

// New registers the import counters on a fresh registry that also carries
// the Go runtime and process collectors.
func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg)
}

// NewWithRegistry registers the import counters on reg.
func NewWithRegistry(reg *prometheus.Registry) *Collector {
	c := &Collector{
		filesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "files_rejected_total",
			Help:      "Uploads rejected before parsing, by error code.",
		}, []string{"code"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "records_total",
			Help:      "Rows processed by import mode and outcome.",
		}, []string{"mode", "outcome"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "rate_limited_total",
			Help:      "Import attempts denied by the per-user rate limiter.",
		}),
		committed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "roster",
			Name:      "students_committed_total",
			Help:      "Students written to the roster store by commits.",
		}),
		gatherer: reg,
	}
	reg.MustRegister(c.filesRejected, c.records, c.rateLimited, c.committed)
	return c
}

func (c *Collector) FileRejected(code string) {
	c.filesRejected.WithLabelValues(code).Inc()
}

func (c *Collector) RecordsProcessed(mode core.ImportMode, valid, invalid int) {
	c.records.WithLabelValues(string(mode), "valid").Add(float64(valid))
	c.records.WithLabelValues(string(mode), "invalid").Add(float64(invalid))
}

func (c *Collector) RateLimited() { c.rateLimited.Inc() }

func (c *Collector) Committed(n int) { c.committed.Add(float64(n)) }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
