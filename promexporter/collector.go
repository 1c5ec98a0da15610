// Package promexporter exposes client and pool statistics as Prometheus
// metrics.
package promexporter

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker/v2"

	"github.com/pior/riakpb"
)

const namespace = "riakpb"

var (
	requestsDesc      = newDesc("requests_total", "Requests sent on the wire")
	framesDesc        = newDesc("frames_total", "Response frames received")
	streamItemsDesc   = newDesc("stream_items_total", "Items handed to stream consumers")
	errorsDesc        = newDesc("errors_total", "Requests that failed")
	connectsDesc      = newDesc("connects_total", "Connection attempts", "status")
	disconnectsDesc   = newDesc("disconnects_total", "Connections torn down")
	requeuesDesc      = newDesc("requeues_total", "In-flight requests sent again after a disconnect")
	queuedDesc        = newDesc("queued", "Requests waiting for dispatch")
	poolConnsDesc     = newDesc("pool_connections", "Pooled connections", "state")
	poolCreatedDesc   = newDesc("pool_connections_created_total", "Pooled connections created")
	poolDestroyedDesc = newDesc("pool_connections_destroyed_total", "Pooled connections destroyed")
	poolAcquiresDesc  = newDesc("pool_acquires_total", "Connection acquires")
	poolWaitsDesc     = newDesc("pool_acquire_waits_total", "Acquires that waited for a connection")
	poolErrorsDesc    = newDesc("pool_acquire_errors_total", "Canceled acquires")
	poolWaitTimeDesc  = newDesc("pool_acquire_wait_seconds_total", "Time spent waiting for a connection")
	breakerStateDesc  = newDesc("circuit_breaker_state", "Circuit breaker state (0=closed, 1=half-open, 2=open)", "node")
)

func newDesc(name, help string, labels ...string) *prometheus.Desc {
	return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, labels, nil)
}

// Collector is a prometheus.Collector reading the statistics of a Client or
// a Pool at scrape time.
type Collector struct {
	clientStats func() riakpb.ClientStats
	poolStats   func() riakpb.PoolStats
	nodeStats   func() []riakpb.NodeStats
}

var _ prometheus.Collector = (*Collector)(nil)

// NewClientCollector collects the statistics of a single client.
func NewClientCollector(c *riakpb.Client) *Collector {
	return &Collector{
		clientStats: c.Stats,
		nodeStats: func() []riakpb.NodeStats {
			return []riakpb.NodeStats{{Addr: c.Addr(), CircuitBreakerState: c.CircuitBreakerState()}}
		},
	}
}

// NewPoolCollector collects the statistics of a pool and of its clients.
func NewPoolCollector(p *riakpb.Pool) *Collector {
	return &Collector{
		clientStats: p.ClientStats,
		poolStats:   p.Stats,
		nodeStats:   p.NodeStats,
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	prometheus.DescribeByCollect(c, ch)
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.clientStats()

	counter(ch, requestsDesc, s.Requests)
	counter(ch, framesDesc, s.Frames)
	counter(ch, streamItemsDesc, s.StreamItems)
	counter(ch, errorsDesc, s.Errors)
	counter(ch, connectsDesc, s.Connects, "success")
	counter(ch, connectsDesc, s.ConnectErrors, "failed")
	counter(ch, disconnectsDesc, s.Disconnects)
	counter(ch, requeuesDesc, s.Requeues)
	ch <- prometheus.MustNewConstMetric(queuedDesc, prometheus.GaugeValue, float64(s.Queued))

	if c.poolStats != nil {
		p := c.poolStats()

		ch <- prometheus.MustNewConstMetric(poolConnsDesc, prometheus.GaugeValue, float64(p.TotalConns), "total")
		ch <- prometheus.MustNewConstMetric(poolConnsDesc, prometheus.GaugeValue, float64(p.IdleConns), "idle")
		ch <- prometheus.MustNewConstMetric(poolConnsDesc, prometheus.GaugeValue, float64(p.ActiveConns), "active")
		counter(ch, poolCreatedDesc, p.CreatedConns)
		counter(ch, poolDestroyedDesc, p.DestroyedConns)
		counter(ch, poolAcquiresDesc, p.AcquireCount)
		counter(ch, poolWaitsDesc, p.AcquireWaitCount)
		counter(ch, poolErrorsDesc, p.AcquireErrors)
		ch <- prometheus.MustNewConstMetric(poolWaitTimeDesc, prometheus.CounterValue, p.AcquireWaitTime().Seconds())
	}

	for _, n := range c.nodeStats() {
		ch <- prometheus.MustNewConstMetric(breakerStateDesc, prometheus.GaugeValue, breakerState(n.CircuitBreakerState), n.Addr)
	}
}

func counter(ch chan<- prometheus.Metric, desc *prometheus.Desc, v uint64, labels ...string) {
	ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(v), labels...)
}

func breakerState(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// Handler registers collectors on a new registry and returns the HTTP
// handler serving it.
func Handler(collectors ...prometheus.Collector) http.Handler {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors...)
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
