package promexporter

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pior/rsp"
)

const namespace = "rsp"

// StatsSource is implemented by *rsp.Client.
type StatsSource interface {
	Stats() rsp.ClientStats
	ServerStats() rsp.ServerPoolStats
}

// Collector exposes the counters of a client as Prometheus metrics.
// Values are read from the client on every scrape.
type Collector struct {
	source StatsSource

	commands     *prometheus.Desc
	pipelines    *prometheus.Desc
	uploads      *prometheus.Desc
	framesSent   *prometheus.Desc
	batchesSent  *prometheus.Desc
	bytesSent    *prometheus.Desc
	serverErrors *prometheus.Desc
	errors       *prometheus.Desc

	poolConnections   *prometheus.Desc
	poolAcquires      *prometheus.Desc
	poolAcquireWaits  *prometheus.Desc
	poolWaitSeconds   *prometheus.Desc
	poolAcquireErrors *prometheus.Desc
	poolCreated       *prometheus.Desc
	poolDestroyed     *prometheus.Desc

	circuitState    *prometheus.Desc
	circuitRequests *prometheus.Desc
	circuitFailures *prometheus.Desc
}

// NewCollector creates a collector reading from source.
func NewCollector(source StatsSource) *Collector {
	server := []string{"server"}
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, append(server, labels...), nil)
	}

	return &Collector{
		source: source,

		commands:     desc("commands_total", "Total number of commands executed, pipelines included"),
		pipelines:    desc("pipelines_total", "Total number of pipelines executed"),
		uploads:      desc("uploads_total", "Total number of completed uploads"),
		framesSent:   desc("frames_sent_total", "Total number of frames acknowledged by the server"),
		batchesSent:  desc("batches_sent_total", "Total number of frame batches acknowledged by the server"),
		bytesSent:    desc("bytes_sent_total", "Total envelope bytes acknowledged by the server"),
		serverErrors: desc("server_errors_total", "Total number of error responses from the server"),
		errors:       desc("errors_total", "Total number of failed operations"),

		poolConnections:   desc("pool_connections", "Connections in the pool", "state"),
		poolAcquires:      desc("pool_acquires_total", "Total connection acquire attempts"),
		poolAcquireWaits:  desc("pool_acquire_waits_total", "Total acquires that had to wait for a connection"),
		poolWaitSeconds:   desc("pool_acquire_wait_seconds_total", "Total time spent waiting for a connection"),
		poolAcquireErrors: desc("pool_acquire_errors_total", "Total failed acquire attempts"),
		poolCreated:       desc("pool_connections_created_total", "Total connections created"),
		poolDestroyed:     desc("pool_connections_destroyed_total", "Total connections destroyed"),

		circuitState:    desc("circuit_breaker_state", "Circuit breaker state (0=closed, 1=half-open, 2=open)"),
		circuitRequests: desc("circuit_breaker_requests", "Requests in the current circuit breaker generation"),
		circuitFailures: desc("circuit_breaker_failures", "Circuit breaker failures in the current generation", "type"),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.commands, c.pipelines, c.uploads, c.framesSent, c.batchesSent, c.bytesSent, c.serverErrors, c.errors,
		c.poolConnections, c.poolAcquires, c.poolAcquireWaits, c.poolWaitSeconds, c.poolAcquireErrors, c.poolCreated, c.poolDestroyed,
		c.circuitState, c.circuitRequests, c.circuitFailures,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	stats := c.source.Stats()
	server := c.source.ServerStats()
	addr := server.Addr

	counter := func(d *prometheus.Desc, v uint64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), addr)
	}
	gauge := func(d *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, append([]string{addr}, labels...)...)
	}

	counter(c.commands, stats.Commands)
	counter(c.pipelines, stats.Pipelines)
	counter(c.uploads, stats.Uploads)
	counter(c.framesSent, stats.FramesSent)
	counter(c.batchesSent, stats.BatchesSent)
	counter(c.bytesSent, stats.BytesSent)
	counter(c.serverErrors, stats.ServerErrors)
	counter(c.errors, stats.Errors)

	pool := server.PoolStats
	gauge(c.poolConnections, float64(pool.TotalConns), "total")
	gauge(c.poolConnections, float64(pool.IdleConns), "idle")
	gauge(c.poolConnections, float64(pool.ActiveConns), "active")
	counter(c.poolAcquires, pool.AcquireCount)
	counter(c.poolAcquireWaits, pool.AcquireWaitCount)
	ch <- prometheus.MustNewConstMetric(c.poolWaitSeconds, prometheus.CounterValue, float64(pool.AcquireWaitTimeNs)/1e9, addr)
	counter(c.poolAcquireErrors, pool.AcquireErrors)
	counter(c.poolCreated, pool.CreatedConns)
	counter(c.poolDestroyed, pool.DestroyedConns)

	counts := server.CircuitBreakerCounts
	gauge(c.circuitState, float64(server.CircuitBreakerState))
	gauge(c.circuitRequests, float64(counts.Requests))
	gauge(c.circuitFailures, float64(counts.TotalFailures), "total")
	gauge(c.circuitFailures, float64(counts.ConsecutiveFailures), "consecutive")
}
