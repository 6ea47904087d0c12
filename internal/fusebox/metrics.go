package fusebox

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exports a Breaker's counters as Prometheus metrics
type Collector struct {
	breaker *Breaker

	total      *prometheus.Desc
	timeouts   *prometheus.Desc
	success    *prometheus.Desc
	failure    *prometheus.Desc
	concurrent *prometheus.Desc
	average    *prometheus.Desc
	closed     *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector creates a collector reading from b on every scrape
func NewCollector(b *Breaker) *Collector {
	return &Collector{
		breaker:    b,
		total:      prometheus.NewDesc("scm_gitlab_requests_total", "Outbound GitLab calls issued.", nil, nil),
		timeouts:   prometheus.NewDesc("scm_gitlab_requests_timeouts_total", "Outbound calls that timed out.", nil, nil),
		success:    prometheus.NewDesc("scm_gitlab_requests_success_total", "Outbound calls that settled with an HTTP response.", nil, nil),
		failure:    prometheus.NewDesc("scm_gitlab_requests_failure_total", "Outbound calls that failed at the transport level.", nil, nil),
		concurrent: prometheus.NewDesc("scm_gitlab_requests_in_flight", "Outbound calls currently in flight.", nil, nil),
		average:    prometheus.NewDesc("scm_gitlab_request_average_milliseconds", "Average outbound call duration.", nil, nil),
		closed:     prometheus.NewDesc("scm_gitlab_breaker_closed", "1 when the circuit breaker is closed.", nil, nil),
	}
}

// Describe implements prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.total
	ch <- c.timeouts
	ch <- c.success
	ch <- c.failure
	ch <- c.concurrent
	ch <- c.average
	ch <- c.closed
}

// Collect implements prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	stats := c.breaker.Stats()

	closed := 0.0
	if stats.Breaker.IsClosed {
		closed = 1
	}

	ch <- prometheus.MustNewConstMetric(c.total, prometheus.CounterValue, float64(stats.Requests.Total))
	ch <- prometheus.MustNewConstMetric(c.timeouts, prometheus.CounterValue, float64(stats.Requests.Timeouts))
	ch <- prometheus.MustNewConstMetric(c.success, prometheus.CounterValue, float64(stats.Requests.Success))
	ch <- prometheus.MustNewConstMetric(c.failure, prometheus.CounterValue, float64(stats.Requests.Failure))
	ch <- prometheus.MustNewConstMetric(c.concurrent, prometheus.GaugeValue, float64(stats.Requests.Concurrent))
	ch <- prometheus.MustNewConstMetric(c.average, prometheus.GaugeValue, stats.Requests.AverageTime)
	ch <- prometheus.MustNewConstMetric(c.closed, prometheus.GaugeValue, closed)
}
