package logflux

import "github.com/prometheus/client_golang/prometheus"

// Collector exposes a Pipeline's statistics as Prometheus metrics.
// Values are read live from the pipeline's atomics at scrape time, so
// the collector carries no state of its own.
//
//	reg := prometheus.NewRegistry()
//	reg.MustRegister(logflux.NewCollector(p))
type Collector struct {
	p *Pipeline

	sentDesc     *prometheus.Desc
	failedDesc   *prometheus.Desc
	droppedDesc  *prometheus.Desc
	sizeDesc     *prometheus.Desc
	capacityDesc *prometheus.Desc
}

// NewCollector creates a Collector for p. The node identifier is
// attached as a constant label.
func NewCollector(p *Pipeline) *Collector {
	labels := prometheus.Labels{"node": p.cfg.Node}
	return &Collector{
		p: p,
		sentDesc: prometheus.NewDesc(
			"logflux_sent_total",
			"Total number of entries delivered successfully.",
			nil, labels),
		failedDesc: prometheus.NewDesc(
			"logflux_failed_total",
			"Total number of entries that failed delivery after retries.",
			nil, labels),
		droppedDesc: prometheus.NewDesc(
			"logflux_dropped_total",
			"Total number of entries dropped by the failsafe queue.",
			nil, labels),
		sizeDesc: prometheus.NewDesc(
			"logflux_queue_size",
			"Number of entries currently buffered.",
			nil, labels),
		capacityDesc: prometheus.NewDesc(
			"logflux_queue_capacity",
			"Configured queue capacity.",
			nil, labels),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.sentDesc
	ch <- c.failedDesc
	ch <- c.droppedDesc
	ch <- c.sizeDesc
	ch <- c.capacityDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.p.Stats()
	ch <- prometheus.MustNewConstMetric(c.sentDesc, prometheus.CounterValue, float64(s.TotalSent))
	ch <- prometheus.MustNewConstMetric(c.failedDesc, prometheus.CounterValue, float64(s.TotalFailed))
	ch <- prometheus.MustNewConstMetric(c.droppedDesc, prometheus.CounterValue, float64(s.TotalDropped))
	ch <- prometheus.MustNewConstMetric(c.sizeDesc, prometheus.GaugeValue, float64(s.QueueSize))
	ch <- prometheus.MustNewConstMetric(c.capacityDesc, prometheus.GaugeValue, float64(s.QueueCapacity))
}
