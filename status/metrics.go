//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package status

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "panoptes_dash"

// Labels represents constant labels of the metrics
type Labels map[string]string

// Metrics represents a metric exposed through prometheus
type Metrics interface {
	Inc()
	Dec()
	Set(uint64)
	Get() uint64

	collector(labels Labels) prometheus.Collector
}

// Counter represents a monotonic metric
type Counter struct {
	Value uint64

	name string
	help string
}

// Gauge represents a metric which can go up and down
type Gauge struct {
	Value uint64

	name string
	help string
}

// NewCounter constructs a counter
func NewCounter(name, help string) *Counter {
	return &Counter{name: name, help: help}
}

// NewGauge constructs a gauge
func NewGauge(name, help string) *Gauge {
	return &Gauge{name: name, help: help}
}

// Inc increments the counter
func (c *Counter) Inc() { atomic.AddUint64(&c.Value, 1) }

// Dec doesn't do anything, a counter doesn't decrease
func (c *Counter) Dec() {}

// Set doesn't do anything, a counter is set by Inc only
func (c *Counter) Set(uint64) {}

// Get returns the counter value
func (c *Counter) Get() uint64 { return atomic.LoadUint64(&c.Value) }

func (c *Counter) collector(labels Labels) prometheus.Collector {
	return prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace:   namespace,
		Name:        c.name,
		Help:        c.help,
		ConstLabels: prometheus.Labels(labels),
	}, func() float64 { return float64(c.Get()) })
}

// Inc increments the gauge
func (g *Gauge) Inc() { atomic.AddUint64(&g.Value, 1) }

// Dec decrements the gauge
func (g *Gauge) Dec() { atomic.AddUint64(&g.Value, ^uint64(0)) }

// Set sets the gauge
func (g *Gauge) Set(v uint64) { atomic.StoreUint64(&g.Value, v) }

// Get returns the gauge value
func (g *Gauge) Get() uint64 { return atomic.LoadUint64(&g.Value) }

func (g *Gauge) collector(labels Labels) prometheus.Collector {
	return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        g.name,
		Help:        g.help,
		ConstLabels: prometheus.Labels(labels),
	}, func() float64 { return float64(g.Get()) })
}

// Register registers the metrics at the prometheus default registry,
// already registered metrics are skipped.
func Register(labels Labels, metrics map[string]Metrics) {
	for _, m := range metrics {
		prometheus.Register(m.collector(labels))
	}
}

// Unregister unregisters the metrics from the prometheus default registry
func Unregister(labels Labels, metrics map[string]Metrics) {
	for _, m := range metrics {
		prometheus.Unregister(m.collector(labels))
	}
}
