// Package metrics exposes the chain manager's instrumentation surface as
// Prometheus collectors. It mimics the small Gauge/Meter vocabulary the
// storage and chain packages are written against, so a call site only ever
// says "update this gauge" or "mark N events on this meter" without caring
// that the backing collector is a prometheus.Gauge or prometheus.Counter.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Gauge is a single float64 value that can go up or down.
type Gauge struct {
	g prometheus.Gauge
}

// Update sets the gauge to v.
func (m *Gauge) Update(v int64) {
	if m == nil {
		return
	}
	m.g.Set(float64(v))
}

// Meter counts events over time. Mark adds delta to the running total.
type Meter struct {
	c prometheus.Counter
}

// Mark adds delta (which may be negative deltas clamped to zero, since
// Prometheus counters cannot decrease) to the meter.
func (m *Meter) Mark(delta int64) {
	if m == nil || delta <= 0 {
		return
	}
	m.c.Add(float64(delta))
}

// sanitize turns a namespace/name path such as "chainstore/compact/time"
// into a Prometheus-safe metric name.
func sanitize(name string) string {
	r := strings.NewReplacer("/", "_", "-", "_", ".", "_", " ", "_")
	return r.Replace(name)
}

// NewRegisteredGauge creates and registers a new Gauge under name. The
// registry parameter is accepted for call-site compatibility with the
// teacher's metrics API and is otherwise unused: this package always
// registers against the default Prometheus registerer.
func NewRegisteredGauge(name string, registry interface{}) *Gauge {
	g := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chainmgr_" + sanitize(name),
		Help: name,
	})
	prometheus.MustRegister(g)
	return &Gauge{g: g}
}

// NewRegisteredMeter creates and registers a new Meter under name.
func NewRegisteredMeter(name string, registry interface{}) *Meter {
	c := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chainmgr_" + sanitize(name),
		Help: name,
	})
	prometheus.MustRegister(c)
	return &Meter{c: c}
}
