package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Gauge wraps prometheus.Gauge. Gauges created with the same name and labels
// share the registered collector, so a controller can be rebuilt without a
// registration panic.
type Gauge struct {
	gauge prometheus.Gauge
}

// NewGauge creates or reuses a gauge registered on the default registry.
func NewGauge(name, help string, labels map[string]string) *Gauge {
	return newGauge(prometheus.DefaultRegisterer, name, help, labels)
}

func newGauge(reg prometheus.Registerer, name, help string, labels map[string]string) *Gauge {
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        name,
		Help:        help,
		ConstLabels: labels,
	})
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return &Gauge{gauge: existing}
			}
		}
		// Unregistered gauges still work, they are just not exported.
	}
	return &Gauge{gauge: gauge}
}

// Set sets the gauge to the given value
func (g *Gauge) Set(v float64) {
	g.gauge.Set(v)
}

// Inc increments the gauge by 1
func (g *Gauge) Inc() {
	g.gauge.Inc()
}

// Dec decrements the gauge by 1
func (g *Gauge) Dec() {
	g.gauge.Dec()
}

// Value reads the current value. Intended for tests and debug output.
func (g *Gauge) Value() float64 {
	var m dto.Metric
	if err := g.gauge.Write(&m); err != nil || m.Gauge == nil {
		return 0
	}
	return m.Gauge.GetValue()
}

// DashboardGauges are the per-resource gauges a controller maintains.
type DashboardGauges struct {
	Tasks         *Gauge
	Runs          *Gauge
	Mounted       *Gauge
	Notifications *Gauge
}

// NewDashboardGauges builds gauges labelled with the dashboard's resource.
func NewDashboardGauges(cluster, resourceType, resourceName string) *DashboardGauges {
	labels := map[string]string{
		"cluster":       cluster,
		"resource_type": resourceType,
		"resource_name": resourceName,
	}
	return &DashboardGauges{
		Tasks:         NewGauge("taskboard_tasks", "Tasks currently listed", labels),
		Runs:          NewGauge("taskboard_task_runs", "Runs listed for the selected task", labels),
		Mounted:       NewGauge("taskboard_mounted", "1 while the dashboard is mounted and polling", labels),
		Notifications: NewGauge("taskboard_notifications_active", "Notifications not yet dismissed", labels),
	}
}
