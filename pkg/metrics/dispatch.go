package metrics

import "github.com/prometheus/client_golang/prometheus"

// DispatchMetrics counts notification delivery outcomes per channel.
type DispatchMetrics struct {
	sent       *prometheus.CounterVec
	deferred   *prometheus.CounterVec
	suppressed *prometheus.CounterVec
	failed     *prometheus.CounterVec
}

// NewDispatchMetrics registers the dispatcher metrics on the provided registerer.
func NewDispatchMetrics(reg prometheus.Registerer) *DispatchMetrics {
	if reg == nil {
		return &DispatchMetrics{}
	}
	sent := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_sent_total",
		Help: "Notifications delivered to a gateway.",
	}, []string{"channel"})
	deferred := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_deferred_total",
		Help: "Notifications deferred past quiet hours.",
	}, []string{"channel"})
	suppressed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_suppressed_total",
		Help: "Notifications dropped by recipient preferences.",
	}, []string{"channel"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_failed_total",
		Help: "Notifications that failed at the gateway.",
	}, []string{"channel"})
	reg.MustRegister(sent, deferred, suppressed, failed)
	return &DispatchMetrics{
		sent:       sent,
		deferred:   deferred,
		suppressed: suppressed,
		failed:     failed,
	}
}

// IncSent increments the delivered counter for a channel.
func (d *DispatchMetrics) IncSent(channel string) {
	if d == nil || d.sent == nil {
		return
	}
	d.sent.WithLabelValues(normalizeLabel(channel)).Inc()
}

// IncDeferred increments the deferred counter for a channel.
func (d *DispatchMetrics) IncDeferred(channel string) {
	if d == nil || d.deferred == nil {
		return
	}
	d.deferred.WithLabelValues(normalizeLabel(channel)).Inc()
}

// IncSuppressed increments the suppressed counter for a channel.
func (d *DispatchMetrics) IncSuppressed(channel string) {
	if d == nil || d.suppressed == nil {
		return
	}
	d.suppressed.WithLabelValues(normalizeLabel(channel)).Inc()
}

// IncFailed increments the failure counter for a channel.
func (d *DispatchMetrics) IncFailed(channel string) {
	if d == nil || d.failed == nil {
		return
	}
	d.failed.WithLabelValues(normalizeLabel(channel)).Inc()
}
