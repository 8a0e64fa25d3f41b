// Package metrics exposes router-wide counters and gauges in
// Prometheus exposition format: sessions joined/left per realm, call
// and publication throughput, registration/subscription occupancy, and
// connection-admission outcomes.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private prometheus.Registry rather than the global
// DefaultRegisterer, so a process can run more than one Collector (one
// per router instance, in tests) without collectors colliding.
type Collector struct {
	registry *prometheus.Registry

	sessionsJoinedTotal *prometheus.CounterVec
	sessionsLeftTotal   *prometheus.CounterVec
	sessionsActive      *prometheus.GaugeVec
	realmsOpen          prometheus.Gauge

	callsTotal      *prometheus.CounterVec
	callErrorsTotal *prometheus.CounterVec
	callDuration    *prometheus.HistogramVec

	publishesTotal   *prometheus.CounterVec
	eventsDelivered  *prometheus.CounterVec

	registrationsActive *prometheus.GaugeVec
	subscriptionsActive *prometheus.GaugeVec

	connectionsAdmittedTotal *prometheus.CounterVec
}

// DefaultCallDurationBuckets mirror Prometheus's own default buckets,
// in seconds; router calls are expected to resolve well inside the
// lower half of this range.
var DefaultCallDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		registry: reg,
		sessionsJoinedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wampd_sessions_joined_total",
			Help: "Total sessions that completed the WELCOME handshake, by realm.",
		}, []string{"realm"}),
		sessionsLeftTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wampd_sessions_left_total",
			Help: "Total sessions that left a realm, by realm.",
		}, []string{"realm"}),
		sessionsActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "wampd_sessions_active",
			Help: "Sessions currently joined to a realm.",
		}, []string{"realm"}),
		realmsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wampd_realms_open",
			Help: "Realms currently open on this router.",
		}),
		callsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wampd_calls_total",
			Help: "Total CALL messages routed, by realm and procedure.",
		}, []string{"realm", "procedure"}),
		callErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wampd_call_errors_total",
			Help: "Total CALLs that resolved to an ERROR, by realm and procedure.",
		}, []string{"realm", "procedure"}),
		callDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wampd_call_duration_seconds",
			Help:    "Time from CALL to RESULT/ERROR, by realm.",
			Buckets: DefaultCallDurationBuckets,
		}, []string{"realm"}),
		publishesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wampd_publishes_total",
			Help: "Total PUBLISH messages accepted, by realm and topic.",
		}, []string{"realm", "topic"}),
		eventsDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wampd_events_delivered_total",
			Help: "Total EVENT messages delivered to subscribers, by realm.",
		}, []string{"realm"}),
		registrationsActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "wampd_registrations_active",
			Help: "Procedure registrations currently held, by realm.",
		}, []string{"realm"}),
		subscriptionsActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "wampd_subscriptions_active",
			Help: "Topic subscriptions currently held, by realm.",
		}, []string{"realm"}),
		connectionsAdmittedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wampd_connections_admitted_total",
			Help: "Connection admission outcomes, by outcome kind.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		c.sessionsJoinedTotal,
		c.sessionsLeftTotal,
		c.sessionsActive,
		c.realmsOpen,
		c.callsTotal,
		c.callErrorsTotal,
		c.callDuration,
		c.publishesTotal,
		c.eventsDelivered,
		c.registrationsActive,
		c.subscriptionsActive,
		c.connectionsAdmittedTotal,
	)
	return c
}

// Handler serves the collected metrics in Prometheus text exposition
// format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) RecordSessionJoin(realm string) {
	c.sessionsJoinedTotal.WithLabelValues(realm).Inc()
	c.sessionsActive.WithLabelValues(realm).Inc()
}

func (c *Collector) RecordSessionLeave(realm string) {
	c.sessionsLeftTotal.WithLabelValues(realm).Inc()
	c.sessionsActive.WithLabelValues(realm).Dec()
}

func (c *Collector) SetRealmsOpen(n int) {
	c.realmsOpen.Set(float64(n))
}

func (c *Collector) RecordCall(realm, procedure string, duration time.Duration, failed bool) {
	c.callsTotal.WithLabelValues(realm, procedure).Inc()
	if failed {
		c.callErrorsTotal.WithLabelValues(realm, procedure).Inc()
	}
	c.callDuration.WithLabelValues(realm).Observe(duration.Seconds())
}

func (c *Collector) RecordPublish(realm, topic string, deliveredTo int) {
	c.publishesTotal.WithLabelValues(realm, topic).Inc()
	c.eventsDelivered.WithLabelValues(realm).Add(float64(deliveredTo))
}

func (c *Collector) SetRegistrationsActive(realm string, n int) {
	c.registrationsActive.WithLabelValues(realm).Set(float64(n))
}

func (c *Collector) SetSubscriptionsActive(realm string, n int) {
	c.subscriptionsActive.WithLabelValues(realm).Set(float64(n))
}

func (c *Collector) RecordConnectionAdmission(outcome string) {
	c.connectionsAdmittedTotal.WithLabelValues(outcome).Inc()
}
