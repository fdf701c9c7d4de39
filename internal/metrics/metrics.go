// Package metrics holds the Prometheus collectors for societyhub. Each
// Metrics value owns its registry so tests can create as many as they like.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "societyhub"

type Metrics struct {
	registry *prometheus.Registry

	scopeDenials      *prometheus.CounterVec
	tenantTransitions *prometheus.CounterVec
	ownerAssignments  *prometheus.CounterVec
	billTransitions   *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// New registers every collector on a fresh registry, along with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		scopeDenials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scope_denials_total",
			Help:      "Requests rejected by the access scope, by resource and outcome.",
		}, []string{"resource", "outcome"}),
		tenantTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tenant_status_changes_total",
			Help:      "Tenant status change attempts, by result.",
		}, []string{"result"}),
		ownerAssignments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flat_owner_assignments_total",
			Help:      "Flat owner assignment attempts, by result.",
		}, []string{"result"}),
		billTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bill_transitions_total",
			Help:      "Bill workflow transitions, by source and target status.",
		}, []string{"from", "to"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by method, route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.scopeDenials,
		m.tenantTransitions,
		m.ownerAssignments,
		m.billTransitions,
		m.httpDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// A nil *Metrics is valid and records nothing.

func (m *Metrics) ScopeDenied(resource, outcome string) {
	if m == nil {
		return
	}
	m.scopeDenials.WithLabelValues(resource, outcome).Inc()
}

func (m *Metrics) TenantTransition(result string) {
	if m == nil {
		return
	}
	m.tenantTransitions.WithLabelValues(result).Inc()
}

func (m *Metrics) OwnerAssignment(result string) {
	if m == nil {
		return
	}
	m.ownerAssignments.WithLabelValues(result).Inc()
}

func (m *Metrics) BillTransition(from, to string) {
	if m == nil {
		return
	}
	m.billTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
