// Package metrics exposes Prometheus counters for both services. Each process
// owns one registry served on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/transfer-antifraud-saga/internal/platform/messaging/consumers"
)

type Metrics struct {
	registry *prometheus.Registry

	requestsTotal     *prometheus.CounterVec
	requestLatency    *prometheus.HistogramVec
	messagesTotal     *prometheus.CounterVec
	creationsTotal    *prometheus.CounterVec
	transitionsTotal  *prometheus.CounterVec
	decisionsTotal    *prometheus.CounterVec
	outboxTotal       *prometheus.CounterVec
	workerQueueDepth  prometheus.Gauge
	cacheLookupsTotal *prometheus.CounterVec
}

// New builds and registers every collector on a fresh registry
func New(service string) *Metrics {
	labels := prometheus.Labels{"service": service}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "Total HTTP requests",
			ConstLabels: labels,
		}, []string{"route", "method", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_requests_latency_seconds",
			Help:        "Latency of HTTP requests.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: labels,
		}, []string{"route", "method"}),
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "consumed_messages_total",
			Help:        "Consumed messages by final outcome",
			ConstLabels: labels,
		}, []string{"topic", "outcome"}),
		creationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "transactions_created_total",
			Help:        "Creation requests by result (created|existing)",
			ConstLabels: labels,
		}, []string{"result"}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "transaction_status_transitions_total",
			Help:        "Status updates by target status and result (applied|duplicate)",
			ConstLabels: labels,
		}, []string{"status", "result"}),
		decisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "fraud_decisions_total",
			Help:        "Fraud verdicts by status",
			ConstLabels: labels,
		}, []string{"status"}),
		outboxTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "outbox_messages_total",
			Help:        "Outbox relay attempts by result (published|failed|exhausted)",
			ConstLabels: labels,
		}, []string{"result"}),
		workerQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "worker_pool_waiting",
			Help:        "Tasks waiting for a worker",
			ConstLabels: labels,
		}),
		cacheLookupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "cache_lookups_total",
			Help:        "Read cache lookups by result (hit|miss|error)",
			ConstLabels: labels,
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestsTotal,
		m.requestLatency,
		m.messagesTotal,
		m.creationsTotal,
		m.transitionsTotal,
		m.decisionsTotal,
		m.outboxTotal,
		m.workerQueueDepth,
		m.cacheLookupsTotal,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveOutcome implements consumers.OutcomeRecorder
func (m *Metrics) ObserveOutcome(topic string, outcome consumers.Outcome) {
	m.messagesTotal.WithLabelValues(topic, outcome.String()).Inc()
}

func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	m.requestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestLatency.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

func (m *Metrics) TransactionCreated(created bool) {
	result := "existing"
	if created {
		result = "created"
	}
	m.creationsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) StatusTransition(status string, applied bool) {
	result := "duplicate"
	if applied {
		result = "applied"
	}
	m.transitionsTotal.WithLabelValues(status, result).Inc()
}

func (m *Metrics) FraudDecision(status string) {
	m.decisionsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) OutboxRelay(result string) {
	m.outboxTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) WorkerQueueDepth(waiting int) {
	m.workerQueueDepth.Set(float64(waiting))
}

func (m *Metrics) CacheLookup(result string) {
	m.cacheLookupsTotal.WithLabelValues(result).Inc()
}
