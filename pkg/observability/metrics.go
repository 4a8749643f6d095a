// Package observability holds the Prometheus collectors shared by the API.
package observability

import (
	"context"
	"errors"
	"sync"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/FACorreiaa/promptveo-api/internal/types"
)

type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	WebhookEvents    *prometheus.CounterVec
	UpgradeRequired  *prometheus.CounterVec
	FeatureCacheHits *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rpc_requests_total",
			Help: "Connect RPC calls by procedure and result code.",
		}, []string{"procedure", "code"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rpc_request_duration_seconds",
			Help:    "Connect RPC latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"procedure"}),
		WebhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billing_webhook_events_total",
			Help: "Stripe webhook events by type and outcome.",
		}, []string{"event_type", "outcome"}),
		UpgradeRequired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feature_upgrade_required_total",
			Help: "Gated actions rejected because the plan lacks the feature.",
		}, []string{"procedure"}),
		FeatureCacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feature_cache_lookups_total",
			Help: "Feature cache lookups by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.RequestsTotal, m.RequestDuration, m.WebhookEvents, m.UpgradeRequired, m.FeatureCacheHits)
	return m
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// Default returns the collectors registered on the global Prometheus registry.
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = NewMetrics(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// NewMetricsInterceptor records count and latency of every RPC on the default collectors.
func NewMetricsInterceptor() connect.UnaryInterceptorFunc {
	return Default().Interceptor()
}

func (m *Metrics) Interceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			procedure := req.Spec().Procedure
			code := "ok"
			if err != nil {
				code = connect.CodeOf(err).String()
				if errors.Is(err, types.ErrUpgradeRequired) {
					m.UpgradeRequired.WithLabelValues(procedure).Inc()
				}
			}
			m.RequestsTotal.WithLabelValues(procedure, code).Inc()
			m.RequestDuration.WithLabelValues(procedure).Observe(time.Since(start).Seconds())
			return resp, err
		}
	}
}

func (m *Metrics) ObserveWebhook(eventType, outcome string) {
	m.WebhookEvents.WithLabelValues(eventType, outcome).Inc()
}

func (m *Metrics) ObserveCacheLookup(hit bool) {
	if hit {
		m.FeatureCacheHits.WithLabelValues("hit").Inc()
		return
	}
	m.FeatureCacheHits.WithLabelValues("miss").Inc()
}
