// Package metrics exposes gateway domain metrics on the default prometheus
// registry, next to the HTTP metrics ginprom serves on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wagate",
		Subsystem: "sessions",
		Name:      "transitions_total",
		Help:      "Session status transitions by target status.",
	}, []string{"status"})

	SessionsLive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "wagate",
		Subsystem: "sessions",
		Name:      "live",
		Help:      "Sessions currently held in memory.",
	})

	SessionInitFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wagate",
		Subsystem: "sessions",
		Name:      "init_failures_total",
		Help:      "Session initialization failures by classified kind.",
	}, []string{"kind"})

	WebhookAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wagate",
		Subsystem: "webhooks",
		Name:      "attempts_total",
		Help:      "Webhook delivery attempts by result.",
	}, []string{"result"})

	WebhookLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "wagate",
		Subsystem: "webhooks",
		Name:      "attempt_duration_seconds",
		Help:      "Duration of a single webhook delivery attempt.",
		Buckets:   prometheus.DefBuckets,
	})

	RealtimeClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "wagate",
		Subsystem: "realtime",
		Name:      "clients",
		Help:      "Connected realtime push clients.",
	})
)
