// Package metrics provides Prometheus instrumentation for the LwM2M
// registration lifecycle engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registration-exchange metrics.
var (
	RegisterTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lwm2m_register_total",
		Help: "Total number of Register exchanges attempted.",
	}, []string{"ssid", "result"})

	UpdateTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lwm2m_update_total",
		Help: "Total number of Update exchanges attempted.",
	}, []string{"ssid", "result"})

	DeregisterTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lwm2m_deregister_total",
		Help: "Total number of Deregister exchanges attempted.",
	}, []string{"ssid", "result"})

	ExchangeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lwm2m_exchange_duration_seconds",
		Help:    "Duration of a registration-protocol exchange.",
		Buckets: prometheus.DefBuckets,
	}, []string{"exchange"})
)

// Reconnect / backoff metrics.
var (
	ReconnectTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lwm2m_reconnect_total",
		Help: "Total number of connection refresh attempts with reconnect forced.",
	}, []string{"ssid", "result"})

	SuspendedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lwm2m_suspended_total",
		Help: "Total number of times a server's connection was suspended after a network error.",
	}, []string{"ssid"})
)

// Server-population gauges.
var (
	ActiveServers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lwm2m_active_servers",
		Help: "Number of currently active servers.",
	})

	OfflineState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lwm2m_offline_state",
		Help: "1 if the client considers itself offline, 0 otherwise.",
	})
)
