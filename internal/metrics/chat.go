package metrics

import "github.com/prometheus/client_golang/prometheus"

// Chat provider Prometheus metrics.
var (
	ChatProviderAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "omnirecall",
			Name:      "chat_provider_attempts_total",
			Help:      "Total chat completion attempts per provider",
		},
		[]string{"provider", "outcome"}, // "success" / "transient" / "failed"
	)

	ChatFailoversTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "omnirecall",
			Name:      "chat_failovers_total",
			Help:      "Total failovers from the primary chat provider to the fallback",
		},
	)

	ChatRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "omnirecall",
			Name:      "chat_request_duration_seconds",
			Help:      "Chat completion duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider", "model"},
	)
)

var chatMetricsRegistered bool

// RegisterChatMetrics registers Prometheus chat metrics. Must be called once from main.
func RegisterChatMetrics() {
	if chatMetricsRegistered {
		return
	}
	prometheus.MustRegister(ChatProviderAttemptsTotal)
	prometheus.MustRegister(ChatFailoversTotal)
	prometheus.MustRegister(ChatRequestDuration)
	chatMetricsRegistered = true
}
