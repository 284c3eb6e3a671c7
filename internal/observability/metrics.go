// Package observability provides Prometheus metrics and request tracing
// for the wallet report path.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	ReportsTotal    *prometheus.CounterVec
	ReportDuration  prometheus.Histogram
	RPCCallDuration *prometheus.HistogramVec
	RateLimitHits   prometheus.Counter
	BatchFallbacks  prometheus.Counter
	SocialSearches  *prometheus.CounterVec
	AnalysisCalls   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered
// on the default registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "wallet_recon"
	}

	return &Metrics{
		ReportsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_total",
			Help:      "Wallet reports by outcome",
		}, []string{"outcome"}),

		ReportDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "report_duration_seconds",
			Help:      "End to end wallet report duration",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),

		RPCCallDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_call_duration_seconds",
			Help:      "Solana RPC call duration by method",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"method"}),

		RateLimitHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_hits_total",
			Help:      "Requests that exhausted the retry budget on 429s",
		}),

		BatchFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_fallbacks_total",
			Help:      "Requests that fell back to sequential transaction fetching",
		}),

		SocialSearches: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "social_searches_total",
			Help:      "Social mention searches by outcome",
		}, []string{"outcome"}),

		AnalysisCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_calls_total",
			Help:      "Model analysis invocations by outcome",
		}, []string{"outcome"}),
	}
}
