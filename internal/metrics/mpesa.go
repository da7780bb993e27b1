package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		stkPushTotal,
		callbacksTotal,
		tokenFetchTotal,
		providerRequestDuration,
	)
}

var (
	stkPushTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mpesa_stk_push_total",
			Help: "STK push attempts by outcome (accepted/declined/error).",
		},
		[]string{"outcome"},
	)

	callbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mpesa_callbacks_total",
			Help: "STK callbacks received by result (success/duplicate/failed/invalid).",
		},
		[]string{"result"},
	)

	tokenFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mpesa_token_fetch_total",
			Help: "OAuth token requests by outcome.",
		},
		[]string{"outcome"},
	)

	providerRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mpesa_provider_request_duration_seconds",
			Help:    "Latency of outbound Daraja calls.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"endpoint"},
	)
)

func IncSTKPush(outcome string) {
	stkPushTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncCallback(result string) {
	callbacksTotal.WithLabelValues(norm(result)).Inc()
}

func IncTokenFetch(outcome string) {
	tokenFetchTotal.WithLabelValues(norm(outcome)).Inc()
}

func ObserveProviderRequest(endpoint string, d time.Duration) {
	providerRequestDuration.WithLabelValues(norm(endpoint)).Observe(d.Seconds())
}
