package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	betTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "win5x_bet_requests_total",
			Help: "Total bet requests by result and bet_type",
		},
		[]string{"result", "bet_type"},
	)

	betDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "win5x_bet_request_duration_ms",
			Help:    "Bet request duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		},
		[]string{"result", "bet_type"},
	)

	betAmount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "win5x_bet_amount_total",
			Help: "Total wagered amount in minor units by bet_type",
		},
		[]string{"bet_type"},
	)
)

// RecordBet records business metrics for a bet call.
// result should be "success" or "fail"; amount is only counted on success.
func RecordBet(result, betType string, amount int64, started time.Time) {
	res := result
	if res != "success" {
		res = "fail"
	}
	betTotal.WithLabelValues(res, betType).Inc()
	durMs := float64(time.Since(started).Milliseconds())
	betDuration.WithLabelValues(res, betType).Observe(durMs)
	if res == "success" {
		betAmount.WithLabelValues(betType).Add(float64(amount))
	}
}

var rejectTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "win5x_bet_rejects_total",
		Help: "Rejected bet requests by reason",
	},
	[]string{"reason"},
)

// RecordBetReject counts a rejected bet by its reason code.
func RecordBetReject(reason string) {
	rejectTotal.WithLabelValues(reason).Inc()
}
