package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	roundTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "win5x_rounds_total",
			Help: "Finished rounds by status and winning number",
		},
		[]string{"status", "winning_number"},
	)

	roundHousePL = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "win5x_house_profit_total",
			Help: "Cumulative house profit/loss in minor units (can go down)",
		},
	)

	manualSpinTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "win5x_manual_spins_total",
			Help: "Rounds whose winning number was forced by an operator",
		},
	)
)

// RecordRound records a finished round. housePL below zero is clamped on the
// counter; the signed value lives in the game_rounds table.
func RecordRound(status string, winningNumber int, housePL int64) {
	num := "none"
	if winningNumber >= 0 {
		num = strconv.Itoa(winningNumber)
	}
	roundTotal.WithLabelValues(status, num).Inc()
	if housePL > 0 {
		roundHousePL.Add(float64(housePL))
	}
}

// RecordManualSpin counts an operator-forced winning number.
func RecordManualSpin() {
	manualSpinTotal.Inc()
}

var (
	settlementDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "win5x_settlement_duration_ms",
			Help:    "Round settlement duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(5, 2, 12),
		},
		[]string{"result"},
	)

	settlementRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "win5x_settlement_credit_retries_total",
			Help: "Wallet credit attempts beyond the first during settlement",
		},
	)

	settlementStuck = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "win5x_settlement_stuck_total",
			Help: "Rounds whose settlement exhausted retries and halted the scheduler",
		},
	)
)

// RecordSettlement records one settlement pass.
func RecordSettlement(result string, started time.Time) {
	res := result
	if res != "success" {
		res = "fail"
	}
	settlementDuration.WithLabelValues(res).Observe(float64(time.Since(started).Milliseconds()))
}

// RecordSettlementRetry counts a wallet credit retry.
func RecordSettlementRetry() {
	settlementRetries.Inc()
}

// RecordSettlementStuck counts a settlement that gave up.
func RecordSettlementStuck() {
	settlementStuck.Inc()
}
