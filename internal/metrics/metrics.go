package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Contactless tap attempts by terminal outcome.
	TapOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atm_tap_outcomes_total",
			Help: "Contactless tap attempts by outcome",
		},
		[]string{"outcome"}, // success|timeout|cancelled|failed|unknown_card|bind_error
	)

	TransactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atm_transactions_total",
			Help: "Successful terminal transactions",
		},
		[]string{"type"}, // deposit|withdrawal|upi_qr
	)
	TransactionsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "atm_transactions_failed_total",
			Help: "Rejected terminal transactions",
		},
	)
)

// Handler serves the /metrics endpoint.
var Handler = promhttp.Handler

// Init registers the terminal collectors with the default registry. Call
// once from main.
func Init() {
	prometheus.MustRegister(TapOutcomes)
	prometheus.MustRegister(TransactionsTotal)
	prometheus.MustRegister(TransactionsFailed)
}
