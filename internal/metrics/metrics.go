package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CommandsTotal tracks handled bot commands.
	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hongbao_commands_total",
			Help: "Total number of bot commands handled",
		},
		[]string{"command"},
	)

	// LedgerCallsTotal tracks JSON-RPC calls against the ledger gateway.
	LedgerCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hongbao_ledger_calls_total",
			Help: "Total number of ledger RPC calls",
		},
		[]string{"method"},
	)

	// LedgerErrorsTotal tracks failed ledger RPC calls.
	LedgerErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hongbao_ledger_errors_total",
			Help: "Total number of failed ledger RPC calls",
		},
		[]string{"method"},
	)

	// LedgerLatency tracks ledger RPC latency.
	LedgerLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hongbao_ledger_latency_seconds",
			Help:    "Ledger RPC call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// SubmissionsTotal tracks fund-moving submissions by outcome.
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hongbao_submissions_total",
			Help: "Total number of transaction submissions",
		},
		[]string{"operation", "outcome"},
	)

	// ActiveConversations tracks users currently inside a multi-step flow.
	ActiveConversations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hongbao_active_conversations",
			Help: "Number of users with an active conversation state",
		},
	)
)
