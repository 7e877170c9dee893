package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Wallet session, network and submission counters.

var (
	// Session
	ConnectAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "estateflow",
		Subsystem: "session",
		Name:      "connect_attempts_total",
		Help:      "Wallet connect attempts by outcome",
	}, []string{"outcome"})

	SessionEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "estateflow",
		Subsystem: "session",
		Name:      "events_total",
		Help:      "Wallet notifications applied to the session",
	}, []string{"kind"})

	SessionConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "estateflow",
		Subsystem: "session",
		Name:      "connected",
		Help:      "1 while a wallet account is connected",
	})

	// Network
	NetworkEnsure = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "estateflow",
		Subsystem: "network",
		Name:      "ensure_total",
		Help:      "Network checks by action taken and outcome",
	}, []string{"action", "outcome"})

	// Submitter
	Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "estateflow",
		Subsystem: "submit",
		Name:      "submissions_total",
		Help:      "Request submissions by outcome",
	}, []string{"outcome"})

	SubmitLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "estateflow",
		Subsystem: "submit",
		Name:      "duration_seconds",
		Help:      "Time from submit to confirmed receipt",
		Buckets:   []float64{1, 5, 10, 15, 30, 60, 120, 300},
	})

	// Request cache
	CachedRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "estateflow",
		Subsystem: "requests",
		Name:      "cached",
		Help:      "Requests held in the local cache",
	})

	StoreWriteErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "estateflow",
		Subsystem: "requests",
		Name:      "write_errors_total",
		Help:      "Failed cache writes by backend",
	}, []string{"backend"})
)

const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
	OutcomeSkipped  = "skipped"

	ActionNone   = "none"
	ActionSwitch = "switch"
	ActionAdd    = "add"
	ActionCheck  = "check"
)
