package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ResponseTimeHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_time_seconds",
			Help:    "Histogram of response times",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	ReassignmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "network_reassignments_total",
			Help: "Sponsor reassignments by outcome",
		},
		[]string{"outcome"},
	)

	CascadeSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "network_path_cascade_members",
			Help:    "Members touched by one path recomputation",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
	)

	JoinsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "network_joins_total",
			Help: "Join attempts by outcome",
		},
		[]string{"outcome"},
	)

	InviteCodesIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "network_invite_codes_issued_total",
			Help: "Invite codes minted",
		},
	)

	InviteCodeCollisions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "network_invite_code_collisions_total",
			Help: "Generated invite codes that already existed",
		},
	)

	EarningRowsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commission_earning_rows_total",
			Help: "Ledger rows created by level",
		},
		[]string{"level"},
	)

	ConsistencyViolations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "network_consistency_violations",
			Help: "Violations found by the last consistency check",
		},
	)
)
