package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MatchesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "soundmatch_matches_created_total",
			Help: "Total number of match pairs materialized on both sides",
		},
	)

	MatchPartialFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soundmatch_match_partial_failures_total",
			Help: "Two-sided match writes that left exactly one side persisted",
		},
		[]string{"op"}, // "match", "unmatch"
	)

	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soundmatch_messages_sent_total",
			Help: "Messages persisted, by submission path",
		},
		[]string{"path"}, // "live", "rest"
	)

	MessageDedupHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "soundmatch_message_dedup_hits_total",
			Help: "Sends resolved to an already stored message by client id",
		},
	)

	FeedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soundmatch_feed_requests_total",
			Help: "Feed page requests by outcome",
		},
		[]string{"result"}, // "ok", "empty", "error"
	)

	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "soundmatch_ws_connections",
			Help: "Currently open live connections",
		},
	)

	ReconcileRepairs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soundmatch_reconcile_repairs_total",
			Help: "Orphan match sides repaired by the reconciler",
		},
		[]string{"action"}, // "roll_forward", "delete"
	)
)

const (
	OpMatch   = "match"
	OpUnmatch = "unmatch"

	PathLive = "live"
	PathREST = "rest"

	FeedOK    = "ok"
	FeedEmpty = "empty"
	FeedError = "error"

	RepairRollForward = "roll_forward"
	RepairDelete      = "delete"
)

func RecordPartialFailure(op string) {
	MatchPartialFailures.WithLabelValues(op).Inc()
}

func RecordMessageSent(path string, deduplicated bool) {
	if deduplicated {
		MessageDedupHits.Inc()
		return
	}
	MessagesSent.WithLabelValues(path).Inc()
}

func RecordFeedRequest(result string) {
	FeedRequests.WithLabelValues(result).Inc()
}

// TrackConnection adjusts the live connection gauge.
func TrackConnection(open bool) {
	if open {
		WSConnections.Inc()
	} else {
		WSConnections.Dec()
	}
}

func RecordRepair(action string) {
	ReconcileRepairs.WithLabelValues(action).Inc()
}
