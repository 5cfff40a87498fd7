package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	friendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "friend_requests_total",
			Help: "Friend request transitions by outcome",
		},
		[]string{"outcome"},
	)
	callSessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "call_sessions_total",
			Help: "Call session lifecycle events",
		},
		[]string{"event"},
	)
	callDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "call_duration_seconds",
			Help:    "Duration recorded when a call is ended",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		},
	)
	onlineUsers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_online_users",
			Help: "Users with at least one open websocket connection",
		},
	)
	eventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relationship_events_published_total",
			Help: "Relationship and call events by delivery path",
		},
		[]string{"path"},
	)
	eventWorkerRestartsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "event_worker_restarts_total",
			Help: "Times the event worker resubscribed after its delivery stream closed",
		},
	)
)

// RegisterMetrics registers the domain collectors with reg.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(friendRequestsTotal, callSessionsTotal, callDurationSeconds, onlineUsers, eventsPublishedTotal, eventWorkerRestartsTotal)
}

// TrackPresence is the websocket hub's presence callback. It only touches
// an in-process gauge, so it is safe to call from the hub loop.
func TrackPresence(userID string, online bool) {
	if online {
		onlineUsers.Inc()
		return
	}
	onlineUsers.Dec()
}
