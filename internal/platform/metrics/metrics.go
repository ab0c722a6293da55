package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	PresenceConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "messenger_presence_connections",
		Help: "Currently open presence-mode websocket connections on this instance.",
	})

	MessagesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "messenger_messages_sent_total",
		Help: "Total messages durably persisted.",
	})
	FanoutPublishes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "messenger_fanout_publishes_total",
		Help: "Total messages published on conversation channels.",
	})
	FanoutDeliveries = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "messenger_fanout_deliveries_total",
		Help: "Total fan-out payloads forwarded to local clients.",
	})

	CacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "messenger_history_cache_hits_total",
		Help: "History reads served fully or partially from the cache window.",
	})
	CacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "messenger_history_cache_misses_total",
		Help: "History reads that bypassed the cache window.",
	})

	NotificationsSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "messenger_notifications_sent_total",
		Help: "Offline-recipient notifications delivered to the external service.",
	})
)

func Register() {
	prometheus.MustRegister(
		PresenceConnections,
		MessagesSent, FanoutPublishes, FanoutDeliveries,
		CacheHits, CacheMisses,
		NotificationsSent,
	)
}

// RegisterOpenSessions exposes the session registry's count as a gauge, so
// the metric reads the bookkeeping instead of shadowing it.
func RegisterOpenSessions(sessions func() float64) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "messenger_open_sessions",
		Help: "Currently open messaging-mode websocket sessions on this instance.",
	}, sessions))
}
