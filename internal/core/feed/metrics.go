package feed

import "github.com/prometheus/client_golang/prometheus"

var (
	feedConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatfront_feed_connections",
			Help: "Current number of attached live-feed subscribers.",
		},
	)
	feedRooms = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatfront_feed_rooms",
			Help: "Current number of tenant feed rooms.",
		},
	)
	feedEventsDelivered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chatfront_feed_events_delivered_total",
			Help: "Total feed events delivered to subscribers.",
		},
	)
	feedSuggestionRuns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chatfront_feed_suggestion_runs_total",
			Help: "Total agent reply-suggestion generations triggered by the feed.",
		},
	)
)

func init() {
	prometheus.MustRegister(feedConnections, feedRooms, feedEventsDelivered, feedSuggestionRuns)
}

func incConnections() {
	feedConnections.Inc()
}

func decConnections() {
	feedConnections.Dec()
}

func setRooms(count int) {
	feedRooms.Set(float64(count))
}

func addDelivered(count int) {
	feedEventsDelivered.Add(float64(count))
}

// IncSuggestionRuns is called by the feed service when a suggestion
// generation fires.
func IncSuggestionRuns() {
	feedSuggestionRuns.Inc()
}
