package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector exposes the realtime core's operational metrics.
type Collector struct {
	connectionsActive   prometheus.Gauge
	reconnectsScheduled prometheus.Counter
	messagesReceived    *prometheus.CounterVec
	broadcastsDropped   prometheus.Counter
	pollRefreshes       prometheus.Counter
	fetchDuration       prometheus.Histogram
	cameraEvents        *prometheus.CounterVec
}

func NewCollector() *Collector {
	return &Collector{
		connectionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "shopflow_realtime_connections_active",
			Help: "Number of live realtime connections (0 or 1 per transport)",
		}),

		reconnectsScheduled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "shopflow_realtime_reconnects_scheduled_total",
			Help: "Total reconnect attempts scheduled after connection loss",
		}),

		messagesReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "shopflow_realtime_messages_received_total",
			Help: "Inbound realtime messages by type tag",
		}, []string{"type"}),

		broadcastsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "shopflow_channel_broadcasts_dropped_total",
			Help: "Broadcasts dropped because no connection was live",
		}),

		pollRefreshes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "shopflow_poll_refreshes_total",
			Help: "Polling fallback refresh cycles",
		}),

		fetchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "shopflow_backend_fetch_duration_seconds",
			Help:    "Duration of backend REST fetches",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
		}),

		cameraEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "shopflow_camera_events_total",
			Help: "Camera events merged into the cache by person type",
		}, []string{"person_type"}),
	}
}

func (c *Collector) ConnectionUp()   { c.connectionsActive.Inc() }
func (c *Collector) ConnectionDown() { c.connectionsActive.Dec() }

func (c *Collector) ReconnectScheduled() { c.reconnectsScheduled.Inc() }

func (c *Collector) MessageReceived(msgType string) {
	c.messagesReceived.WithLabelValues(msgType).Inc()
}

func (c *Collector) BroadcastDropped() { c.broadcastsDropped.Inc() }

func (c *Collector) PollRefresh() { c.pollRefreshes.Inc() }

func (c *Collector) ObserveFetch(d time.Duration) {
	c.fetchDuration.Observe(d.Seconds())
}

func (c *Collector) CameraEvent(personType string) {
	c.cameraEvents.WithLabelValues(personType).Inc()
}
