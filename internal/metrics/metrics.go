package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

type Collector struct {
	reg *prometheus.Registry

	LiveTourists prometheus.Gauge
	LostTourists prometheus.Gauge
	Animals      prometheus.Gauge

	TouristsSpawned  prometheus.Counter
	TouristsDeparted prometheus.Counter
	Transitions      *prometheus.CounterVec // kind label: crossed|bounced|departed
	SkippedUpdates   prometheus.Counter

	Ticks            prometheus.Counter
	SnapshotsDropped prometheus.Counter
	SinkErrors       *prometheus.CounterVec // sink label

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge

	TickDuration    prometheus.Histogram
	PublishDuration prometheus.Histogram

	SimElapsed     prometheus.Gauge // seconds of simulated time
	TimeMultiplier prometheus.Gauge
	TickSeconds    prometheus.Gauge
}

func NewCollector(multiplier float64, tick time.Duration) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		LiveTourists: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gopr_sim_live_tourists",
			Help: "Number of tourists currently on the map.",
		}),
		LostTourists: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gopr_sim_lost_tourists",
			Help: "Number of live tourists currently lost.",
		}),
		Animals: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gopr_sim_animals",
			Help: "Number of animals with an assigned route.",
		}),
		TouristsSpawned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gopr_sim_tourists_spawned_total",
			Help: "Total tourists spawned on entrance trails.",
		}),
		TouristsDeparted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gopr_sim_tourists_departed_total",
			Help: "Total tourists that left the map.",
		}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gopr_sim_trail_transitions_total",
			Help: "Trail boundary resolutions by kind.",
		}, []string{"kind"}),
		SkippedUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gopr_sim_skipped_updates_total",
			Help: "Tourist updates skipped because the agent state could not be resolved.",
		}),
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gopr_sim_ticks_total",
			Help: "Total simulation ticks executed.",
		}),
		SnapshotsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gopr_sim_snapshots_dropped_total",
			Help: "Snapshots dropped because the sink buffer was full.",
		}),
		SinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gopr_sim_sink_errors_total",
			Help: "Snapshot write failures by sink.",
		}, []string{"sink"}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gopr_sim_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gopr_sim_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gopr_sim_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gopr_sim_tick_duration_seconds",
			Help:    "Duration of simulation tick computations.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 15),
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gopr_sim_publish_duration_seconds",
			Help:    "Duration to marshal and publish one snapshot to NATS.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		SimElapsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gopr_sim_elapsed_seconds",
			Help: "Simulated seconds elapsed since the run start.",
		}),
		TimeMultiplier: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gopr_sim_time_multiplier",
			Help: "Current simulated-to-real time multiplier.",
		}),
		TickSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gopr_sim_tick_seconds",
			Help: "Simulated seconds per tick.",
		}),
	}

	reg.MustRegister(
		c.LiveTourists, c.LostTourists, c.Animals,
		c.TouristsSpawned, c.TouristsDeparted, c.Transitions, c.SkippedUpdates,
		c.Ticks, c.SnapshotsDropped, c.SinkErrors,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected,
		c.TickDuration, c.PublishDuration,
		c.SimElapsed, c.TimeMultiplier, c.TickSeconds,
	)

	c.TimeMultiplier.Set(multiplier)
	c.TickSeconds.Set(tick.Seconds())

	return c
}

// Registry exposes the private registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry { return c.reg }

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string, log logrus.FieldLogger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("metrics server error")
		}
	}()
	log.WithField("addr", addr).Info("metrics listening")
	return srv
}
