package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/obsidianstack/pingwatch/internal/engine"
	"github.com/obsidianstack/pingwatch/internal/probe"
	"github.com/obsidianstack/pingwatch/internal/stats"
	"github.com/obsidianstack/pingwatch/pkg/types"
)

const namespace = "pingwatch"

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build information of pingwatch",
		},
		[]string{"version", "commit", "date"},
	)

	ProbeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "probe_duration_seconds",
		Help:      "Duration of single probes, including timeouts",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms .. ~2s
	}, []string{"target", "result"})
)

// Result label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Instrument wraps p so that every probe is observed in ProbeDuration.
func Instrument(target string, p probe.Prober) probe.Prober {
	return instrumented(target, p, ProbeDuration)
}

func instrumented(target string, p probe.Prober, hist *prometheus.HistogramVec) probe.Prober {
	return probe.Func(func(ctx context.Context) types.Sample {
		start := time.Now()
		s := p.Probe(ctx)
		result := ResultFailure
		if s.OK() {
			result = ResultSuccess
		}
		hist.WithLabelValues(target, result).Observe(time.Since(start).Seconds())
		return s
	})
}

// Source is the engine surface the collector reads.
type Source interface {
	Snapshot() engine.Snapshot
	NumWindows() int
}

// Collector implements prometheus.Collector over an engine.
type Collector struct {
	src Source

	pings            *prometheus.Desc
	failed           *prometheus.Desc
	failureRate      *prometheus.Desc
	latency          *prometheus.Desc
	lastTTL          *prometheus.Desc
	avgWindowFailure *prometheus.Desc
	consecutive      *prometheus.Desc
	outages          *prometheus.Desc
	avgOutage        *prometheus.Desc
	ringSamples      *prometheus.Desc
	state            *prometheus.Desc
}

// NewCollector returns a Collector reading from src.
func NewCollector(src Source) *Collector {
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", name), help,
			append([]string{"target"}, labels...), nil,
		)
	}
	return &Collector{
		src:              src,
		pings:            desc("pings_total", "Probes recorded since the last reset"),
		failed:           desc("pings_failed_total", "Failed probes since the last reset"),
		failureRate:      desc("failure_rate_percent", "Lifetime failure rate since the last reset"),
		latency:          desc("latency_milliseconds", "Round-trip time over successful samples in the ring", "stat"),
		lastTTL:          desc("last_ttl", "TTL of the most recent successful reply in the ring"),
		avgWindowFailure: desc("window_failures_average", "Mean failed probes per accounting window"),
		consecutive:      desc("consecutive_failures", "Current run of failed probes"),
		outages:          desc("outages_recorded", "Outages in the retained history"),
		avgOutage:        desc("outage_duration_average_probes", "Mean outage length in probes"),
		ringSamples:      desc("ring_samples", "Samples currently held in the ring", "result"),
		state:            desc("state", "Health state; 1 for the current state", "state"),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.pings
	ch <- c.failed
	ch <- c.failureRate
	ch <- c.latency
	ch <- c.lastTTL
	ch <- c.avgWindowFailure
	ch <- c.consecutive
	ch <- c.outages
	ch <- c.avgOutage
	ch <- c.ringSamples
	ch <- c.state
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.src.Snapshot()
	m := stats.Compute(snap, c.src.NumWindows())
	t := snap.Target

	ch <- prometheus.MustNewConstMetric(c.pings, prometheus.CounterValue, float64(m.TotalPings), t)
	ch <- prometheus.MustNewConstMetric(c.failed, prometheus.CounterValue, float64(m.FailedPings), t)
	ch <- prometheus.MustNewConstMetric(c.failureRate, prometheus.GaugeValue, m.FailureRatePct, t)
	ch <- prometheus.MustNewConstMetric(c.avgWindowFailure, prometheus.GaugeValue, m.AvgFailuresPerWindow, t)
	ch <- prometheus.MustNewConstMetric(c.consecutive, prometheus.GaugeValue, float64(m.ConsecutiveFailures), t)
	ch <- prometheus.MustNewConstMetric(c.outages, prometheus.GaugeValue, float64(m.OutageCount), t)
	ch <- prometheus.MustNewConstMetric(c.avgOutage, prometheus.GaugeValue, m.AvgOutagePings, t)

	// Latency series are omitted while the ring holds no success.
	for stat, v := range map[string]*float64{"avg": m.AvgLatencyMs, "min": m.MinLatencyMs, "max": m.MaxLatencyMs} {
		if v != nil {
			ch <- prometheus.MustNewConstMetric(c.latency, prometheus.GaugeValue, *v, t, stat)
		}
	}
	for i := len(snap.Points) - 1; i >= 0; i-- {
		if ttl, ok := snap.Points[i].Sample.TTL(); ok {
			ch <- prometheus.MustNewConstMetric(c.lastTTL, prometheus.GaugeValue, float64(ttl), t)
			break
		}
	}

	ok := m.SuccessfulSamples
	ch <- prometheus.MustNewConstMetric(c.ringSamples, prometheus.GaugeValue, float64(ok), t, ResultSuccess)
	ch <- prometheus.MustNewConstMetric(c.ringSamples, prometheus.GaugeValue, float64(len(snap.Points)-ok), t, ResultFailure)

	current := stats.State(m)
	for _, s := range []string{stats.StateHealthy, stats.StateDegraded, stats.StateCritical, stats.StateUnknown} {
		v := 0.0
		if s == current {
			v = 1
		}
		ch <- prometheus.MustNewConstMetric(c.state, prometheus.GaugeValue, v, t, s)
	}
}

// Handler returns the scrape handler for g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
