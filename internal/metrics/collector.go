// Package metrics records swarm activity as Prometheus metrics on a private
// registry and dumps them in the text exposition format.
package metrics

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
	"go.uber.org/zap"

	"github.com/kingrea/crow-eye/internal/consensus"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "crow_eye"

// Collector holds the swarm's metrics.
type Collector struct {
	registry *prometheus.Registry

	ticksTotal     prometheus.Counter
	stepDuration   prometheus.Histogram
	fractalCrows   prometheus.Gauge
	alertCrows     prometheus.Gauge
	leaderCrows    prometheus.Gauge
	averageEnergy  prometheus.Gauge
	votesTotal     *prometheus.CounterVec
	escalations    prometheus.Counter
	consensusRatio prometheus.Histogram

	logger *zap.Logger
}

// NewCollector registers the swarm metrics on a fresh registry.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	c := &Collector{
		registry: registry,
		logger:   logger.With(zap.String("component", "metrics")),
	}

	c.ticksTotal = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ticks_total",
		Help:      "Total number of simulation ticks executed",
	})
	c.stepDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "step_duration_seconds",
		Help:      "Wall time spent updating the roster for one tick",
		Buckets:   prometheus.ExponentialBuckets(0.00001, 10, 6),
	})
	c.fractalCrows = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "fractal_crows",
		Help:      "Crows following a fractal path after the last tick",
	})
	c.alertCrows = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "alert_crows",
		Help:      "Crows above CALM after the last tick",
	})
	c.leaderCrows = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "leader_crows",
		Help:      "Veteran crows in the roster",
	})
	c.averageEnergy = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "average_energy",
		Help:      "Mean crow energy after the last tick",
	})
	c.votesTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "votes_total",
		Help:      "Consensus votes held",
	}, []string{"category", "decision"})
	c.escalations = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "escalations_total",
		Help:      "Votes that called the rangers",
	})
	c.consensusRatio = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "consensus_ratio",
		Help:      "Consensus ratio of tallied votes",
		Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
	})
	return c
}

// Registry exposes the private registry for gathering.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// RecordStep records one tick's roster statistics.
func (c *Collector) RecordStep(fractal, alert, leaders int, avgEnergy float64, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.ticksTotal.Inc()
	c.stepDuration.Observe(elapsed.Seconds())
	c.fractalCrows.Set(float64(fractal))
	c.alertCrows.Set(float64(alert))
	c.leaderCrows.Set(float64(leaders))
	c.averageEnergy.Set(avgEnergy)
}

// RecordVote records a vote outcome. Automatic escalations carry no tally
// and are left out of the ratio histogram.
func (c *Collector) RecordVote(result consensus.Result) {
	if c == nil {
		return
	}
	c.votesTotal.WithLabelValues(result.Threat.Category().String(), strconv.FormatBool(result.Decision)).Inc()
	if result.Decision {
		c.escalations.Inc()
	}
	if !result.Automatic && result.TotalVotingPower > 0 {
		c.consensusRatio.Observe(result.ConsensusRatio)
	}
	c.logger.Debug("vote recorded",
		zap.String("threat", result.Threat.ID()),
		zap.Bool("decision", result.Decision),
		zap.Float64("ratio", result.ConsensusRatio),
	)
}

// WriteText writes every metric family in the Prometheus text format.
func (c *Collector) WriteText(w io.Writer) error {
	if c == nil {
		return nil
	}
	families, err := c.registry.Gather()
	if err != nil {
		return fmt.Errorf("metrics: gather: %w", err)
	}
	for _, family := range families {
		if _, err := expfmt.MetricFamilyToText(w, family); err != nil {
			return fmt.Errorf("metrics: write %s: %w", family.GetName(), err)
		}
	}
	return nil
}
