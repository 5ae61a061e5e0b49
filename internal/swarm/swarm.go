// Package swarm drives a simulation run: it seeds the roster, advances every
// crow once per tick in creation order, and on voting ticks asks the swarm
// whether the most critical threat should be escalated.
package swarm

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kingrea/crow-eye/internal/consensus"
	"github.com/kingrea/crow-eye/internal/crow"
	"github.com/kingrea/crow-eye/internal/escalation"
	"github.com/kingrea/crow-eye/internal/fractal"
	"github.com/kingrea/crow-eye/internal/geom"
	"github.com/kingrea/crow-eye/internal/metrics"
	"github.com/kingrea/crow-eye/internal/threat"
)

// Option customizes a Swarm.
type Option func(*Swarm)

// WithCrowParams tunes every crow's update rule.
func WithCrowParams(p crow.Params) Option {
	return func(s *Swarm) {
		s.crowParams = p
	}
}

// WithFractalParams tunes the shared path generator.
func WithFractalParams(p fractal.Params) Option {
	return func(s *Swarm) {
		s.fractalParams = p
	}
}

// WithConsensusParams tunes the voter.
func WithConsensusParams(p consensus.Params) Option {
	return func(s *Swarm) {
		s.voter = consensus.NewVoter(p)
	}
}

// WithSink delivers vote outcomes to sink.
func WithSink(sink escalation.Sink) Option {
	return func(s *Swarm) {
		s.sink = sink
	}
}

// WithMetrics records ticks and votes on collector.
func WithMetrics(collector *metrics.Collector) Option {
	return func(s *Swarm) {
		s.metrics = collector
	}
}

// WithLogger injects a structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Swarm) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRunID overrides the generated run identifier.
func WithRunID(id string) Option {
	return func(s *Swarm) {
		if id != "" {
			s.runID = id
		}
	}
}

// Swarm owns the roster and threat list for one run. It is not safe for
// concurrent use; a single caller drives it tick by tick.
type Swarm struct {
	cfg           Config
	runID         string
	crows         []*crow.Crow
	threats       []threat.Threat
	crowParams    crow.Params
	fractalParams fractal.Params
	voter         *consensus.Voter
	sink          escalation.Sink
	metrics       *metrics.Collector
	logger        *zap.Logger
	tick          int
	sequence      int64
}

// StepReport summarises one tick.
type StepReport struct {
	Tick          int
	Crows         []crow.Snapshot
	Leaders       []crow.Snapshot
	Fractal       int
	Alert         int
	AverageEnergy float64
	Vote          *consensus.Result
}

// New seeds a roster of cfg.Agents crows named crow-01, crow-02, ... with
// uniform positions on the field and uniform trust, drawn in that order from
// a PCG source seeded by cfg.Seed.
func New(cfg Config, threats []threat.Threat, opts ...Option) (*Swarm, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("swarm: invalid config: %w", err)
	}
	s := &Swarm{
		cfg:           cfg,
		threats:       append([]threat.Threat(nil), threats...),
		crowParams:    crow.DefaultParams(),
		fractalParams: fractal.DefaultParams(),
		voter:         consensus.NewVoter(consensus.DefaultParams()),
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.runID == "" {
		s.runID = uuid.NewString()
	}
	s.logger = s.logger.With(zap.String("component", "swarm"), zap.String("run", s.runID))

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))
	pathfinder := fractal.NewGenerator(s.fractalParams)
	width := len(fmt.Sprint(cfg.Agents))
	if width < 2 {
		width = 2
	}
	s.crows = make([]*crow.Crow, cfg.Agents)
	for i := range s.crows {
		x := rng.Float64() * cfg.Width
		y := rng.Float64() * cfg.Height
		trust := rng.Float64()
		s.crows[i] = crow.New(
			fmt.Sprintf("crow-%0*d", width, i+1),
			geom.Point{X: x, Y: y},
			trust,
			crow.WithParams(s.crowParams),
			crow.WithPathfinder(pathfinder),
		)
	}
	s.logger.Info("swarm initialized",
		zap.Int("crows", len(s.crows)),
		zap.Int("threats", len(s.threats)),
		zap.Uint64("seed", cfg.Seed),
	)
	return s, nil
}

func (s *Swarm) RunID() string  { return s.runID }
func (s *Swarm) Config() Config { return s.cfg }
func (s *Swarm) Tick() int      { return s.tick }

// Done reports whether the configured number of ticks has run.
func (s *Swarm) Done() bool { return s.tick >= s.cfg.Steps }

// Threats returns a copy of the threat list.
func (s *Swarm) Threats() []threat.Threat {
	return append([]threat.Threat(nil), s.threats...)
}

// Roster returns a snapshot of every crow in creation order.
func (s *Swarm) Roster() []crow.Snapshot {
	out := make([]crow.Snapshot, len(s.crows))
	for i, c := range s.crows {
		out[i] = c.Snapshot()
	}
	return out
}

// Step runs one tick. Crows update in creation order against the live
// roster, so later crows see earlier crows' moves from the same tick.
func (s *Swarm) Step() StepReport {
	started := time.Now()
	s.tick++
	for _, c := range s.crows {
		c.Update(s.threats, s.crows)
	}

	report := StepReport{Tick: s.tick, Crows: s.Roster()}
	energy := 0.0
	for _, snap := range report.Crows {
		if snap.Veteran {
			report.Leaders = append(report.Leaders, snap)
		}
		if snap.Fractal {
			report.Fractal++
		}
		if snap.Alert != crow.Calm {
			report.Alert++
		}
		energy += snap.Energy
	}
	if len(report.Crows) > 0 {
		report.AverageEnergy = energy / float64(len(report.Crows))
	}
	s.metrics.RecordStep(report.Fractal, report.Alert, len(report.Leaders), report.AverageEnergy, time.Since(started))

	if s.cfg.VotesOn(s.tick) && len(s.threats) > 0 {
		target, _ := MostCritical(s.threats, s.crows)
		result := s.voter.Vote(target, s.crows)
		report.Vote = &result
		s.metrics.RecordVote(result)
		s.escalate(result)
	}

	s.logger.Debug("tick complete",
		zap.Int("tick", report.Tick),
		zap.Int("fractal", report.Fractal),
		zap.Int("alert", report.Alert),
		zap.Float64("avg_energy", report.AverageEnergy),
	)
	return report
}

// Run steps until the configured tick count is reached, handing each report
// to observe. Cancellation is checked between ticks only.
func (s *Swarm) Run(ctx context.Context, observe func(StepReport)) error {
	for !s.Done() {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("run cancelled", zap.Int("tick", s.tick), zap.Error(err))
			return err
		}
		report := s.Step()
		if observe != nil {
			observe(report)
		}
	}
	s.logger.Info("run complete", zap.Int("ticks", s.tick))
	return nil
}

func (s *Swarm) escalate(result consensus.Result) {
	s.logger.Info("democracy session",
		zap.Int("tick", s.tick),
		zap.String("threat", result.Threat.String()),
		zap.Bool("decision", result.Decision),
		zap.String("reason", result.Reason),
	)
	if s.sink == nil {
		return
	}
	s.sequence++
	event := escalation.Event{
		EventID:  uuid.NewString(),
		Sequence: s.sequence,
		RunID:    s.runID,
		Tick:     s.tick,
		Result:   result,
	}
	event.Normalize()
	if err := event.Validate(); err != nil {
		s.logger.Error("invalid escalation event", zap.Error(err))
		return
	}
	if err := s.sink.Escalate(event); err != nil {
		s.logger.Warn("escalation sink failed", zap.Int("tick", s.tick), zap.Error(err))
	}
}

// MostCritical picks the threat maximising severity*2 minus its distance to
// the nearest crow. Ties keep the earliest threat. It reports false only
// when threats is empty.
func MostCritical(threats []threat.Threat, roster []*crow.Crow) (threat.Threat, bool) {
	var best threat.Threat
	bestScore := math.Inf(-1)
	found := false
	for _, t := range threats {
		score := t.Severity()*2 - minDistance(t, roster)
		if !found || score > bestScore {
			best, bestScore, found = t, score, true
		}
	}
	return best, found
}

func minDistance(t threat.Threat, roster []*crow.Crow) float64 {
	closest := math.MaxFloat64
	for _, c := range roster {
		closest = math.Min(closest, c.Position().DistanceTo(t.Position()))
	}
	return closest
}
