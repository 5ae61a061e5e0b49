// Package crow implements a single swarm member: its state and the per-tick
// update rule that picks a movement mode, follows fractal paths or steers
// straight at threats, keeps clear of neighbours and manages energy.
package crow

import (
	"fmt"
	"math"

	"github.com/kingrea/crow-eye/internal/fractal"
	"github.com/kingrea/crow-eye/internal/geom"
	"github.com/kingrea/crow-eye/internal/threat"
)

// Pathfinder produces the waypoint path a crow follows in fractal mode.
type Pathfinder interface {
	Generate(threats []threat.Threat, trust float64, memory []threat.Threat) []geom.Point
}

// Option customizes a crow at construction.
type Option func(*Crow)

// WithParams replaces the default behaviour tuning.
func WithParams(p Params) Option {
	return func(c *Crow) {
		c.params = p
	}
}

// WithPathfinder replaces the default fractal generator.
func WithPathfinder(pf Pathfinder) Option {
	return func(c *Crow) {
		if pf != nil {
			c.pathfinder = pf
		}
	}
}

// WithEnergy sets the starting energy (clamped into range).
func WithEnergy(e float64) Option {
	return func(c *Crow) {
		c.energy = e
		c.startEnergySet = true
	}
}

// Crow is one swarm member. It is mutated only by its own Update.
type Crow struct {
	id         string
	pos        geom.Point
	trust      float64
	energy     float64
	alert      AlertLevel
	memory     *Memory
	path       []geom.Point
	cursor     int
	params     Params
	pathfinder Pathfinder

	startEnergySet bool
}

// New creates a calm crow with full energy. Trust is clamped into [0,1].
func New(id string, pos geom.Point, trust float64, opts ...Option) *Crow {
	c := &Crow{
		id:     id,
		pos:    pos,
		trust:  clamp(trust, 0, 1),
		alert:  Calm,
		params: DefaultParams(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.pathfinder == nil {
		c.pathfinder = fractal.NewGenerator(fractal.DefaultParams())
	}
	if !c.startEnergySet {
		c.energy = c.params.MaxEnergy
	}
	c.energy = clamp(c.energy, 0, c.params.MaxEnergy)
	c.memory = NewMemory(c.params.MemoryCapacity)
	return c
}

func (c *Crow) ID() string             { return c.id }
func (c *Crow) Position() geom.Point   { return c.pos }
func (c *Crow) Trust() float64         { return c.trust }
func (c *Crow) Energy() float64        { return c.energy }
func (c *Crow) AlertLevel() AlertLevel { return c.alert }
func (c *Crow) Cursor() int            { return c.cursor }

// Memory returns the remembered threats, oldest first.
func (c *Crow) Memory() []threat.Threat { return c.memory.Items() }

// Path returns a copy of the active waypoint path.
func (c *Crow) Path() []geom.Point { return append([]geom.Point(nil), c.path...) }

// IsVeteran reports whether the crow's vote counts double.
func (c *Crow) IsVeteran() bool { return c.trust > c.params.VeteranTrust }

// UsesFractalMode reports whether the crow is eligible for fractal movement
// and holds a path to follow.
func (c *Crow) UsesFractalMode() bool {
	return c.fractalEligible() && len(c.path) > 0
}

func (c *Crow) fractalEligible() bool {
	return c.trust > c.params.FractalTrust && c.energy > c.params.FractalEnergy
}

// Update advances the crow one tick. Steps run in a fixed order: memory and
// alert refresh, movement, crowding separation, energy recovery. roster may
// include c itself; it is skipped by identity.
func (c *Crow) Update(threats []threat.Threat, roster []*Crow) {
	c.refreshMemoryAndAlert(threats)

	energyFactor := math.Max(c.params.MinEnergyFactor, c.energy/c.params.MaxEnergy)
	if c.fractalEligible() {
		c.followPath(threats, energyFactor)
	} else {
		c.steerDirect(threats, energyFactor)
	}

	c.avoidCrowding(roster)
	c.energy = clamp(c.energy+c.params.EnergyRecovery, 0, c.params.MaxEnergy)
}

func (c *Crow) refreshMemoryAndAlert(threats []threat.Threat) {
	if c.trust > c.params.MemoryTrust {
		for _, t := range threats {
			if c.pos.DistanceTo(t.Position()) < c.params.MemoryRadius {
				c.memory.Remember(t)
			}
		}
	}

	nearby := 0
	for _, t := range threats {
		if c.pos.DistanceTo(t.Position()) < c.params.AlertRadius {
			nearby++
		}
	}
	switch {
	case nearby >= c.params.AlarmedCount:
		c.alert = Alarmed
	case nearby >= 1:
		c.alert = Alert
	default:
		c.alert = c.alert.Decay()
	}
}

func (c *Crow) needsNewPath() bool {
	return len(c.path) == 0 ||
		float64(c.cursor) >= c.params.RecalcFraction*float64(len(c.path)) ||
		c.alert == Alarmed
}

func (c *Crow) followPath(threats []threat.Threat, energyFactor float64) {
	if c.needsNewPath() {
		c.path = c.pathfinder.Generate(threats, c.trust, c.memory.Items())
		c.cursor = 0
	}
	if c.cursor >= len(c.path) {
		return
	}
	waypoint := c.path[c.cursor]
	distance := c.pos.DistanceTo(waypoint)
	if distance < c.params.WaypointRadius {
		c.cursor++
		c.energy += c.params.WaypointReward
		return
	}
	speed := c.params.FractalSpeed * c.trust * energyFactor *
		(1 + float64(c.alert.Ordinal())*c.params.AlertSpeedBoost)
	c.pos = c.pos.Add(waypoint.Sub(c.pos).Scale(speed / distance))
	c.energy -= c.params.FractalMoveCost
}

func (c *Crow) steerDirect(threats []threat.Threat, energyFactor float64) {
	target, ok := c.selectThreat(threats)
	if !ok {
		return
	}
	fraction := c.params.ApproachRate * c.trust * energyFactor
	c.pos = c.pos.Add(target.Position().Sub(c.pos).Scale(fraction))
	c.energy -= c.params.DirectMoveCost
}

// selectThreat picks the threat with the best weight-over-distance priority;
// ties keep the earliest threat.
func (c *Crow) selectThreat(threats []threat.Threat) (threat.Threat, bool) {
	var best threat.Threat
	bestScore := math.Inf(-1)
	found := false
	for _, t := range threats {
		score := c.params.priorityWeight(t.Category()) /
			(1 + c.pos.DistanceTo(t.Position())*c.params.DistanceFalloff)
		if !found || score > bestScore {
			best, bestScore, found = t, score, true
		}
	}
	return best, found
}

func (c *Crow) avoidCrowding(roster []*Crow) {
	for _, other := range roster {
		if other == nil || other == c {
			continue
		}
		distance := c.pos.DistanceTo(other.pos)
		if distance > 0 && distance < c.params.CrowdingRadius {
			c.pos = c.pos.Add(c.pos.Sub(other.pos).Scale(c.params.CrowdingPush / distance))
		}
	}
}

// Snapshot is a read-only copy of a crow's state for renderers and reports.
type Snapshot struct {
	ID         string
	Position   geom.Point
	Trust      float64
	Energy     float64
	Alert      AlertLevel
	Memory     int
	PathLength int
	Cursor     int
	Veteran    bool
	Fractal    bool
}

// Snapshot captures the crow's current state.
func (c *Crow) Snapshot() Snapshot {
	return Snapshot{
		ID:         c.id,
		Position:   c.pos,
		Trust:      c.trust,
		Energy:     c.energy,
		Alert:      c.alert,
		Memory:     c.memory.Len(),
		PathLength: len(c.path),
		Cursor:     c.cursor,
		Veteran:    c.IsVeteran(),
		Fractal:    c.UsesFractalMode(),
	}
}

// Mode labels the movement mode for display.
func (s Snapshot) Mode() string {
	if s.Fractal {
		return "FRACTAL"
	}
	return "DIRECT"
}

func (s Snapshot) String() string {
	return fmt.Sprintf("Crow[%.1f,%.1f] trust=%.2f [%s] E:%.0f %s",
		s.Position.X, s.Position.Y, s.Trust, s.Mode(), s.Energy, s.Alert)
}

func (c *Crow) String() string { return c.Snapshot().String() }

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
