// Package fractal turns an L-system grammar into a search path biased toward
// threat clusters.
//
// The grammar rewrites A to "A+B" and B to "A-B"; operators pass through.
// Walking the rewritten string, every A or B moves forward along a heading
// blended with the bearing to the nearest known threat, '+' turns left by the
// branch angle and '-' turns right. Generator walks the grammar lazily, so a
// depth-d path costs O(2^d) steps without materialising the string.
package fractal

import (
	"math"
	"strings"

	"github.com/kingrea/crow-eye/internal/geom"
	"github.com/kingrea/crow-eye/internal/threat"
)

// Grammar symbols. Every path grows from the single-symbol seed Axiom.
const (
	SymbolA   = 'A'
	SymbolB   = 'B'
	TurnLeft  = '+'
	TurnRight = '-'

	Axiom = "A"
)

// Params tunes path generation.
type Params struct {
	StepSize      float64 `yaml:"step_size"`
	BranchAngle   float64 `yaml:"branch_angle"`
	HeadingWeight float64 `yaml:"heading_weight"`
	BiasWeight    float64 `yaml:"bias_weight"`
	BaseDepth     float64 `yaml:"base_depth"`
	TrustDepth    float64 `yaml:"trust_depth"`
	MaxDepth      int     `yaml:"max_depth"`
}

// DefaultParams returns the stock tuning: 5-unit steps, 45 degree branches,
// and a 70/30 blend of heading and threat bearing.
func DefaultParams() Params {
	return Params{
		StepSize:      5.0,
		BranchAngle:   math.Pi / 4,
		HeadingWeight: 0.7,
		BiasWeight:    0.3,
		BaseDepth:     3,
		TrustDepth:    2,
		MaxDepth:      16,
	}
}

// Generator produces waypoint paths. It holds no state between calls.
type Generator struct {
	params Params
}

// NewGenerator builds a Generator with the supplied tuning.
func NewGenerator(params Params) *Generator {
	return &Generator{params: params}
}

// Params returns the generator's tuning.
func (g *Generator) Params() Params { return g.params }

// Depth is the number of rewrite generations for a crow with the given trust.
func (g *Generator) Depth(trust float64) int {
	d := int(math.Floor(g.params.BaseDepth + trust*g.params.TrustDepth))
	if d < 0 {
		return 0
	}
	if g.params.MaxDepth > 0 && d > g.params.MaxDepth {
		return g.params.MaxDepth
	}
	return d
}

// Generate returns the waypoint path for a crow. The first waypoint is the
// centroid of threats and memory; every grammar symbol adds one more. With no
// current threats the path is the single waypoint (0,0).
func (g *Generator) Generate(threats []threat.Threat, trust float64, memory []threat.Threat) []geom.Point {
	if len(threats) == 0 {
		return []geom.Point{geom.Origin}
	}
	targets := make([]geom.Point, 0, len(threats)+len(memory))
	targets = append(targets, threat.Positions(threats)...)
	targets = append(targets, threat.Positions(memory)...)

	depth := g.Depth(trust)
	w := &walker{
		params:    g.params,
		targets:   targets,
		stride:    g.params.StepSize * trust,
		position:  geom.Centroid(targets),
		waypoints: make([]geom.Point, 0, 1+(1<<depth)),
	}
	w.waypoints = append(w.waypoints, w.position)
	w.expand(SymbolA, depth)
	return w.waypoints
}

// Expand materialises the grammar string after depth rewrites of axiom.
func Expand(axiom string, depth int) string {
	current := axiom
	for i := 0; i < depth; i++ {
		var next strings.Builder
		for _, symbol := range current {
			switch symbol {
			case SymbolA:
				next.WriteString("A+B")
			case SymbolB:
				next.WriteString("A-B")
			default:
				next.WriteRune(symbol)
			}
		}
		current = next.String()
	}
	return current
}

type walker struct {
	params    Params
	targets   []geom.Point
	stride    float64
	position  geom.Point
	heading   float64
	waypoints []geom.Point
}

// expand emits the symbols symbol rewrites to after depth generations, in
// order, without building the intermediate strings.
func (w *walker) expand(symbol rune, depth int) {
	if depth == 0 {
		w.apply(symbol)
		return
	}
	switch symbol {
	case SymbolA:
		w.expand(SymbolA, depth-1)
		w.apply(TurnLeft)
		w.expand(SymbolB, depth-1)
	case SymbolB:
		w.expand(SymbolA, depth-1)
		w.apply(TurnRight)
		w.expand(SymbolB, depth-1)
	default:
		w.apply(symbol)
	}
}

func (w *walker) apply(symbol rune) {
	switch symbol {
	case SymbolA, SymbolB:
		bias := w.position.BearingTo(nearest(w.targets, w.position))
		blended := w.heading*w.params.HeadingWeight + bias*w.params.BiasWeight
		w.position = w.position.Step(blended, w.stride)
		w.waypoints = append(w.waypoints, w.position)
	case TurnLeft:
		w.heading += w.params.BranchAngle
	case TurnRight:
		w.heading -= w.params.BranchAngle
	}
}

// nearest returns the closest target to from; ties keep the earliest target.
func nearest(targets []geom.Point, from geom.Point) geom.Point {
	best := from
	bestDistance := math.MaxFloat64
	for _, t := range targets {
		if d := from.DistanceTo(t); d < bestDistance {
			bestDistance = d
			best = t
		}
	}
	return best
}
