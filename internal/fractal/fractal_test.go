package fractal

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/kingrea/crow-eye/internal/geom"
	"github.com/kingrea/crow-eye/internal/threat"
)

func TestGenerateWithoutThreatsReturnsOrigin(t *testing.T) {
	g := NewGenerator(DefaultParams())
	got := g.Generate(nil, 0.9, nil)
	assert.Equal(t, []geom.Point{{X: 0, Y: 0}}, got)

	memory := []threat.Threat{threat.New(40, 40, threat.PrimaryAlert)}
	assert.Equal(t, []geom.Point{{X: 0, Y: 0}}, g.Generate(nil, 0.9, memory))
}

func TestGenerateStartsAtCentroid(t *testing.T) {
	g := NewGenerator(DefaultParams())
	threats := []threat.Threat{threat.New(10, 0, threat.SecondaryAlert)}

	path := g.Generate(threats, 1.0, nil)

	require.NotEmpty(t, path)
	assert.Equal(t, geom.Point{X: 10, Y: 0}, path[0])
	assert.Equal(t, 5, g.Depth(1.0))
	assert.Len(t, path, 1+32)
}

func TestGenerateCentroidIncludesMemory(t *testing.T) {
	g := NewGenerator(DefaultParams())
	threats := []threat.Threat{threat.New(0, 0, threat.PrimaryAlert)}
	memory := []threat.Threat{threat.New(20, 10, threat.SecondaryAlert)}

	path := g.Generate(threats, 0.75, memory)

	assert.Equal(t, geom.Point{X: 10, Y: 5}, path[0])
}

func TestFirstStepBlendsTowardNearestThreat(t *testing.T) {
	g := NewGenerator(DefaultParams())
	threats := []threat.Threat{
		threat.New(0, 0, threat.PrimaryAlert),
		threat.New(0, 20, threat.PrimaryAlert),
	}
	path := g.Generate(threats, 1.0, nil)

	// Both threats are 10 away from the centroid (0,10); the first one wins the
	// tie. The heading starts at zero so the blended angle is 0.3 * -pi/2.
	angle := 0.3 * (-math.Pi / 2)
	want := geom.Point{X: 5 * math.Cos(angle), Y: 10 + 5*math.Sin(angle)}
	assert.InDelta(t, want.X, path[1].X, 1e-9)
	assert.InDelta(t, want.Y, path[1].Y, 1e-9)
}

func TestDepth(t *testing.T) {
	g := NewGenerator(DefaultParams())
	assert.Equal(t, 3, g.Depth(0))
	assert.Equal(t, 3, g.Depth(0.49))
	assert.Equal(t, 4, g.Depth(0.5))
	assert.Equal(t, 4, g.Depth(0.99))
	assert.Equal(t, 5, g.Depth(1))

	capped := NewGenerator(Params{BaseDepth: 30, MaxDepth: 8})
	assert.Equal(t, 8, capped.Depth(1))
}

func TestZeroDepthStillTakesOneStep(t *testing.T) {
	params := DefaultParams()
	params.BaseDepth = 0
	params.TrustDepth = 0
	g := NewGenerator(params)

	path := g.Generate([]threat.Threat{threat.New(3, 4, threat.PrimaryAlert)}, 0.8, nil)
	assert.Len(t, path, 2)
}

func TestExpand(t *testing.T) {
	assert.Equal(t, "A", Expand(Axiom, 0))
	assert.Equal(t, "A+B", Expand(Axiom, 1))
	assert.Equal(t, "A+B+A-B", Expand(Axiom, 2))
	assert.Equal(t, "A+B+A-B+A+B-A-B", Expand(Axiom, 3))
}

// walkString is a direct reading of the grammar string, kept deliberately
// naive so the lazy walker can be checked against it.
func walkString(symbols string, params Params, trust float64, targets []geom.Point) []geom.Point {
	pos := geom.Centroid(targets)
	heading := 0.0
	out := []geom.Point{pos}
	for _, s := range symbols {
		switch s {
		case 'A', 'B':
			near := nearest(targets, pos)
			bias := math.Atan2(near.Y-pos.Y, near.X-pos.X)
			angle := heading*params.HeadingWeight + bias*params.BiasWeight
			pos = geom.Point{
				X: pos.X + params.StepSize*trust*math.Cos(angle),
				Y: pos.Y + params.StepSize*trust*math.Sin(angle),
			}
			out = append(out, pos)
		case '+':
			heading += params.BranchAngle
		case '-':
			heading -= params.BranchAngle
		}
	}
	return out
}

func TestLazyWalkMatchesMaterialisedGrammar(t *testing.T) {
	params := DefaultParams()
	g := NewGenerator(params)
	threats := []threat.Threat{
		threat.New(12, 80, threat.PrimaryAlert),
		threat.New(64, 22, threat.SecondaryAlert),
		threat.New(70, 31, threat.SecondaryAlert),
	}
	memory := []threat.Threat{threat.New(5, 5, threat.SecondaryAlert)}

	for _, trust := range []float64{0.71, 0.85, 1.0} {
		got := g.Generate(threats, trust, memory)
		targets := threat.Positions(append(append([]threat.Threat{}, threats...), memory...))
		want := walkString(Expand(Axiom, g.Depth(trust)), params, trust, targets)
		if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
			t.Fatalf("trust %.2f: lazy walk diverged (-want +got):\n%s", trust, diff)
		}
	}
}

func TestPropertyPathLengthAndDeterminism(t *testing.T) {
	g := NewGenerator(DefaultParams())
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 6).Draw(rt, "threats")
		threats := make([]threat.Threat, n)
		for i := range threats {
			threats[i] = threat.New(
				rapid.Float64Range(0, 100).Draw(rt, "x"),
				rapid.Float64Range(0, 100).Draw(rt, "y"),
				threat.SecondaryAlert,
			)
		}
		trust := rapid.Float64Range(0, 1).Draw(rt, "trust")

		first := g.Generate(threats, trust, nil)
		second := g.Generate(threats, trust, nil)

		require.Len(rt, first, 1+(1<<g.Depth(trust)))
		assert.Equal(rt, first, second)
		assert.Equal(rt, geom.Centroid(threat.Positions(threats)), first[0])
	})
}
