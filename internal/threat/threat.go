// Package threat models the point events the swarm searches for and loads
// them from delimited text sources.
package threat

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/kingrea/crow-eye/internal/geom"
)

const (
	// MinSeverity and MaxSeverity bound every threat's severity.
	MinSeverity = 0.1
	MaxSeverity = 1.0
)

// ErrUnknownCategory is returned by ParseCategory for unrecognised labels.
var ErrUnknownCategory = errors.New("threat: unknown category")

// Category classifies a threat. PrimaryAlert threats escalate without a vote.
type Category int

const (
	PrimaryAlert Category = iota
	SecondaryAlert
)

func (c Category) String() string {
	switch c {
	case PrimaryAlert:
		return "primary-alert"
	case SecondaryAlert:
		return "secondary-alert"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// DefaultSeverity is used when a source does not carry a severity.
func (c Category) DefaultSeverity() float64 {
	if c == PrimaryAlert {
		return 0.8
	}
	return 0.6
}

// MarshalText renders the canonical label so categories read cleanly in YAML.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText accepts any label ParseCategory accepts.
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCategory maps a source label onto a Category. The field-survey labels
// "logging" and "fire" are accepted alongside the canonical names.
func ParseCategory(value string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "primary-alert", "primary_alert", "primary", "logging":
		return PrimaryAlert, nil
	case "secondary-alert", "secondary_alert", "secondary", "fire":
		return SecondaryAlert, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, value)
	}
}

// Threat is an immutable environmental event. The zero value is a primary
// alert at the origin with zero severity; use New or NewWithSeverity.
type Threat struct {
	id       string
	position geom.Point
	category Category
	severity float64
}

// New creates a threat with the category's default severity.
func New(x, y float64, category Category) Threat {
	return NewWithSeverity(x, y, category, category.DefaultSeverity())
}

// NewWithSeverity creates a threat, clamping severity into [0.1, 1.0].
func NewWithSeverity(x, y float64, category Category, severity float64) Threat {
	return Threat{
		position: geom.Point{X: x, Y: y},
		category: category,
		severity: clampSeverity(severity),
	}
}

// WithID returns a copy of t carrying the given identifier.
func (t Threat) WithID(id string) Threat {
	t.id = strings.TrimSpace(id)
	return t
}

func (t Threat) ID() string           { return t.id }
func (t Threat) X() float64           { return t.position.X }
func (t Threat) Y() float64           { return t.position.Y }
func (t Threat) Position() geom.Point { return t.position }
func (t Threat) Category() Category   { return t.category }
func (t Threat) Severity() float64    { return t.severity }

func (t Threat) String() string {
	return fmt.Sprintf("Threat[%s %.0f%% at %.1f,%.1f]",
		t.category, t.severity*100, t.position.X, t.position.Y)
}

// Positions projects threats onto their coordinates.
func Positions(threats []Threat) []geom.Point {
	points := make([]geom.Point, len(threats))
	for i, t := range threats {
		points[i] = t.position
	}
	return points
}

// Fallback is the built-in threat list used when no source can be read.
func Fallback() []Threat {
	return []Threat{
		New(50, 30, PrimaryAlert).WithID("fallback-1"),
		New(80, 70, SecondaryAlert).WithID("fallback-2"),
	}
}

func clampSeverity(v float64) float64 {
	if math.IsNaN(v) || v < MinSeverity {
		return MinSeverity
	}
	if v > MaxSeverity {
		return MaxSeverity
	}
	return v
}
