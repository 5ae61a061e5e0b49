package crow

import "fmt"

// AlertLevel is a crow's agitation, derived each tick from nearby threats.
type AlertLevel int

const (
	Calm AlertLevel = iota
	Alert
	Alarmed
)

func (l AlertLevel) String() string {
	switch l {
	case Calm:
		return "CALM"
	case Alert:
		return "ALERT"
	case Alarmed:
		return "ALARMED"
	default:
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

// Ordinal is the level's position on the Calm..Alarmed scale.
func (l AlertLevel) Ordinal() int { return int(l) }

// Decay steps one level toward Calm.
func (l AlertLevel) Decay() AlertLevel {
	if l <= Calm {
		return Calm
	}
	return l - 1
}
