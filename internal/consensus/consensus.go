// Package consensus runs the swarm's weighted vote on whether a threat should
// be escalated to the rangers.
package consensus

import (
	"fmt"
	"math"

	"github.com/kingrea/crow-eye/internal/crow"
	"github.com/kingrea/crow-eye/internal/threat"
)

// Reasons reported for the two short-circuit outcomes.
const (
	ReasonNoVoters  = "no voters"
	ReasonAutomatic = "automatic escalation"
)

// Params tunes the vote.
type Params struct {
	Threshold       float64 `yaml:"threshold"`
	VeteranPower    float64 `yaml:"veteran_power"`
	RookiePower     float64 `yaml:"rookie_power"`
	YesStrength     float64 `yaml:"yes_strength"`
	AlertModifier   float64 `yaml:"alert_modifier"`
	AlarmedModifier float64 `yaml:"alarmed_modifier"`
	SeverityWeight  float64 `yaml:"severity_weight"`
	ProximityRadius float64 `yaml:"proximity_radius"`
	ProximityWeight float64 `yaml:"proximity_weight"`
}

// DefaultParams returns the stock 70% threshold with doubled veteran power.
func DefaultParams() Params {
	return Params{
		Threshold:       0.7,
		VeteranPower:    2.0,
		RookiePower:     1.0,
		YesStrength:     0.5,
		AlertModifier:   0.2,
		AlarmedModifier: 0.4,
		SeverityWeight:  0.3,
		ProximityRadius: 50,
		ProximityWeight: 0.2,
	}
}

// Result is the outcome and tally of one vote.
type Result struct {
	Threat           threat.Threat
	Decision         bool
	Automatic        bool
	YesVotes         float64
	TotalVotingPower float64
	ConsensusRatio   float64
	Voters           int
	VeteranVoters    int
	YesVoters        int
	NoVoters         int
	Reason           string
}

func (r Result) String() string {
	verdict := "NO ALERT"
	if r.Decision {
		verdict = "ALERT"
	}
	return fmt.Sprintf("Vote Result: %s (%s) - %d/%d crows, %.1f%% consensus",
		verdict, r.Reason, r.YesVoters, r.Voters, r.ConsensusRatio*100)
}

// Voter tallies votes. It holds only its tuning, so Vote is a pure function of
// its arguments.
type Voter struct {
	params Params
}

// NewVoter builds a Voter with the supplied tuning.
func NewVoter(params Params) *Voter {
	return &Voter{params: params}
}

// Params returns the voter's tuning.
func (v *Voter) Params() Params { return v.params }

// Vote decides whether t should be escalated. An empty roster never
// escalates, even for a primary alert; a primary alert with at least one
// voter escalates without a tally. Crows are read, never modified.
func (v *Voter) Vote(t threat.Threat, roster []*crow.Crow) Result {
	result := Result{Threat: t, Voters: len(roster)}
	if len(roster) == 0 {
		result.Reason = ReasonNoVoters
		return result
	}
	if t.Category() == threat.PrimaryAlert {
		result.Decision = true
		result.Automatic = true
		result.ConsensusRatio = 1.0
		result.Reason = ReasonAutomatic
		return result
	}

	for _, c := range roster {
		power := v.params.RookiePower
		if c.IsVeteran() {
			power = v.params.VeteranPower
			result.VeteranVoters++
		}
		result.TotalVotingPower += power
		if v.Strength(c, t) > v.params.YesStrength {
			result.YesVotes += power
			result.YesVoters++
		} else {
			result.NoVoters++
		}
	}

	if result.TotalVotingPower > 0 {
		result.ConsensusRatio = result.YesVotes / result.TotalVotingPower
	}
	result.Decision = result.ConsensusRatio >= v.params.Threshold
	verdict := "below"
	if result.Decision {
		verdict = "meets"
	}
	result.Reason = fmt.Sprintf("%.1f%% consensus %s %.0f%% threshold",
		result.ConsensusRatio*100, verdict, v.params.Threshold*100)
	return result
}

// Strength is how strongly c favours escalating t, capped at 1.
func (v *Voter) Strength(c *crow.Crow, t threat.Threat) float64 {
	distance := c.Position().DistanceTo(t.Position())
	proximity := 0.0
	if v.params.ProximityRadius > 0 {
		proximity = math.Max(0, (v.params.ProximityRadius-distance)/v.params.ProximityRadius)
	}
	strength := c.Trust() +
		v.alertModifier(c.AlertLevel()) +
		t.Severity()*v.params.SeverityWeight +
		proximity*v.params.ProximityWeight
	return math.Min(1.0, strength)
}

func (v *Voter) alertModifier(level crow.AlertLevel) float64 {
	switch level {
	case crow.Alert:
		return v.params.AlertModifier
	case crow.Alarmed:
		return v.params.AlarmedModifier
	default:
		return 0
	}
}
