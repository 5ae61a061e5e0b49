package crow

import "github.com/kingrea/crow-eye/internal/threat"

// Params holds every tunable the update rule reads. The memory, alert and
// crowding radii are independent of each other and of the voting radius.
type Params struct {
	MaxEnergy       float64 `yaml:"max_energy"`
	EnergyRecovery  float64 `yaml:"energy_recovery"`
	MinEnergyFactor float64 `yaml:"min_energy_factor"`

	MemoryCapacity int     `yaml:"memory_capacity"`
	MemoryRadius   float64 `yaml:"memory_radius"`
	MemoryTrust    float64 `yaml:"memory_trust"`

	AlertRadius    float64 `yaml:"alert_radius"`
	AlarmedCount   int     `yaml:"alarmed_count"`
	VeteranTrust   float64 `yaml:"veteran_trust"`
	FractalTrust   float64 `yaml:"fractal_trust"`
	FractalEnergy  float64 `yaml:"fractal_energy"`
	RecalcFraction float64 `yaml:"recalc_fraction"`

	WaypointRadius  float64 `yaml:"waypoint_radius"`
	WaypointReward  float64 `yaml:"waypoint_reward"`
	FractalSpeed    float64 `yaml:"fractal_speed"`
	AlertSpeedBoost float64 `yaml:"alert_speed_boost"`
	FractalMoveCost float64 `yaml:"fractal_move_cost"`

	PrimaryWeight   float64 `yaml:"primary_weight"`
	SecondaryWeight float64 `yaml:"secondary_weight"`
	DistanceFalloff float64 `yaml:"distance_falloff"`
	ApproachRate    float64 `yaml:"approach_rate"`
	DirectMoveCost  float64 `yaml:"direct_move_cost"`

	CrowdingRadius float64 `yaml:"crowding_radius"`
	CrowdingPush   float64 `yaml:"crowding_push"`
}

// DefaultParams returns the stock behaviour tuning.
func DefaultParams() Params {
	return Params{
		MaxEnergy:       100,
		EnergyRecovery:  0.1,
		MinEnergyFactor: 0.3,

		MemoryCapacity: 10,
		MemoryRadius:   15,
		MemoryTrust:    0.7,

		AlertRadius:    20,
		AlarmedCount:   3,
		VeteranTrust:   0.8,
		FractalTrust:   0.7,
		FractalEnergy:  20,
		RecalcFraction: 0.8,

		WaypointRadius:  2.0,
		WaypointReward:  2.0,
		FractalSpeed:    0.5,
		AlertSpeedBoost: 0.3,
		FractalMoveCost: 0.8,

		PrimaryWeight:   0.9,
		SecondaryWeight: 0.7,
		DistanceFalloff: 0.01,
		ApproachRate:    0.01,
		DirectMoveCost:  0.5,

		CrowdingRadius: 10,
		CrowdingPush:   0.5,
	}
}

func (p Params) priorityWeight(c threat.Category) float64 {
	if c == threat.PrimaryAlert {
		return p.PrimaryWeight
	}
	return p.SecondaryWeight
}
