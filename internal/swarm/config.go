package swarm

import (
	"errors"
	"fmt"
)

// Config sizes and paces a simulation run.
type Config struct {
	Agents    int     `yaml:"agents"`
	Seed      uint64  `yaml:"seed"`
	Steps     int     `yaml:"steps"`
	VoteEvery int     `yaml:"vote_every"`
	Width     float64 `yaml:"width"`
	Height    float64 `yaml:"height"`
}

// DefaultConfig returns ten crows on a 100x100 field, fifteen ticks, voting
// on every fifth.
func DefaultConfig() Config {
	return Config{
		Agents:    10,
		Seed:      42,
		Steps:     15,
		VoteEvery: 5,
		Width:     100,
		Height:    100,
	}
}

// Validate rejects configurations the driver cannot run.
func (c Config) Validate() error {
	var errs []error
	if c.Agents < 0 {
		errs = append(errs, fmt.Errorf("agents must be >= 0 (got %d)", c.Agents))
	}
	if c.Steps < 0 {
		errs = append(errs, fmt.Errorf("steps must be >= 0 (got %d)", c.Steps))
	}
	if c.VoteEvery < 0 {
		errs = append(errs, fmt.Errorf("vote_every must be >= 0 (got %d)", c.VoteEvery))
	}
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("field must have positive size (got %gx%g)", c.Width, c.Height))
	}
	return errors.Join(errs...)
}

// VotesOn reports whether a vote is held after the given 1-based tick.
func (c Config) VotesOn(tick int) bool {
	return c.VoteEvery > 0 && tick > 0 && tick%c.VoteEvery == 0
}
