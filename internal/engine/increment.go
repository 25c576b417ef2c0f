package engine

import (
	"errors"
	"fmt"

	"github.com/DoyleJ11/auction-backend/internal/synergy"
)

// Tier applies Step to every bid strictly below Below.
type Tier struct {
	Below int64 `yaml:"below" json:"below"`
	Step  int64 `yaml:"step" json:"step"`
}

type Rules struct {
	TeamCount    int
	TeamNames    []string
	Budget       int64
	RosterCap    int
	SetCount     int
	HistoryDepth int
	Tiers        []Tier
	MaxStep      int64
	Synergy      *synergy.Table
}

func DefaultRules() Rules {
	return Rules{
		TeamCount:    6,
		Budget:       100_000_000,
		RosterCap:    8,
		SetCount:     3,
		HistoryDepth: 50,
		Tiers: []Tier{
			{Below: 2_000_000, Step: 100_000},
			{Below: 5_000_000, Step: 200_000},
			{Below: 10_000_000, Step: 500_000},
			{Below: 20_000_000, Step: 1_000_000},
		},
		MaxStep: 2_000_000,
		Synergy: &synergy.Table{},
	}
}

// Increment is the raise applied on top of bid. It is a step function of bid
// and never returns less than 1.
func (r Rules) Increment(bid int64) int64 {
	step := r.MaxStep
	for _, t := range r.Tiers {
		if bid < t.Below {
			step = t.Step
			break
		}
	}
	return max(step, 1)
}

func (r Rules) Validate() error {
	if r.TeamCount != 6 && r.TeamCount != 8 {
		return fmt.Errorf("team count must be 6 or 8, got %d", r.TeamCount)
	}
	if r.Budget <= 0 {
		return errors.New("budget must be positive")
	}
	if r.RosterCap < 1 {
		return errors.New("roster cap must be >= 1")
	}
	if r.SetCount < 1 {
		return errors.New("set count must be >= 1")
	}
	if r.HistoryDepth < 1 {
		return errors.New("history depth must be >= 1")
	}
	var prev Tier
	for i, t := range r.Tiers {
		if t.Step <= 0 {
			return fmt.Errorf("tier %d: step must be positive", i)
		}
		if i > 0 && (t.Below <= prev.Below || t.Step < prev.Step) {
			return fmt.Errorf("tier %d: tiers must be ordered by threshold with non-decreasing steps", i)
		}
		prev = t
	}
	if r.MaxStep <= 0 || (len(r.Tiers) > 0 && r.MaxStep < prev.Step) {
		return errors.New("max step must be positive and at least the last tier step")
	}
	return nil
}
