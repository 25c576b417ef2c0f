package engine

import (
	"cmp"
	"slices"
)

type Standing struct {
	Rank       int    `json:"rank"`
	Team       int    `json:"team"`
	Name       string `json:"name"`
	Synergy    int    `json:"synergy"`
	Remaining  int64  `json:"remaining"`
	Spent      int64  `json:"spent"`
	RosterSize int    `json:"rosterSize"`
}

// Standings ranks teams by synergy, then remaining budget, then team id.
func Standings(s State) []Standing {
	out := make([]Standing, 0, len(s.Teams))
	for _, t := range s.Teams {
		out = append(out, Standing{
			Team:       t.ID,
			Name:       t.Name,
			Synergy:    t.Synergy,
			Remaining:  t.Remaining,
			Spent:      t.Spent,
			RosterSize: len(t.Roster),
		})
	}
	slices.SortFunc(out, func(a, b Standing) int {
		if c := cmp.Compare(b.Synergy, a.Synergy); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Remaining, a.Remaining); c != 0 {
			return c
		}
		return cmp.Compare(a.Team, b.Team)
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
