// Package synergy scores rosters from base scores plus pairwise archetype
// bonuses and penalties.
package synergy

import "strings"

// Member is the part of a roster entry the scorer looks at.
type Member struct {
	ID        int
	Archetype string
	BaseScore int
}

// Table holds the pairwise lookups keyed by Key(a, b). Penalties may be
// written with either sign; they always subtract.
type Table struct {
	Positive map[string]int `yaml:"positive" json:"positive"`
	Negative map[string]int `yaml:"negative" json:"negative"`
}

// Key is the canonical pair key: the two archetypes sorted and joined by "-".
func Key(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "-" + b
}

// Pair returns the bonus (or penalty) for pairing two archetypes.
func (t *Table) Pair(a, b string) int {
	if t == nil || a == "" || b == "" {
		return 0
	}
	k := Key(strings.ToLower(a), strings.ToLower(b))
	score := t.Positive[k]
	if p := t.Negative[k]; p != 0 {
		score -= abs(p)
	}
	return score
}

// Roster scores a whole roster: every member's base score plus one Pair per
// unordered pair of distinct members.
func (t *Table) Roster(members []Member) int {
	total := 0
	for i, m := range members {
		total += max(m.BaseScore, 0)
		for _, other := range members[i+1:] {
			total += t.Pair(m.Archetype, other.Archetype)
		}
	}
	return total
}

// Item scores target's contribution inside roster: its base score plus its
// pairing with every other member. roster may or may not contain target.
func (t *Table) Item(target Member, roster []Member) int {
	total := max(target.BaseScore, 0)
	for _, m := range roster {
		if m.ID == target.ID {
			continue
		}
		total += t.Pair(target.Archetype, m.Archetype)
	}
	return total
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
