package engine

import (
	"fmt"
	"math/rand/v2"

	"github.com/DoyleJ11/auction-backend/internal/catalog"
	"github.com/DoyleJ11/auction-backend/internal/synergy"
)

// NewState builds a fresh auction: teams at full budget and the catalog
// partitioned into offering sets.
func NewState(items []catalog.Item, rules Rules, rng *rand.Rand) State {
	s := State{
		Phase: PhaseLoading,
		Teams: NewTeams(rules),
		Rules: rules,
	}
	s.Items, s.SetBounds = catalog.Partition(items, rules.SetCount, rng)
	s.Phase = PhaseMainAuction
	if len(s.Items) == 0 {
		s.Phase = PhaseComplete
	}
	return s
}

func NewTeams(rules Rules) []Team {
	teams := make([]Team, rules.TeamCount)
	for i := range teams {
		name := fmt.Sprintf("Team %d", i+1)
		if i < len(rules.TeamNames) && rules.TeamNames[i] != "" {
			name = rules.TeamNames[i]
		}
		teams[i] = Team{
			ID:        i + 1,
			Name:      name,
			Budget:    rules.Budget,
			Remaining: rules.Budget,
			Roster:    []Award{},
		}
	}
	return teams
}

// Clone returns a deep copy that shares no slices with s. Rules are
// read-only and stay shared.
func (s State) Clone() State {
	c := s
	c.Items = append([]catalog.Item(nil), s.Items...)
	c.SetBounds = append([]int(nil), s.SetBounds...)
	c.UnsoldQueue = append([]int(nil), s.UnsoldQueue...)
	c.ReAuctionQueue = append([]int(nil), s.ReAuctionQueue...)
	c.Teams = make([]Team, len(s.Teams))
	for i, t := range s.Teams {
		t.Roster = append([]Award{}, t.Roster...)
		c.Teams[i] = t
	}
	return c
}

// CurrentItem is the item on offer, if any.
func (s State) CurrentItem() (catalog.Item, bool) {
	pos, ok := s.activePos()
	if !ok {
		return catalog.Item{}, false
	}
	return s.Items[pos], true
}

// SetOf returns the 1-based offering set containing the main-order position.
func (s State) SetOf(pos int) int {
	for k, end := range s.SetBounds {
		if pos < end {
			return k + 1
		}
	}
	return len(s.SetBounds)
}

func (s State) Team(id int) (Team, bool) {
	i, ok := s.teamIndex(id)
	if !ok {
		return Team{}, false
	}
	return s.Teams[i], true
}

func (s State) activePos() (int, bool) {
	switch s.Phase {
	case PhaseMainAuction:
		if s.Index >= 0 && s.Index < len(s.Items) {
			return s.Index, true
		}
	case PhaseReAuction:
		if s.Index >= 0 && s.Index < len(s.ReAuctionQueue) {
			return s.itemPos(s.ReAuctionQueue[s.Index])
		}
	}
	return -1, false
}

func (s State) itemPos(id int) (int, bool) {
	for i, it := range s.Items {
		if it.ID == id {
			return i, true
		}
	}
	return -1, false
}

func (s State) teamIndex(id int) (int, bool) {
	if id < 1 || id > len(s.Teams) || s.Teams[id-1].ID != id {
		return -1, false
	}
	return id - 1, true
}

func (t Team) members() []synergy.Member {
	out := make([]synergy.Member, 0, len(t.Roster)+1)
	for _, a := range t.Roster {
		out = append(out, memberOf(a.Item))
	}
	return out
}

func memberOf(it catalog.Item) synergy.Member {
	return synergy.Member{ID: it.ID, Archetype: it.Archetype, BaseScore: it.BaseScore}
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}
