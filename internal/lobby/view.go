package lobby

import (
	"github.com/DoyleJ11/auction-backend/internal/catalog"
	"github.com/DoyleJ11/auction-backend/internal/engine"
	"github.com/DoyleJ11/auction-backend/internal/session"
	"github.com/DoyleJ11/auction-backend/pkg/types"
)

// sharedView is what every connection sees. personalize adds the per-role
// parts on top of it.
func sharedView(s engine.State, rules engine.Rules, version int, canUndo bool, conns types.Connections) types.State {
	v := types.State{
		Version:        version,
		Phase:          string(s.Phase),
		Index:          s.Index,
		SetCount:       len(s.SetBounds),
		CurrentBid:     s.CurrentBid,
		CurrentBidTeam: s.CurrentBidTeam,
		CanUndo:        canUndo,
		Connections:    conns,
		Items:          make([]types.Item, 0, len(s.Items)),
		Teams:          make([]types.Team, 0, len(s.Teams)),
	}

	switch s.Phase {
	case engine.PhaseReAuction:
		v.Total = len(s.ReAuctionQueue)
	default:
		v.Total = len(s.Items)
	}
	if s.Phase == engine.PhaseMainAuction {
		v.Set = s.SetOf(s.Index)
	}
	if it, ok := s.CurrentItem(); ok {
		cur := toItem(it)
		v.CurrentItem = &cur
		v.NextBid = nextBid(rules, it, s.CurrentBid)
	}

	for _, it := range s.Items {
		v.Items = append(v.Items, toItem(it))
		switch it.Status {
		case catalog.StatusSold:
			v.SoldCount++
		case catalog.StatusUnsold:
			v.UnsoldCount++
		}
	}
	for _, t := range s.Teams {
		v.TotalSpent += t.Spent
		team := toTeam(t)
		team.Online = conns.Teams[t.ID]
		v.Teams = append(v.Teams, team)
	}
	v.Standings = toStandings(engine.Standings(s))
	return v
}

func personalize(v types.State, role session.Role) types.State {
	v.You = joined(role)
	if seat, ok := role.(session.Seat); ok {
		for _, t := range v.Teams {
			if t.ID == seat.Team {
				mine := t
				v.Mine = &mine
				break
			}
		}
	}
	return v
}

func joined(role session.Role) types.Joined {
	j := types.Joined{Role: session.Name(role)}
	if seat, ok := role.(session.Seat); ok {
		j.Role = "team"
		j.Team = seat.Team
	}
	return j
}

func nextBid(rules engine.Rules, it catalog.Item, current int64) int64 {
	if current == 0 {
		return it.BasePrice
	}
	return current + rules.Increment(current)
}

func toItem(it catalog.Item) types.Item {
	return types.Item{
		ID:        it.ID,
		Serial:    it.Serial,
		Name:      it.Name,
		Role:      it.Role,
		Archetype: it.Archetype,
		BaseScore: it.BaseScore,
		BasePrice: it.BasePrice,
		Status:    string(it.Status),
		SoldTo:    it.SoldTo,
		SoldPrice: it.SoldPrice,
	}
}

func toItems(items []catalog.Item) []types.Item {
	out := make([]types.Item, 0, len(items))
	for _, it := range items {
		out = append(out, toItem(it))
	}
	return out
}

func toTeam(t engine.Team) types.Team {
	out := types.Team{
		ID:        t.ID,
		Name:      t.Name,
		Budget:    t.Budget,
		Remaining: t.Remaining,
		Spent:     t.Spent,
		Synergy:   t.Synergy,
		Roster:    make([]types.Award, 0, len(t.Roster)),
	}
	for _, a := range t.Roster {
		out.Roster = append(out.Roster, types.Award{
			Item:              toItem(a.Item),
			BoughtPrice:       a.BoughtPrice,
			IndividualSynergy: a.IndividualSynergy,
		})
	}
	return out
}

func toStandings(in []engine.Standing) []types.Standing {
	out := make([]types.Standing, 0, len(in))
	for _, st := range in {
		out = append(out, types.Standing(st))
	}
	return out
}
