package engine

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/DoyleJ11/auction-backend/internal/catalog"
)

var ErrInvalidTeam = errors.New("invalid team")
var ErrNoActiveItem = errors.New("no active item")
var ErrRosterFull = errors.New("roster full")
var ErrInsufficientBudget = errors.New("insufficient budget")
var ErrInvalidBid = errors.New("invalid bid")
var ErrNoBid = errors.New("no bid to sell")
var ErrNothingToUndo = errors.New("nothing to undo")
var ErrUnsupportedCommand = errors.New("unsupported command")

// IsValidation reports whether err is a rejected action that left the state
// untouched and only concerns the issuer.
func IsValidation(err error) bool {
	for _, target := range []error{ErrInvalidTeam, ErrNoActiveItem, ErrRosterFull, ErrInsufficientBudget, ErrInvalidBid, ErrNoBid} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

type Phase string

const (
	PhaseLoading     Phase = "loading"
	PhaseMainAuction Phase = "main"
	PhaseReAuction   Phase = "reauction"
	PhaseComplete    Phase = "complete"
)

type Award struct {
	Item              catalog.Item `json:"item"`
	BoughtPrice       int64        `json:"boughtPrice"`
	IndividualSynergy int          `json:"individualSynergy"`
}

type Team struct {
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	Budget    int64   `json:"budget"`
	Remaining int64   `json:"remaining"`
	Spent     int64   `json:"spent"`
	Roster    []Award `json:"roster"`
	Synergy   int     `json:"synergy"`
}

// State is everything the auction mutates. Items holds the main offering
// order (sets concatenated); the queues hold item IDs.
type State struct {
	Phase          Phase          `json:"phase"`
	Index          int            `json:"index"`
	CurrentBid     int64          `json:"currentBid"`
	CurrentBidTeam int            `json:"currentBidTeam"`
	Items          []catalog.Item `json:"items"`
	SetBounds      []int          `json:"setBounds"`
	UnsoldQueue    []int          `json:"unsoldQueue"`
	ReAuctionQueue []int          `json:"reAuctionQueue"`
	Teams          []Team         `json:"teams"`
	Rules          Rules          `json:"-"`
}

type CommandType string

const (
	CmdPlaceBid CommandType = "placeBid"
	CmdSell     CommandType = "sell"
	CmdSkip     CommandType = "skip"
	CmdResetBid CommandType = "resetBid"
	CmdUndo     CommandType = "undo"
	CmdReset    CommandType = "reset"
)

type Command struct {
	Type CommandType
	Team int
}

type EventType string

const (
	EvtBidPlaced        EventType = "bidPlaced"
	EvtItemSold         EventType = "playerSold"
	EvtItemSkipped      EventType = "playerSkipped"
	EvtBidReset         EventType = "bidReset"
	EvtUndoCompleted    EventType = "undoCompleted"
	EvtSetSummary       EventType = "setSummary"
	EvtReAuctionStarted EventType = "reAuctionStart"
	EvtAuctionCompleted EventType = "auctionComplete"
	EvtAuctionReset     EventType = "auctionReset"
)

// Event describes one outcome of a command. Only the fields relevant to the
// type are set.
type Event struct {
	Type      EventType
	Team      int
	Item      *catalog.Item
	Amount    int64
	Action    SnapshotAction
	Summary   *SetSummary
	Queued    int
	Standings []Standing
}

type SetSummary struct {
	Set    int            `json:"set"`
	Items  []catalog.Item `json:"items"`
	Sold   int            `json:"sold"`
	Unsold int            `json:"unsold"`
	Spent  int64          `json:"spent"`
}

// Apply runs one of the bid/sell/skip/resetBid transitions. It never mutates
// s; on error the returned state is s. rng shuffles the re-auction queue and
// may be nil.
func Apply(s State, cmd Command, rng *rand.Rand) ([]Event, State, error) {
	switch cmd.Type {
	case CmdPlaceBid:
		return placeBid(s, cmd.Team)
	case CmdSell:
		return sell(s, rng)
	case CmdSkip:
		return skip(s, rng)
	case CmdResetBid:
		return resetBid(s)
	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func placeBid(s State, teamID int) ([]Event, State, error) {
	ti, ok := s.teamIndex(teamID)
	if !ok {
		return nil, s, fmt.Errorf("%w: %d", ErrInvalidTeam, teamID)
	}
	pos, ok := s.activePos()
	if !ok {
		return nil, s, ErrNoActiveItem
	}
	team := s.Teams[ti]
	if len(team.Roster) >= s.Rules.RosterCap {
		return nil, s, fmt.Errorf("%w: %s has %d items", ErrRosterFull, team.Name, len(team.Roster))
	}

	item := s.Items[pos]
	bid := item.BasePrice
	if s.CurrentBid > 0 {
		bid = s.CurrentBid + s.Rules.Increment(s.CurrentBid)
	}
	if bid <= 0 {
		return nil, s, ErrInvalidBid
	}
	if team.Remaining < bid {
		return nil, s, fmt.Errorf("%w: %s has %d, bid is %d", ErrInsufficientBudget, team.Name, team.Remaining, bid)
	}

	next := s.Clone()
	next.CurrentBid = bid
	next.CurrentBidTeam = teamID
	return []Event{{Type: EvtBidPlaced, Team: teamID, Item: &item, Amount: bid}}, next, nil
}

func sell(s State, rng *rand.Rand) ([]Event, State, error) {
	pos, ok := s.activePos()
	if !ok {
		return nil, s, ErrNoActiveItem
	}
	if s.CurrentBid <= 0 || s.CurrentBidTeam == 0 {
		return nil, s, ErrNoBid
	}
	ti, ok := s.teamIndex(s.CurrentBidTeam)
	if !ok {
		return nil, s, fmt.Errorf("%w: %d", ErrInvalidTeam, s.CurrentBidTeam)
	}
	if s.Teams[ti].Remaining < s.CurrentBid {
		return nil, s, fmt.Errorf("%w: %s has %d, bid is %d", ErrInsufficientBudget, s.Teams[ti].Name, s.Teams[ti].Remaining, s.CurrentBid)
	}
	if len(s.Teams[ti].Roster) >= s.Rules.RosterCap {
		return nil, s, fmt.Errorf("%w: %s", ErrRosterFull, s.Teams[ti].Name)
	}

	next := s.Clone()
	price := next.CurrentBid
	item := &next.Items[pos]
	item.Status = catalog.StatusSold
	item.SoldTo = next.CurrentBidTeam
	item.SoldPrice = price

	team := &next.Teams[ti]
	team.Remaining -= price
	team.Spent += price
	target := memberOf(*item)
	withItem := append(team.members(), target)
	team.Roster = append(team.Roster, Award{
		Item:              *item,
		BoughtPrice:       price,
		IndividualSynergy: next.Rules.Synergy.Item(target, withItem),
	})
	team.Synergy = next.Rules.Synergy.Roster(team.members())

	sold := *item
	events := []Event{{Type: EvtItemSold, Team: team.ID, Item: &sold, Amount: price}}
	next.advance()
	events = append(events, next.crossBoundary(rng)...)
	return events, next, nil
}

func skip(s State, rng *rand.Rand) ([]Event, State, error) {
	pos, ok := s.activePos()
	if !ok {
		return nil, s, ErrNoActiveItem
	}

	next := s.Clone()
	item := &next.Items[pos]
	item.Status = catalog.StatusUnsold
	if next.Phase == PhaseMainAuction {
		next.UnsoldQueue = append(next.UnsoldQueue, item.ID)
	}

	skipped := *item
	events := []Event{{Type: EvtItemSkipped, Item: &skipped}}
	next.advance()
	events = append(events, next.crossBoundary(rng)...)
	return events, next, nil
}

func resetBid(s State) ([]Event, State, error) {
	pos, ok := s.activePos()
	if !ok {
		return nil, s, ErrNoActiveItem
	}
	next := s.Clone()
	next.CurrentBid = 0
	next.CurrentBidTeam = 0
	item := next.Items[pos]
	return []Event{{Type: EvtBidReset, Item: &item}}, next, nil
}

func (s *State) advance() {
	s.Index++
	s.CurrentBid = 0
	s.CurrentBidTeam = 0
}

// crossBoundary applies the set-summary and phase transitions that follow an
// index advance.
func (s *State) crossBoundary(rng *rand.Rand) []Event {
	var events []Event
	switch s.Phase {
	case PhaseMainAuction:
		for k, end := range s.SetBounds {
			if s.Index == end {
				events = append(events, Event{Type: EvtSetSummary, Summary: s.setSummary(k)})
			}
		}
		if s.Index < len(s.Items) {
			return events
		}
		if len(s.UnsoldQueue) > 0 && s.hasOpenRoster() {
			queue := append([]int(nil), s.UnsoldQueue...)
			shuffle(rng, queue)
			s.Phase = PhaseReAuction
			s.ReAuctionQueue = queue
			s.Index = 0
			return append(events, Event{Type: EvtReAuctionStarted, Queued: len(queue)})
		}
		return append(events, s.complete())
	case PhaseReAuction:
		if s.Index >= len(s.ReAuctionQueue) {
			return append(events, s.complete())
		}
	}
	return events
}

func (s *State) complete() Event {
	s.Phase = PhaseComplete
	s.CurrentBid = 0
	s.CurrentBidTeam = 0
	standings := Standings(*s)
	ev := Event{Type: EvtAuctionCompleted, Standings: standings}
	if len(standings) > 0 {
		ev.Team = standings[0].Team
	}
	return ev
}

func (s *State) setSummary(k int) *SetSummary {
	start := 0
	if k > 0 {
		start = s.SetBounds[k-1]
	}
	sum := &SetSummary{Set: k + 1, Items: append([]catalog.Item(nil), s.Items[start:s.SetBounds[k]]...)}
	for _, it := range sum.Items {
		switch it.Status {
		case catalog.StatusSold:
			sum.Sold++
			sum.Spent += it.SoldPrice
		case catalog.StatusUnsold:
			sum.Unsold++
		}
	}
	return sum
}

func (s State) hasOpenRoster() bool {
	for _, t := range s.Teams {
		if len(t.Roster) < s.Rules.RosterCap {
			return true
		}
	}
	return false
}

func shuffle(rng *rand.Rand, q []int) {
	swap := func(i, j int) { q[i], q[j] = q[j], q[i] }
	if rng == nil {
		rand.Shuffle(len(q), swap)
		return
	}
	rng.Shuffle(len(q), swap)
}
