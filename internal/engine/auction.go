package engine

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/DoyleJ11/auction-backend/internal/catalog"
)

var ErrIncompatibleState = errors.New("saved state does not match configuration")

// Auction owns the live state, the undo history and the catalog it resets
// from. It is not safe for concurrent use; callers serialize access.
type Auction struct {
	state   State
	history *History
	catalog []catalog.Item
	rules   Rules
	rng     *rand.Rand
	now     func() time.Time
}

type Option func(*Auction)

func WithRand(rng *rand.Rand) Option {
	return func(a *Auction) { a.rng = rng }
}

func WithClock(now func() time.Time) Option {
	return func(a *Auction) { a.now = now }
}

// New starts a fresh auction over items.
func New(items []catalog.Item, rules Rules, opts ...Option) (*Auction, error) {
	a, err := newAuction(items, rules, opts)
	if err != nil {
		return nil, err
	}
	a.state = NewState(a.catalog, a.rules, a.rng)
	return a, nil
}

// Resume continues from a saved state. The saved state must have been built
// with the same team count.
func Resume(saved State, items []catalog.Item, rules Rules, opts ...Option) (*Auction, error) {
	a, err := newAuction(items, rules, opts)
	if err != nil {
		return nil, err
	}
	if len(saved.Teams) != rules.TeamCount || len(saved.Items) == 0 {
		return nil, fmt.Errorf("%w: %d teams, %d items", ErrIncompatibleState, len(saved.Teams), len(saved.Items))
	}
	a.state = saved.Clone()
	a.state.Rules = rules
	return a, nil
}

func newAuction(items []catalog.Item, rules Rules, opts []Option) (*Auction, error) {
	if len(items) == 0 {
		return nil, catalog.ErrEmptyCatalog
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	a := &Auction{
		history: NewHistory(rules.HistoryDepth),
		catalog: append([]catalog.Item(nil), items...),
		rules:   rules,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.rng == nil {
		a.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return a, nil
}

// State returns a copy of the live state.
func (a *Auction) State() State { return a.state.Clone() }

func (a *Auction) Rules() Rules { return a.rules }

func (a *Auction) CurrentItem() (catalog.Item, bool) { return a.state.CurrentItem() }

func (a *Auction) UndoDepth() int { return a.history.Len() }

// Do executes one operator command. bid, sell and skip record a snapshot of
// the prior state so that undo can revert them.
func (a *Auction) Do(cmd Command) ([]Event, error) {
	switch cmd.Type {
	case CmdUndo:
		return a.undo()
	case CmdReset:
		return a.reset(), nil
	}

	prev := a.state.Clone()
	events, next, err := Apply(a.state, cmd, a.rng)
	if err != nil {
		return nil, err
	}
	if action, ok := snapshotActions[cmd.Type]; ok {
		a.history.Push(Snapshot{At: a.now(), Action: action, Payload: payloadOf(events), State: prev})
	}
	a.state = next
	return events, nil
}

func (a *Auction) undo() ([]Event, error) {
	snap, ok := a.history.Pop()
	if !ok || !snap.Action.undoable() {
		return nil, ErrNothingToUndo
	}
	a.state = snap.State
	a.state.Rules = a.rules

	ev := Event{Type: EvtUndoCompleted, Action: snap.Action, Team: snap.Payload.Team, Amount: snap.Payload.Amount}
	if pos, ok := a.state.itemPos(snap.Payload.ItemID); ok {
		item := a.state.Items[pos]
		ev.Item = &item
	}
	return []Event{ev}, nil
}

func (a *Auction) reset() []Event {
	a.history.Clear()
	a.state = NewState(a.catalog, a.rules, a.rng)
	return []Event{{Type: EvtAuctionReset}}
}

func payloadOf(events []Event) SnapshotPayload {
	if len(events) == 0 {
		return SnapshotPayload{}
	}
	ev := events[0]
	p := SnapshotPayload{Team: ev.Team, Amount: ev.Amount}
	if ev.Item != nil {
		p.ItemID = ev.Item.ID
		p.ItemName = ev.Item.Name
	}
	return p
}
