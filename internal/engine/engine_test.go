package engine

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/auction-backend/internal/catalog"
	"github.com/DoyleJ11/auction-backend/internal/synergy"
)

var archetypes = []string{"carry", "support", "control", "engage", "split", "tank"}

func testItems(n int) []catalog.Item {
	items := make([]catalog.Item, n)
	for i := range items {
		items[i] = catalog.Item{
			ID:        i + 1,
			Serial:    fmt.Sprint(i + 1),
			Name:      fmt.Sprintf("player-%02d", i+1),
			Role:      "mid",
			Archetype: archetypes[i%len(archetypes)],
			BaseScore: 50 + i%10,
			BasePrice: 1_000_000,
			Status:    catalog.StatusAvailable,
		}
	}
	return items
}

func testRules() Rules {
	r := DefaultRules()
	r.Synergy = &synergy.Table{
		Positive: map[string]int{"carry-support": 10, "control-engage": 6},
		Negative: map[string]int{"carry-carry": -8},
	}
	return r
}

func newTestAuction(t *testing.T, n int, rules Rules) *Auction {
	t.Helper()
	a, err := New(testItems(n), rules, WithRand(rand.New(rand.NewPCG(1, 2))), WithClock(func() time.Time {
		return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}))
	require.NoError(t, err)
	return a
}

func do(t *testing.T, a *Auction, cmd Command) []Event {
	t.Helper()
	events, err := a.Do(cmd)
	require.NoError(t, err, "command %s", cmd.Type)
	return events
}

func requireInvariants(t *testing.T, s State) {
	t.Helper()
	owners := map[int]int{}
	for _, tm := range s.Teams {
		require.Equal(t, tm.Budget, tm.Remaining+tm.Spent, "team %d budget", tm.ID)
		var sum int64
		for _, aw := range tm.Roster {
			sum += aw.BoughtPrice
			owners[aw.Item.ID]++
		}
		require.Equal(t, tm.Spent, sum, "team %d spent", tm.ID)
		require.LessOrEqual(t, len(tm.Roster), s.Rules.RosterCap)
	}
	for _, it := range s.Items {
		if it.Status == catalog.StatusSold {
			require.Equal(t, 1, owners[it.ID], "sold item %d must be in exactly one roster", it.ID)
		} else {
			require.Zero(t, owners[it.ID], "unsold item %d in a roster", it.ID)
		}
	}
}

func TestIncrement_MonotonicAndPositive(t *testing.T) {
	r := DefaultRules()
	prev := int64(0)
	for bid := int64(0); bid <= 40_000_000; bid += 50_000 {
		step := r.Increment(bid)
		require.Positive(t, step)
		require.GreaterOrEqual(t, step, prev, "increment decreased at %d", bid)
		prev = step
	}

	assert.Equal(t, int64(1), Rules{}.Increment(10))
}

func TestRulesValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Rules)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Rules) {}},
		{name: "eight teams", mutate: func(r *Rules) { r.TeamCount = 8 }},
		{name: "seven teams", mutate: func(r *Rules) { r.TeamCount = 7 }, wantErr: true},
		{name: "zero cap", mutate: func(r *Rules) { r.RosterCap = 0 }, wantErr: true},
		{name: "decreasing steps", mutate: func(r *Rules) { r.Tiers[1].Step = 1 }, wantErr: true},
		{name: "max below last tier", mutate: func(r *Rules) { r.MaxStep = 10 }, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := DefaultRules()
			tc.mutate(&r)
			err := r.Validate()
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestNew_PartitionsIntoSets(t *testing.T) {
	a := newTestAuction(t, 72, testRules())
	s := a.State()
	assert.Equal(t, PhaseMainAuction, s.Phase)
	assert.Equal(t, []int{24, 48, 72}, s.SetBounds)
	assert.Len(t, s.Teams, 6)
	for _, tm := range s.Teams {
		assert.Equal(t, int64(100_000_000), tm.Remaining)
	}
	_, ok := a.CurrentItem()
	assert.True(t, ok)
}

func TestNew_EmptyCatalog(t *testing.T) {
	_, err := New(nil, testRules())
	require.ErrorIs(t, err, catalog.ErrEmptyCatalog)
}

func TestPlaceBid_FirstBidIsBasePrice(t *testing.T) {
	a := newTestAuction(t, 12, testRules())

	events := do(t, a, Command{Type: CmdPlaceBid, Team: 2})
	require.True(t, ContainsEvent(events, EvtBidPlaced))
	s := a.State()
	assert.Equal(t, int64(1_000_000), s.CurrentBid)
	assert.Equal(t, 2, s.CurrentBidTeam)

	do(t, a, Command{Type: CmdPlaceBid, Team: 3})
	s = a.State()
	assert.Equal(t, int64(1_000_000)+testRules().Increment(1_000_000), s.CurrentBid)
	assert.Equal(t, 3, s.CurrentBidTeam)
}

func TestPlaceBid_Rejections(t *testing.T) {
	cases := []struct {
		name    string
		setup   func(s *State)
		team    int
		wantErr error
	}{
		{name: "team zero", team: 0, wantErr: ErrInvalidTeam},
		{name: "team out of range", team: 7, wantErr: ErrInvalidTeam},
		{
			name: "roster full",
			team: 1,
			setup: func(s *State) {
				for i := 0; i < s.Rules.RosterCap; i++ {
					s.Teams[0].Roster = append(s.Teams[0].Roster, Award{})
				}
			},
			wantErr: ErrRosterFull,
		},
		{
			name: "insufficient budget",
			team: 1,
			setup: func(s *State) {
				s.Teams[0].Remaining = 999_999
				s.Teams[0].Spent = s.Teams[0].Budget - 999_999
			},
			wantErr: ErrInsufficientBudget,
		},
		{
			name:    "no active item",
			team:    1,
			setup:   func(s *State) { s.Phase = PhaseComplete },
			wantErr: ErrNoActiveItem,
		},
		{
			name:    "index past end",
			team:    1,
			setup:   func(s *State) { s.Index = len(s.Items) },
			wantErr: ErrNoActiveItem,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewState(testItems(12), testRules(), rand.New(rand.NewPCG(3, 4)))
			if tc.setup != nil {
				tc.setup(&s)
			}
			_, out, err := Apply(s, Command{Type: CmdPlaceBid, Team: tc.team}, nil)
			require.ErrorIs(t, err, tc.wantErr)
			assert.True(t, IsValidation(err))
			assert.Zero(t, out.CurrentBid)
		})
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	s := NewState(testItems(12), testRules(), rand.New(rand.NewPCG(5, 6)))
	_, s, err := Apply(s, Command{Type: CmdPlaceBid, Team: 1}, nil)
	require.NoError(t, err)
	before := s.Clone()

	_, next, err := Apply(s, Command{Type: CmdSell}, nil)
	require.NoError(t, err)

	assert.Equal(t, before, s)
	assert.NotEqual(t, s.Teams[0].Remaining, next.Teams[0].Remaining)
	assert.Empty(t, s.Teams[0].Roster)
}

func TestSell(t *testing.T) {
	a := newTestAuction(t, 12, testRules())
	item, _ := a.CurrentItem()
	before := a.State()

	do(t, a, Command{Type: CmdPlaceBid, Team: 4})
	events := do(t, a, Command{Type: CmdSell})
	require.True(t, ContainsEvent(events, EvtItemSold))

	s := a.State()
	requireInvariants(t, s)
	assert.Equal(t, before.Index+1, s.Index)
	assert.Zero(t, s.CurrentBid)
	assert.Zero(t, s.CurrentBidTeam)

	team, _ := s.Team(4)
	require.Len(t, team.Roster, 1)
	assert.Equal(t, item.ID, team.Roster[0].Item.ID)
	assert.Equal(t, int64(1_000_000), team.Roster[0].BoughtPrice)
	assert.Equal(t, item.BaseScore, team.Roster[0].IndividualSynergy)
	assert.Equal(t, item.BaseScore, team.Synergy)
	assert.Equal(t, int64(99_000_000), team.Remaining)

	pos, _ := s.itemPos(item.ID)
	assert.Equal(t, catalog.StatusSold, s.Items[pos].Status)
	assert.Equal(t, 4, s.Items[pos].SoldTo)

	next, ok := a.CurrentItem()
	require.True(t, ok)
	assert.NotEqual(t, item.ID, next.ID)
}

func TestSell_RequiresBid(t *testing.T) {
	a := newTestAuction(t, 12, testRules())
	_, err := a.Do(Command{Type: CmdSell})
	require.ErrorIs(t, err, ErrNoBid)
	assert.Zero(t, a.UndoDepth())
}

func TestSell_IndividualSynergyUsesRoster(t *testing.T) {
	rules := testRules()
	s := NewState(testItems(12), rules, rand.New(rand.NewPCG(8, 8)))
	var carry, support int
	for i, it := range s.Items {
		if it.Archetype == "carry" && carry == 0 {
			carry = i + 1
		}
		if it.Archetype == "support" && support == 0 {
			support = i + 1
		}
	}
	require.NotZero(t, carry)
	require.NotZero(t, support)

	buy := func(s State, pos int) State {
		s.Phase = PhaseMainAuction
		s.Index = pos
		_, s, err := Apply(s, Command{Type: CmdPlaceBid, Team: 1}, nil)
		require.NoError(t, err)
		_, s, err = Apply(s, Command{Type: CmdSell}, nil)
		require.NoError(t, err)
		return s
	}
	s = buy(s, carry-1)
	s = buy(s, support-1)

	team := s.Teams[0]
	require.Len(t, team.Roster, 2)
	sup := team.Roster[1]
	assert.Equal(t, sup.Item.BaseScore+10, sup.IndividualSynergy)
	assert.Equal(t, team.Roster[0].Item.BaseScore+sup.Item.BaseScore+10, team.Synergy)
}

func TestUndo_AfterSellRestoresEverything(t *testing.T) {
	a := newTestAuction(t, 12, testRules())
	do(t, a, Command{Type: CmdPlaceBid, Team: 1})
	beforeSale := a.State()

	do(t, a, Command{Type: CmdSell})
	events := do(t, a, Command{Type: CmdUndo})
	require.Len(t, events, 1)
	assert.Equal(t, EvtUndoCompleted, events[0].Type)
	assert.Equal(t, BeforeSold, events[0].Action)

	after := a.State()
	assert.Equal(t, beforeSale.Index, after.Index)
	assert.Equal(t, beforeSale.Teams, after.Teams)
	assert.Equal(t, beforeSale.Items, after.Items)
	assert.Equal(t, beforeSale.CurrentBid, after.CurrentBid)
	requireInvariants(t, after)
}

func TestUndo_SecondUndoIsNoop(t *testing.T) {
	a := newTestAuction(t, 12, testRules())
	do(t, a, Command{Type: CmdSkip})
	do(t, a, Command{Type: CmdUndo})
	restored := a.State()

	_, err := a.Do(Command{Type: CmdUndo})
	require.ErrorIs(t, err, ErrNothingToUndo)
	assert.Equal(t, restored, a.State())
}

func TestResetBid_NotUndoable(t *testing.T) {
	a := newTestAuction(t, 12, testRules())
	do(t, a, Command{Type: CmdPlaceBid, Team: 1})
	require.Equal(t, 1, a.UndoDepth())

	events := do(t, a, Command{Type: CmdResetBid})
	require.True(t, ContainsEvent(events, EvtBidReset))
	assert.Equal(t, 1, a.UndoDepth())
	assert.Zero(t, a.State().CurrentBid)

	// the only snapshot left is the bid's
	events = do(t, a, Command{Type: CmdUndo})
	assert.Equal(t, BeforeBid, events[0].Action)
	assert.Zero(t, a.State().CurrentBid)
}

func TestFullMainAuction_CompletesWithWinner(t *testing.T) {
	a := newTestAuction(t, 72, testRules())

	var summaries []int
	var last []Event
	for i := 0; i < 72; i++ {
		var events []Event
		if i < 48 {
			do(t, a, Command{Type: CmdPlaceBid, Team: i%6 + 1})
			events = do(t, a, Command{Type: CmdSell})
		} else {
			events = do(t, a, Command{Type: CmdSkip})
		}
		for _, ev := range events {
			if ev.Type == EvtSetSummary {
				summaries = append(summaries, ev.Summary.Set)
			}
		}
		requireInvariants(t, a.State())
		last = events
	}

	s := a.State()
	assert.Equal(t, PhaseComplete, s.Phase)
	assert.Equal(t, []int{1, 2, 3}, summaries)
	assert.Len(t, s.UnsoldQueue, 24)
	require.True(t, ContainsEvent(last, EvtAuctionCompleted))
	assert.False(t, ContainsEvent(last, EvtReAuctionStarted))

	done := last[len(last)-1]
	require.Len(t, done.Standings, 6)
	assert.Equal(t, done.Standings[0].Team, done.Team)
	_, ok := a.CurrentItem()
	assert.False(t, ok)
}

func TestSkip_TriggersReAuction(t *testing.T) {
	a := newTestAuction(t, 12, testRules())
	skipped, _ := a.CurrentItem()
	do(t, a, Command{Type: CmdSkip})

	var events []Event
	for i := 1; i < 12; i++ {
		do(t, a, Command{Type: CmdPlaceBid, Team: i%6 + 1})
		events = do(t, a, Command{Type: CmdSell})
	}
	require.True(t, ContainsEvent(events, EvtReAuctionStarted))

	s := a.State()
	assert.Equal(t, PhaseReAuction, s.Phase)
	assert.Equal(t, len(s.UnsoldQueue), len(s.ReAuctionQueue))
	assert.Zero(t, s.Index)
	cur, ok := a.CurrentItem()
	require.True(t, ok)
	assert.Equal(t, skipped.ID, cur.ID)
	assert.Equal(t, catalog.StatusUnsold, cur.Status)

	// skipping again in the re-auction does not re-queue
	events = do(t, a, Command{Type: CmdSkip})
	require.True(t, ContainsEvent(events, EvtAuctionCompleted))
	s = a.State()
	assert.Equal(t, PhaseComplete, s.Phase)
	assert.Len(t, s.UnsoldQueue, 1)
}

func TestReAuction_SellCompletes(t *testing.T) {
	a := newTestAuction(t, 6, testRules())
	for i := 0; i < 6; i++ {
		do(t, a, Command{Type: CmdSkip})
	}
	s := a.State()
	require.Equal(t, PhaseReAuction, s.Phase)
	require.Len(t, s.ReAuctionQueue, 6)

	for i := 0; i < 6; i++ {
		do(t, a, Command{Type: CmdPlaceBid, Team: 1})
		do(t, a, Command{Type: CmdSell})
	}
	s = a.State()
	assert.Equal(t, PhaseComplete, s.Phase)
	team, _ := s.Team(1)
	assert.Len(t, team.Roster, 6)
	requireInvariants(t, s)
}

func TestReset(t *testing.T) {
	a := newTestAuction(t, 12, testRules())
	do(t, a, Command{Type: CmdPlaceBid, Team: 1})
	do(t, a, Command{Type: CmdSell})
	do(t, a, Command{Type: CmdSkip})

	events := do(t, a, Command{Type: CmdReset})
	require.True(t, ContainsEvent(events, EvtAuctionReset))
	s := a.State()
	assert.Equal(t, PhaseMainAuction, s.Phase)
	assert.Zero(t, s.Index)
	assert.Empty(t, s.UnsoldQueue)
	assert.Empty(t, s.ReAuctionQueue)
	for _, tm := range s.Teams {
		assert.Equal(t, tm.Budget, tm.Remaining)
		assert.Empty(t, tm.Roster)
	}
	for _, it := range s.Items {
		assert.Equal(t, catalog.StatusAvailable, it.Status)
	}
	_, err := a.Do(Command{Type: CmdUndo})
	require.ErrorIs(t, err, ErrNothingToUndo)
}

func TestHistory_BoundedDepth(t *testing.T) {
	h := NewHistory(3)
	for i := 1; i <= 5; i++ {
		h.Push(Snapshot{Payload: SnapshotPayload{Amount: int64(i)}})
	}
	require.Equal(t, 3, h.Len())

	var got []int64
	for {
		s, ok := h.Pop()
		if !ok {
			break
		}
		got = append(got, s.Payload.Amount)
	}
	assert.Equal(t, []int64{5, 4, 3}, got)
}

func TestAuction_HistoryDepthFromRules(t *testing.T) {
	rules := testRules()
	rules.HistoryDepth = 2
	a := newTestAuction(t, 12, rules)
	for i := 0; i < 4; i++ {
		do(t, a, Command{Type: CmdPlaceBid, Team: 1})
	}
	assert.Equal(t, 2, a.UndoDepth())
}

func TestStandings_TieBreak(t *testing.T) {
	s := State{Teams: []Team{
		{ID: 1, Synergy: 100, Remaining: 10},
		{ID: 2, Synergy: 120, Remaining: 5},
		{ID: 3, Synergy: 100, Remaining: 30},
		{ID: 4, Synergy: 100, Remaining: 30},
	}}
	got := Standings(s)
	order := []int{got[0].Team, got[1].Team, got[2].Team, got[3].Team}
	assert.Equal(t, []int{2, 3, 4, 1}, order)
	assert.Equal(t, 1, got[0].Rank)
	assert.Equal(t, 4, got[3].Rank)
}

func TestResume(t *testing.T) {
	a := newTestAuction(t, 12, testRules())
	do(t, a, Command{Type: CmdPlaceBid, Team: 1})
	do(t, a, Command{Type: CmdSell})
	saved := a.State()
	saved.Rules = Rules{}

	b, err := Resume(saved, testItems(12), testRules())
	require.NoError(t, err)
	assert.Equal(t, saved.Index, b.State().Index)
	assert.Equal(t, 8, b.State().Rules.RosterCap)
	assert.Zero(t, b.UndoDepth())

	eight := testRules()
	eight.TeamCount = 8
	_, err = Resume(saved, testItems(12), eight)
	require.ErrorIs(t, err, ErrIncompatibleState)
}

func TestRandomActions_KeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 13))
	a := newTestAuction(t, 30, testRules())
	cmds := []CommandType{CmdPlaceBid, CmdPlaceBid, CmdPlaceBid, CmdSell, CmdSkip, CmdResetBid, CmdUndo}

	for step := 0; step < 2000 && a.State().Phase != PhaseComplete; step++ {
		cmd := Command{Type: cmds[rng.IntN(len(cmds))], Team: 1 + rng.IntN(6)}
		_, err := a.Do(cmd)
		if err != nil {
			require.True(t, IsValidation(err) || errors.Is(err, ErrNothingToUndo), "unexpected error %v", err)
		}
		s := a.State()
		requireInvariants(t, s)
		if s.CurrentBid > 0 {
			item, ok := s.CurrentItem()
			require.True(t, ok)
			require.GreaterOrEqual(t, s.CurrentBid, item.BasePrice)
		}
	}
}
