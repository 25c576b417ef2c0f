package lobby

import (
	"errors"

	"github.com/DoyleJ11/auction-backend/internal/engine"
	"github.com/DoyleJ11/auction-backend/internal/session"
	"github.com/DoyleJ11/auction-backend/pkg/types"
)

// eventMessage renders an engine event for the wire. s is the state after
// the command that produced it.
func eventMessage(ev engine.Event, s engine.State, rules engine.Rules) types.ServerMessage {
	teamName := func(id int) string {
		if t, ok := s.Team(id); ok {
			return t.Name
		}
		return ""
	}
	item := func() types.Item {
		if ev.Item == nil {
			return types.Item{}
		}
		return toItem(*ev.Item)
	}

	switch ev.Type {
	case engine.EvtBidPlaced:
		return types.ServerMessage{Type: types.EvtBidPlaced, Payload: types.BidPlaced{
			Team:     ev.Team,
			TeamName: teamName(ev.Team),
			Item:     item(),
			Amount:   ev.Amount,
			NextBid:  ev.Amount + rules.Increment(ev.Amount),
		}}
	case engine.EvtItemSold:
		return types.ServerMessage{Type: types.EvtPlayerSold, Payload: types.PlayerSold{
			Team:     ev.Team,
			TeamName: teamName(ev.Team),
			Item:     item(),
			Price:    ev.Amount,
		}}
	case engine.EvtItemSkipped:
		return types.ServerMessage{Type: types.EvtPlayerSkipped, Payload: types.PlayerSkipped{Item: item()}}
	case engine.EvtBidReset:
		return types.ServerMessage{Type: types.EvtBidReset, Payload: types.BidReset{Item: item()}}
	case engine.EvtUndoCompleted:
		p := types.UndoCompleted{Action: string(ev.Action), Team: ev.Team, Amount: ev.Amount}
		if ev.Item != nil {
			it := toItem(*ev.Item)
			p.Item = &it
		}
		return types.ServerMessage{Type: types.EvtUndoCompleted, Payload: p}
	case engine.EvtSetSummary:
		sum := ev.Summary
		if sum == nil {
			sum = &engine.SetSummary{}
		}
		return types.ServerMessage{Type: types.EvtSetSummary, Payload: types.SetSummary{
			Set:    sum.Set,
			Items:  toItems(sum.Items),
			Sold:   sum.Sold,
			Unsold: sum.Unsold,
			Spent:  sum.Spent,
		}}
	case engine.EvtReAuctionStarted:
		return types.ServerMessage{Type: types.EvtReAuctionStart, Payload: types.ReAuctionStart{Count: ev.Queued}}
	case engine.EvtAuctionCompleted:
		standings := toStandings(ev.Standings)
		p := types.AuctionComplete{Standings: standings}
		if len(standings) > 0 {
			p.Winner = standings[0]
		}
		return types.ServerMessage{Type: types.EvtAuctionComplete, Payload: p}
	case engine.EvtAuctionReset:
		return types.ServerMessage{Type: types.EvtAuctionReset}
	default:
		return types.ServerMessage{Type: string(ev.Type)}
	}
}

func errorMessage(code string, err error) types.ServerMessage {
	return types.ServerMessage{Type: types.EvtError, Payload: types.Error{Code: code, Message: err.Error()}}
}

// errorCode classifies a failed command or claim for the issuer.
func errorCode(err error) string {
	switch {
	case errors.Is(err, engine.ErrNothingToUndo):
		return types.CodeNothingToUndo
	case errors.Is(err, ErrNotOperator),
		errors.Is(err, session.ErrOperatorTaken):
		return types.CodeUnauthorized
	case engine.IsValidation(err):
		return types.CodeRejected
	default:
		return types.CodeBadRequest
	}
}
