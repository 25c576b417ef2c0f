package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/DoyleJ11/auction-backend/internal/engine"
	"github.com/DoyleJ11/auction-backend/internal/lobby"
	"github.com/DoyleJ11/auction-backend/internal/session"
	"github.com/DoyleJ11/auction-backend/pkg/types"
)

const (
	outboxSize   = 64
	writeTimeout = 3 * time.Second
)

var errUnknownType = errors.New("unknown message type")

type Options struct {
	// OriginPatterns loosens the same-origin check, e.g. for a dev frontend.
	OriginPatterns []string
}

func Handler(lb *lobby.Lobby, log *zap.Logger, opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			log.Debug("websocket accept", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := uuid.NewString()
		log := log.With(zap.String("client", clientID))

		out := make(chan types.ServerMessage, outboxSize)
		if !lb.Send(r.Context(), lobby.Connect{ClientID: clientID, Outbox: out}) {
			conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		}
		defer lb.Send(context.Background(), lobby.Disconnect{ClientID: clientID})

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine. When the lobby closes the outbox (slow client,
		// forced disconnect or shutdown) it flushes what is left and closes
		// the connection, which ends the reader loop below.
		go func() {
			defer cancel()
			for {
				select {
				case <-ctx.Done():
					return
				case <-lb.Done():
					conn.Close(websocket.StatusGoingAway, "server shutting down")
					return
				case msg, ok := <-out:
					if !ok {
						conn.Close(websocket.StatusPolicyViolation, "disconnected by server")
						return
					}
					wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
					err := wsjson.Write(wctx, conn, msg)
					wcancel()
					if err != nil {
						log.Debug("websocket write", zap.Error(err))
						return
					}
				}
			}
		}()

		// Reader loop. No idle timeout: operators may sit on an item for a
		// long time.
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					log.Debug("websocket read", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				reply(ctx, conn, types.CodeBadRequest, "bad json")
				continue
			}

			msg, err := toLobbyMessage(clientID, cm)
			if err != nil {
				reply(ctx, conn, types.CodeBadRequest, err.Error())
				continue
			}
			if !lb.Send(ctx, msg) {
				return
			}
		}
	}
}

func reply(ctx context.Context, conn *websocket.Conn, code, text string) {
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_ = wsjson.Write(wctx, conn, types.ServerMessage{
		Type:    types.EvtError,
		Payload: types.Error{Code: code, Message: text},
	})
}

func toLobbyMessage(clientID string, m types.ClientMessage) (lobby.Msg, error) {
	switch m.Type {
	case types.JoinAsOperator:
		return lobby.Claim{ClientID: clientID, Role: session.Operator{}}, nil
	case types.JoinAsTeam:
		return lobby.Claim{ClientID: clientID, Role: session.Seat{Team: m.TeamID}}, nil
	case types.JoinAsObserver:
		return lobby.Claim{ClientID: clientID, Role: session.Observer{}}, nil
	case types.PlaceBid:
		return lobby.Act{ClientID: clientID, Cmd: engine.Command{Type: engine.CmdPlaceBid, Team: m.TeamID}}, nil
	case types.Sell:
		return act(clientID, engine.CmdSell), nil
	case types.Skip:
		return act(clientID, engine.CmdSkip), nil
	case types.ResetBid:
		return act(clientID, engine.CmdResetBid), nil
	case types.Undo:
		return act(clientID, engine.CmdUndo), nil
	case types.Reset:
		return act(clientID, engine.CmdReset), nil
	default:
		return nil, errUnknownType
	}
}

func act(clientID string, t engine.CommandType) lobby.Act {
	return lobby.Act{ClientID: clientID, Cmd: engine.Command{Type: t}}
}
