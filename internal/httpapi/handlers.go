package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/DoyleJ11/auction-backend/internal/lobby"
	"github.com/DoyleJ11/auction-backend/internal/session"
)

const viewTimeout = 2 * time.Second

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// State serves the observer view of the auction.
func State(lb *lobby.Lobby) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := fetchView(r, lb)
		if !ok {
			http.Error(w, "auction unavailable", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, v.State)
	}
}

func Standings(lb *lobby.Lobby) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := fetchView(r, lb)
		if !ok {
			http.Error(w, "auction unavailable", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Phase     string `json:"phase"`
			Standings any    `json:"standings"`
		}{Phase: v.State.Phase, Standings: v.State.Standings})
	}
}

func fetchView(r *http.Request, lb *lobby.Lobby) (lobby.View, bool) {
	ctx, cancel := context.WithTimeout(r.Context(), viewTimeout)
	defer cancel()

	reply := make(chan lobby.View, 1)
	if !lb.Send(ctx, lobby.GetView{Role: session.Observer{}, Reply: reply}) {
		return lobby.View{}, false
	}
	select {
	case v := <-reply:
		return v, true
	case <-ctx.Done():
		return lobby.View{}, false
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
