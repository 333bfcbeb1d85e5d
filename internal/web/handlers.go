package web

import (
	"net/http"
	"time"
)

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	trades, err := s.analytics.Trades(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	views := make([]tradeView, 0, len(trades))
	for _, t := range trades {
		views = append(views, newTradeView(t))
	}
	s.writeJSON(w, http.StatusOK, views)
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	states, err := s.analytics.PositionHistory(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, states)
}

func (s *Server) handlePnL(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	pnl, err := s.analytics.PnL(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newPnLView(*pnl))
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	entries, err := s.analytics.Leaderboard(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	views := make([]leaderboardView, 0, len(entries))
	for _, e := range entries {
		views = append(views, newLeaderboardView(e))
	}
	s.writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UnixMilli(),
	})
}
