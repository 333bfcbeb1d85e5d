package web

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/vitos/hyper_pnl/internal/domain"
	"go.uber.org/zap"
)

func (s *Server) handleListTrackedUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.ListTrackedUsers(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	views := make([]trackedUserView, 0, len(users))
	for _, u := range users {
		views = append(views, trackedUserView{Address: u.Address, Label: u.Label, AddedAt: u.AddedAt})
	}
	s.writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleAddTrackedUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address string `json:"address"`
		Label   string `json:"label"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: body: %v", domain.ErrInvalidQuery, err))
		return
	}
	user := domain.TrackedUser{
		Address: strings.ToLower(strings.TrimSpace(req.Address)),
		Label:   strings.TrimSpace(req.Label),
	}
	if user.Address == "" {
		s.writeError(w, r, fmt.Errorf("%w: address is required", domain.ErrInvalidQuery))
		return
	}

	if err := s.users.AddTrackedUser(r.Context(), user); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("Tracked user added", zap.String("address", user.Address))
	s.writeJSON(w, http.StatusCreated, trackedUserView{Address: user.Address, Label: user.Label})
}

func (s *Server) handleRemoveTrackedUser(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")
	if err := s.users.RemoveTrackedUser(r.Context(), address); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("Tracked user removed", zap.String("address", address))
	w.WriteHeader(http.StatusNoContent)
}
