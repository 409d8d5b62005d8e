package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rtpcraft/randomtp/internal/cooldown"
	"github.com/rtpcraft/randomtp/internal/host"
	"github.com/rtpcraft/randomtp/internal/services"
	"github.com/rtpcraft/randomtp/internal/types"
)

type joinRequest struct {
	Location   types.Location `json:"location"`
	Privileges []string       `json:"privileges"`
}

type moveRequest struct {
	Location types.Location `json:"location"`
}

type activityRequest struct {
	Activity types.Activity `json:"activity"`
}

type cancelResponse struct {
	Cancelled bool `json:"cancelled"`
}

type participantResponse struct {
	ID               string                  `json:"id"`
	Tier             string                  `json:"tier"`
	TeleportCount    int64                   `json:"teleport_count"`
	TotalSpent       string                  `json:"total_spent"`
	LastTeleportAt   *int64                  `json:"last_teleport_at,omitempty"`
	CooldownSeconds  int64                   `json:"cooldown_seconds"`
	RemainingSeconds int64                   `json:"remaining_seconds"`
	Cost             string                  `json:"cost"`
	Balance          string                  `json:"balance"`
	PendingTeleport  *services.RequestStatus `json:"pending_teleport,omitempty"`
}

func (s *Server) join(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, types.BadRequest, "invalid request body")
		return
	}
	if req.Location.World == "" {
		writeError(w, http.StatusBadRequest, types.BadRequest, "location.world is required")
		return
	}

	id := chi.URLParam(r, "participantID")
	s.roster.Join(id, req.Location)
	if len(req.Privileges) > 0 {
		s.roster.Grant(id, req.Privileges...)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) quit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "participantID")
	s.roster.Quit(id)
	cancelled := s.svc.HandleActivity(r.Context(), id, types.ActivityDisconnect)
	writeJSON(w, http.StatusOK, cancelResponse{Cancelled: cancelled})
}

func (s *Server) move(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, types.BadRequest, "invalid request body")
		return
	}

	id := chi.URLParam(r, "participantID")
	prev, err := s.roster.SetPosition(id, req.Location)
	if err != nil {
		if errors.Is(err, host.ErrUnknownParticipant) {
			writeError(w, http.StatusNotFound, types.NotFound, err.Error())
			return
		}
		writeServiceError(w, r, err)
		return
	}

	cancelled := s.svc.HandleMove(r.Context(), id, prev, req.Location)
	writeJSON(w, http.StatusOK, cancelResponse{Cancelled: cancelled})
}

func (s *Server) activity(w http.ResponseWriter, r *http.Request) {
	var req activityRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, types.BadRequest, "invalid request body")
		return
	}
	if !req.Activity.IsValid() {
		writeError(w, http.StatusBadRequest, types.BadRequest, "unknown activity")
		return
	}

	id := chi.URLParam(r, "participantID")
	switch req.Activity {
	case types.ActivityDeath:
		if err := s.roster.SetAlive(id, false); err != nil {
			writeError(w, http.StatusNotFound, types.NotFound, err.Error())
			return
		}
	case types.ActivityDisconnect:
		s.roster.Quit(id)
	}

	cancelled := s.svc.HandleActivity(r.Context(), id, req.Activity)
	writeJSON(w, http.StatusOK, cancelResponse{Cancelled: cancelled})
}

func (s *Server) participantInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.svc.ParticipantInfo(r.Context(), chi.URLParam(r, "participantID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := participantResponse{
		ID:               info.Record.ID,
		Tier:             info.Tier.String(),
		TeleportCount:    info.Record.TeleportCount,
		TotalSpent:       info.Record.TotalSpent.String(),
		CooldownSeconds:  cooldown.Seconds(info.Cooldown),
		RemainingSeconds: cooldown.Seconds(info.RemainingCooldown),
		Cost:             info.Cost.String(),
		Balance:          info.Balance.String(),
		PendingTeleport:  info.Pending,
	}
	if info.Record.HasTeleported() {
		ms := info.Record.LastTeleportAt.UnixMilli()
		resp.LastTeleportAt = &ms
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) resetCooldown(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.ResetCooldown(r.Context(), chi.URLParam(r, "participantID")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
