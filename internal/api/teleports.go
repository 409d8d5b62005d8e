package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rtpcraft/randomtp/internal/services"
	"github.com/rtpcraft/randomtp/internal/types"
)

type teleportRequest struct {
	ParticipantID  string `json:"participant_id"`
	Free           bool   `json:"free"`
	BypassCooldown bool   `json:"bypass_cooldown"`
}

type teleportResponse struct {
	RequestID     string      `json:"request_id"`
	ParticipantID string      `json:"participant_id"`
	Phase         types.Phase `json:"phase"`
}

func (s *Server) requestTeleport(w http.ResponseWriter, r *http.Request) {
	var req teleportRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, types.BadRequest, "invalid request body")
		return
	}
	if req.ParticipantID == "" {
		writeError(w, http.StatusBadRequest, types.BadRequest, "participant_id is required")
		return
	}

	ticket, err := s.svc.RequestTeleport(r.Context(), req.ParticipantID, services.RequestOptions{
		Free:           req.Free,
		BypassCooldown: req.BypassCooldown,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, teleportResponse{
		RequestID:     ticket.RequestID(),
		ParticipantID: req.ParticipantID,
		Phase:         ticket.Result().Phase,
	})
}

func (s *Server) teleportStatus(w http.ResponseWriter, r *http.Request) {
	status, ok := s.svc.RequestStatus(chi.URLParam(r, "participantID"))
	if !ok {
		writeError(w, http.StatusNotFound, types.NotFound, "no pending teleport")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) cancelTeleport(w http.ResponseWriter, r *http.Request) {
	refund := false
	if v := r.URL.Query().Get("refund"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, types.BadRequest, "refund must be a boolean")
			return
		}
		refund = parsed
	}

	if !s.svc.CancelRequest(r.Context(), chi.URLParam(r, "participantID"), refund) {
		writeError(w, http.StatusNotFound, types.NotFound, "no cancellable teleport")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": true})
}
