package api

import (
	"net/http"

	"github.com/rtpcraft/randomtp/internal/types"
)

type switchRequest struct {
	Provider string `json:"provider"`
}

func (s *Server) economyStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.EconomyStatus(r.Context()))
}

func (s *Server) switchProvider(w http.ResponseWriter, r *http.Request) {
	var req switchRequest
	if err := decodeBody(r, &req); err != nil || req.Provider == "" {
		writeError(w, http.StatusBadRequest, types.BadRequest, "provider is required")
		return
	}

	if err := s.svc.SwitchProvider(r.Context(), req.Provider); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.EconomyStatus(r.Context()))
}
