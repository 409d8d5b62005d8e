package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/rtpcraft/randomtp/internal/services"
	"github.com/rtpcraft/randomtp/internal/types"
)

type errorResponse struct {
	Error            string          `json:"error"`
	Code             types.ErrorCode `json:"code"`
	RemainingSeconds int64           `json:"remaining_seconds,omitempty"`
	Cost             string          `json:"cost,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code types.ErrorCode, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

// writeServiceError maps err to its status and code. Untyped errors are
// reported as internal without leaking their message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var typedErr *types.Error
	if !errors.As(err, &typedErr) {
		log.Ctx(r.Context()).Error().Err(err).Msg("Unexpected service error")
		writeError(w, http.StatusInternalServerError, types.InternalServiceError, "internal error")
		return
	}

	resp := errorResponse{Error: typedErr.Error(), Code: typedErr.ErrorCode}
	if typedErr.Status >= http.StatusInternalServerError {
		log.Ctx(r.Context()).Error().Err(err).Msg("Service error")
		resp.Error = "internal error"
	}

	var cdErr *services.CooldownError
	if errors.As(err, &cdErr) {
		resp.RemainingSeconds = cdErr.Seconds()
	}
	var fundsErr *services.FundsError
	if errors.As(err, &fundsErr) {
		resp.Cost = fundsErr.Cost.String()
	}

	writeJSON(w, typedErr.Status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
