package services

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/rtpcraft/randomtp/internal/types"
)

// CancelRequest stops the pending teleport of participantID. It returns false
// when there is nothing to cancel or the request is already relocating.
func (s *Service) CancelRequest(ctx context.Context, participantID string, refundEligible bool) bool {
	req := s.lookup(participantID)
	if req == nil {
		return false
	}
	return s.cancel(ctx, req, types.CauseManual, refundEligible)
}

// HandleMove cancels a pending teleport when the participant changed block.
// Turning the head or moving within the block does not count.
func (s *Service) HandleMove(ctx context.Context, participantID string, from, to types.Location) bool {
	if from.SameBlock(to) {
		return false
	}
	return s.HandleActivity(ctx, participantID, types.ActivityMove)
}

// HandleActivity cancels a pending teleport for the activities that interrupt
// it: movement, death, external teleports and disconnects.
func (s *Service) HandleActivity(ctx context.Context, participantID string, activity types.Activity) bool {
	cause, ok := types.CauseFor(activity)
	if !ok {
		return false
	}

	req := s.lookup(participantID)
	if req == nil {
		return false
	}
	return s.cancel(ctx, req, cause, s.refundEligible(cause))
}

// RequestStatus returns the pending request of participantID.
func (s *Service) RequestStatus(participantID string) (RequestStatus, bool) {
	req := s.lookup(participantID)
	if req == nil {
		return RequestStatus{}, false
	}
	return req.status(), true
}

func (s *Service) lookup(participantID string) *teleportRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[participantID]
}

func (s *Service) refundEligible(cause types.CancelCause) bool {
	refund := s.cfg.Economy.Refund
	if !refund.Enabled {
		return false
	}

	switch cause {
	case types.CauseMove:
		return refund.OnMove
	case types.CauseDeath:
		return refund.OnDeath
	case types.CauseTeleport:
		return refund.OnTeleport
	case types.CauseDisconnect:
		return refund.OnDisconnect
	case types.CauseShutdown:
		return true
	default:
		return false
	}
}

// cancel moves a counting or searching request to Cancelled. Requests in any
// other phase are left alone.
func (s *Service) cancel(ctx context.Context, req *teleportRequest, cause types.CancelCause, refund bool) bool {
	req.mu.Lock()
	if req.phase != types.PhaseCounting && req.phase != types.PhaseSearching {
		req.mu.Unlock()
		return false
	}
	req.phase = types.PhaseCancelled
	cost := req.reservedCost
	receipt := req.receipt
	stopSearch := req.stopSearch
	req.mu.Unlock()

	// outside the request lock
	s.sequencer.Cancel(req.participantID)
	if stopSearch != nil {
		stopSearch()
	}

	log.Ctx(ctx).Info().
		Str("participant_id", req.participantID).
		Str("request_id", req.id).
		Str("cause", cause.String()).
		Bool("refund", refund).
		Msg("Teleport request cancelled")

	s.feedback.PlayCancel(ctx, req.participantID, cause)
	if cause != types.CauseDisconnect && cause != types.CauseShutdown {
		s.feedback.Notify(ctx, req.participantID, "Teleport cancelled.")
	}

	refunded := refund && s.refund(ctx, req.participantID, receipt)
	charged := cost
	if refunded {
		charged = decimal.Zero
	}

	s.settle(ctx, req, types.PhaseCancelled, Result{
		Err:      types.NewErrorWithMsg(http.StatusConflict, types.Cancelled, "teleport cancelled: %s", cause),
		Cause:    cause,
		Charged:  charged,
		Refunded: refunded,
	})
	return true
}
