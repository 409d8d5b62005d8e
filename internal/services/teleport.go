package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/panics"

	"github.com/rtpcraft/randomtp/internal/cooldown"
	"github.com/rtpcraft/randomtp/internal/countdown"
	"github.com/rtpcraft/randomtp/internal/economy"
	"github.com/rtpcraft/randomtp/internal/locator"
	"github.com/rtpcraft/randomtp/internal/observability/metrics"
	"github.com/rtpcraft/randomtp/internal/types"
)

const rejectedOutcome = "REJECTED"

// RequestTeleport checks cooldown and funds, reserves the cost and starts the
// countdown. The returned ticket completes once the request is settled.
func (s *Service) RequestTeleport(ctx context.Context, participantID string, opts RequestOptions) (*Ticket, error) {
	log := log.Ctx(ctx).With().Str("participant_id", participantID).Logger()

	req, err := s.reserveSlot(participantID, opts)
	if err != nil {
		return nil, err
	}

	receipt, err := s.admit(ctx, req)
	if err != nil {
		s.release(req)
		var typedErr *types.Error
		code := types.InternalServiceError
		if errors.As(err, &typedErr) {
			code = typedErr.ErrorCode
		}
		metrics.RecordTeleportOutcome(rejectedOutcome, string(code))
		log.Debug().Err(err).Str("code", string(code)).Msg("Teleport request rejected")
		return nil, err
	}

	req.mu.Lock()
	if req.phase != types.PhaseFundsCheck {
		req.mu.Unlock()
		// nothing but this goroutine touches the request before counting
		return nil, types.NewInternalServiceError(errors.New("request left funds check unexpectedly"))
	}
	req.phase = types.PhaseCounting
	req.reservedCost = receipt.Amount
	req.receipt = receipt
	req.mu.Unlock()

	// the caller's context ends with its call, the request outlives it
	bg := context.WithoutCancel(ctx)

	ticks := s.cfg.Teleport.CountdownTicks
	if ticks > 0 {
		s.feedback.Notify(bg, participantID, fmt.Sprintf("Teleporting in %d seconds, do not move.",
			cooldown.Seconds(time.Duration(ticks)*s.cfg.Teleport.TickInterval)))
	}

	// the countdown only starts while the request is still counting, so a
	// cancel either prevents it or finds it running
	req.mu.Lock()
	if req.phase != types.PhaseCounting {
		req.mu.Unlock()
		log.Debug().Str("request_id", req.id).Msg("Teleport request settled before its countdown started")
		return &Ticket{req: req}, nil
	}
	err = s.sequencer.Start(participantID, countdown.Sequence{
		Ticks:    ticks,
		Interval: s.cfg.Teleport.TickInterval,
		OnTick: func(remaining int) {
			s.feedback.PlayTick(bg, participantID, remaining)
		},
		Check: func() (types.CancelCause, bool) {
			return s.checkParticipant(participantID)
		},
		OnComplete: func() {
			s.beginSearch(bg, req)
		},
		OnAbort: func(cause types.CancelCause) {
			s.cancel(bg, req, cause, s.refundEligible(cause))
		},
	})
	req.mu.Unlock()
	if err != nil {
		s.fail(bg, req, types.NewInternalServiceError(fmt.Errorf("failed to start countdown: %w", err)), true)
		return nil, types.NewInternalServiceError(err)
	}

	log.Info().
		Str("request_id", req.id).
		Stringer("cost", receipt.Amount).
		Str("provider", receipt.Provider).
		Msg("Teleport request accepted")

	return &Ticket{req: req}, nil
}

// reserveSlot registers a new request for participantID, failing when one is
// already pending.
func (s *Service) reserveSlot(participantID string, opts RequestOptions) (*teleportRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, types.NewErrorWithMsg(http.StatusServiceUnavailable, types.InternalServiceError, "service is shutting down")
	}

	if _, ok := s.requests[participantID]; ok {
		metrics.RecordTeleportOutcome(rejectedOutcome, string(types.AlreadyPending))
		return nil, types.NewErrorWithMsg(http.StatusConflict, types.AlreadyPending,
			"participant %s already has a pending teleport", participantID)
	}

	req := &teleportRequest{
		id:            uuid.NewString(),
		participantID: participantID,
		opts:          opts,
		startedAt:     s.clock.Now(),
		done:          make(chan struct{}),
		phase:         types.PhaseCooldownCheck,
		reservedCost:  decimal.Zero,
	}
	s.requests[participantID] = req
	metrics.IncActiveRequests()
	return req, nil
}

// admit runs the cooldown and funds checks and debits the cost. The receipt
// names what was taken and from which provider.
func (s *Service) admit(ctx context.Context, req *teleportRequest) (economy.Receipt, error) {
	id := req.participantID

	if !req.opts.BypassCooldown {
		record, err := s.store.Get(ctx, id)
		if err != nil {
			return economy.Receipt{}, types.NewInternalServiceError(fmt.Errorf("failed to load participant: %w", err))
		}

		remaining := cooldown.Remaining(s.policy.CooldownFor(id), record.LastTeleportAt, s.clock.Now())
		if remaining > 0 {
			cdErr := &CooldownError{Remaining: remaining}
			s.feedback.Notify(ctx, id, fmt.Sprintf("You must wait %d seconds before teleporting again.", cdErr.Seconds()))
			return economy.Receipt{}, types.NewError(http.StatusTooManyRequests, types.OnCooldown, cdErr)
		}
	}

	req.advance(types.PhaseCooldownCheck, types.PhaseFundsCheck)

	if req.opts.Free || !s.economy.Enabled() {
		return economy.Receipt{}, nil
	}

	cost := s.policy.CostFor(id)
	if !cost.IsPositive() {
		return economy.Receipt{}, nil
	}

	if !s.economy.HasFunds(ctx, id, cost) {
		s.feedback.Notify(ctx, id, fmt.Sprintf("You need %s to teleport.", s.economy.Format(cost)))
		return economy.Receipt{}, types.NewError(http.StatusPaymentRequired, types.InsufficientFunds, &FundsError{Cost: cost})
	}

	receipt, ok := s.economy.Charge(ctx, id, cost)
	if !ok {
		s.feedback.Notify(ctx, id, "The payment for your teleport failed.")
		return economy.Receipt{}, types.NewErrorWithMsg(http.StatusBadGateway, types.TransactionFailed,
			"failed to charge %s", s.economy.Format(cost))
	}

	return receipt, nil
}

func (s *Service) checkParticipant(participantID string) (types.CancelCause, bool) {
	if !s.host.IsOnline(participantID) {
		return types.CauseDisconnect, false
	}
	if !s.host.IsAlive(participantID) {
		return types.CauseDeath, false
	}
	return "", true
}

func (s *Service) beginSearch(ctx context.Context, req *teleportRequest) {
	log := log.Ctx(ctx).With().Str("participant_id", req.participantID).Str("request_id", req.id).Logger()

	origin, ok := s.host.Position(req.participantID)
	if !ok {
		s.cancel(ctx, req, types.CauseDisconnect, s.refundEligible(types.CauseDisconnect))
		return
	}

	world, ok := s.worlds[origin.World]
	if !ok {
		s.fail(ctx, req, types.NewErrorWithMsg(http.StatusUnprocessableEntity, types.NoSafeLocation,
			"unknown world %q", origin.World), true)
		return
	}

	searchCtx, stop := context.WithCancel(ctx)

	req.mu.Lock()
	if req.phase != types.PhaseCounting {
		req.mu.Unlock()
		stop()
		return
	}
	req.phase = types.PhaseSearching
	req.stopSearch = stop
	req.mu.Unlock()

	safety := s.cfg.Safety
	query := locator.Query{
		World:           world,
		Origin:          origin,
		Radius:          s.cfg.Teleport.Range,
		MinY:            safety.MinY,
		MaxY:            safety.MaxY,
		Strict:          safety.Strict,
		AvoidWater:      safety.AvoidWater,
		AvoidLava:       safety.AvoidLava,
		HazardRadius:    safety.HazardRadius,
		MaxTries:        safety.MaxTries,
		RelaxedAttempts: safety.RelaxedAttempts,
		FallbackRadius:  safety.FallbackRadius,
	}

	log.Debug().Stringer("origin", origin).Msg("Searching safe location")

	s.background.Go(func() {
		defer stop()

		var (
			result locator.Result
			err    error
			pc     panics.Catcher
		)
		startTime := time.Now()
		pc.Try(func() {
			result, err = s.finder.Find(searchCtx, query)
		})
		if recovered := pc.Recovered(); recovered != nil {
			log.Error().Str("panic", recovered.String()).Msg("Location search panicked")
			s.fail(ctx, req, types.NewInternalServiceError(recovered.AsError()), true)
			return
		}

		metrics.RecordSearch(time.Since(startTime), string(result.Phase), result.Attempts, err != nil)
		s.finishSearch(ctx, req, result, err)
	})
}

func (s *Service) finishSearch(ctx context.Context, req *teleportRequest, result locator.Result, searchErr error) {
	log := log.Ctx(ctx).With().Str("participant_id", req.participantID).Str("request_id", req.id).Logger()

	req.mu.Lock()
	phase := req.phase
	req.mu.Unlock()
	if phase != types.PhaseSearching {
		log.Debug().Stringer("phase", phase).Msg("Discarding search result of settled request")
		return
	}

	if searchErr != nil {
		log.Warn().Err(searchErr).Int("attempts", result.Attempts).Msg("No safe location found")
		s.feedback.Notify(ctx, req.participantID, "Could not find a safe location, please try again.")
		s.fail(ctx, req, types.NewError(http.StatusUnprocessableEntity, types.NoSafeLocation, searchErr), true)
		return
	}

	if cause, ok := s.checkParticipant(req.participantID); !ok {
		s.cancel(ctx, req, cause, s.refundEligible(cause))
		return
	}

	if !req.advance(types.PhaseSearching, types.PhaseRelocating) {
		return
	}

	// fallback locations skip the hazard scan
	if result.Phase == locator.PhaseFallback {
		log.Warn().Stringer("destination", result.Location).Msg("Using fallback location without hazard check")
	}

	log.Debug().
		Stringer("destination", result.Location).
		Str("search_phase", string(result.Phase)).
		Int("attempts", result.Attempts).
		Msg("Safe location found")

	s.relocate(ctx, req, result.Location)
}

func (s *Service) relocate(ctx context.Context, req *teleportRequest, dest types.Location) {
	log := log.Ctx(ctx).With().Str("participant_id", req.participantID).Str("request_id", req.id).Logger()
	id := req.participantID

	if err := s.host.Relocate(ctx, id, dest); err != nil {
		log.Error().Err(err).Msg("Failed to relocate participant")
		s.fail(ctx, req, types.NewError(http.StatusInternalServerError, types.RelocationFailed, err), true)
		return
	}

	if s.cfg.Teleport.BuffDuration > 0 && s.cfg.Teleport.BuffLevel > 0 {
		s.host.GrantResistance(id, s.cfg.Teleport.BuffDuration, s.cfg.Teleport.BuffLevel)
	}

	req.mu.Lock()
	cost := req.reservedCost
	req.mu.Unlock()

	now := s.clock.Now()
	err := s.store.Update(ctx, id, func(r *types.ParticipantRecord) {
		r.LastTeleportAt = now
		r.TeleportCount++
		r.TotalSpent = r.TotalSpent.Add(cost)
	})
	if err != nil {
		// the participant already moved, the record is best effort
		log.Error().Err(err).Msg("Failed to update participant record")
	}

	s.background.Go(func() {
		if err := s.store.Persist(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to persist participant records")
		}
	})

	s.feedback.PlayArrival(ctx, id, dest)
	message := fmt.Sprintf("Teleported to %d, %d, %d.", dest.Block().X, dest.Block().Y, dest.Block().Z)
	if cost.IsPositive() {
		message += fmt.Sprintf(" Charged %s.", s.economy.Format(cost))
	}
	s.feedback.Notify(ctx, id, message)

	s.settle(ctx, req, types.PhaseCompleted, Result{
		Destination: &dest,
		Charged:     cost,
	})
}

// fail ends a request with err, giving the reserved cost back when refund is set.
func (s *Service) fail(ctx context.Context, req *teleportRequest, err *types.Error, refund bool) {
	req.mu.Lock()
	if req.phase.IsTerminal() {
		req.mu.Unlock()
		return
	}
	req.phase = types.PhaseFailed
	cost := req.reservedCost
	receipt := req.receipt
	req.mu.Unlock()

	refunded := refund && s.refund(ctx, req.participantID, receipt)
	charged := cost
	if refunded {
		charged = decimal.Zero
	}

	s.settle(ctx, req, types.PhaseFailed, Result{
		Err:      err,
		Charged:  charged,
		Refunded: refunded,
	})
}

// refund gives the charge back to the provider that took it.
func (s *Service) refund(ctx context.Context, participantID string, receipt economy.Receipt) bool {
	if !receipt.Amount.IsPositive() {
		return false
	}

	if !s.economy.Refund(ctx, participantID, receipt) {
		log.Ctx(ctx).Error().
			Str("participant_id", participantID).
			Str("provider", receipt.Provider).
			Stringer("cost", receipt.Amount).
			Msg("Failed to refund teleport cost")
		return false
	}

	s.feedback.Notify(ctx, participantID, fmt.Sprintf("Refunded %s.", s.economy.Format(receipt.Amount)))
	return true
}

// settle stores the final result, frees the participant slot and publishes
// the outcome. The request phase must already be terminal.
func (s *Service) settle(ctx context.Context, req *teleportRequest, phase types.Phase, result Result) {
	result.RequestID = req.id
	result.Phase = phase

	req.mu.Lock()
	req.phase = phase
	req.result = result
	req.mu.Unlock()

	s.release(req)

	var code types.ErrorCode
	var typedErr *types.Error
	if errors.As(result.Err, &typedErr) {
		code = typedErr.ErrorCode
	}
	metrics.RecordTeleportOutcome(phase.String(), string(code))

	ev := types.TeleportEvent{
		Version:       types.TeleportEventVersion,
		RequestID:     req.id,
		ParticipantID: req.participantID,
		Outcome:       phase,
		ErrorCode:     code,
		Cause:         result.Cause,
		Cost:          result.Charged.String(),
		Refunded:      result.Refunded,
		Destination:   result.Destination,
		Timestamp:     s.clock.Now(),
	}
	if err := s.publisher.PublishTeleportEvent(ctx, ev); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("request_id", req.id).Msg("Failed to publish teleport event")
	}

	log.Ctx(ctx).Info().
		Str("participant_id", req.participantID).
		Str("request_id", req.id).
		Stringer("phase", phase).
		Str("code", string(code)).
		Msg("Teleport request settled")

	close(req.done)
}

// release frees the participant slot held by req.
func (s *Service) release(req *teleportRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.requests[req.participantID] == req {
		delete(s.requests, req.participantID)
		metrics.DecActiveRequests()
	}
}
