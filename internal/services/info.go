package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/rtpcraft/randomtp/internal/cooldown"
	"github.com/rtpcraft/randomtp/internal/economy"
	"github.com/rtpcraft/randomtp/internal/types"
)

type ParticipantInfo struct {
	Record            types.ParticipantRecord
	Tier              cooldown.Tier
	Cooldown          time.Duration
	RemainingCooldown time.Duration
	Cost              decimal.Decimal
	Balance           decimal.Decimal
	// Pending is nil without an active request.
	Pending *RequestStatus
}

// ParticipantInfo gathers everything known about a participant's teleports.
func (s *Service) ParticipantInfo(ctx context.Context, participantID string) (*ParticipantInfo, error) {
	record, err := s.store.Get(ctx, participantID)
	if err != nil {
		return nil, types.NewInternalServiceError(fmt.Errorf("failed to load participant: %w", err))
	}

	cd := s.policy.CooldownFor(participantID)
	info := &ParticipantInfo{
		Record:            record,
		Tier:              s.policy.Resolve(participantID),
		Cooldown:          cd,
		RemainingCooldown: cooldown.Remaining(cd, record.LastTeleportAt, s.clock.Now()),
		Cost:              s.policy.CostFor(participantID),
		Balance:           s.economy.Balance(ctx, participantID),
	}
	if status, ok := s.RequestStatus(participantID); ok {
		info.Pending = &status
	}
	return info, nil
}

// ResetCooldown lets the participant teleport again right away.
func (s *Service) ResetCooldown(ctx context.Context, participantID string) error {
	err := s.store.Update(ctx, participantID, func(r *types.ParticipantRecord) {
		r.LastTeleportAt = time.Time{}
	})
	if err != nil {
		return types.NewInternalServiceError(fmt.Errorf("failed to reset cooldown: %w", err))
	}

	log.Ctx(ctx).Info().Str("participant_id", participantID).Msg("Cooldown reset")
	return nil
}

type EconomyStatus struct {
	Enabled        bool                     `json:"enabled"`
	ActiveProvider string                   `json:"active_provider,omitempty"`
	CurrencyName   string                   `json:"currency_name"`
	TierCosts      map[string]string        `json:"tier_costs"`
	Providers      []economy.ProviderStatus `json:"providers"`
}

func (s *Service) EconomyStatus(ctx context.Context) EconomyStatus {
	status := EconomyStatus{
		Enabled:      s.economy.Enabled(),
		CurrencyName: s.economy.CurrencyName(),
		TierCosts:    make(map[string]string, len(cooldown.Tiers())),
		Providers:    s.economy.Providers(ctx),
	}
	if desc, ok := s.economy.Active(); ok {
		status.ActiveProvider = desc.Name
	}
	for _, tier := range cooldown.Tiers() {
		status.TierCosts[tier.String()] = s.economy.Format(s.policy.Cost(tier))
	}
	return status
}

// SwitchProvider forces the economy onto the named provider.
func (s *Service) SwitchProvider(ctx context.Context, name string) error {
	if err := s.economy.Switch(ctx, name); err != nil {
		return types.NewError(http.StatusBadRequest, types.BadRequest, err)
	}
	return nil
}
