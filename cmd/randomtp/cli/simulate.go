package cli

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rtpcraft/randomtp/internal/config"
	"github.com/rtpcraft/randomtp/internal/observability/tracing"
	"github.com/rtpcraft/randomtp/internal/services"
	"github.com/rtpcraft/randomtp/internal/types"
)

// SimulateCmd runs a batch of teleports against in-memory participants, which
// is handy to tune the safety settings against the configured terrain.
// Usage: ./randomtp simulate --participants 20 --config config.yml
func SimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Teleport simulated participants and report the outcomes",
		Args:  cobra.ExactArgs(0),
		RunE:  simulate,
	}

	cmd.Flags().Int("participants", 10, "Number of simulated participants")
	cmd.Flags().Bool("countdown", false, "Run the configured countdown instead of teleporting right away")
	cmd.Flags().Int64("seed", 0, "Seed for participant fixtures, 0 picks a random one")

	return cmd
}

func simulate(cmd *cobra.Command, _ []string) error {
	ctx := tracing.InjectTraceID(cmd.Context())
	log := log.Ctx(ctx)

	count, err := cmd.Flags().GetInt("participants")
	if err != nil {
		return err
	}
	if count <= 0 {
		return fmt.Errorf("participants must be positive, got %d", count)
	}
	withCountdown, err := cmd.Flags().GetBool("countdown")
	if err != nil {
		return err
	}
	seed, err := cmd.Flags().GetInt64("seed")
	if err != nil {
		return err
	}

	cfg, err := config.New(GetConfigPath())
	if err != nil {
		return err
	}
	// nothing of a simulation leaves the process
	cfg.Store.Backend = config.StoreBackendMemory
	cfg.Queue = nil
	if !withCountdown {
		cfg.Teleport.CountdownTicks = 0
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	a.start(ctx)
	defer func() {
		if err := a.stop(context.WithoutCancel(ctx)); err != nil {
			log.Error().Err(err).Msg("Failed to stop simulation cleanly")
		}
	}()

	if seed == 0 {
		seed = rand.Int64()
	}
	faker := gofakeit.New(uint64(seed))
	privileges := []string{"", cfg.Tiers.VIP.Privilege, cfg.Tiers.VIPPlus.Privilege, cfg.Tiers.ExemptPrivilege}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		outcomes = make(map[string]int)
	)
	record := func(outcome string) {
		mu.Lock()
		defer mu.Unlock()
		outcomes[outcome]++
	}

	for range count {
		id := uuid.NewString()
		name := faker.Username()
		spawn := types.Location{
			World: cfg.World.Name,
			X:     float64(faker.IntRange(-500, 500)) + 0.5,
			Y:     100,
			Z:     float64(faker.IntRange(-500, 500)) + 0.5,
		}
		a.roster.Join(id, spawn)
		if priv := privileges[faker.IntRange(0, len(privileges)-1)]; priv != "" {
			a.roster.Grant(id, priv)
		}
		if a.memory != nil {
			a.memory.SetBalance(id, decimal.NewFromInt(int64(faker.IntRange(0, 300))))
		}

		ticket, err := a.service.RequestTeleport(ctx, id, services.RequestOptions{})
		if err != nil {
			log.Info().Str("participant", name).Err(err).Msg("Teleport rejected")
			record("REJECTED")
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case <-ticket.Done():
			case <-ctx.Done():
				return
			}

			result := ticket.Result()
			record(result.Phase.String())
			event := log.Info().
				Str("participant", name).
				Stringer("phase", result.Phase).
				Stringer("charged", result.Charged).
				Stringer("from", spawn)
			if result.Destination != nil {
				event = event.Stringer("to", result.Destination)
			}
			if result.Err != nil {
				event = event.Err(result.Err)
			}
			event.Msg("Teleport settled")
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	timeout := time.Duration(cfg.Teleport.CountdownTicks+5) * cfg.Teleport.TickInterval * 10
	select {
	case <-done:
	case <-time.After(timeout):
		return fmt.Errorf("simulation did not finish within %s", timeout)
	}

	summary := log.Info().Int("participants", count)
	for outcome, n := range outcomes {
		summary = summary.Int(outcome, n)
	}
	summary.Msg("Simulation finished")
	return nil
}
