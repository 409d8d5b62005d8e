package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/rtpcraft/randomtp/internal/clients/walletclient"
	"github.com/rtpcraft/randomtp/internal/config"
	"github.com/rtpcraft/randomtp/internal/cooldown"
	"github.com/rtpcraft/randomtp/internal/countdown"
	"github.com/rtpcraft/randomtp/internal/db"
	dbmodel "github.com/rtpcraft/randomtp/internal/db/model"
	"github.com/rtpcraft/randomtp/internal/economy"
	"github.com/rtpcraft/randomtp/internal/economy/ledger"
	"github.com/rtpcraft/randomtp/internal/host"
	"github.com/rtpcraft/randomtp/internal/locator"
	"github.com/rtpcraft/randomtp/internal/participants"
	"github.com/rtpcraft/randomtp/internal/queue"
	"github.com/rtpcraft/randomtp/internal/services"
	"github.com/rtpcraft/randomtp/internal/world"
)

// app holds every long lived component of a running service.
type app struct {
	cfg     *config.Config
	roster  *host.Roster
	gateway *economy.Gateway
	store   *participants.Store
	qm      *queue.QueueManager
	service *services.Service
	memory  *economy.MemoryProvider

	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	log := log.Ctx(ctx)
	a := &app{cfg: cfg}

	database, err := a.newDatabase(ctx)
	if err != nil {
		return nil, err
	}

	gateway, err := a.newGateway(ctx)
	if err != nil {
		a.close()
		return nil, err
	}
	a.gateway = gateway

	qm, err := queue.NewQueueManager(cfg.Queue)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("error while creating queue manager: %w", err)
	}
	a.qm = qm
	if !qm.Enabled() {
		log.Info().Msg("No queue configured, teleport events are not published")
	}

	clock := clockwork.NewRealClock()
	a.roster = host.NewRoster(clock)
	a.store = participants.NewStore(database, &cfg.Store, clock)

	finder := locator.NewFinder(locator.NewClassifier(cfg.Safety.DangerousMaterials...).WithPassable(cfg.Safety.PassableMaterials...), nil)

	a.service = services.NewService(
		cfg,
		a.store,
		gateway,
		finder,
		cooldown.NewPolicy(&cfg.Tiers, a.roster),
		countdown.NewSequencer(clock),
		a.roster,
		host.NewLogFeedback(),
		qm,
		[]locator.World{world.NewTerrain(&cfg.World)},
		clock,
	)

	return a, nil
}

func (a *app) newDatabase(ctx context.Context) (db.DbInterface, error) {
	cfg := a.cfg
	if cfg.Store.Backend == config.StoreBackendMemory {
		log.Ctx(ctx).Warn().Msg("Participant records are kept in memory only")
		return db.NewDbWithMetrics(db.NewMemoryDatabase()), nil
	}

	if err := dbmodel.Setup(ctx, &cfg.Db); err != nil {
		return nil, fmt.Errorf("error while setting up participant db model: %w", err)
	}

	database, err := db.New(ctx, cfg.Db)
	if err != nil {
		return nil, fmt.Errorf("error while creating db client: %w", err)
	}
	a.closers = append(a.closers, func() error {
		return database.Disconnect(context.Background())
	})
	return db.NewDbWithMetrics(database), nil
}

// newGateway registers every configured economy provider. A disabled economy
// yields a gateway without providers, so every charge is a no-op.
func (a *app) newGateway(ctx context.Context) (*economy.Gateway, error) {
	econ := a.cfg.Economy

	formatter, err := economy.NewFormatter(econ.Locale, econ.CurrencySymbol, econ.CurrencyName)
	if err != nil {
		return nil, err
	}
	gateway := economy.NewGateway(a.cfg.Poller.ProviderCheckInterval, formatter)

	if !econ.Enabled {
		log.Ctx(ctx).Info().Msg("Economy disabled, teleports are free")
		return gateway, nil
	}

	providers := econ.Providers
	if providers.Memory != nil {
		a.memory = economy.NewMemoryProvider("memory", providers.Memory.Priority,
			decimal.NewFromFloat(providers.Memory.StartingBalance))
		if err := gateway.Register(a.memory); err != nil {
			return nil, err
		}
	}

	if providers.Ledger != nil {
		ledgerProvider, err := ledger.Open(providers.Ledger)
		if err != nil {
			return nil, fmt.Errorf("error while opening ledger: %w", err)
		}
		a.closers = append(a.closers, ledgerProvider.Close)
		if err := gateway.Register(ledgerProvider); err != nil {
			return nil, err
		}
	}

	if providers.Wallet != nil {
		client := walletclient.NewClient(providers.Wallet)
		if err := gateway.Register(economy.NewWalletProvider(client, providers.Wallet.Priority)); err != nil {
			return nil, err
		}
	}

	return gateway, nil
}

func (a *app) start(ctx context.Context) {
	a.gateway.Start(ctx)
	a.store.StartFlusher(ctx, a.cfg.Poller.StoreFlushInterval)
}

// stop shuts the service down and releases every resource, returning the
// first error met.
func (a *app) stop(ctx context.Context) error {
	err := a.service.Shutdown(ctx)
	a.store.StopFlusher()
	a.gateway.Stop()
	a.qm.Shutdown()
	return errors.Join(err, a.close())
}

func (a *app) close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}
