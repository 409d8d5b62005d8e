//go:build e2e

package e2etest

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/rtpcraft/randomtp/e2etest/container"
	"github.com/rtpcraft/randomtp/internal/api"
	"github.com/rtpcraft/randomtp/internal/config"
	"github.com/rtpcraft/randomtp/internal/cooldown"
	"github.com/rtpcraft/randomtp/internal/countdown"
	"github.com/rtpcraft/randomtp/internal/db"
	"github.com/rtpcraft/randomtp/internal/db/model"
	"github.com/rtpcraft/randomtp/internal/economy"
	"github.com/rtpcraft/randomtp/internal/host"
	"github.com/rtpcraft/randomtp/internal/locator"
	"github.com/rtpcraft/randomtp/internal/participants"
	"github.com/rtpcraft/randomtp/internal/queue"
	"github.com/rtpcraft/randomtp/internal/services"
	"github.com/rtpcraft/randomtp/internal/world"
)

const (
	eventsQueueName = "teleport-events-e2e"
	startingBalance = 500
)

type TestManager struct {
	Config   *config.Config
	Server   *httptest.Server
	Db       *db.Database
	Wallet   *economy.MemoryProvider
	Service  *services.Service
	Events   <-chan amqp.Delivery
	manager  *container.Manager
	qm       *queue.QueueManager
	amqpConn *amqp.Connection
}

// StartManager starts mongo and rabbitmq and wires the whole service
// against them, exposing the http api through an httptest server.
func StartManager(t *testing.T) *TestManager {
	t.Helper()
	ctx := context.Background()

	manager, err := container.NewManager()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = manager.ClearResources()
	})

	mongoAddress, err := manager.RunMongoResource(t)
	require.NoError(t, err)
	amqpURL, err := manager.RunRabbitMQResource(t)
	require.NoError(t, err)

	cfg := defaultConfig(mongoAddress, amqpURL)

	var database *db.Database
	err = manager.Pool().Retry(func() error {
		if err := model.Setup(ctx, &cfg.Db); err != nil {
			return err
		}
		database, err = db.New(ctx, cfg.Db)
		if err != nil {
			return err
		}
		return database.Ping(ctx)
	})
	require.NoError(t, err)

	var qm *queue.QueueManager
	err = manager.Pool().Retry(func() error {
		qm, err = queue.NewQueueManager(cfg.Queue)
		return err
	})
	require.NoError(t, err)

	amqpConn, err := amqp.Dial(amqpURL)
	require.NoError(t, err)
	ch, err := amqpConn.Channel()
	require.NoError(t, err)
	events, err := ch.Consume(eventsQueueName, "e2e", true, false, false, false, nil)
	require.NoError(t, err)

	formatter, err := economy.NewFormatter(cfg.Economy.Locale, cfg.Economy.CurrencySymbol, cfg.Economy.CurrencyName)
	require.NoError(t, err)
	gateway := economy.NewGateway(cfg.Poller.ProviderCheckInterval, formatter)
	wallet := economy.NewMemoryProvider("memory", 1, decimal.NewFromInt(startingBalance))
	require.NoError(t, gateway.Register(wallet))
	gateway.Reselect(ctx)

	clock := clockwork.NewRealClock()
	roster := host.NewRoster(clock)
	store := participants.NewStore(db.NewDbWithMetrics(database), &cfg.Store, clock)

	svc := services.NewService(
		cfg,
		store,
		gateway,
		locator.NewFinder(locator.NewClassifier(cfg.Safety.DangerousMaterials...).WithPassable(cfg.Safety.PassableMaterials...), nil),
		cooldown.NewPolicy(&cfg.Tiers, roster),
		countdown.NewSequencer(clock),
		roster,
		host.NewLogFeedback(),
		qm,
		[]locator.World{world.NewTerrain(&cfg.World)},
		clock,
	)

	server := httptest.NewServer(api.New(&cfg.Server, svc, roster).Router())

	tm := &TestManager{
		Config:   cfg,
		Server:   server,
		Db:       database,
		Wallet:   wallet,
		Service:  svc,
		Events:   events,
		manager:  manager,
		qm:       qm,
		amqpConn: amqpConn,
	}
	t.Cleanup(tm.Stop)
	return tm
}

func (tm *TestManager) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tm.Server.Close()
	_ = tm.Service.Shutdown(ctx)
	tm.qm.Shutdown()
	_ = tm.amqpConn.Close()
	_ = tm.Db.Disconnect(ctx)
}

func defaultConfig(mongoAddress, amqpURL string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 8080, Timeout: 5 * time.Second},
		Db: config.DbConfig{
			Username: container.MongoUsername,
			Password: container.MongoPassword,
			DbName:   container.MongoDatabase,
			Address:  mongoAddress,
		},
		Store: config.StoreConfig{
			Backend:       config.StoreBackendMongo,
			MaxRetryTimes: 3,
			RetryInterval: 100 * time.Millisecond,
		},
		Poller: config.PollerConfig{
			ProviderCheckInterval: time.Minute,
			StoreFlushInterval:    time.Minute,
		},
		Teleport: config.TeleportConfig{Range: 500, CountdownTicks: 2, TickInterval: 100 * time.Millisecond},
		Safety: config.SafetyConfig{
			MinY: 1, MaxY: 250, MaxTries: 10, HazardRadius: 2, RelaxedAttempts: 5, FallbackRadius: 1000,
		},
		Tiers: config.TiersConfig{
			Base:            config.TierConfig{Privilege: "rtp.use", Cooldown: 300 * time.Second, Cost: 100},
			VIP:             config.TierConfig{Privilege: "rtp.vip", Cooldown: 180 * time.Second, Cost: 80},
			VIPPlus:         config.TierConfig{Privilege: "rtp.vipplus", Cooldown: 120 * time.Second, Cost: 50},
			ExemptPrivilege: "rtp.free",
		},
		Economy: config.EconomyConfig{
			Enabled:        true,
			Locale:         "en",
			CurrencySymbol: "$",
			CurrencyName:   "dollars",
			Refund:         config.RefundConfig{Enabled: true, OnMove: true, OnDeath: true, OnTeleport: true},
		},
		World: config.WorldConfig{Name: "world", Seed: 7, LoadedRadius: 4096, SeaLevel: 62},
		Queue: &config.QueueConfig{
			URL:            amqpURL,
			QueueName:      eventsQueueName,
			PublishTimeout: 5 * time.Second,
		},
	}
}
