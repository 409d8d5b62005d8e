package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/rtpcraft/randomtp/internal/config"
	"github.com/rtpcraft/randomtp/internal/observability/metrics"
	"github.com/rtpcraft/randomtp/internal/types"
)

type QueueManager struct {
	cfg *config.QueueConfig

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewQueueManager connects to the broker and declares the outcome queue.
// A nil config returns a manager that drops every event.
func NewQueueManager(cfg *config.QueueConfig) (*QueueManager, error) {
	qm := &QueueManager{cfg: cfg}
	if cfg == nil {
		return qm, nil
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to queue: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open queue channel: %w", err)
	}

	_, err = channel.QueueDeclare(cfg.QueueName, true, false, false, false, nil)
	if err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", cfg.QueueName, err)
	}

	qm.conn = conn
	qm.channel = channel
	return qm, nil
}

func (qm *QueueManager) Enabled() bool {
	return qm.channel != nil
}

// PublishTeleportEvent sends ev as a persistent JSON message.
func (qm *QueueManager) PublishTeleportEvent(ctx context.Context, ev types.TeleportEvent) error {
	if !qm.Enabled() {
		return nil
	}

	msg, err := newPublishing(ev)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, qm.cfg.PublishTimeout)
	defer cancel()

	qm.mu.Lock()
	defer qm.mu.Unlock()

	err = qm.channel.PublishWithContext(ctx, "", qm.cfg.QueueName, false, false, msg)
	if err != nil {
		metrics.RecordQueueSendError()
		return fmt.Errorf("failed to publish teleport event: %w", err)
	}

	log.Ctx(ctx).Debug().
		Str("request_id", ev.RequestID).
		Str("outcome", ev.Outcome.String()).
		Msg("Published teleport event")
	return nil
}

// Shutdown gracefully stops the interaction with the queue, ensuring all resources are properly released.
func (qm *QueueManager) Shutdown() {
	log.Info().Msg("Shutting down queue manager")

	qm.mu.Lock()
	defer qm.mu.Unlock()

	if qm.channel != nil {
		if err := qm.channel.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close queue channel")
		}
		qm.channel = nil
	}
	if qm.conn != nil {
		if err := qm.conn.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close queue connection")
		}
		qm.conn = nil
	}
}

func newPublishing(ev types.TeleportEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to encode teleport event: %w", err)
	}

	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.RequestID,
		Timestamp:    ev.Timestamp,
		Type:         "teleport." + strings.ToLower(ev.Outcome.String()),
		Body:         body,
	}, nil
}
