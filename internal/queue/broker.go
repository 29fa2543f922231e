package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/ternarybob/arbor"

	"github.com/greenarc/esgpipe/internal/common"
)

// Broker owns the AMQP connection and redials it when it drops. Channels are
// created per publisher/consumer; the connection is shared.
type Broker struct {
	cfg    common.BrokerConfig
	logger arbor.ILogger

	mu     sync.Mutex
	conn   *amqp.Connection
	closed bool
}

// Connect dials the broker and declares the pipeline topology.
func Connect(ctx context.Context, cfg common.BrokerConfig, logger arbor.ILogger) (*Broker, error) {
	b := &Broker{cfg: cfg, logger: logger}

	err := common.Retry(ctx, common.DefaultRetryPolicy(), func(ctx context.Context) error {
		return b.dial()
	})
	if err != nil {
		return nil, common.PermanentSystem(fmt.Errorf("broker unreachable at %s:%d: %w", cfg.Host, cfg.Port, err))
	}

	if err := b.DeclareTopology(); err != nil {
		b.Close()
		return nil, err
	}

	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Dur("heartbeat", cfg.Heartbeat).
		Msg("Connected to message broker")

	return b, nil
}

func (b *Broker) dial() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dialLocked()
}

// dialLocked replaces the connection. Callers hold b.mu.
func (b *Broker) dialLocked() error {
	conn, err := amqp.DialConfig(b.cfg.URL(), amqp.Config{
		Heartbeat: b.cfg.Heartbeat,
		Properties: amqp.Table{
			"connection_name": "esgpipe",
		},
	})
	if err != nil {
		return common.Transient(fmt.Errorf("failed to dial broker: %w", err))
	}

	b.conn = conn
	return nil
}

// Channel returns a fresh channel, redialing the connection if it has
// dropped since the last use.
func (b *Broker) Channel() (*amqp.Channel, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, common.PermanentSystem(fmt.Errorf("broker is closed"))
	}

	if b.conn == nil || b.conn.IsClosed() {
		if err := b.dialLocked(); err != nil {
			return nil, err
		}
	}

	ch, err := b.conn.Channel()
	if err != nil {
		return nil, common.Transient(fmt.Errorf("failed to open channel: %w", err))
	}
	return ch, nil
}

// DeclareTopology declares the dead-letter exchange, every pipeline queue
// with its dead-letter routing, and the companion dead queues. Safe to call
// repeatedly.
func (b *Broker) DeclareTopology() error {
	ch, err := b.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(DeadLetterExchange, "direct", true, false, false, false, nil); err != nil {
		return common.PermanentSystem(fmt.Errorf("failed to declare dead-letter exchange: %w", err))
	}

	for _, name := range AllQueues() {
		dead := DeadQueue(name)

		if _, err := ch.QueueDeclare(dead, true, false, false, false, nil); err != nil {
			return common.PermanentSystem(fmt.Errorf("failed to declare queue %s: %w", dead, err))
		}
		if err := ch.QueueBind(dead, dead, DeadLetterExchange, false, nil); err != nil {
			return common.PermanentSystem(fmt.Errorf("failed to bind queue %s: %w", dead, err))
		}

		_, err := ch.QueueDeclare(name, true, false, false, false, amqp.Table{
			"x-dead-letter-exchange":    DeadLetterExchange,
			"x-dead-letter-routing-key": dead,
		})
		if err != nil {
			return common.PermanentSystem(fmt.Errorf("failed to declare queue %s: %w", name, err))
		}
	}

	b.logger.Debug().Int("queues", len(AllQueues())).Msg("Broker topology declared")
	return nil
}

// Close shuts the connection down. In-flight consumers drain first; callers
// close consumers before the broker.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	if b.conn != nil && !b.conn.IsClosed() {
		return b.conn.Close()
	}
	return nil
}

// waitBeforeRedial paces reconnect attempts in consumer loops.
func waitBeforeRedial(ctx context.Context, attempt int) error {
	backoff := time.Duration(attempt+1) * 2 * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(backoff):
		return nil
	}
}
