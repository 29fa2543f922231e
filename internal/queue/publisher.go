package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/ternarybob/arbor"

	"github.com/greenarc/esgpipe/internal/common"
	"github.com/greenarc/esgpipe/internal/interfaces"
)

// Publisher publishes persistent messages with publisher confirms so a
// publish either lands on the queue or returns an error.
type Publisher struct {
	broker *Broker
	logger arbor.ILogger

	mu sync.Mutex
	ch *amqp.Channel
}

var _ interfaces.Publisher = (*Publisher)(nil)

func NewPublisher(broker *Broker, logger arbor.ILogger) *Publisher {
	return &Publisher{broker: broker, logger: logger}
}

func (p *Publisher) channel() (*amqp.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}

	ch, err := p.broker.Channel()
	if err != nil {
		return nil, err
	}
	if err := ch.Confirm(false); err != nil {
		ch.Close()
		return nil, common.Transient(fmt.Errorf("failed to enable publisher confirms: %w", err))
	}

	p.ch = ch
	return ch, nil
}

// Publish sends body to queue and waits for the broker confirm. Transient
// channel failures are retried with a fresh channel.
func (p *Publisher) Publish(ctx context.Context, queue string, body []byte) error {
	return common.Retry(ctx, common.DefaultRetryPolicy(), func(ctx context.Context) error {
		ch, err := p.channel()
		if err != nil {
			return err
		}

		confirm, err := ch.PublishWithDeferredConfirmWithContext(ctx, "", queue, false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		})
		if err != nil {
			p.reset()
			return common.Transient(fmt.Errorf("failed to publish to %s: %w", queue, err))
		}

		ok, err := confirm.WaitContext(ctx)
		if err != nil {
			p.reset()
			return common.Transient(fmt.Errorf("publish confirm failed for %s: %w", queue, err))
		}
		if !ok {
			p.reset()
			return common.Transient(fmt.Errorf("broker nacked publish to %s", queue))
		}

		p.logger.Debug().Str("queue", queue).Int("bytes", len(body)).Msg("Message published")
		return nil
	})
}

func (p *Publisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		p.ch.Close()
		p.ch = nil
	}
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch.Close()
	}
	return nil
}
