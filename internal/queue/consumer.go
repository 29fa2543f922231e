package queue

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/greenarc/esgpipe/internal/common"
	"github.com/greenarc/esgpipe/internal/interfaces"
)

// Consumer runs a single-prefetch delivery loop against one queue. One
// message is in flight at a time; the handler owns the ack or dead-letter
// decision and must settle every delivery it receives.
type Consumer struct {
	broker *Broker
	logger arbor.ILogger
}

var _ interfaces.Consumer = (*Consumer)(nil)

func NewConsumer(broker *Broker, logger arbor.ILogger) *Consumer {
	return &Consumer{broker: broker, logger: logger}
}

// Run consumes queue until ctx is cancelled, redialing on connection loss.
// The in-flight message is always handled to completion before Run returns.
func (c *Consumer) Run(ctx context.Context, queue string, handler func(ctx context.Context, d interfaces.Delivery)) error {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := c.consumeOnce(ctx, queue, handler)
		if err == nil || ctx.Err() != nil {
			return ctx.Err()
		}

		c.logger.Warn().Err(err).Str("queue", queue).Msg("Consumer channel lost, reconnecting")
		if werr := waitBeforeRedial(ctx, attempt); werr != nil {
			return werr
		}
		attempt++
	}
}

func (c *Consumer) consumeOnce(ctx context.Context, queue string, handler func(ctx context.Context, d interfaces.Delivery)) error {
	ch, err := c.broker.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.Qos(1, 0, false); err != nil {
		return common.Transient(fmt.Errorf("failed to set prefetch: %w", err))
	}

	deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return common.Transient(fmt.Errorf("failed to consume %s: %w", queue, err))
	}

	c.logger.Info().Str("queue", queue).Msg("Consumer started")

	for {
		select {
		case <-ctx.Done():
			// The prefetch window is 1, so no further deliveries arrive;
			// anything unacked is redelivered after the channel closes.
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return common.Transient(fmt.Errorf("delivery channel closed for %s", queue))
			}
			handler(ctx, interfaces.Delivery{
				Body: d.Body,
				Ack: func() error {
					return d.Ack(false)
				},
				Nack: func() error {
					return d.Nack(false, false)
				},
			})
		}
	}
}
