package routing

import (
	"context"
	"fmt"

	"github.com/deppfellow/endpoint-bridge/internal/lib/metrics"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Invalidator propagates registry resets between instances over a Redis channel.
type Invalidator struct {
	client     *redis.Client
	channel    string
	table      *RoutingTable
	logger     *zerolog.Logger
	metrics    *metrics.Metrics
	instanceID string
}

func NewInvalidator(client *redis.Client, channel string, table *RoutingTable, logger *zerolog.Logger, m *metrics.Metrics) *Invalidator {
	return &Invalidator{
		client:     client,
		channel:    channel,
		table:      table,
		logger:     logger,
		metrics:    m,
		instanceID: uuid.NewString(),
	}
}

// Reset clears the local table and tells the other instances to do the same.
func (i *Invalidator) Reset(ctx context.Context) error {
	i.table.Clear()
	i.metrics.RoutingReset("local")

	if i.client == nil {
		return nil
	}
	if err := i.client.Publish(ctx, i.channel, i.instanceID).Err(); err != nil {
		return fmt.Errorf("failed to publish routing invalidation: %w", err)
	}
	return nil
}

// Listen clears the local table whenever another instance announces a reset.
// It blocks until ctx is done.
func (i *Invalidator) Listen(ctx context.Context) {
	if i.client == nil {
		return
	}

	sub := i.client.Subscribe(ctx, i.channel)
	defer sub.Close()

	i.logger.Info().Str("channel", i.channel).Msg("listening for routing invalidations")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if msg.Payload == i.instanceID {
				continue
			}
			i.logger.Info().Str("origin", msg.Payload).Msg("routing invalidated by peer")
			i.table.Clear()
			i.metrics.RoutingReset("remote")
		}
	}
}
