// Package broadcast is the shared publish/subscribe channel between server
// processes. A process that mutates state publishes here; every process
// subscribes and re-emits matching events to its own locally connected
// clients. Delivery is at-most-once and best-effort: clients reconcile with
// periodic snapshot pulls rather than relying on perfect delivery.
package broadcast

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultChannel = "mm:events"

type Bus struct {
	rdb     *redis.Client
	channel string
	log     *zap.Logger
}

func NewBus(rdb *redis.Client, log *zap.Logger) *Bus {
	return &Bus{rdb: rdb, channel: defaultChannel, log: log}
}

func (b *Bus) Publish(ctx context.Context, evt Event) error {
	raw, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	if err := b.rdb.Publish(ctx, b.channel, raw).Err(); err != nil {
		b.log.Warn("event publish failed",
			zap.String("topic", string(evt.Topic)),
			zap.Error(err))
		return err
	}
	return nil
}

// Run subscribes to the shared channel and feeds every decoded event to the
// handler until the context is cancelled. Malformed payloads are dropped.
func (b *Bus) Run(ctx context.Context, handler func(Event)) error {
	sub := b.rdb.Subscribe(ctx, b.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var evt Event
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				b.log.Warn("dropping malformed event", zap.Error(err))
				continue
			}
			handler(evt)
		}
	}
}
