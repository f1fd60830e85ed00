package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"inkwell/internal/observability"
)

// Broadcaster fans feed events out to every live client. With Redis wired the
// event travels through FeedChannel and each process relays it to its own hub;
// otherwise it goes straight to the local hub. Either way each local client
// receives the event once.
type Broadcaster struct {
	hub      *Hub
	notifier *Notifier
	relaying atomic.Bool
	logger   *slog.Logger
}

// NewBroadcaster builds a Broadcaster over hub. notifier may be nil.
func NewBroadcaster(hub *Hub, notifier *Notifier, logger *slog.Logger) *Broadcaster {
	if hub == nil {
		panic("notifications: NewBroadcaster requires a hub")
	}
	if logger == nil {
		logger = observability.GlobalLogger
	}
	return &Broadcaster{hub: hub, notifier: notifier, logger: logger}
}

// Start wires the hub to Redis when a notifier is available. Until Start
// succeeds events are delivered locally only.
func (b *Broadcaster) Start(ctx context.Context) error {
	if !b.notifier.Enabled() {
		return nil
	}
	if err := b.hub.StartWiring(ctx, b.notifier); err != nil {
		return err
	}
	b.relaying.Store(true)
	return nil
}

// Hub returns the local hub.
func (b *Broadcaster) Hub() *Hub {
	return b.hub
}

// Publish delivers ev to all live clients. Delivery is fire-and-forget: a Redis
// failure falls back to local delivery and is only logged.
func (b *Broadcaster) Publish(ctx context.Context, ev FeedEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal feed event: %w", err)
	}

	if b.relaying.Load() {
		err := b.notifier.PublishFeed(ctx, payload)
		if err == nil {
			observability.FeedEventsPublished.WithLabelValues(ev.Action, "redis").Inc()
			return nil
		}
		b.logger.WarnContext(ctx, "feed publish via redis failed, delivering locally",
			slog.String("action", ev.Action), slog.String("error", err.Error()))
	}

	b.hub.BroadcastAll(payload)
	observability.FeedEventsPublished.WithLabelValues(ev.Action, "local").Inc()
	return nil
}
