package providers

import (
	"context"

	"github.com/zatekoja/dentalanalytics/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to pipeline events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.LayerEvent) error

	// Subscribe subscribes to events on a channel
	Subscribe(ctx context.Context, channel string) (<-chan *entities.LayerEvent, error)

	// Unsubscribe unsubscribes from a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

// EventChannelLayers carries one event per rebuilt layer
const EventChannelLayers = "pipeline:layers"
