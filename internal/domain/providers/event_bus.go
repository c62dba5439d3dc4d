package providers

import (
	"context"

	"github.com/zatekoja/hostportal/backend/internal/domain/entities"
)

// EventChannelRedirects carries every redirect issued by the gateway
const EventChannelRedirects = "gateway:redirects"

// EventBus defines the interface for publishing and subscribing to redirect events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.RedirectEvent) error

	// Subscribe subscribes to events on a channel until ctx is done
	Subscribe(ctx context.Context, channel string) (<-chan *entities.RedirectEvent, error)

	// Unsubscribe unsubscribes from a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}
