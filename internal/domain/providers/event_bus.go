package providers

import (
	"context"

	"github.com/zatekoja/medscan/backend/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to scan events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.ScanEvent) error

	// Subscribe returns events published on channel until ctx is done
	Subscribe(ctx context.Context, channel string) (<-chan *entities.ScanEvent, error)

	// Close closes the event bus and all subscriptions
	Close() error
}

// EventChannelScans is the default channel for completed scans
const EventChannelScans = "medication:scans"
