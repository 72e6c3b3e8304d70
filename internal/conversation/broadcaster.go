// ABOUTME: In-memory fan-out event broadcaster for streaming sessions
// ABOUTME: Publishes turn events to all SSE subscribers of a streaming ID

package conversation

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/hcnode/cui/internal/stream"
)

const (
	// subscriberBufferSize is the channel buffer for each subscriber.
	subscriberBufferSize = 64
)

// EventBroadcaster provides in-memory pub/sub for turn events. Subscribers
// register for a streaming ID and receive events as the engine emits them.
type EventBroadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]map[string]chan stream.Event // streamingID -> subID -> ch
	logger      *slog.Logger
}

// NewEventBroadcaster creates a broadcaster. Pass nil logger for default.
func NewEventBroadcaster(logger *slog.Logger) *EventBroadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventBroadcaster{
		subscribers: make(map[string]map[string]chan stream.Event),
		logger:      logger.With("component", "broadcaster"),
	}
}

// Subscribe registers a subscriber for events on the given streaming ID.
// Returns a channel that receives events and a subscription ID for later
// unsubscription. The subscription is automatically cleaned up when ctx is
// cancelled.
func (b *EventBroadcaster) Subscribe(ctx context.Context, streamingID string) (<-chan stream.Event, string) {
	subID := uuid.New().String()
	ch := make(chan stream.Event, subscriberBufferSize)

	b.mu.Lock()
	if _, ok := b.subscribers[streamingID]; !ok {
		b.subscribers[streamingID] = make(map[string]chan stream.Event)
	}
	b.subscribers[streamingID][subID] = ch
	b.mu.Unlock()

	b.logger.Debug("subscriber added",
		"streaming_id", streamingID,
		"sub_id", subID)

	// Auto-cleanup on context cancellation
	go func() {
		<-ctx.Done()
		b.Unsubscribe(streamingID, subID)
	}()

	return ch, subID
}

// Publish sends an event to all subscribers of the given streaming ID.
// Non-blocking: events are dropped for subscribers whose channels are full.
func (b *EventBroadcaster) Publish(streamingID string, event stream.Event) {
	b.mu.RLock()
	subs, ok := b.subscribers[streamingID]
	if !ok || len(subs) == 0 {
		b.mu.RUnlock()
		return
	}

	// Copy subscriber channels under read lock to avoid holding lock during sends
	targets := make([]chan stream.Event, 0, len(subs))
	for _, ch := range subs {
		targets = append(targets, ch)
	}
	b.mu.RUnlock()

	for _, ch := range targets {
		select {
		case ch <- event:
			// Sent
		default:
			// Subscriber channel full — drop event for this subscriber
			b.logger.Debug("dropped event for slow subscriber",
				"streaming_id", streamingID,
				"event_id", event.ID)
		}
	}
}

// Unsubscribe removes a subscription and closes its channel.
func (b *EventBroadcaster) Unsubscribe(streamingID, subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subscribers[streamingID]
	if !ok {
		return
	}

	ch, exists := subs[subID]
	if !exists {
		return
	}

	delete(subs, subID)
	close(ch)

	// Clean up empty streaming ID entries
	if len(subs) == 0 {
		delete(b.subscribers, streamingID)
	}

	b.logger.Debug("subscriber removed",
		"streaming_id", streamingID,
		"sub_id", subID)
}

// SubscriberCount returns the number of active subscribers for a streaming ID.
func (b *EventBroadcaster) SubscriberCount(streamingID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[streamingID])
}

// Close shuts down the broadcaster and closes all subscriber channels.
func (b *EventBroadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for streamingID, subs := range b.subscribers {
		for subID, ch := range subs {
			close(ch)
			delete(subs, subID)
		}
		delete(b.subscribers, streamingID)
	}

	b.logger.Debug("broadcaster closed")
}
