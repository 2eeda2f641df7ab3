package httpapi

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/ent0n29/deadliner/internal/observability"
	"github.com/ent0n29/deadliner/internal/protocol"
	"github.com/ent0n29/deadliner/internal/reminder"
)

var ErrNoListeners = errors.New("no listeners on channel")

const subscriberQueue = 64

type subscriber struct {
	out  chan any
	done chan struct{}
}

// Hub tracks websocket connections per channel id. It resolves reminder
// channels for the scheduler: a channel is reachable while at least one
// connection listens on it.
type Hub struct {
	mu       sync.RWMutex
	channels map[string]map[*subscriber]struct{}
	metrics  *observability.Metrics
}

func NewHub(metrics *observability.Metrics) *Hub {
	return &Hub{
		channels: make(map[string]map[*subscriber]struct{}),
		metrics:  metrics,
	}
}

func (h *Hub) subscribe(channelID string) *subscriber {
	sub := &subscriber{
		out:  make(chan any, subscriberQueue),
		done: make(chan struct{}),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.channels[channelID]
	if !ok {
		subs = make(map[*subscriber]struct{})
		h.channels[channelID] = subs
	}
	subs[sub] = struct{}{}
	return sub
}

func (h *Hub) unsubscribe(channelID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs := h.channels[channelID]
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	close(sub.done)
	if len(subs) == 0 {
		delete(h.channels, channelID)
	}
}

func (h *Hub) Subscribers(channelID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[strings.TrimSpace(channelID)])
}

func (h *Hub) snapshot(channelID string) []*subscriber {
	h.mu.RLock()
	defer h.mu.RUnlock()
	subs := h.channels[channelID]
	out := make([]*subscriber, 0, len(subs))
	for sub := range subs {
		out = append(out, sub)
	}
	return out
}

// Channel implements reminder.Notifier.
func (h *Hub) Channel(id string) (reminder.Channel, bool) {
	id = strings.TrimSpace(id)
	if id == "" || h.Subscribers(id) == 0 {
		return nil, false
	}
	return hubChannel{hub: h, id: id}, true
}

type hubChannel struct {
	hub *Hub
	id  string
}

// SendReminder queues the event for every listener. It fails only when no
// listener accepted it.
func (c hubChannel) SendReminder(ctx context.Context, ev protocol.ReminderEvent) error {
	delivered := 0
	for _, sub := range c.hub.snapshot(c.id) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-sub.done:
		case sub.out <- ev:
			delivered++
		default:
			c.hub.metrics.ObserveWSMessage("dropped", string(protocol.TypeReminder))
		}
	}
	if delivered == 0 {
		return ErrNoListeners
	}
	return nil
}
