// Package events is the in-process pub/sub hub behind the SSE endpoint.
//
// Subscribers join a named channel and receive every event published to it.
// Publish never blocks: a subscriber whose buffer is full misses the event.
package events

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ij369/ipa-harbor-sub000/internal/domain"
	"github.com/ij369/ipa-harbor-sub000/internal/infra/metrics"
)

// DefaultBuffer is the per-subscriber queue length.
const DefaultBuffer = 32

// Hub fans events out to subscribers.
type Hub struct {
	log *zap.Logger

	mu       sync.RWMutex
	channels map[string]map[string]*Subscription
	closed   bool
}

// Subscription is one subscriber on one channel.
type Subscription struct {
	ID      string
	Channel string

	ch   chan domain.Event
	hub  *Hub
	once sync.Once
}

// NewHub creates an empty hub.
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		log:      log.Named("events"),
		channels: make(map[string]map[string]*Subscription),
	}
}

// Subscribe registers a subscriber on channel. buffer <= 0 uses DefaultBuffer.
func (h *Hub) Subscribe(channel string, buffer int) (*Subscription, error) {
	if channel == "" {
		channel = domain.DefaultChannel
	}
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	sub := &Subscription{
		ID:      uuid.NewString(),
		Channel: channel,
		ch:      make(chan domain.Event, buffer),
		hub:     h,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, domain.ErrSubscriberClosed
	}
	subs, ok := h.channels[channel]
	if !ok {
		subs = make(map[string]*Subscription)
		h.channels[channel] = subs
	}
	subs[sub.ID] = sub
	metrics.EventSubscribers.Inc()
	h.log.Debug("subscriber joined", zap.String("channel", channel), zap.String("id", sub.ID))
	return sub, nil
}

// C delivers events. It is closed when the subscription ends.
func (s *Subscription) C() <-chan domain.Event { return s.ch }

// Close leaves the channel. Safe to call more than once.
func (s *Subscription) Close() {
	s.hub.remove(s)
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s.once.Do(func() {
		if subs, ok := h.channels[s.Channel]; ok {
			delete(subs, s.ID)
			if len(subs) == 0 {
				delete(h.channels, s.Channel)
			}
		}
		close(s.ch)
		metrics.EventSubscribers.Dec()
		h.log.Debug("subscriber left", zap.String("channel", s.Channel), zap.String("id", s.ID))
	})
}

// Publish delivers ev to every subscriber of channel and returns how many
// received it.
func (h *Hub) Publish(channel string, ev domain.Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, sub := range h.channels[channel] {
		select {
		case sub.ch <- ev:
			delivered++
		default:
			metrics.EventsDropped.Inc()
			h.log.Warn("subscriber buffer full, event dropped",
				zap.String("channel", channel),
				zap.String("id", sub.ID),
				zap.String("type", ev.Type))
		}
	}
	if delivered > 0 {
		metrics.EventsPublished.WithLabelValues(ev.Type).Add(float64(delivered))
	}
	return delivered
}

// Subscribers returns the subscriber count of channel.
func (h *Hub) Subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

// Close ends every subscription. Later Subscribe calls fail.
func (h *Hub) Close() {
	h.mu.Lock()
	var all []*Subscription
	for _, subs := range h.channels {
		for _, s := range subs {
			all = append(all, s)
		}
	}
	h.closed = true
	h.mu.Unlock()

	for _, s := range all {
		s.Close()
	}
}
