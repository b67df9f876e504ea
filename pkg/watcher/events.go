package watcher

import "sync"

// EventType defines the type of event being broadcast.
type EventType string

const (
	EventPricesUpdated      EventType = "prices_updated"
	EventProfileLoading     EventType = "profile_loading"
	EventProfileLoaded      EventType = "profile_loaded"
	EventProfileCleared     EventType = "profile_cleared"
	EventAcquisitionFailed  EventType = "acquisition_failed"
	EventFeedUpdated        EventType = "feed_updated"
	EventInsightsUpdated    EventType = "insights_updated"
	EventBalanceUpdated     EventType = "balance_updated"
	EventWalletStateChanged EventType = "wallet_state_changed"
)

// Event represents a monitoring event.
type Event struct {
	Type EventType   `json:"type"`
	Data interface{} `json:"data"`
}

// Subscriber is a channel that receives events.
type Subscriber chan Event

// Hub fans events out to subscribers. Slow subscribers miss events rather
// than block the publisher.
type Hub struct {
	mu          sync.RWMutex
	subscribers []Subscriber
}

func NewHub() *Hub {
	return &Hub{}
}

// Subscribe adds a new subscriber and returns a channel to receive events.
func (h *Hub) Subscribe() Subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(Subscriber, 100)
	h.subscribers = append(h.subscribers, ch)
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (h *Hub) Unsubscribe(ch Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, sub := range h.subscribers {
		if sub == ch {
			h.subscribers = append(h.subscribers[:i], h.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

func (h *Hub) Publish(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subscribers {
		select {
		case sub <- event:
		default:
		}
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
