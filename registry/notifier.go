package registry

import (
	"log/slog"
	"sync"

	"github.com/proofofaudit/audit-registry-backend/interfaces"
)

// ChanNotifier fans registry events out to in-process subscribers over
// buffered channels. Publishing never blocks: a subscriber whose buffer is
// full misses the event. Consumers are indexers and UIs, which tolerate
// best-effort delivery.
type ChanNotifier struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan interfaces.Event
	log    *slog.Logger
}

// NewChanNotifier creates a notifier. A nil logger falls back to
// slog.Default.
func NewChanNotifier(log *slog.Logger) *ChanNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &ChanNotifier{
		subs: map[int]chan interfaces.Event{},
		log:  log,
	}
}

// Publish delivers event to every subscriber that has buffer space.
func (n *ChanNotifier) Publish(event interfaces.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for id, ch := range n.subs {
		select {
		case ch <- event:
		default:
			n.log.Warn("Dropping event for slow subscriber",
				slog.String("event", event.EventName()),
				slog.Int("subscriber", id))
		}
	}
}

// Subscribe registers a subscriber with the given channel buffer. The
// returned cancel function removes the subscription and closes the channel.
func (n *ChanNotifier) Subscribe(buffer int) (<-chan interfaces.Event, func()) {
	if buffer < 1 {
		buffer = 1
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	ch := make(chan interfaces.Event, buffer)
	n.subs[id] = ch

	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if sub, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}
