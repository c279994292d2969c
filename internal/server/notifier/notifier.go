// Package notifier fans out change events to server-sent event streams.
package notifier

import "sync"

// Event kinds.
const (
	KindCompiled  = "compiled"
	KindWorkspace = "workspace"
)

// Event tells listeners that something changed. Listeners re-query the API
// for the new state.
type Event struct {
	Kind      string `json:"kind"`
	Interface string `json:"interface,omitempty"`
}

// Notifier broadcasts events to every subscribed listener.
type Notifier struct {
	mu        sync.RWMutex
	listeners map[chan Event]struct{}
	buffer    int
}

// New creates a notifier whose listener channels hold buffer events.
func New(buffer int) *Notifier {
	if buffer < 1 {
		buffer = 1
	}
	return &Notifier{
		listeners: make(map[chan Event]struct{}),
		buffer:    buffer,
	}
}

// Subscribe returns a channel that receives events.
// The caller must call Unsubscribe when done.
func (n *Notifier) Subscribe() chan Event {
	ch := make(chan Event, n.buffer)
	n.mu.Lock()
	n.listeners[ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener channel and closes it.
func (n *Notifier) Unsubscribe(ch chan Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.listeners[ch]; !ok {
		return
	}
	delete(n.listeners, ch)
	close(ch)
}

// Listeners returns the number of subscribed listeners.
func (n *Notifier) Listeners() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners)
}

// Broadcast sends an event to all listeners without blocking. A listener
// whose buffer is full misses the event.
func (n *Notifier) Broadcast(e Event) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for ch := range n.listeners {
		select {
		case ch <- e:
		default:
		}
	}
}
