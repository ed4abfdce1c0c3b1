package auth

import (
	"context"
	"sync"

	"github.com/YashasveeWankhade/NewsApp/internal/model"
)

// EventType names a session change.
type EventType string

// Session change kinds.
const (
	SignedIn  EventType = "SIGNED_IN"
	SignedOut EventType = "SIGNED_OUT"
)

// Event is a session change.
type Event struct {
	Type   EventType
	UserID string
	// Session is set for SignedIn.
	Session *model.Session
	// Token is the ended session's token for SignedOut.
	Token string
}

// watchBuffer is how many events a slow watcher may lag before events drop.
const watchBuffer = 16

type hub struct {
	mu       sync.Mutex
	watchers map[chan Event]struct{}
}

func newHub() *hub {
	return &hub{watchers: make(map[chan Event]struct{})}
}

func (h *hub) subscribe(ctx context.Context) <-chan Event {
	ch := make(chan Event, watchBuffer)
	h.mu.Lock()
	h.watchers[ch] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.watchers, ch)
		close(ch)
		h.mu.Unlock()
	}()
	return ch
}

// publish never blocks; a full watcher misses the event.
func (h *hub) publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.watchers {
		select {
		case ch <- ev:
		default:
		}
	}
}
