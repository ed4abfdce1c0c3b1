package news

import (
	"context"
	"sync"
)

// Latest hands out increasing request tokens where only the newest one
// counts. Beginning a request cancels the one before it.
type Latest struct {
	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

// Begin starts a request derived from parent and returns its token.
func (l *Latest) Begin(parent context.Context) (context.Context, uint64) {
	ctx, cancel := context.WithCancel(parent)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
	}
	l.seq++
	l.cancel = cancel
	return ctx, l.seq
}

// Current reports whether token is still the newest request.
func (l *Latest) Current(token uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return token == l.seq
}

// Stop cancels the in-flight request, if any, and retires its token.
func (l *Latest) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}
