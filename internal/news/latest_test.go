package news

import (
	"context"
	"errors"
	"testing"
)

func TestLatestCancelsSupersededRequest(t *testing.T) {
	var l Latest
	first, t1 := l.Begin(context.Background())
	second, t2 := l.Begin(context.Background())

	if t2 <= t1 {
		t.Fatalf("tokens must increase: %d then %d", t1, t2)
	}
	if !errors.Is(first.Err(), context.Canceled) {
		t.Fatalf("first request should be cancelled, got %v", first.Err())
	}
	if second.Err() != nil {
		t.Fatalf("second request should be live, got %v", second.Err())
	}
	if l.Current(t1) || !l.Current(t2) {
		t.Fatal("only the newest token should be current")
	}

	l.Stop()
	if second.Err() == nil || l.Current(t2) {
		t.Fatal("Stop should cancel and retire the in-flight request")
	}
}

func TestLatestFollowsParent(t *testing.T) {
	var l Latest
	parent, cancel := context.WithCancel(context.Background())
	ctx, token := l.Begin(parent)
	cancel()
	<-ctx.Done()
	if !l.Current(token) {
		t.Fatal("parent cancellation alone should not retire the token")
	}
}
