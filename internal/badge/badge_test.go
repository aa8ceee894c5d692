package badge

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"supportdesk/internal/inbox"
	"supportdesk/internal/models"
	"supportdesk/internal/stubs"
	"sync/atomic"
	"testing"
	"time"
)

type countingSource struct {
	*inbox.Cache
	walks int
}

func (s *countingSource) Each(fn func(conv *models.Conversation)) {
	s.walks++
	s.Cache.Each(fn)
}

func TestAggregator_UnreadChats(t *testing.T) {
	cache := inbox.New()
	if err := cache.Replace(stubs.Inbox()); err != nil {
		t.Fatal(err)
	}

	a := NewAggregator(cache)
	// C1 has one unread, C2 none, C3 two customer messages with one read.
	if got := a.UnreadChats(); got != 2 {
		t.Errorf("UnreadChats() = %d, want 2", got)
	}
}

func TestAggregator_Memoized(t *testing.T) {
	src := &countingSource{Cache: inbox.New()}
	_ = src.Replace(stubs.Inbox())
	a := NewAggregator(src)

	a.UnreadChats()
	a.UnreadChats()
	if src.walks != 1 {
		t.Errorf("expected one walk for an unchanged inbox, got %d", src.walks)
	}

	c1, _ := src.Get("c1")
	src.Upsert(stubs.WithReply(c1, "It is!", 60))
	c1.Messages[0].Read = true
	src.Upsert(stubs.WithReply(c1, "It is!", 60))

	if got := a.UnreadChats(); got != 1 {
		t.Errorf("UnreadChats() = %d, want 1 after c1 was read", got)
	}
	if src.walks != 2 {
		t.Errorf("expected a recount after a change, got %d walks", src.walks)
	}
}

func TestAggregator_Counts(t *testing.T) {
	cache := inbox.New()
	a := NewAggregator(cache)
	a.SetOrderSummary(models.OrderSummary{Total: 10, Pending: 4})

	got := a.Counts()
	if got != (models.Badges{UnreadChats: 0, PendingOrders: 4}) {
		t.Errorf("Counts() = %+v", got)
	}
}

func TestPoller_Run(t *testing.T) {
	var calls atomic.Int32
	p := &Poller{
		Interval: 10 * time.Millisecond,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Fetch: func(ctx context.Context) (models.OrderSummary, error) {
			n := calls.Add(1)
			if n == 2 {
				return models.OrderSummary{}, errors.New("backend down")
			}
			return models.OrderSummary{Pending: int(n)}, nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	delivered := make(chan int, 100)
	done := make(chan error)
	go func() {
		done <- p.Run(ctx, func(s models.OrderSummary) { delivered <- s.Pending })
	}()

	var got []int
	for len(got) < 2 {
		select {
		case n := <-delivered:
			got = append(got, n)
		case <-time.After(time.Second):
			t.Fatalf("timed out, got %v", got)
		}
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}

	if got[0] != 1 || got[1] != 3 {
		t.Errorf("expected the failed poll to be skipped, got %v", got)
	}
}
