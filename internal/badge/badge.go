// Package badge derives the navigation counters: unread chats from the inbox,
// pending orders from a periodically polled summary.
package badge

import (
	"context"
	"log/slog"
	"supportdesk/internal/models"
	"time"
)

// Source is the part of the inbox the aggregator reads.
type Source interface {
	Version() uint64
	Each(fn func(conv *models.Conversation))
}

type Aggregator struct {
	source Source

	memoVersion uint64
	memoValid   bool
	unread      int

	pendingOrders int
}

func NewAggregator(source Source) *Aggregator {
	return &Aggregator{source: source}
}

// UnreadChats counts conversations with at least one unread customer
// message. The result is cached until the source version changes.
func (a *Aggregator) UnreadChats() int {
	v := a.source.Version()
	if a.memoValid && a.memoVersion == v {
		return a.unread
	}

	n := 0
	a.source.Each(func(conv *models.Conversation) {
		if conv.HasUnread() {
			n++
		}
	})
	a.unread = n
	a.memoVersion = v
	a.memoValid = true
	return n
}

func (a *Aggregator) SetOrderSummary(s models.OrderSummary) {
	a.pendingOrders = s.Pending
}

func (a *Aggregator) Counts() models.Badges {
	return models.Badges{
		UnreadChats:   a.UnreadChats(),
		PendingOrders: a.pendingOrders,
	}
}

type FetchFunc func(ctx context.Context) (models.OrderSummary, error)

// Poller fetches the order summary right away and then every interval until
// ctx is done. Successful results go to deliver; failures are logged and the
// previous value stays in place.
type Poller struct {
	Interval time.Duration
	Fetch    FetchFunc
	Logger   *slog.Logger
}

func (p *Poller) Run(ctx context.Context, deliver func(models.OrderSummary)) error {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		summary, err := p.Fetch(ctx)
		switch {
		case err == nil:
			deliver(summary)
		case ctx.Err() != nil:
			return nil
		default:
			p.Logger.Warn("order summary poll failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
