package commands

import (
	"context"
	"fmt"
	"io"
	"supportdesk/internal/api"
	"supportdesk/internal/config"
	"supportdesk/internal/content"
	"supportdesk/internal/inbox"
	"supportdesk/internal/models"
	"text/tabwriter"
	"time"
)

// ListInbox prints the current conversation list and order counters once.
func ListInbox(ctx context.Context, cfg *config.Config, w io.Writer) error {
	client := api.NewClient(cfg.APIURL, cfg.APIToken, cfg.RequestTimeout)

	list, err := client.ListConversations(ctx)
	if err != nil {
		return fmt.Errorf("%w. Is the backend running?", err)
	}

	cache := inbox.New()
	skipped := cache.Replace(list)

	unread := 0
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tCUSTOMER\tUNREAD\tUPDATED\tLAST MESSAGE")
	for _, conv := range cache.List() {
		if conv.HasUnread() {
			unread++
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			conv.ID,
			content.Sanitize(conv.DisplayName()),
			conv.UnreadCount(),
			conv.UpdatedAt.Local().Format(time.DateTime),
			truncate(content.Sanitize(conv.LastMessage), 60),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if skipped != nil {
		_, _ = fmt.Fprintf(w, "\nSkipped invalid conversations:\n%v\n", skipped)
	}

	// Order counters are informational, a failure does not spoil the listing.
	badges := models.Badges{UnreadChats: unread}
	if summary, err := client.OrderSummary(ctx); err == nil {
		badges.PendingOrders = summary.Pending
	} else {
		_, _ = fmt.Fprintf(w, "\nOrder summary unavailable: %v\n", err)
	}

	_, _ = fmt.Fprintf(w, "\n%d conversations, %d with unread messages, %d pending orders\n",
		cache.Len(), badges.UnreadChats, badges.PendingOrders)
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
