package desk

import (
	"context"
	"supportdesk/internal/badge"
	"supportdesk/internal/inbox"
	"supportdesk/internal/models"
	"supportdesk/internal/presence"
	"supportdesk/internal/reply"
	"supportdesk/internal/thread"
	"time"
)

type NoticeLevel string

const (
	NoticeInfo  NoticeLevel = "info"
	NoticeError NoticeLevel = "error"
)

// Notice is a one-shot message for the operator.
type Notice struct {
	Level NoticeLevel
	Text  string
	At    time.Time
}

// state is everything a mount owns. Only the loop goroutine touches it.
type state struct {
	v   *View
	gen uint64
	ctx context.Context

	inbox    *inbox.Cache
	presence *presence.Store
	thread   *thread.View
	replies  *reply.Dispatcher
	badges   *badge.Aggregator

	filter       string
	loaded       bool
	connected    bool
	connects     int
	lostNotified bool
	notices      []Notice
	markingRead  map[string]bool

	// pushedWhileLoading is non-nil while a list load is in flight and holds
	// the ids the push channel delivered meanwhile.
	pushedWhileLoading map[string]bool
}

func newState(ctx context.Context, v *View, gen uint64) *state {
	cache := inbox.New()
	return &state{
		v:           v,
		gen:         gen,
		ctx:         ctx,
		inbox:       cache,
		presence:    presence.New(),
		thread:      thread.New(v.cfg.ThreadHeight),
		replies:     reply.NewDispatcher(v.cfg.MaxReplyLength),
		badges:      badge.NewAggregator(cache),
		markingRead: make(map[string]bool),
	}
}

func (st *state) notify(level NoticeLevel, text string) {
	st.notices = append(st.notices, Notice{Level: level, Text: text, At: time.Now()})
	if len(st.notices) > maxNotices {
		st.notices = st.notices[len(st.notices)-maxNotices:]
	}
}

// load fetches the full conversation list. A failure is reported once and
// not retried.
func (st *state) load() {
	if st.pushedWhileLoading == nil {
		st.pushedWhileLoading = make(map[string]bool)
	}

	backend, logger := st.v.backend, st.v.logger
	st.v.async(st.ctx, st.gen, func(ctx context.Context) func(*state) {
		list, err := backend.ListConversations(ctx)
		if err != nil {
			logger.Error("conversation list load failed", "error", err)
			return func(st *state) {
				st.pushedWhileLoading = nil
				st.notify(NoticeError, "Failed to load conversations")
			}
		}
		return func(st *state) { st.applyLoaded(list) }
	})
}

// applyLoaded installs a fetched list. A cached entry newer than its loaded
// copy is kept, and conversations pushed during the fetch survive even when
// the list does not contain them yet.
func (st *state) applyLoaded(list []models.Conversation) {
	pushed := st.pushedWhileLoading
	st.pushedWhileLoading = nil

	merged := make([]models.Conversation, 0, len(list)+len(pushed))
	listed := make(map[string]bool, len(list))
	for _, conv := range list {
		listed[conv.ID] = true
		if cached, err := st.inbox.Get(conv.ID); err == nil && cached.UpdatedAt.After(conv.UpdatedAt) {
			conv = cached
		}
		merged = append(merged, conv)
	}
	for id := range pushed {
		if listed[id] {
			continue
		}
		if cached, err := st.inbox.Get(id); err == nil {
			merged = append(merged, cached)
		}
	}

	if err := st.inbox.Replace(merged); err != nil {
		st.v.logger.Warn("skipping invalid conversations from backend", "error", err)
	}
	st.loaded = true
	if st.thread.OnLoaded(st.inbox.List()) {
		id, _ := st.thread.Selected()
		st.markReadIfNeeded(id)
	}
}

// reconcile upserts a conversation returned by a REST call. The push channel
// may already have delivered a newer version, which wins.
func (st *state) reconcile(conv models.Conversation) {
	if err := conv.Validate(); err != nil {
		st.v.logger.Warn("ignoring invalid conversation from backend", "error", err)
		return
	}
	if cached, err := st.inbox.Get(conv.ID); err == nil && cached.UpdatedAt.After(conv.UpdatedAt) {
		return
	}
	st.inbox.Upsert(conv)
}

func (st *state) selectConversation(id string) {
	st.thread.Select(id)
	st.markReadIfNeeded(id)
}

func (st *state) markReadIfNeeded(id string) {
	conv, err := st.inbox.Get(id)
	if err != nil || !conv.HasUnread() || st.markingRead[id] {
		return
	}
	st.markingRead[id] = true

	backend, logger := st.v.backend, st.v.logger
	st.v.async(st.ctx, st.gen, func(ctx context.Context) func(*state) {
		updated, err := backend.MarkRead(ctx, id)
		if err != nil {
			logger.Warn("mark read failed", "conversation_id", id, "error", err)
			return func(st *state) { delete(st.markingRead, id) }
		}
		return func(st *state) {
			delete(st.markingRead, id)
			st.reconcile(updated)
		}
	})
}

func (st *state) submit() {
	selected, _ := st.thread.Selected()
	req, ok, err := st.replies.Submit(selected)
	if err != nil {
		st.notify(NoticeError, "Reply not sent: "+err.Error())
		return
	}
	if !ok {
		return
	}

	backend, logger := st.v.backend, st.v.logger
	st.v.async(st.ctx, st.gen, func(ctx context.Context) func(*state) {
		conv, err := backend.SendReply(ctx, req.ConversationID, req.Text)
		if err != nil {
			logger.Error("send reply failed", "conversation_id", req.ConversationID, "request_id", req.ID, "error", err)
			return func(st *state) {
				st.replies.Fail(req.ID)
				st.notify(NoticeError, "Failed to send reply")
			}
		}
		return func(st *state) {
			st.replies.Complete(req.ID)
			st.reconcile(conv)
		}
	})
}

func (st *state) closeSelected() {
	id, ok := st.thread.Selected()
	if !ok {
		return
	}

	backend, logger := st.v.backend, st.v.logger
	st.v.async(st.ctx, st.gen, func(ctx context.Context) func(*state) {
		conv, err := backend.CloseConversation(ctx, id)
		if err != nil {
			logger.Error("close conversation failed", "conversation_id", id, "error", err)
			return func(st *state) { st.notify(NoticeError, "Failed to close conversation") }
		}
		return func(st *state) { st.reconcile(conv) }
	})
}
