// Package desk is the support console view. One View.Run call is one mount:
// it owns the push channel, the stores and the order poller for as long as
// its context lives. Every state change happens on the loop goroutine.
package desk

import (
	"context"
	"errors"
	"log/slog"
	"supportdesk/internal/badge"
	"supportdesk/internal/models"
	"supportdesk/internal/protocol"
	"supportdesk/internal/ws"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

var (
	ErrNotMounted     = errors.New("view is not mounted")
	ErrAlreadyMounted = errors.New("view is already mounted")
)

const (
	DefaultPollInterval = 45 * time.Second
	maxNotices          = 5
)

// Backend is the REST side of the dashboard API.
type Backend interface {
	ListConversations(ctx context.Context) ([]models.Conversation, error)
	SendReply(ctx context.Context, conversationID, text string) (models.Conversation, error)
	MarkRead(ctx context.Context, conversationID string) (models.Conversation, error)
	CloseConversation(ctx context.Context, conversationID string) (models.Conversation, error)
	OrderSummary(ctx context.Context) (models.OrderSummary, error)
}

// Transport is the push channel.
type Transport interface {
	Run(ctx context.Context, out chan<- ws.Update) error
}

// Renderer receives a fresh snapshot after every state change. It is called
// from the loop goroutine and must not block for long.
type Renderer interface {
	Render(s Snapshot)
}

type RendererFunc func(s Snapshot)

func (f RendererFunc) Render(s Snapshot) { f(s) }

type Config struct {
	PollInterval   time.Duration
	ThreadHeight   int
	MaxReplyLength int
}

type View struct {
	cfg       Config
	backend   Backend
	transport Transport
	renderer  Renderer
	logger    *slog.Logger

	generation atomic.Uint64
	mount      atomic.Pointer[mount]
	snapshot   atomic.Pointer[Snapshot]
	commands   chan func(*state)
	results    chan result
}

type mount struct {
	gen  uint64
	done chan struct{}
}

// result is the completion of an asynchronous operation, tagged with the
// generation of the mount that started it.
type result struct {
	gen   uint64
	apply func(*state)
}

func New(cfg Config, backend Backend, transport Transport, renderer Renderer, logger *slog.Logger) *View {
	if renderer == nil {
		renderer = RendererFunc(func(Snapshot) {})
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &View{
		cfg:       cfg,
		backend:   backend,
		transport: transport,
		renderer:  renderer,
		logger:    logger,
		commands:  make(chan func(*state)),
		results:   make(chan result, 16),
	}
}

// Run mounts the view and blocks until ctx is cancelled. All stores start
// empty on every mount.
func (v *View) Run(ctx context.Context) error {
	m := &mount{done: make(chan struct{})}
	if !v.mount.CompareAndSwap(nil, m) {
		return ErrAlreadyMounted
	}
	m.gen = v.generation.Add(1)
	defer func() {
		close(m.done)
		v.mount.Store(nil)
	}()

	g, gCtx := errgroup.WithContext(ctx)
	updates := make(chan ws.Update, 64)
	st := newState(gCtx, v, m.gen)

	g.Go(func() error {
		if err := v.transport.Run(gCtx, updates); err != nil {
			v.logger.Warn("push channel gave up, data may go stale", "error", err)
		}
		return nil
	})

	poller := &badge.Poller{
		Interval: v.cfg.PollInterval,
		Fetch:    v.backend.OrderSummary,
		Logger:   v.logger,
	}
	g.Go(func() error {
		return poller.Run(gCtx, func(s models.OrderSummary) {
			v.post(gCtx, m.gen, func(st *state) { st.badges.SetOrderSummary(s) })
		})
	})

	g.Go(func() error {
		st.load()
		st.publish()
		for {
			select {
			case u := <-updates:
				st.handleUpdate(u)
			case r := <-v.results:
				if r.gen != m.gen {
					v.logger.Debug("discarding stale completion", "generation", r.gen, "current", m.gen)
					continue
				}
				r.apply(st)
			case cmd := <-v.commands:
				cmd(st)
			case <-gCtx.Done():
				return nil
			}
			st.publish()
		}
	})

	return g.Wait()
}

// Snapshot returns the last published state. It is safe to call from any
// goroutine.
func (v *View) Snapshot() (Snapshot, bool) {
	s := v.snapshot.Load()
	if s == nil {
		return Snapshot{}, false
	}
	return *s, true
}

// Generation is the number of the current or last mount.
func (v *View) Generation() uint64 {
	return v.generation.Load()
}

// async runs work off the loop and applies its outcome on the loop, unless the
// mount that started it is gone by then.
func (v *View) async(ctx context.Context, gen uint64, work func(ctx context.Context) func(*state)) {
	go func() {
		apply := work(ctx)
		v.post(ctx, gen, apply)
	}()
}

func (v *View) post(ctx context.Context, gen uint64, apply func(*state)) {
	select {
	case v.results <- result{gen: gen, apply: apply}:
	case <-ctx.Done():
	}
}

func (v *View) do(ctx context.Context, cmd func(*state)) error {
	m := v.mount.Load()
	if m == nil {
		return ErrNotMounted
	}
	select {
	case v.commands <- cmd:
		return nil
	case <-m.done:
		return ErrNotMounted
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Select makes id the conversation shown in the detail pane.
func (v *View) Select(ctx context.Context, id string) error {
	return v.do(ctx, func(st *state) { st.selectConversation(id) })
}

// SetInput replaces the reply input buffer.
func (v *View) SetInput(ctx context.Context, text string) error {
	return v.do(ctx, func(st *state) { st.replies.SetInput(text) })
}

// Submit sends the input buffer to the selected conversation.
func (v *View) Submit(ctx context.Context) error {
	return v.do(ctx, func(st *state) { st.submit() })
}

// SendReply sets the input to text and submits it.
func (v *View) SendReply(ctx context.Context, text string) error {
	return v.do(ctx, func(st *state) {
		st.replies.SetInput(text)
		st.submit()
	})
}

// SetFilter narrows the conversation list to customers matching query.
func (v *View) SetFilter(ctx context.Context, query string) error {
	return v.do(ctx, func(st *state) { st.filter = query })
}

// Scroll moves the detail pane by delta lines.
func (v *View) Scroll(ctx context.Context, delta int) error {
	return v.do(ctx, func(st *state) { st.thread.Scroll(delta) })
}

// CloseConversation closes the selected conversation on the backend.
func (v *View) CloseConversation(ctx context.Context) error {
	return v.do(ctx, func(st *state) { st.closeSelected() })
}

// handleUpdate applies a push channel update.
func (st *state) handleUpdate(u ws.Update) {
	if u.Event == nil {
		st.connectionChanged(u)
		return
	}

	switch ev := u.Event.(type) {
	case protocol.PresenceSnapshot:
		st.presence.Replace(ev.IDs)
	case protocol.PresenceDelta:
		if ev.Online {
			st.presence.SetOnline(ev.ID)
		} else {
			st.presence.SetOffline(ev.ID)
		}
	case protocol.ConversationUpdated:
		st.inbox.Upsert(ev.Conversation)
		if st.pushedWhileLoading != nil {
			st.pushedWhileLoading[ev.Conversation.ID] = true
		}
		if id, ok := st.thread.Selected(); ok && id == ev.Conversation.ID {
			st.markReadIfNeeded(id)
		}
	}
}

func (st *state) connectionChanged(u ws.Update) {
	if u.Connected {
		st.connected = true
		st.lostNotified = false
		st.connects++
		if st.connects > 1 {
			st.notify(NoticeInfo, "Live updates restored")
			st.load()
		}
		return
	}

	st.connected = false
	if !st.lostNotified {
		st.lostNotified = true
		st.notify(NoticeError, "Live updates are unavailable, data may be out of date")
	}
}
