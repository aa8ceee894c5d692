package desk

import (
	"supportdesk/internal/content"
	"supportdesk/internal/models"
	"supportdesk/internal/thread"
	"time"
)

// Row is one entry of the conversation list pane.
type Row struct {
	ID          string
	Name        string
	LastMessage string
	UpdatedAt   time.Time
	Unread      int
	Online      bool
	Closed      bool
	Selected    bool
}

// Snapshot is an immutable copy of what the console shows.
type Snapshot struct {
	Generation uint64
	Connected  bool
	Loaded     bool
	Filter     string
	Rows       []Row
	Selected   string
	Thread     thread.Frame
	// Scrolled is set when the detail pane jumped to the latest message.
	Scrolled bool
	Input    string
	// Sending counts replies still waiting for the backend.
	Sending int
	Online  []string
	Badges   models.Badges
	Notices  []Notice
	Total    int
}

func (st *state) publish() {
	s := st.build()
	st.v.snapshot.Store(&s)
	st.v.renderer.Render(s)
}

func (st *state) build() Snapshot {
	selected, _ := st.thread.Selected()

	var current *models.Conversation
	if conv, err := st.inbox.Get(selected); err == nil {
		current = &conv
	}
	frame, scrolled := st.thread.Sync(current)

	visible := st.inbox.Filter(st.filter)
	rows := make([]Row, 0, len(visible))
	for _, conv := range visible {
		rows = append(rows, Row{
			ID:          conv.ID,
			Name:        content.Sanitize(conv.DisplayName()),
			LastMessage: content.Sanitize(conv.LastMessage),
			UpdatedAt:   conv.UpdatedAt,
			Unread:      conv.UnreadCount(),
			Online:      st.presence.IsOnline(conv.ParticipantID()),
			Closed:      conv.Closed,
			Selected:    conv.ID == selected,
		})
	}

	notices := make([]Notice, len(st.notices))
	copy(notices, st.notices)

	return Snapshot{
		Generation: st.gen,
		Connected:  st.connected,
		Loaded:     st.loaded,
		Filter:     st.filter,
		Rows:       rows,
		Selected:   selected,
		Thread:     frame,
		Scrolled:   scrolled,
		Input:      st.replies.Input(),
		Sending:    st.replies.Pending(),
		Online:     st.presence.Online(),
		Badges:     st.badges.Counts(),
		Notices:    notices,
		Total:      st.inbox.Len(),
	}
}
