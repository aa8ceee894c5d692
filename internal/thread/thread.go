// Package thread implements the conversation detail view: which conversation
// is selected, how its messages are laid out and where the view is scrolled.
package thread

import (
	"strings"
	"supportdesk/internal/content"
	"supportdesk/internal/models"
	"time"

	"github.com/charmbracelet/lipgloss"
)

type Align int

const (
	AlignLeft Align = iota
	AlignRight
)

// Line is one rendered message.
type Line struct {
	Align  Align
	Sender models.SenderRole
	Text   string
	At     time.Time
	Unread bool
}

// Frame is what the detail pane shows: the selected conversation's lines and
// the index of the first visible line.
type Frame struct {
	ConversationID string
	Title          string
	Closed         bool
	Lines          []Line
	Offset         int
}

type View struct {
	selected     string
	autoSelected bool
	height       int

	followID    string
	followCount int
	offset      int
}

// New creates a view showing height lines at a time. A height of zero or less
// shows the whole thread.
func New(height int) *View {
	return &View{height: height}
}

// OnLoaded auto-selects the first conversation of a freshly loaded, non-empty
// list. It does so at most once per view and never overrides a selection.
func (v *View) OnLoaded(list []models.Conversation) bool {
	if v.autoSelected || v.selected != "" || len(list) == 0 {
		return false
	}
	v.autoSelected = true
	v.selected = list[0].ID
	return true
}

// Select makes id the selected conversation.
func (v *View) Select(id string) {
	v.autoSelected = true
	v.selected = id
}

func (v *View) Selected() (string, bool) {
	return v.selected, v.selected != ""
}

// Sync refreshes the frame for the selected conversation. conv is nil when the
// selected conversation is not in the cache. The view jumps to the latest
// message whenever the selection or its message count changed; it reports
// whether it did.
func (v *View) Sync(conv *models.Conversation) (Frame, bool) {
	if conv == nil {
		v.followID, v.followCount, v.offset = "", 0, 0
		return Frame{ConversationID: v.selected}, false
	}

	lines := Render(conv)
	scrolled := false
	if conv.ID != v.followID || len(conv.Messages) != v.followCount {
		v.followID = conv.ID
		v.followCount = len(conv.Messages)
		v.offset = v.latestOffset(len(lines))
		scrolled = true
	}

	return Frame{
		ConversationID: conv.ID,
		Title:          content.Sanitize(conv.DisplayName()),
		Closed:         conv.Closed,
		Lines:          lines,
		Offset:         v.offset,
	}, scrolled
}

// Scroll moves the view by delta lines, clamped to the thread.
func (v *View) Scroll(delta int) {
	v.offset += delta
	if maxOffset := v.latestOffset(v.followCount); v.offset > maxOffset {
		v.offset = maxOffset
	}
	if v.offset < 0 {
		v.offset = 0
	}
}

func (v *View) latestOffset(n int) int {
	if v.height <= 0 || n <= v.height {
		return 0
	}
	return n - v.height
}

// Render lays out messages in stored order. Operator messages are right
// aligned, customer messages left aligned.
func Render(conv *models.Conversation) []Line {
	lines := make([]Line, 0, len(conv.Messages))
	for _, m := range conv.Messages {
		l := Line{
			Align:  AlignLeft,
			Sender: m.Sender,
			Text:   content.Sanitize(m.Text),
			At:     m.CreatedAt,
			Unread: m.Sender == models.SenderCustomer && !m.Read,
		}
		if m.Sender == models.SenderOperator {
			l.Align = AlignRight
		}
		lines = append(lines, l)
	}
	return lines
}

var (
	customerStyle = lipgloss.NewStyle().Align(lipgloss.Left)
	operatorStyle = lipgloss.NewStyle().Align(lipgloss.Right).Foreground(lipgloss.Color("#01cdfe"))
	unreadStyle   = customerStyle.Bold(true)
	titleStyle    = lipgloss.NewStyle().Bold(true)
)

// Format draws the visible part of a frame width columns wide.
func Format(f Frame, width int, height int) string {
	var b strings.Builder
	title := f.Title
	if f.Closed {
		title += " (closed)"
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")

	end := len(f.Lines)
	if height > 0 && f.Offset+height < end {
		end = f.Offset + height
	}
	for i := f.Offset; i < end; i++ {
		l := f.Lines[i]
		text := l.At.Format("15:04") + " " + l.Text
		style := customerStyle
		switch {
		case l.Align == AlignRight:
			style = operatorStyle
		case l.Unread:
			style = unreadStyle
		}
		b.WriteString(style.Width(width).Render(text))
		b.WriteString("\n")
	}
	return b.String()
}
