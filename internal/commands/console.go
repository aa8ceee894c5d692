package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"supportdesk/internal/desk"
	"supportdesk/internal/thread"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// ErrQuit is returned by Execute for the quit command.
var ErrQuit = errors.New("quit")

// Operator is the part of desk.View the console drives.
type Operator interface {
	Select(ctx context.Context, id string) error
	SendReply(ctx context.Context, text string) error
	SetFilter(ctx context.Context, query string) error
	Scroll(ctx context.Context, delta int) error
	CloseConversation(ctx context.Context) error
}

var (
	headerStyle   = lipgloss.NewStyle().Bold(true)
	selectedStyle = lipgloss.NewStyle().Reverse(true)
	onlineStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#05ffa1"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff71ce"))
	mutedStyle    = lipgloss.NewStyle().Faint(true)
)

const helpText = "/select <id>  /filter <text>  /up [n]  /down [n]  /close  /quit  or type a reply (// for a leading slash)"

// Console draws snapshots as plain terminal frames. It implements
// desk.Renderer.
type Console struct {
	out    io.Writer
	width  int
	height int

	mu   sync.Mutex
	last string
}

func NewConsole(out io.Writer, width, height int) *Console {
	return &Console{out: out, width: width, height: height}
}

func (c *Console) Render(s desk.Snapshot) {
	frame := Draw(s, c.width, c.height)

	c.mu.Lock()
	defer c.mu.Unlock()
	if frame == c.last {
		return
	}
	c.last = frame
	_, _ = io.WriteString(c.out, "\033[H\033[2J"+frame)
}

// Draw lays out one console frame.
func Draw(s desk.Snapshot, width, height int) string {
	var b strings.Builder

	status := "live"
	if !s.Connected {
		status = "offline"
	}
	b.WriteString(headerStyle.Render(fmt.Sprintf("Support  chats: %d unread  orders: %d pending  [%s]",
		s.Badges.UnreadChats, s.Badges.PendingOrders, status)))
	b.WriteString("\n")
	if s.Filter != "" {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("filter %q: %d of %d", s.Filter, len(s.Rows), s.Total)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch {
	case !s.Loaded:
		b.WriteString(mutedStyle.Render("Loading conversations..."))
		b.WriteString("\n")
	case len(s.Rows) == 0:
		b.WriteString(mutedStyle.Render("No conversations"))
		b.WriteString("\n")
	}
	for _, r := range s.Rows {
		b.WriteString(drawRow(r))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if s.Selected != "" {
		b.WriteString(thread.Format(s.Thread, width, height))
	}

	for _, n := range s.Notices {
		style := mutedStyle
		if n.Level == desk.NoticeError {
			style = errorStyle
		}
		b.WriteString(style.Render(n.At.Format("15:04:05") + " " + n.Text))
		b.WriteString("\n")
	}

	if s.Sending > 0 {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("Sending... (%d in flight)", s.Sending)))
		b.WriteString("\n")
	}

	b.WriteString(mutedStyle.Render(helpText))
	b.WriteString("\n> ")
	b.WriteString(s.Input)
	return b.String()
}

func drawRow(r desk.Row) string {
	dot := " "
	if r.Online {
		dot = onlineStyle.Render("●")
	}
	unread := ""
	if r.Unread > 0 {
		unread = fmt.Sprintf(" (%d)", r.Unread)
	}
	closed := ""
	if r.Closed {
		closed = " [closed]"
	}
	line := fmt.Sprintf("%s %-8s %s%s%s  %s", dot, r.ID, r.Name, unread, closed, r.LastMessage)
	if r.Selected {
		return selectedStyle.Render(line)
	}
	return line
}

// Execute runs one console input line against op. Lines without a leading
// slash are replies; a doubled slash sends the rest of the line verbatim.
func Execute(ctx context.Context, op Operator, line string) error {
	if !strings.HasPrefix(line, "/") {
		return op.SendReply(ctx, line)
	}
	if strings.HasPrefix(line, "//") {
		return op.SendReply(ctx, line[1:])
	}

	name, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "/select":
		if arg == "" {
			return errors.New("usage: /select <id>")
		}
		return op.Select(ctx, arg)
	case "/filter":
		return op.SetFilter(ctx, arg)
	case "/up", "/down":
		n := 1
		if arg != "" {
			var err error
			if n, err = strconv.Atoi(arg); err != nil {
				return fmt.Errorf("invalid line count %q", arg)
			}
		}
		if name == "/up" {
			n = -n
		}
		return op.Scroll(ctx, n)
	case "/close":
		return op.CloseConversation(ctx)
	case "/quit":
		return ErrQuit
	default:
		return fmt.Errorf("unknown command %s", name)
	}
}

// RunConsole reads operator input line by line until ctx is done, in is
// exhausted or the operator quits. Command errors are written to errOut.
func RunConsole(ctx context.Context, in io.Reader, errOut io.Writer, op Operator) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return err
		case line := <-lines:
			err := Execute(ctx, op, line)
			switch {
			case errors.Is(err, ErrQuit):
				return ErrQuit
			case err != nil:
				_, _ = fmt.Fprintln(errOut, errorStyle.Render(err.Error()))
			}
		}
	}
}
