package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"supportdesk/internal/models"
	"supportdesk/internal/protocol"
	"supportdesk/internal/stubs"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// backend is an in-memory dashboard backend with a push socket.
type backend struct {
	mu      sync.Mutex
	convs   map[string]models.Conversation
	replies []string
	pushes  chan models.Conversation
}

func newBackend() *backend {
	b := &backend{convs: make(map[string]models.Conversation), pushes: make(chan models.Conversation, 4)}
	for _, c := range stubs.Inbox() {
		b.convs[c.ID] = c
	}
	return b
}

func (b *backend) handler(t *testing.T) http.Handler {
	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/chats", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		list := make([]models.Conversation, 0, len(b.convs))
		for _, c := range b.convs {
			list = append(list, c)
		}
		_ = json.NewEncoder(w).Encode(list)
	})

	mux.HandleFunc("POST /api/chats/{id}/reply", func(w http.ResponseWriter, r *http.Request) {
		var req models.ReplyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		b.mu.Lock()
		conv, ok := b.convs[r.PathValue("id")]
		if ok {
			conv = stubs.WithReply(conv, req.Text, 50)
			b.convs[conv.ID] = conv
			b.replies = append(b.replies, conv.ID+":"+req.Text)
		}
		b.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(models.APIResponse{Message: "chat not found"})
			return
		}
		_ = json.NewEncoder(w).Encode(conv)
		b.pushes <- conv
	})

	mux.HandleFunc("PATCH /api/chats/{id}/read", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		conv := b.convs[r.PathValue("id")].Clone()
		for i := range conv.Messages {
			conv.Messages[i].Read = true
		}
		b.convs[conv.ID] = conv
		_ = json.NewEncoder(w).Encode(conv)
	})

	mux.HandleFunc("GET /api/orders/summary", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(models.OrderSummary{Total: 10, Pending: 7, Delivered: 3})
	})

	mux.HandleFunc("/socket", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer func() { _ = conn.Close() }()

		var req protocol.Frame
		if err := conn.ReadJSON(&req); err != nil || req.Event != protocol.EventGetOnlineUsers {
			return
		}
		snap := stubs.Frame(protocol.PresenceSnapshot{IDs: []string{"u-bob"}})
		if err := conn.WriteJSON(snap); err != nil {
			return
		}

		gone := make(chan struct{})
		go func() {
			defer close(gone)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case conv := <-b.pushes:
				if err := conn.WriteJSON(stubs.Frame(protocol.ConversationUpdated{Conversation: conv})); err != nil {
					return
				}
			case <-gone:
				return
			}
		}
	})

	return mux
}

func (b *backend) sentReplies() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.replies...)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func TestIntegration(t *testing.T) {
	b := newBackend()
	srv := httptest.NewServer(b.handler(t))
	defer srv.Close()

	statusAddr := "127.0.0.1:8889"
	t.Setenv("API_URL", srv.URL+"/api")
	t.Setenv("WS_URL", "ws"+strings.TrimPrefix(srv.URL, "http")+"/socket")
	t.Setenv("STATUS_ADDR", statusAddr)
	t.Setenv("LOG_LEVEL", "error")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stdin, input := io.Pipe()
	defer func() { _ = input.Close() }()
	var stdout syncBuffer

	done := make(chan error, 1)
	go func() {
		done <- run(ctx, nil, stdin, &stdout)
	}()

	waitForServer(t, fmt.Sprintf("http://%s/badges", statusAddr), 20)

	// Step 1: Inbox loaded, first conversation auto-selected and marked read
	require.Eventually(t, func() bool {
		return getJSON(fmt.Sprintf("http://%s/badges", statusAddr)) == `{"unreadChats":1,"pendingOrders":7}`
	}, 3*time.Second, 20*time.Millisecond)
	require.Contains(t, stdout.String(), "Bob Stone")

	// Step 2: Presence snapshot arrived over the socket
	require.Eventually(t, func() bool {
		return getJSON(fmt.Sprintf("http://%s/presence", statusAddr)) == `{"online":["u-bob"]}`
	}, 3*time.Second, 20*time.Millisecond)

	// Step 3: Reply to the guest conversation
	_, err := io.WriteString(input, "/select c2\n  On its way  \n")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return len(b.sentReplies()) == 1
	}, 3*time.Second, 20*time.Millisecond)
	require.Equal(t, []string{"c2:On its way"}, b.sentReplies())
	require.Eventually(t, func() bool {
		return strings.Contains(stdout.String(), "On its way")
	}, 3*time.Second, 20*time.Millisecond)

	// Step 4: Quit
	_, err = io.WriteString(input, "/quit\n")
	require.NoError(t, err)
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("console did not quit")
	}
}

func TestListMode(t *testing.T) {
	b := newBackend()
	srv := httptest.NewServer(b.handler(t))
	defer srv.Close()

	t.Setenv("API_URL", srv.URL+"/api")
	t.Setenv("WS_URL", "")

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-list"}, nil, &out))
	require.Contains(t, out.String(), "Alice Moreau")
	require.Contains(t, out.String(), "3 conversations, 2 with unread messages, 7 pending orders")
}

func TestBadConfig(t *testing.T) {
	t.Setenv("API_URL", "not a url")
	err := run(context.Background(), nil, nil, io.Discard)
	require.Error(t, err)
}

func getJSON(url string) string {
	resp, err := http.Get(url)
	if err != nil {
		return ""
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(body))
}

func waitForServer(t *testing.T, urlStr string, retries int) {
	client := &http.Client{Timeout: 500 * time.Millisecond}

	for i := 0; i < retries; i++ {
		resp, err := client.Get(urlStr)
		if err == nil {
			_ = resp.Body.Close()
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("Server failed to start at %s after %d retries", urlStr, retries)
}
