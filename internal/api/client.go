// Package api is the REST client for the dashboard backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"supportdesk/internal/models"
	"time"

	"github.com/google/uuid"
)

// Error is returned for any non-2xx response.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a client for the backend at baseURL. token, when set, is
// sent as a bearer token.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ListConversations calls GET /chats.
func (c *Client) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	var list []models.Conversation
	if err := c.do(ctx, http.MethodGet, "/chats", nil, &list); err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return list, nil
}

// SendReply calls POST /chats/{id}/reply and returns the updated conversation.
func (c *Client) SendReply(ctx context.Context, conversationID, text string) (models.Conversation, error) {
	var conv models.Conversation
	path := "/chats/" + url.PathEscape(conversationID) + "/reply"
	if err := c.do(ctx, http.MethodPost, path, models.ReplyRequest{Text: text}, &conv); err != nil {
		return models.Conversation{}, fmt.Errorf("failed to send reply: %w", err)
	}
	return conv, nil
}

// MarkRead calls PATCH /chats/{id}/read.
func (c *Client) MarkRead(ctx context.Context, conversationID string) (models.Conversation, error) {
	var conv models.Conversation
	path := "/chats/" + url.PathEscape(conversationID) + "/read"
	if err := c.do(ctx, http.MethodPatch, path, nil, &conv); err != nil {
		return models.Conversation{}, fmt.Errorf("failed to mark conversation read: %w", err)
	}
	return conv, nil
}

// CloseConversation calls PATCH /chats/{id}/close.
func (c *Client) CloseConversation(ctx context.Context, conversationID string) (models.Conversation, error) {
	var conv models.Conversation
	path := "/chats/" + url.PathEscape(conversationID) + "/close"
	if err := c.do(ctx, http.MethodPatch, path, nil, &conv); err != nil {
		return models.Conversation{}, fmt.Errorf("failed to close conversation: %w", err)
	}
	return conv, nil
}

// OrderSummary calls GET /orders/summary.
func (c *Client) OrderSummary(ctx context.Context) (models.OrderSummary, error) {
	var summary models.OrderSummary
	if err := c.do(ctx, http.MethodGet, "/orders/summary", nil, &summary); err != nil {
		return models.OrderSummary{}, fmt.Errorf("failed to fetch order summary: %w", err)
	}
	return summary, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var errResp models.APIResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Message != "" {
			return &Error{Status: resp.StatusCode, Message: errResp.Message}
		}
		return &Error{Status: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
