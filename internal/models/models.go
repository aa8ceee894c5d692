package models

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidConversation = errors.New("invalid conversation")
)

type SenderRole string

const (
	SenderCustomer SenderRole = "customer"
	SenderOperator SenderRole = "operator"
)

// UserRef identifies the registered customer that owns a conversation.
type UserRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Message is a single entry of a conversation thread.
// Only Read ever changes after creation, and only on customer messages.
type Message struct {
	Sender    SenderRole `json:"sender"`
	Text      string     `json:"text"`
	CreatedAt time.Time  `json:"createdAt"`
	Read      bool       `json:"read"`
}

// Conversation is a support chat between one customer (registered or guest)
// and the operator side.
type Conversation struct {
	ID          string    `json:"id"`
	User        *UserRef  `json:"user,omitempty"`
	GuestID     string    `json:"guestId,omitempty"`
	Messages    []Message `json:"messages"`
	LastMessage string    `json:"lastMessage"`
	Closed      bool      `json:"closed"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Validate checks that the conversation has an id and exactly one owner:
// either a user reference or a guest id.
func (c *Conversation) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidConversation)
	}
	if c.User != nil && c.User.ID == "" {
		return fmt.Errorf("%w: %s has a user reference without id", ErrInvalidConversation, c.ID)
	}
	hasUser := c.User != nil
	hasGuest := c.GuestID != ""
	switch {
	case hasUser && hasGuest:
		return fmt.Errorf("%w: %s has both user and guest owner", ErrInvalidConversation, c.ID)
	case !hasUser && !hasGuest:
		return fmt.Errorf("%w: %s has no owner", ErrInvalidConversation, c.ID)
	}
	for i, m := range c.Messages {
		if m.Sender != SenderCustomer && m.Sender != SenderOperator {
			return fmt.Errorf("%w: %s message %d has sender %q", ErrInvalidConversation, c.ID, i, m.Sender)
		}
	}
	return nil
}

// ParticipantID is the presence key of the customer side:
// the user id for registered customers, the guest id otherwise.
func (c *Conversation) ParticipantID() string {
	if c.User != nil && c.User.ID != "" {
		return c.User.ID
	}
	return c.GuestID
}

// DisplayName returns the customer name, or a guest label.
func (c *Conversation) DisplayName() string {
	if c.User != nil && c.User.ID != "" {
		if c.User.Name != "" {
			return c.User.Name
		}
		return c.User.Email
	}
	return "Guest " + c.GuestID
}

// UnreadCount counts customer messages the operator has not read yet.
func (c *Conversation) UnreadCount() int {
	n := 0
	for _, m := range c.Messages {
		if m.Sender == SenderCustomer && !m.Read {
			n++
		}
	}
	return n
}

func (c *Conversation) HasUnread() bool {
	for _, m := range c.Messages {
		if m.Sender == SenderCustomer && !m.Read {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no slices or pointers with c.
func (c Conversation) Clone() Conversation {
	if c.User != nil {
		u := *c.User
		c.User = &u
	}
	if c.Messages != nil {
		msgs := make([]Message, len(c.Messages))
		copy(msgs, c.Messages)
		c.Messages = msgs
	}
	return c
}

// OrderSummary is the aggregate returned by the order summary endpoint.
type OrderSummary struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Shipped    int `json:"shipped"`
	Delivered  int `json:"delivered"`
	Cancelled  int `json:"cancelled"`
}

// Badges are the navigation counters derived from the inbox and order summary.
type Badges struct {
	UnreadChats   int `json:"unreadChats"`
	PendingOrders int `json:"pendingOrders"`
}

// ReplyRequest is the body of a send-reply call.
type ReplyRequest struct {
	Text string `json:"text"`
}

// APIResponse is the generic error envelope returned by the backend.
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
