// Package protocol defines the push channel frames exchanged with the backend.
// Incoming frames are parsed and validated once here; the rest of the module
// only sees the typed Event variants.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"supportdesk/internal/models"
)

// Events consumed from the backend
const (
	EventOnlineUsersList   = "online_users_list"
	EventUserStatusChanged = "user_status_changed"
	EventChatListUpdated   = "chat_list_updated"
)

// Events emitted to the backend
const (
	EventGetOnlineUsers = "get_online_users"
)

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

var (
	ErrUnknownEvent   = errors.New("unknown event")
	ErrInvalidPayload = errors.New("invalid payload")
)

// Frame is the wire envelope of every push channel message.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Event is one of PresenceSnapshot, PresenceDelta or ConversationUpdated.
type Event interface {
	eventName() string
}

// PresenceSnapshot replaces the whole presence set.
type PresenceSnapshot struct {
	IDs []string
}

// PresenceDelta moves one participant online or offline.
type PresenceDelta struct {
	ID     string
	Online bool
}

// ConversationUpdated carries a full conversation to upsert.
type ConversationUpdated struct {
	Conversation models.Conversation
}

func (PresenceSnapshot) eventName() string    { return EventOnlineUsersList }
func (PresenceDelta) eventName() string       { return EventUserStatusChanged }
func (ConversationUpdated) eventName() string { return EventChatListUpdated }

// Name returns the wire name of an event.
func Name(e Event) string {
	return e.eventName()
}

type statusPayload struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Decode turns a frame into a validated Event.
func Decode(f Frame) (Event, error) {
	switch f.Event {
	case EventOnlineUsersList:
		var ids []string
		if err := json.Unmarshal(f.Data, &ids); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, f.Event, err)
		}
		clean := make([]string, 0, len(ids))
		for _, id := range ids {
			if id != "" {
				clean = append(clean, id)
			}
		}
		return PresenceSnapshot{IDs: clean}, nil

	case EventUserStatusChanged:
		var p statusPayload
		if err := json.Unmarshal(f.Data, &p); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, f.Event, err)
		}
		if p.ID == "" {
			return nil, fmt.Errorf("%w: %s: missing id", ErrInvalidPayload, f.Event)
		}
		switch p.Status {
		case StatusOnline:
			return PresenceDelta{ID: p.ID, Online: true}, nil
		case StatusOffline:
			return PresenceDelta{ID: p.ID, Online: false}, nil
		default:
			return nil, fmt.Errorf("%w: %s: status %q", ErrInvalidPayload, f.Event, p.Status)
		}

	case EventChatListUpdated:
		var c models.Conversation
		if err := json.Unmarshal(f.Data, &c); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, f.Event, err)
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, f.Event, err)
		}
		return ConversationUpdated{Conversation: c}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, f.Event)
}

// Parse decodes a raw frame.
func Parse(data []byte) (Event, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return Decode(f)
}

// GetOnlineUsers is the presence snapshot request emitted on connect.
func GetOnlineUsers() Frame {
	return Frame{Event: EventGetOnlineUsers}
}
