// Package stubs provides canned conversations for tests and local demos.
package stubs

import (
	"encoding/json"
	"supportdesk/internal/models"
	"supportdesk/internal/protocol"
	"time"
)

// Epoch is the reference time all stub timestamps are derived from.
var Epoch = time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

func At(minutes int) time.Time {
	return Epoch.Add(time.Duration(minutes) * time.Minute)
}

func Customer(text string, minutes int, read bool) models.Message {
	return models.Message{Sender: models.SenderCustomer, Text: text, CreatedAt: At(minutes), Read: read}
}

func Operator(text string, minutes int) models.Message {
	return models.Message{Sender: models.SenderOperator, Text: text, CreatedAt: At(minutes), Read: true}
}

// Guest builds a guest conversation last updated at the given minute.
func Guest(id, guestID string, minutes int, msgs ...models.Message) models.Conversation {
	return build(models.Conversation{ID: id, GuestID: guestID}, minutes, msgs)
}

// Registered builds a conversation owned by a registered customer.
func Registered(id string, user models.UserRef, minutes int, msgs ...models.Message) models.Conversation {
	return build(models.Conversation{ID: id, User: &user}, minutes, msgs)
}

// WithReply returns a copy of conv with an operator reply appended at minutes.
func WithReply(conv models.Conversation, text string, minutes int) models.Conversation {
	conv = conv.Clone()
	conv.Messages = append(conv.Messages, Operator(text, minutes))
	conv.LastMessage = text
	conv.UpdatedAt = At(minutes)
	return conv
}

func build(c models.Conversation, minutes int, msgs []models.Message) models.Conversation {
	c.Messages = msgs
	c.CreatedAt = Epoch
	c.UpdatedAt = At(minutes)
	if len(msgs) > 0 {
		c.LastMessage = msgs[len(msgs)-1].Text
	}
	return c
}

var Alice = models.UserRef{ID: "u-alice", Name: "Alice Moreau", Email: "alice@example.com"}
var Bob = models.UserRef{ID: "u-bob", Name: "Bob Stone", Email: "bob@shop.test"}

// Inbox returns three conversations: C1 with one unread customer message,
// C2 fully read, C3 with two customer messages of which one is read.
func Inbox() []models.Conversation {
	return []models.Conversation{
		Registered("c1", Alice, 30,
			Customer("Is the blue jacket back in stock?", 30, false)),
		Guest("c2", "g-1001", 20,
			Customer("Hi", 10, true),
			Operator("Hello! How can I help?", 20)),
		Registered("c3", Bob, 40,
			Customer("My order is late", 35, true),
			Customer("Any update?", 40, false)),
	}
}

// Frame encodes ev the way the backend pushes it.
func Frame(ev protocol.Event) protocol.Frame {
	var payload any
	switch ev := ev.(type) {
	case protocol.PresenceSnapshot:
		payload = ev.IDs
	case protocol.PresenceDelta:
		status := protocol.StatusOffline
		if ev.Online {
			status = protocol.StatusOnline
		}
		payload = map[string]string{"id": ev.ID, "status": status}
	case protocol.ConversationUpdated:
		payload = ev.Conversation
	}
	data, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	return protocol.Frame{Event: protocol.Name(ev), Data: data}
}
