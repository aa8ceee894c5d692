// Package reply owns the operator's input buffer and turns it into send
// requests. The input is cleared as soon as a request is issued; the message
// itself only shows up once the backend reports the updated conversation.
package reply

import (
	"errors"
	"supportdesk/internal/content"

	"github.com/google/uuid"
)

// Request is one outbound reply.
type Request struct {
	ID             string
	ConversationID string
	Text           string
}

type Dispatcher struct {
	input    string
	maxRunes int
	inFlight map[string]Request
}

func NewDispatcher(maxRunes int) *Dispatcher {
	return &Dispatcher{
		maxRunes: maxRunes,
		inFlight: make(map[string]Request),
	}
}

func (d *Dispatcher) SetInput(text string) {
	d.input = text
}

func (d *Dispatcher) Input() string {
	return d.input
}

// Send prepares a reply of text to conversationID. It returns ok=false, and
// leaves all state untouched, when the text is blank or nothing is selected.
// A text over the length limit returns an error and keeps the input.
// On success the input is cleared and the request is tracked until
// Complete or Fail is called.
func (d *Dispatcher) Send(conversationID, text string) (Request, bool, error) {
	if conversationID == "" {
		return Request{}, false, nil
	}
	normalized, err := content.NormalizeReply(text, d.maxRunes)
	if errors.Is(err, content.ErrEmptyReply) {
		return Request{}, false, nil
	}
	if err != nil {
		return Request{}, false, err
	}

	req := Request{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Text:           normalized,
	}
	d.input = ""
	d.inFlight[req.ID] = req
	return req, true, nil
}

// Submit sends the current input to the selected conversation.
func (d *Dispatcher) Submit(selectedID string) (Request, bool, error) {
	return d.Send(selectedID, d.input)
}

// Complete forgets a request that reached the backend.
func (d *Dispatcher) Complete(id string) {
	delete(d.inFlight, id)
}

// Fail forgets a failed request. Its text goes back to the input, unless the
// operator already typed something new, and Fail reports whether it did.
func (d *Dispatcher) Fail(id string) bool {
	req, ok := d.inFlight[id]
	if !ok {
		return false
	}
	delete(d.inFlight, id)
	if d.input != "" {
		return false
	}
	d.input = req.Text
	return true
}

// Pending is the number of replies sent but not yet acknowledged.
func (d *Dispatcher) Pending() int {
	return len(d.inFlight)
}
