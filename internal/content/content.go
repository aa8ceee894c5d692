package content

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policy = bluemonday.StrictPolicy()

	ErrEmptyReply   = errors.New("reply is empty")
	ErrReplyTooLong = errors.New("reply is too long")
)

// Sanitize strips every HTML tag from customer supplied text so it can be
// printed to a terminal as-is. Entities are decoded back to plain characters.
func Sanitize(input string) string {
	return html.UnescapeString(policy.Sanitize(input))
}

// NormalizeReply trims the reply and checks it is non-empty and at most
// maxRunes long. A maxRunes of zero disables the length check.
func NormalizeReply(text string, maxRunes int) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyReply
	}
	if maxRunes > 0 {
		if n := utf8.RuneCountInString(text); n > maxRunes {
			return "", fmt.Errorf("%w: %d characters, limit is %d", ErrReplyTooLong, n, maxRunes)
		}
	}
	return text, nil
}
