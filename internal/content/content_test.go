package content

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Plain text", "Hello World", "Hello World"},
		{"HTML tags", "Hello <b>World</b>", "Hello World"},
		{"Script tag", "<script>alert('xss')</script>Hello", "Hello"},
		{"Link", "<a href='javascript:alert(1)'>Click me</a>", "Click me"},
		{"Ampersand", "Fish & Chips", "Fish & Chips"},
		{"Emoji", "I am 🤖", "I am 🤖"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.input); got != tt.expected {
				t.Errorf("Sanitize() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestNormalizeReply(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		max     int
		want    string
		wantErr error
	}{
		{"Trimmed", "  Thanks!  ", 10, "Thanks!", nil},
		{"Whitespace only", " \t\n ", 10, "", ErrEmptyReply},
		{"Empty", "", 10, "", ErrEmptyReply},
		{"Too long", strings.Repeat("a", 11), 10, "", ErrReplyTooLong},
		{"Runes not bytes", "привет", 6, "привет", nil},
		{"No limit", strings.Repeat("a", 5000), 0, strings.Repeat("a", 5000), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeReply(tt.input, tt.max)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("NormalizeReply() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("NormalizeReply() = %q, want %q", got, tt.want)
			}
		})
	}
}
