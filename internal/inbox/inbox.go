// Package inbox holds the session's authoritative list of conversations,
// ordered most recently active first.
package inbox

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"supportdesk/internal/models"
)

type Cache struct {
	conversations []models.Conversation
	version       uint64
}

func New() *Cache {
	return &Cache{}
}

// Replace installs a freshly fetched list. Invalid entries are skipped and
// reported in the returned error while the valid rest is still installed.
// Duplicate ids keep the last occurrence.
func (c *Cache) Replace(list []models.Conversation) error {
	var skipped []error
	seen := make(map[string]int, len(list))
	result := make([]models.Conversation, 0, len(list))
	for i := range list {
		if err := list[i].Validate(); err != nil {
			skipped = append(skipped, fmt.Errorf("conversation %d: %w", i, err))
			continue
		}
		conv := list[i].Clone()
		if idx, ok := seen[conv.ID]; ok {
			result[idx] = conv
			continue
		}
		seen[conv.ID] = len(result)
		result = append(result, conv)
	}

	sortByActivity(result)
	c.conversations = result
	c.version++
	return errors.Join(skipped...)
}

// Upsert removes any entry with the same id, prepends conv and re-sorts.
// The sort is stable, so conv stays ahead of entries with an equal UpdatedAt.
func (c *Cache) Upsert(conv models.Conversation) {
	result := make([]models.Conversation, 0, len(c.conversations)+1)
	result = append(result, conv.Clone())
	for _, existing := range c.conversations {
		if existing.ID != conv.ID {
			result = append(result, existing)
		}
	}

	sortByActivity(result)
	c.conversations = result
	c.version++
}

func (c *Cache) Get(id string) (models.Conversation, error) {
	for _, conv := range c.conversations {
		if conv.ID == id {
			return conv.Clone(), nil
		}
	}
	return models.Conversation{}, fmt.Errorf("conversation %s: %w", id, models.ErrNotFound)
}

// List returns a copy of all conversations in cache order.
func (c *Cache) List() []models.Conversation {
	return c.Filter("")
}

// Filter returns the conversations whose customer name, email or guest id
// contains query, ignoring case. It never mutates the cache.
func (c *Cache) Filter(query string) []models.Conversation {
	query = strings.ToLower(strings.TrimSpace(query))
	result := make([]models.Conversation, 0, len(c.conversations))
	for _, conv := range c.conversations {
		if query == "" || matches(conv, query) {
			result = append(result, conv.Clone())
		}
	}
	return result
}

func (c *Cache) Len() int {
	return len(c.conversations)
}

// Version increases on every change.
func (c *Cache) Version() uint64 {
	return c.version
}

// Each calls fn for every conversation in cache order without copying.
// fn must not retain or modify the conversation.
func (c *Cache) Each(fn func(conv *models.Conversation)) {
	for i := range c.conversations {
		fn(&c.conversations[i])
	}
}

func matches(conv models.Conversation, query string) bool {
	if conv.User != nil {
		if strings.Contains(strings.ToLower(conv.User.Name), query) ||
			strings.Contains(strings.ToLower(conv.User.Email), query) {
			return true
		}
	}
	return conv.GuestID != "" && strings.Contains(strings.ToLower(conv.GuestID), query)
}

func sortByActivity(list []models.Conversation) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].UpdatedAt.After(list[j].UpdatedAt)
	})
}
