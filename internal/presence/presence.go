// Package presence tracks which customers currently hold a live connection.
// Anyone not in the set is offline.
package presence

import (
	"sort"

	"github.com/c-pro/geche"
)

type Store struct {
	online *geche.MapCache[string, struct{}]
}

func New() *Store {
	return &Store{online: geche.NewMapCache[string, struct{}]()}
}

// Replace drops the current set and installs ids as the online set.
func (s *Store) Replace(ids []string) {
	online := geche.NewMapCache[string, struct{}]()
	for _, id := range ids {
		online.Set(id, struct{}{})
	}
	s.online = online
}

func (s *Store) SetOnline(id string) {
	s.online.Set(id, struct{}{})
}

func (s *Store) SetOffline(id string) {
	// Del on a missing key is not an error for us.
	_ = s.online.Del(id)
}

func (s *Store) IsOnline(id string) bool {
	_, err := s.online.Get(id)
	return err == nil
}

// Online returns the online ids in lexical order.
func (s *Store) Online() []string {
	snap := s.online.Snapshot()
	ids := make([]string, 0, len(snap))
	for id := range snap {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
