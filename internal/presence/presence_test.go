package presence

import (
	"reflect"
	"testing"
)

func TestStore_Replace(t *testing.T) {
	s := New()
	s.SetOnline("stale")

	s.Replace([]string{"u1", "g-7"})

	for _, id := range []string{"u1", "g-7"} {
		if !s.IsOnline(id) {
			t.Errorf("expected %s online after snapshot", id)
		}
	}
	if s.IsOnline("stale") {
		t.Error("snapshot must replace the previous set")
	}
	if s.IsOnline("unknown") {
		t.Error("ids outside the snapshot must be offline")
	}
	if got := s.Online(); !reflect.DeepEqual(got, []string{"g-7", "u1"}) {
		t.Errorf("Online() = %v", got)
	}
}

func TestStore_DeltaAfterSnapshot(t *testing.T) {
	s := New()
	s.Replace([]string{"u1", "u2"})

	s.SetOffline("u1")
	if s.IsOnline("u1") {
		t.Error("u1 should be offline after the delta")
	}
	if !s.IsOnline("u2") {
		t.Error("u2 should stay online")
	}

	s.SetOnline("u3")
	if !s.IsOnline("u3") {
		t.Error("u3 should be online after the delta")
	}
	if len(s.Online()) != 2 {
		t.Errorf("Online() = %v, want 2 ids", s.Online())
	}
}

func TestStore_Idempotent(t *testing.T) {
	s := New()
	s.SetOnline("u1")
	s.SetOnline("u1")
	if len(s.Online()) != 1 {
		t.Errorf("Online() = %v, want 1 ids", s.Online())
	}

	s.SetOffline("u1")
	s.SetOffline("u1")
	s.SetOffline("never-seen")
	if len(s.Online()) != 0 {
		t.Errorf("Online() = %v, want 0 ids", s.Online())
	}

	s.Replace(nil)
	if got := s.Online(); len(got) != 0 {
		t.Errorf("Online() = %v, want empty", got)
	}
}
