package store

import (
	"testing"
	"time"

	"murmur/agent/internal/types"
)

func TestCreateAndGetSession(t *testing.T) {
	st := New()
	s := &types.Session{ID: "abc123", CreatedAt: time.Now(), Status: "created"}
	if err := st.CreateSession(s); err != nil {
		t.Fatalf("create session: %v", err)
	}
	got := st.GetSession("abc123")
	if got == nil || got.ID != s.ID {
		t.Fatalf("expected session %q, got %#v", s.ID, got)
	}
	if err := st.CreateSession(s); err != ErrSessionExists {
		t.Fatalf("expected ErrSessionExists, got %v", err)
	}
}

func TestSetStatusAndLastUtterance(t *testing.T) {
	st := New()
	_ = st.CreateSession(&types.Session{ID: "abc", Status: "created"})

	st.SetStatus("abc", "active")
	if got := st.GetSession("abc").Status; got != "active" {
		t.Fatalf("expected status active, got %q", got)
	}

	at := time.Now().UTC()
	st.SetLastUtterance("abc", "hold on", at)
	sess := st.GetSession("abc")
	if sess.LastUtterance != "hold on" || sess.LastUtteranceAt == nil {
		t.Fatalf("last utterance not recorded: %#v", sess)
	}
}

func TestEventCapTruncates(t *testing.T) {
	st := New()
	_ = st.CreateSession(&types.Session{ID: "abc"})
	for i := 0; i < 250; i++ {
		st.AppendEvent("abc", "utterance_ignored", nil)
	}
	events := st.ListEvents("abc")
	if len(events) > 200 {
		t.Fatalf("expected events capped at 200, got %d", len(events))
	}
	last := events[len(events)-1]
	if last.Type != "events_truncated" {
		t.Fatalf("expected trailing truncation marker, got %q", last.Type)
	}
}
