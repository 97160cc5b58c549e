package session_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/bdobrica/Togusa/internal/togusa/session"
)

func TestRecordContext_LastWriteWins(t *testing.T) {
	st := session.NewStore(session.Config{})
	s := st.Get("s1")

	s.RecordContext(session.KindAgentsListed, []string{"A", "B"})
	s.RecordContext(session.KindWorkbenchesListed, []string{"1", "2", "3"})

	ctx := s.Context()
	if ctx == nil {
		t.Fatal("expected a context")
	}
	if ctx.Kind != session.KindWorkbenchesListed {
		t.Errorf("Kind: got %q, want %q", ctx.Kind, session.KindWorkbenchesListed)
	}
	if len(ctx.Items) != 3 {
		t.Errorf("Items: got %v, want 3 entries", ctx.Items)
	}
}

func TestContext_CopyIsDefensive(t *testing.T) {
	st := session.NewStore(session.Config{})
	s := st.Get("s1")
	s.RecordContext(session.KindAgentsListed, []string{"A"})

	got := s.Context()
	got.Items[0] = "mutated"
	got.Kind = session.KindWorkbenchRoles

	again := s.Context()
	if again.Items[0] != "A" || again.Kind != session.KindAgentsListed {
		t.Errorf("stored context was mutated through the returned copy: %+v", again)
	}
}

func TestContext_OneOf(t *testing.T) {
	var nilCtx *session.Context
	if nilCtx.OneOf(session.KindAgentsListed) {
		t.Error("nil context should match nothing")
	}

	c := &session.Context{Kind: session.KindAgentsListed}
	if !c.OneOf(session.KindAgentDetails, session.KindAgentsListed) {
		t.Error("expected match for agents listed")
	}
	if c.OneOf(session.KindWorkbenchesListed) {
		t.Error("agent-list context must not satisfy a workbench-list requirement")
	}
}

func TestNoCrossSessionLeakage(t *testing.T) {
	st := session.NewStore(session.Config{})
	st.Get("alice").RecordContext(session.KindAgentsListed, []string{"A"})

	if ctx := st.Get("bob").Context(); ctx != nil {
		t.Errorf("bob should have no context, got %+v", ctx)
	}
}

func TestHistory_BoundedOldestDropped(t *testing.T) {
	st := session.NewStore(session.Config{MaxTurns: 3})
	s := st.Get("s1")

	for i := 0; i < 5; i++ {
		s.AppendTurn("user", fmt.Sprintf("msg-%d", i))
	}

	h := s.History()
	if len(h) != 3 {
		t.Fatalf("history length: got %d, want 3", len(h))
	}
	if h[0].Text != "msg-2" || h[2].Text != "msg-4" {
		t.Errorf("expected oldest entries dropped, got %v", h)
	}
}

func TestClearHistory_KeepsContext(t *testing.T) {
	st := session.NewStore(session.Config{})
	s := st.Get("s1")
	s.RecordContext(session.KindAgentsListed, []string{"A"})
	s.AppendTurn("user", "list agents")

	s.ClearHistory()

	if len(s.History()) != 0 {
		t.Error("history should be empty after clear")
	}
	if s.Context() == nil {
		t.Error("context should survive a history clear")
	}
}

func TestBackendToggle(t *testing.T) {
	st := session.NewStore(session.Config{BackendDefault: true})
	s := st.Get("s1")
	if !s.BackendEnabled() {
		t.Fatal("expected backend enabled by default")
	}
	s.SetBackendEnabled(false)
	if s.BackendEnabled() {
		t.Error("expected backend disabled after toggle")
	}

	// The toggle is session-level: a fresh session gets the default again.
	if !st.Get("s2").BackendEnabled() {
		t.Error("new session should start from the configured default")
	}
}

func TestStore_GetConcurrent(t *testing.T) {
	st := session.NewStore(session.Config{})
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s := st.Get("shared")
			s.AppendTurn("user", fmt.Sprintf("turn-%d", n))
		}(i)
	}
	wg.Wait()

	if st.Len() != 1 {
		t.Errorf("expected a single session, got %d", st.Len())
	}
	if got := len(st.Get("shared").History()); got != 10 {
		t.Errorf("expected all 10 turns recorded, got %d", got)
	}
}
