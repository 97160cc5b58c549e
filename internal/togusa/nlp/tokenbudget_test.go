package nlp_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/bdobrica/Togusa/internal/togusa/nlp"
)

func TestTokenBudgetAllowsUnderBudget(t *testing.T) {
	tb := nlp.NewTokenBudget(1000)

	if !tb.Allow("web:session-1") {
		t.Error("fresh session should be allowed")
	}
	tb.RecordUsage("web:session-1", 500)
	if !tb.Allow("web:session-1") {
		t.Error("session under budget should be allowed")
	}
}

func TestTokenBudgetRejectsWhenExhausted(t *testing.T) {
	tb := nlp.NewTokenBudget(1000)

	tb.RecordUsage("web:session-1", 1000)
	if tb.Allow("web:session-1") {
		t.Error("session at budget should be rejected")
	}
}

func TestTokenBudgetRejectsWhenOverdrawn(t *testing.T) {
	tb := nlp.NewTokenBudget(1000)

	// A single large completion can overshoot the budget; the next
	// request must still be rejected.
	tb.RecordUsage("web:session-1", 1500)
	if tb.Allow("web:session-1") {
		t.Error("overdrawn session should be rejected")
	}
}

func TestTokenBudgetIndependentPerSession(t *testing.T) {
	tb := nlp.NewTokenBudget(1000)

	tb.RecordUsage("web:session-1", 1000)
	if tb.Allow("web:session-1") {
		t.Error("exhausted session should be rejected")
	}
	if !tb.Allow("@ops:example.com") {
		t.Error("other session should have its own budget")
	}
}

func TestTokenBudgetAccumulates(t *testing.T) {
	tb := nlp.NewTokenBudget(1000)

	tb.RecordUsage("web:session-1", 300)
	tb.RecordUsage("web:session-1", 300)
	tb.RecordUsage("web:session-1", 300)
	if !tb.Allow("web:session-1") {
		t.Error("900 of 1000 should still be allowed")
	}
	tb.RecordUsage("web:session-1", 300)
	if tb.Allow("web:session-1") {
		t.Error("1200 of 1000 should be rejected")
	}
}

func TestTokenBudgetRemaining(t *testing.T) {
	tb := nlp.NewTokenBudget(1000)

	if got := tb.Remaining("web:session-1"); got != 1000 {
		t.Errorf("fresh session remaining: got %d, want 1000", got)
	}
	tb.RecordUsage("web:session-1", 400)
	if got := tb.Remaining("web:session-1"); got != 600 {
		t.Errorf("after 400 tokens remaining: got %d, want 600", got)
	}
	if got := tb.Used("web:session-1"); got != 400 {
		t.Errorf("used: got %d, want 400", got)
	}
}

func TestTokenBudgetRemainingClampsToZero(t *testing.T) {
	tb := nlp.NewTokenBudget(1000)

	tb.RecordUsage("web:session-1", 1500)
	if got := tb.Remaining("web:session-1"); got != 0 {
		t.Errorf("overdrawn remaining: got %d, want 0", got)
	}
}

func TestTokenBudgetDefault(t *testing.T) {
	tb := nlp.NewTokenBudget(0)

	if got := tb.Budget(); got != nlp.DefaultTokenBudget {
		t.Errorf("budget: got %d, want %d", got, nlp.DefaultTokenBudget)
	}
}

func TestTokenBudgetConcurrentAccess(t *testing.T) {
	tb := nlp.NewTokenBudget(1_000_000)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			session := fmt.Sprintf("web:session-%d", n)
			for j := 0; j < 50; j++ {
				tb.Allow(session)
				tb.RecordUsage(session, 10)
				tb.Remaining(session)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 10; i++ {
		session := fmt.Sprintf("web:session-%d", i)
		if got := tb.Used(session); got != 500 {
			t.Errorf("session %d used: got %d, want 500", i, got)
		}
	}
}
