package environment_test

import (
	"testing"
	"time"

	"github.com/bdobrica/Togusa/common/environment"
)

func TestPrefixedName(t *testing.T) {
	env := environment.Prefixed("TOGUSA_")
	if got := env.Name("DB_PATH"); got != "TOGUSA_DB_PATH" {
		t.Errorf("expected %q, got %q", "TOGUSA_DB_PATH", got)
	}
}

func TestStringOr(t *testing.T) {
	env := environment.Prefixed("TEST_")
	t.Setenv("TEST_STRING", "hello")
	if got := env.StringOr("STRING", "default"); got != "hello" {
		t.Errorf("expected %q, got %q", "hello", got)
	}
	if got := env.StringOr("STRING_MISSING", "default"); got != "default" {
		t.Errorf("expected %q, got %q", "default", got)
	}
}

func TestString(t *testing.T) {
	env := environment.Prefixed("TEST_")
	t.Setenv("TEST_EMPTY", "")
	if _, ok := env.String("EMPTY"); !ok {
		t.Error("expected set=true for empty but present variable")
	}
	if _, ok := env.String("NEVER_SET"); ok {
		t.Error("expected set=false for absent variable")
	}
}

func TestRequiredString(t *testing.T) {
	env := environment.Prefixed("TEST_")
	t.Setenv("TEST_REQUIRED", "value")
	v, err := env.RequiredString("REQUIRED")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "value" {
		t.Errorf("expected %q, got %q", "value", v)
	}

	_, err = env.RequiredString("REQUIRED_MISSING")
	if err == nil {
		t.Error("expected error for missing variable, got nil")
	}
}

func TestBoolOr(t *testing.T) {
	env := environment.Prefixed("TEST_")
	t.Setenv("TEST_BOOL", "true")
	if !env.BoolOr("BOOL", false) {
		t.Error("expected true")
	}
	t.Setenv("TEST_BOOL", "0")
	if env.BoolOr("BOOL", true) {
		t.Error("expected false")
	}
	if !env.BoolOr("BOOL_MISSING", true) {
		t.Error("expected default true")
	}
}

func TestIntOr(t *testing.T) {
	env := environment.Prefixed("TEST_")
	t.Setenv("TEST_INT", "42")
	if got := env.IntOr("INT", 0); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
	if got := env.IntOr("INT_MISSING", 99); got != 99 {
		t.Errorf("expected 99, got %d", got)
	}
	t.Setenv("TEST_INT_BAD", "notanint")
	if got := env.IntOr("INT_BAD", 7); got != 7 {
		t.Errorf("expected default 7 for bad value, got %d", got)
	}
}

func TestDurationOr(t *testing.T) {
	env := environment.Prefixed("TEST_")
	t.Setenv("TEST_DUR", "30s")
	if got := env.DurationOr("DUR", time.Minute); got != 30*time.Second {
		t.Errorf("expected 30s, got %v", got)
	}
	if got := env.DurationOr("DUR_MISSING", time.Minute); got != time.Minute {
		t.Errorf("expected 1m, got %v", got)
	}
}

func TestStringSliceOr(t *testing.T) {
	env := environment.Prefixed("TEST_")
	t.Setenv("TEST_SLICE", "a, b , c")
	got := env.StringSliceOr("SLICE", nil)
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("unexpected result: %v", got)
	}
	fallback := []string{"x"}
	if got := env.StringSliceOr("SLICE_MISSING", fallback); len(got) != 1 || got[0] != "x" {
		t.Errorf("expected fallback, got %v", got)
	}
}
