package ratelimit

import (
	"testing"
	"time"
)

func TestAllowRefills(t *testing.T) {
	now := time.Date(2025, 7, 25, 10, 0, 0, 0, time.UTC)
	l := New(2, 2)
	l.now = func() time.Time { return now }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatalf("burst of 2 should pass")
	}
	if l.Allow("a") {
		t.Fatalf("third call should be limited")
	}
	if !l.Allow("b") {
		t.Fatalf("keys are independent")
	}
	now = now.Add(500 * time.Millisecond)
	if !l.Allow("a") {
		t.Fatalf("one token should have refilled")
	}
}

func TestSweep(t *testing.T) {
	now := time.Date(2025, 7, 25, 10, 0, 0, 0, time.UTC)
	l := New(1, 1)
	l.now = func() time.Time { return now }
	l.Allow("a")
	now = now.Add(time.Minute)
	l.Allow("b")
	if n := l.Sweep(30 * time.Second); n != 1 {
		t.Fatalf("swept %d, want 1", n)
	}
}
