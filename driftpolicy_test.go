package overlay

import "testing"

func TestDriftPolicyTripsOnMissRatio(t *testing.T) {
	policy := newDriftPolicy(25)
	for i := 0; i < 4000; i++ {
		policy.noteAttempt()
	}
	policy.noteMiss("member-3", "exhausted")
	if signal, ok := policy.consume(); ok {
		t.Fatalf("unexpected pending signal before threshold, got %+v", signal)
	}

	for i := 0; i < 9; i++ {
		policy.noteMiss("member-3", "exhausted")
	}
	signal, ok := policy.consume()
	if !ok {
		t.Fatalf("expected drift hint after exceeding threshold")
	}
	if signal.Misses != 10 {
		t.Fatalf("expected 10 misses, got %d", signal.Misses)
	}
	if signal.Attempts != 4000 {
		t.Fatalf("expected 4000 attempts, got %d", signal.Attempts)
	}
}

func TestDriftPolicyResetAfterConsume(t *testing.T) {
	policy := newDriftPolicy(0)
	policy.noteAttempt()
	policy.noteMiss("self", "refresh")
	if _, ok := policy.consume(); !ok {
		t.Fatalf("expected drift hint after miss")
	}
	if signal, ok := policy.consume(); ok {
		t.Fatalf("expected no signal after reset, got %+v", signal)
	}
	policy.noteAttempt()
	policy.noteAttempt()
	policy.noteMiss("member-1", "refresh")
	if _, ok := policy.consume(); !ok {
		t.Fatalf("expected policy to trigger again after reset")
	}
}

func TestDriftPolicyReasonLimit(t *testing.T) {
	policy := newDriftPolicy(0)
	for i := 0; i < driftReasonLimit+4; i++ {
		policy.noteMiss("member-1", "exhausted")
	}
	signal, ok := policy.consume()
	if !ok {
		t.Fatalf("expected drift hint")
	}
	if len(signal.Reasons) != driftReasonLimit {
		t.Fatalf("expected %d recorded reasons, got %d", driftReasonLimit, len(signal.Reasons))
	}
}
