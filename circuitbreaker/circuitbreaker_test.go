package circuitbreaker

import (
	"testing"
	"time"
)

func TestCircuitBreaker_OpensAtThreshold(t *testing.T) {
	cb := New(Config{Name: "test", Threshold: 3, Cooldown: time.Minute})

	for i := 0; i < 2; i++ {
		cb.RecordFailure()
		if !cb.Allow() {
			t.Fatalf("Circuit should stay closed after %d failures", i+1)
		}
	}

	cb.RecordFailure()
	if cb.Allow() {
		t.Error("Circuit should be open after reaching the threshold")
	}

	state, failures := cb.Status()
	if state != StateOpen || failures != 3 {
		t.Errorf("Expected OPEN with 3 failures, got %s with %d", state, failures)
	}
}

func TestCircuitBreaker_SuccessResets(t *testing.T) {
	cb := New(Config{Name: "test", Threshold: 2, Cooldown: time.Minute})

	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()

	if !cb.Allow() {
		t.Error("Success should have reset the failure count")
	}
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	cb := New(Config{Name: "test", Threshold: 1, Cooldown: 10 * time.Millisecond})

	cb.RecordFailure()
	if cb.Allow() {
		t.Fatal("Circuit should be open")
	}

	time.Sleep(20 * time.Millisecond)

	// First call after cooldown is the probe.
	if !cb.Allow() {
		t.Fatal("Expected probe to be allowed after cooldown")
	}
	// No second probe while the first is outstanding.
	if cb.Allow() {
		t.Error("Expected only a single probe in HALF-OPEN")
	}

	cb.RecordSuccess()
	if !cb.Allow() {
		t.Error("Circuit should close after a successful probe")
	}
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	cb := New(Config{Name: "test", Threshold: 1, Cooldown: 10 * time.Millisecond})

	cb.RecordFailure()
	time.Sleep(20 * time.Millisecond)

	if !cb.Allow() {
		t.Fatal("Expected probe to be allowed")
	}
	cb.RecordFailure()

	if cb.Allow() {
		t.Error("Circuit should reopen after a failed probe")
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := New(Config{Name: "test", Threshold: 1, Cooldown: time.Hour})

	cb.RecordFailure()
	cb.Reset()

	if !cb.Allow() {
		t.Error("Reset should close the circuit")
	}
}
