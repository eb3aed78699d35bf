package upstream

import (
	"testing"
	"time"
)

func TestHealthMonitor_StartsHealthy(t *testing.T) {
	h := NewHealthMonitor(3, 5*time.Second)
	if h.State() != StateHealthy {
		t.Errorf("expected StateHealthy, got %s", h.State())
	}
	snap := h.Snapshot()
	if snap.State != "healthy" || snap.LastFailure != nil || snap.DegradedSince != nil {
		t.Errorf("unexpected snapshot %+v", snap)
	}
}

func TestHealthMonitor_DegradesAfterThreshold(t *testing.T) {
	h := NewHealthMonitor(3, 5*time.Second)

	h.RecordFailure()
	h.RecordFailure()
	if h.State() != StateHealthy {
		t.Error("expected StateHealthy after 2 failures")
	}

	h.RecordFailure()
	if h.State() != StateDegraded {
		t.Errorf("expected StateDegraded after 3 failures, got %s", h.State())
	}
	if snap := h.Snapshot(); snap.ConsecutiveFailures != 3 || snap.DegradedSince == nil {
		t.Errorf("unexpected snapshot %+v", snap)
	}
}

func TestHealthMonitor_SuccessResetsFailureCount(t *testing.T) {
	h := NewHealthMonitor(3, 5*time.Second)

	h.RecordFailure()
	h.RecordFailure()
	h.RecordSuccess()
	h.RecordFailure()
	h.RecordFailure()

	if h.State() != StateHealthy {
		t.Error("non-consecutive failures must not degrade")
	}
}

func TestHealthMonitor_RecoveringAfterInterval(t *testing.T) {
	h := NewHealthMonitor(1, 10*time.Millisecond)

	h.RecordFailure()
	if h.State() != StateDegraded {
		t.Fatal("expected StateDegraded")
	}

	time.Sleep(15 * time.Millisecond)

	if h.State() != StateRecovering {
		t.Errorf("expected StateRecovering after recovery interval, got %s", h.State())
	}
}

func TestHealthMonitor_Recovering_SuccessHeals(t *testing.T) {
	h := NewHealthMonitor(1, 10*time.Millisecond)

	h.RecordFailure()
	time.Sleep(15 * time.Millisecond)
	h.State()

	h.RecordSuccess()
	if h.State() != StateHealthy {
		t.Errorf("expected StateHealthy after success, got %s", h.State())
	}
}

func TestHealthMonitor_Recovering_FailureDegradesAgain(t *testing.T) {
	h := NewHealthMonitor(3, 10*time.Millisecond)

	h.RecordFailure()
	h.RecordFailure()
	h.RecordFailure()
	time.Sleep(15 * time.Millisecond)
	if h.State() != StateRecovering {
		t.Fatal("expected StateRecovering")
	}

	h.RecordFailure()
	if h.State() != StateDegraded {
		t.Errorf("a single failure while recovering should degrade, got %s", h.State())
	}
}

func TestHealthState_String(t *testing.T) {
	tests := map[HealthState]string{
		StateHealthy:    "healthy",
		StateDegraded:   "degraded",
		StateRecovering: "recovering",
		HealthState(9):  "unknown",
	}
	for s, want := range tests {
		if s.String() != want {
			t.Errorf("%d.String() = %q, want %q", s, s.String(), want)
		}
	}
}
