package upstream

import (
	"sync"
	"time"
)

// HealthState describes how the upstream has been behaving recently.
type HealthState int

const (
	StateHealthy    HealthState = iota // calls are succeeding
	StateDegraded                      // consecutive failures reached the threshold
	StateRecovering                    // degraded, but quiet for a full recovery interval
)

func (s HealthState) String() string {
	switch s {
	case StateHealthy:
		return "healthy"
	case StateDegraded:
		return "degraded"
	case StateRecovering:
		return "recovering"
	default:
		return "unknown"
	}
}

// HealthMonitor tracks consecutive upstream failures for reporting. It never
// blocks calls: every admitted assessment still reaches the upstream.
type HealthMonitor struct {
	mu sync.Mutex

	state       HealthState
	failures    int
	lastFailure time.Time
	lastSuccess time.Time
	degradedAt  time.Time

	failureThreshold int
	recoveryInterval time.Duration
}

// NewHealthMonitor creates a monitor that degrades after failureThreshold
// consecutive failures.
func NewHealthMonitor(failureThreshold int, recoveryInterval time.Duration) *HealthMonitor {
	if failureThreshold < 1 {
		failureThreshold = 1
	}
	return &HealthMonitor{
		state:            StateHealthy,
		failureThreshold: failureThreshold,
		recoveryInterval: recoveryInterval,
	}
}

// State returns the current state.
func (h *HealthMonitor) State() HealthState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.currentState()
}

// currentState moves DEGRADED to RECOVERING once the recovery interval has
// passed without a new failure. Must be called with mu held.
func (h *HealthMonitor) currentState() HealthState {
	if h.state == StateDegraded && time.Since(h.lastFailure) >= h.recoveryInterval {
		h.state = StateRecovering
	}
	return h.state
}

// RecordSuccess records a completed stream.
func (h *HealthMonitor) RecordSuccess() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastSuccess = time.Now()
	h.failures = 0
	h.state = StateHealthy
}

// RecordFailure records a failed call or stream.
func (h *HealthMonitor) RecordFailure() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.failures++
	h.lastFailure = time.Now()

	switch h.state {
	case StateHealthy:
		if h.failures >= h.failureThreshold {
			h.state = StateDegraded
			h.degradedAt = h.lastFailure
		}
	case StateRecovering:
		h.state = StateDegraded
		h.degradedAt = h.lastFailure
	}
}

// HealthSnapshot is the monitor's state as reported on the health endpoint.
type HealthSnapshot struct {
	State               string     `json:"state"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastFailure         *time.Time `json:"last_failure,omitempty"`
	LastSuccess         *time.Time `json:"last_success,omitempty"`
	DegradedSince       *time.Time `json:"degraded_since,omitempty"`
}

// Snapshot returns a copy of the current state.
func (h *HealthMonitor) Snapshot() HealthSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	snap := HealthSnapshot{
		State:               h.currentState().String(),
		ConsecutiveFailures: h.failures,
	}
	if !h.lastFailure.IsZero() {
		t := h.lastFailure
		snap.LastFailure = &t
	}
	if !h.lastSuccess.IsZero() {
		t := h.lastSuccess
		snap.LastSuccess = &t
	}
	if h.state != StateHealthy {
		t := h.degradedAt
		snap.DegradedSince = &t
	}
	return snap
}
