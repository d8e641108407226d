// Package safelock implements the budget gate: a fail-closed authorization
// lock over elective interventions. Capacity starts at zero and is never
// replenished within a process lifetime; status moves one way through
// ACTIVE → DEGRADED → TERMINATED, and the taint flag is sticky.
//
// The lock exists to be spent down, never topped up. The top-level policy
// (DenyOmnipotence) refuses any non-zero requested power before the lock is
// even consulted, so positive power can never be granted regardless of
// remaining capacity.
package safelock

import (
	"fmt"
	"sync"
)

// Status is the lifecycle state of a lock. Transitions are one-directional.
type Status string

const (
	StatusActive     Status = "ACTIVE"
	StatusDegraded   Status = "DEGRADED"
	StatusTerminated Status = "TERMINATED"
)

// Safelock gates costed operations against a non-replenishing capacity.
// All transitions are atomic with respect to concurrent callers.
type Safelock struct {
	mu         sync.Mutex
	capacity   int64
	status     Status
	tainted    bool
	lastReason string

	// resettable is only ever true for locks built by NewWithCapacity,
	// which exists for tests and containment drills. Production locks
	// refuse Reset fatally.
	resettable bool
}

// New constructs a production lock: capacity zero, status ACTIVE,
// reset permanently disallowed.
func New() *Safelock {
	return &Safelock{status: StatusActive}
}

// NewWithCapacity constructs a lock with non-zero capacity for tests and
// drills. It must never back a production deliberation path.
func NewWithCapacity(capacity int64) *Safelock {
	if capacity < 0 {
		capacity = 0
	}
	return &Safelock{capacity: capacity, status: StatusActive, resettable: true}
}

// Authorize decides whether a costed operation may proceed.
//
//   - Non-ACTIVE lock: deny, no side effect.
//   - cost <= 0: approve, no side effect. Cost-free reasoning is always
//     permitted.
//   - capacity == 0: deny, no side effect.
//   - cost > capacity: deny, degrade, taint. An over-request is itself a
//     policy-relevant event, not merely a rejected call.
//   - otherwise: spend and approve.
func (s *Safelock) Authorize(cost int64, reason string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusActive {
		return false
	}
	if cost <= 0 {
		return true
	}
	if s.capacity == 0 {
		s.lastReason = reason
		return false
	}
	if cost > s.capacity {
		s.status = StatusDegraded
		s.tainted = true
		s.lastReason = reason
		return false
	}
	s.capacity -= cost
	s.lastReason = reason
	return true
}

// Degrade forces the lock into DEGRADED and taints it. A terminated lock
// stays terminated.
func (s *Safelock) Degrade(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusTerminated {
		return
	}
	s.status = StatusDegraded
	s.tainted = true
	s.lastReason = reason
}

// Terminate escalates the lock to TERMINATED: capacity zero, tainted,
// not reversible by any subsequent call.
func (s *Safelock) Terminate(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = StatusTerminated
	s.capacity = 0
	s.tainted = true
	s.lastReason = reason
}

// Reset restores a test lock to its pristine state. On a production lock
// the operation does not exist; calling it is a fatal programming error.
func (s *Safelock) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.resettable {
		panic("safelock: reset is disallowed on production locks")
	}
	s.status = StatusActive
	s.tainted = false
	s.lastReason = ""
}

// Status returns the current lifecycle state.
func (s *Safelock) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Capacity returns the remaining capacity.
func (s *Safelock) Capacity() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capacity
}

// Tainted reports whether the lock has ever degraded or terminated.
func (s *Safelock) Tainted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tainted
}

// String renders the lock state for verdicts and logs.
func (s *Safelock) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("%s(capacity=%d,tainted=%t)", s.status, s.capacity, s.tainted)
}

// DenyOmnipotence is the top-level policy gate. Any non-zero requested
// power is refused outright before the lock is consulted; only zero-cost
// evaluation ever reaches Authorize. The lock may therefore classify and
// log mandatory responses but can never grant elective power.
func DenyOmnipotence(lock *Safelock, requestedPower int64, reason string) bool {
	if requestedPower > 0 {
		return false
	}
	return lock.Authorize(0, reason)
}
