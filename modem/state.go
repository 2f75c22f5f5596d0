package modem

import (
	"fmt"
	"sync"
	"time"
)

// ModemState is the availability of the device as seen by the Session.
type ModemState int

const (
	// Available means the device accepts a new command.
	Available ModemState = iota
	// Busy means a command was issued and its answer is pending.
	Busy
	// Transmitting means the device reported an acoustic transmission in
	// progress.
	Transmitting
	// Reset means the device reported an internal error and restarts.
	Reset
	// Quit means the physical layer was switched off.
	Quit
	// Noise means the device reported excessive noise at start-up.
	Noise
	// Deaf means the device reported its receiver unusable at start-up.
	Deaf
)

func (s ModemState) String() string {
	switch s {
	case Available:
		return "AVAILABLE"
	case Busy:
		return "BUSY"
	case Transmitting:
		return "TRANSMITTING"
	case Reset:
		return "RESET"
	case Quit:
		return "QUIT"
	case Noise:
		return "NOISE"
	case Deaf:
		return "DEAF"
	default:
		return fmt.Sprintf("ModemState(%d)", int(s))
	}
}

// TransmissionState tracks the request in flight.
type TransmissionState int

const (
	TxIdle TransmissionState = iota
	// TxPending means the command was written and not yet accepted.
	TxPending
	// TxWaiting means the device accepted the command and delivery is
	// awaited.
	TxWaiting
)

func (s TransmissionState) String() string {
	switch s {
	case TxIdle:
		return "TX_IDLE"
	case TxPending:
		return "TX_PENDING"
	case TxWaiting:
		return "TX_WAITING"
	default:
		return fmt.Sprintf("TransmissionState(%d)", int(s))
	}
}

// txOutcome is how the last request in flight ended.
type txOutcome int

const (
	outcomeNone txOutcome = iota
	outcomeDelivered
	outcomeFailed
)

// txStatus is the value guarded by the transmission monitor.
type txStatus struct {
	State TransmissionState
	Seq   uint8
	// Ack is set when the request in flight awaits a delivery
	// confirmation rather than the end of transmission.
	Ack     bool
	Outcome txOutcome
}

// monitor guards a value with a mutex and lets goroutines wait, with a
// timeout, for a predicate on it to hold. Every change wakes all waiters.
type monitor[T any] struct {
	mu      sync.Mutex
	value   T
	changed chan struct{}
}

func newMonitor[T any](v T) *monitor[T] {
	return &monitor[T]{value: v, changed: make(chan struct{})}
}

func (m *monitor[T]) Get() T {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.value
}

// snapshot returns the value with the channel closed on its next change.
func (m *monitor[T]) snapshot() (T, <-chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.value, m.changed
}

func (m *monitor[T]) Set(v T) {
	m.mu.Lock()
	m.setLocked(v)
	m.mu.Unlock()
}

// Update applies fn to the value and returns the previous and new values.
func (m *monitor[T]) Update(fn func(T) T) (old, updated T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	old = m.value
	m.setLocked(fn(old))
	return old, m.value
}

// setLocked must be called with mu held.
func (m *monitor[T]) setLocked(v T) {
	m.value = v
	close(m.changed)
	m.changed = make(chan struct{})
}

// WaitFor blocks until pred holds, the timeout elapses or done is closed.
// It returns the last observed value and whether pred held.
func (m *monitor[T]) WaitFor(pred func(T) bool, timeout time.Duration, done <-chan struct{}) (T, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		v, changed := m.snapshot()
		if pred(v) {
			return v, true
		}
		select {
		case <-changed:
		case <-timer.C:
			v := m.Get()
			return v, pred(v)
		case <-done:
			v := m.Get()
			return v, pred(v)
		}
	}
}

// lockBoth acquires both monitors in the one order used throughout the
// package: modem state first, then transmission state.
func lockBoth(ms *monitor[ModemState], tx *monitor[txStatus]) func() {
	ms.mu.Lock()
	tx.mu.Lock()
	return func() {
		tx.mu.Unlock()
		ms.mu.Unlock()
	}
}
