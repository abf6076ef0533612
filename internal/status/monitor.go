package status

import "sync"

// Transition is the outcome of one threshold check.
type Transition int

const (
	TransitionNone Transition = iota
	TransitionOffline
	TransitionOnline
)

// Monitor holds the shared online player count and the derived offline state.
// The count is written by the poller goroutine and read by the status check
// task and the on-demand status command, so all access goes through one mutex.
type Monitor struct {
	mu        sync.Mutex
	count     int
	offline   bool
	threshold int
}

// NewMonitor creates a monitor that considers the server offline when the
// player count drops below threshold.
func NewMonitor(threshold int) *Monitor {
	return &Monitor{threshold: threshold}
}

// SetCount records the latest polled player count.
func (m *Monitor) SetCount(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count = count
}

// Snapshot returns the current count and whether it is below the offline
// threshold. It does not touch the edge-trigger state.
func (m *Monitor) Snapshot() (count int, offline bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count, m.count < m.threshold
}

// Check compares the current count against the threshold and flips the
// offline state on a crossing. It reports a transition only when the state
// actually changed, so repeated checks on the same side of the threshold
// stay silent.
func (m *Monitor) Check() Transition {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case m.count < m.threshold && !m.offline:
		m.offline = true
		return TransitionOffline
	case m.count >= m.threshold && m.offline:
		m.offline = false
		return TransitionOnline
	default:
		return TransitionNone
	}
}
