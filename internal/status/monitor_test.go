package status_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/Luisotee/maplelegends-bot/internal/status"
)

func TestMonitor_EdgeTrigger(t *testing.T) {
	t.Parallel()

	// A notification fires only when a poll crosses the threshold relative
	// to the previous state, never on every sub-threshold poll.
	counts := []int{5, 3, 15, 7, 2}
	want := []status.Transition{
		status.TransitionOffline,
		status.TransitionNone,
		status.TransitionOnline,
		status.TransitionOffline,
		status.TransitionNone,
	}

	m := status.NewMonitor(10)
	for i, count := range counts {
		m.SetCount(count)
		assert.Equal(t, want[i], m.Check(), "poll %d (count=%d)", i, count)
	}
}

func TestMonitor_Snapshot(t *testing.T) {
	t.Parallel()

	m := status.NewMonitor(10)

	count, offline := m.Snapshot()
	assert.Equal(t, 0, count)
	assert.True(t, offline)

	m.SetCount(150)
	count, offline = m.Snapshot()
	assert.Equal(t, 150, count)
	assert.False(t, offline)

	// Snapshot never consumes the edge state.
	assert.Equal(t, status.TransitionNone, m.Check())
	assert.Equal(t, status.TransitionNone, m.Check())
}

type stubCounter struct {
	count int
	err   error
}

func (s stubCounter) OnlineCount(context.Context) (int, error) { return s.count, s.err }

func TestRunPoller(t *testing.T) {
	t.Parallel()

	m := status.NewMonitor(10)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// First poll happens immediately, before the first tick.
	status.RunPoller(ctx, stubCounter{count: 42}, m, time.Hour, zap.NewNop())

	count, _ := m.Snapshot()
	assert.Equal(t, 42, count)
}

func TestRunPoller_FetchFailureKeepsLastCount(t *testing.T) {
	t.Parallel()

	m := status.NewMonitor(10)
	m.SetCount(42)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	status.RunPoller(ctx, stubCounter{err: errors.New("boom")}, m, time.Hour, zap.NewNop())

	count, _ := m.Snapshot()
	assert.Equal(t, 42, count)
}
