package schedule

import (
	"container/heap"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// WallTime is a time of day in UTC.
type WallTime struct {
	Hour   int
	Minute int
}

// ParseWallTime parses "HH:MM".
func ParseWallTime(s string) (WallTime, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return WallTime{}, fmt.Errorf("invalid time %q: %w", s, err)
	}
	return WallTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (w WallTime) String() string {
	return fmt.Sprintf("%02d:%02d", w.Hour, w.Minute)
}

// next returns the first instant strictly after now at this wall-clock time.
func (w WallTime) next(now time.Time) time.Time {
	now = now.UTC()
	at := time.Date(now.Year(), now.Month(), now.Day(), w.Hour, w.Minute, 0, 0, time.UTC)
	if !at.After(now) {
		at = at.Add(24 * time.Hour)
	}
	return at
}

type task struct {
	name  string
	runAt time.Time
	run   func(ctx context.Context)

	// exactly one of interval / daily is set
	interval time.Duration
	daily    WallTime

	gen   uint64
	index int
}

type taskHeap []*task

func (h taskHeap) Len() int            { return len(h) }
func (h taskHeap) Less(i, j int) bool  { return h[i].runAt.Before(h[j].runAt) }
func (h taskHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *taskHeap) Push(x any)         { t := x.(*task); t.index = len(*h); *h = append(*h, t) }
func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}

// Scheduler drives all recurring work on a single goroutine: tasks are kept
// in a time-ordered heap and executed sequentially when due. Registration and
// removal may happen from other goroutines; the heap is mutex-guarded and the
// run loop is woken whenever the head may have changed.
type Scheduler struct {
	mu    sync.Mutex
	tasks taskHeap
	gens  map[string]uint64
	wake  chan struct{}

	now    func() time.Time // swapped in tests
	logger *zap.Logger
}

// New creates an empty scheduler.
func New(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		gens:   make(map[string]uint64),
		wake:   make(chan struct{}, 1),
		now:    time.Now,
		logger: logger,
	}
}

// RunDaily registers a recurring task firing every day at the given UTC wall
// time. Multiple tasks may share a name; RemoveAll removes them together.
func (s *Scheduler) RunDaily(name string, at WallTime, run func(ctx context.Context)) {
	s.add(&task{name: name, daily: at, run: run, runAt: at.next(s.now())})
}

// RunRepeating registers a recurring fixed-interval task. The first run is
// one interval from now.
func (s *Scheduler) RunRepeating(name string, every time.Duration, run func(ctx context.Context)) {
	s.add(&task{name: name, interval: every, run: run, runAt: s.now().Add(every)})
}

func (s *Scheduler) add(t *task) {
	s.mu.Lock()
	t.gen = s.gens[t.name]
	heap.Push(&s.tasks, t)
	s.mu.Unlock()
	s.poke()
}

// RemoveAll drops every task registered under the given name. A task of that
// name currently executing is dropped when it tries to reschedule.
func (s *Scheduler) RemoveAll(name string) {
	s.mu.Lock()
	s.gens[name]++
	kept := s.tasks[:0]
	for _, t := range s.tasks {
		if t.name != name {
			kept = append(kept, t)
		}
	}
	s.tasks = kept
	heap.Init(&s.tasks)
	s.mu.Unlock()
	s.poke()
}

// Scheduled returns the next fire times of every task with the given name,
// soonest first.
func (s *Scheduler) Scheduled(name string) []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []time.Time
	for _, t := range s.tasks {
		if t.name == name {
			out = append(out, t.runAt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func (s *Scheduler) poke() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run executes due tasks until the context is cancelled. Tasks run on this
// goroutine, one at a time.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		t, wait := s.nextDue()
		if t != nil {
			s.logger.Debug("running scheduled task", zap.String("task", t.name))
			t.run(ctx)
			s.reschedule(t)
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// nextDue pops the head task if it is due, otherwise reports how long to
// sleep before checking again.
func (s *Scheduler) nextDue() (*task, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.tasks) == 0 {
		return nil, time.Hour
	}
	head := s.tasks[0]
	now := s.now()
	if head.runAt.After(now) {
		return nil, head.runAt.Sub(now)
	}
	heap.Pop(&s.tasks)
	return head, 0
}

// reschedule pushes a finished recurring task back with its next fire time,
// unless the task was removed while it ran.
func (s *Scheduler) reschedule(t *task) {
	if t.interval > 0 {
		t.runAt = s.now().Add(t.interval)
	} else {
		t.runAt = t.daily.next(s.now())
	}

	s.mu.Lock()
	if t.gen == s.gens[t.name] {
		heap.Push(&s.tasks, t)
	}
	s.mu.Unlock()
}
