package narrator

import (
	"sync"
	"time"
)

// ManualScheduler is a Scheduler whose clock only moves when Advance is
// called. Callbacks run synchronously on the goroutine calling Advance.
type ManualScheduler struct {
	mu      sync.Mutex
	now     time.Duration
	tasks   []*manualTask
	waiters []*manualWaiter
}

type manualTask struct {
	interval  time.Duration
	next      time.Duration
	fn        func()
	cancelled bool
}

type manualWaiter struct {
	at time.Duration
	ch chan time.Time
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (m *ManualScheduler) Every(interval time.Duration, fn func()) func() {
	if interval <= 0 {
		panic("narrator: non-positive interval for ManualScheduler.Every")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	task := &manualTask{interval: interval, next: m.now + interval, fn: fn}
	m.tasks = append(m.tasks, task)

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		task.cancelled = true
	}
}

func (m *ManualScheduler) After(d time.Duration) <-chan time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- time.Unix(0, int64(m.now))
		return ch
	}
	m.waiters = append(m.waiters, &manualWaiter{at: m.now + d, ch: ch})
	return ch
}

// Advance moves the clock forward by d, firing every tick and delay that
// falls due in order.
func (m *ManualScheduler) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d

	for {
		m.prune()

		var (
			dueTask   *manualTask
			dueWaiter = -1
			dueAt     = target + 1
		)
		for _, t := range m.tasks {
			if t.next <= target && t.next < dueAt {
				dueTask, dueAt = t, t.next
			}
		}
		for i, w := range m.waiters {
			if w.at <= target && w.at < dueAt {
				dueTask, dueWaiter, dueAt = nil, i, w.at
			}
		}

		if dueTask == nil && dueWaiter < 0 {
			m.now = target
			m.mu.Unlock()
			return
		}

		m.now = dueAt
		if dueWaiter >= 0 {
			w := m.waiters[dueWaiter]
			m.waiters = append(m.waiters[:dueWaiter], m.waiters[dueWaiter+1:]...)
			w.ch <- time.Unix(0, int64(m.now))
			continue
		}

		dueTask.next += dueTask.interval
		fn := dueTask.fn
		m.mu.Unlock()
		fn()
		m.mu.Lock()
	}
}

// Active returns the number of periodic callbacks not yet cancelled.
func (m *ManualScheduler) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prune()
	return len(m.tasks)
}

// Pending returns the number of After channels that have not fired yet.
func (m *ManualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.waiters)
}

func (m *ManualScheduler) prune() {
	live := m.tasks[:0]
	for _, t := range m.tasks {
		if !t.cancelled {
			live = append(live, t)
		}
	}
	for i := len(live); i < len(m.tasks); i++ {
		m.tasks[i] = nil
	}
	m.tasks = live
}
