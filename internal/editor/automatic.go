package editor

import (
	"sync"
	"time"
)

// DefaultAutomaticChangeDelay is how long TimerScheduler waits when no delay
// is configured.
const DefaultAutomaticChangeDelay = 100 * time.Millisecond

// Scheduler defers work until the host has finished the current burst of
// synchronous updates.
type Scheduler interface {
	Schedule(fn func())
}

// IdleQueue holds deferred work until the host calls Drain, typically when
// its event loop goes idle. It is the store's default scheduler.
type IdleQueue struct {
	mu      sync.Mutex
	pending []func()
}

// Schedule queues fn.
func (q *IdleQueue) Schedule(fn func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, fn)
}

// Drain runs queued work in FIFO order, including work queued while
// draining, and returns how many functions ran. It must be called from the
// goroutine that owns the store.
func (q *IdleQueue) Drain() int {
	ran := 0
	for {
		q.mu.Lock()
		fns := q.pending
		q.pending = nil
		q.mu.Unlock()
		if len(fns) == 0 {
			return ran
		}
		for _, fn := range fns {
			fn()
			ran++
		}
	}
}

// Len returns the number of queued functions.
func (q *IdleQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// TimerScheduler runs deferred work after a delay. The timer fires on its
// own goroutine, so Post must hand fn back to the goroutine owning the store
// (for example by sending it on the host's event channel).
type TimerScheduler struct {
	Delay time.Duration
	Post  func(fn func())
}

// Schedule arms a timer for fn.
func (t TimerScheduler) Schedule(fn func()) {
	delay := t.Delay
	if delay <= 0 {
		delay = DefaultAutomaticChangeDelay
	}
	time.AfterFunc(delay, func() { t.Post(fn) })
}

type automaticStatus int

const (
	automaticNone automaticStatus = iota
	automaticPending
	automaticFinal
)

// reduceAutomaticChange advances the automatic-change marker. A pending
// marker survives selection changes so the caret can settle; once final, any
// block or selection change clears it.
func (s *Store) reduceAutomaticChange(a *Action, blocksChanged, selectionChanged bool) {
	switch a.Type {
	case ActionMarkAutomaticChange:
		s.setAutomatic(automaticPending)
		return
	case ActionMarkAutomaticChangeFinal:
		if s.automatic == automaticPending {
			s.setAutomatic(automaticFinal)
		}
		return
	}

	if !blocksChanged && !selectionChanged {
		return
	}
	if s.automatic != automaticFinal && selectionChanged {
		return
	}
	s.setAutomatic(automaticNone)
}

func (s *Store) setAutomatic(status automaticStatus) {
	if s.automatic != status {
		s.automatic = status
		s.touch()
	}
}

// MarkAutomaticChange flags the last change as automatic, meaning the user
// did not type it and may want to undo it with a single keystroke. The flag
// becomes final once the scheduler runs, after the change's synchronous
// consequences have settled.
func (s *Store) MarkAutomaticChange() {
	s.dispatch(Action{Type: ActionMarkAutomaticChange})
	s.scheduler.Schedule(func() {
		s.dispatch(Action{Type: ActionMarkAutomaticChangeFinal})
	})
}

// DidAutomaticChange reports whether the last change was marked automatic.
func (s *Store) DidAutomaticChange() bool {
	return s.automatic != automaticNone
}
