package warmcache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// Scheduler is a generation-tagged idle timer.
//
// It is Armed (a ttl sleep is pending) or Disarmed. Arm and Cancel both bump
// the generation; a sleep started under generation G only acts when it
// completes while the scheduler is still Armed at G, so a Cancel racing an
// already-completed sleep never needs to block. A current completion bumps the
// generation, calls onExpire with it and sleeps again (or disarms, see
// WithDisarmAfterExpiry).
//
// One goroutine per Scheduler runs the sleep loop until Close.
type Scheduler struct {
	ttl      time.Duration
	clock    clockwork.Clock
	onExpire func(gen uint64)
	rearm    bool

	mu     sync.Mutex
	gen    uint64
	armed  bool
	closed bool

	wake      chan struct{}
	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once

	sleeps atomic.Uint64 // timers started by the loop
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithDisarmAfterExpiry makes the scheduler go Disarmed after it fires
// instead of sleeping again. The next Arm restarts it.
func WithDisarmAfterExpiry() SchedulerOption {
	return func(s *Scheduler) { s.rearm = false }
}

// NewScheduler starts a Disarmed scheduler. onExpire receives the generation
// that the firing installed; it runs on the scheduler goroutine and must not
// call Close.
func NewScheduler(ttl time.Duration, clock clockwork.Clock, onExpire func(gen uint64), opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		ttl:      ttl,
		clock:    coalesce[clockwork.Clock](clock, clockwork.NewRealClock()),
		onExpire: onExpire,
		rearm:    true,
		wake:     make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.wg.Add(1)
	go s.loop()
	return s
}

// Arm restarts the idle sleep under a new generation and returns it.
// Arm on a closed scheduler is a no-op.
func (s *Scheduler) Arm() uint64 {
	s.mu.Lock()
	if s.closed {
		g := s.gen
		s.mu.Unlock()
		return g
	}
	s.gen++
	s.armed = true
	g := s.gen
	s.mu.Unlock()
	s.poke()
	return g
}

// Cancel disarms the scheduler. A sleep already pending or completing
// concurrently is ignored when it observes the new generation.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	s.gen++
	s.armed = false
	s.mu.Unlock()
	s.poke()
}

// Generation returns the current generation.
func (s *Scheduler) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// Armed reports whether a sleep is pending.
func (s *Scheduler) Armed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.armed
}

// Close stops the loop goroutine and waits for it. Safe to call multiple times.
func (s *Scheduler) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.armed = false
		s.gen++
		s.mu.Unlock()
		close(s.stopCh)
		s.wg.Wait()
	})
}

func (s *Scheduler) poke() {
	select {
	case s.wake <- struct{}{}:
	default: // a wake-up is already pending
	}
}

func (s *Scheduler) loop() {
	defer s.wg.Done()
	for {
		// Any pending wake-up predates the state read below.
		select {
		case <-s.wake:
		default:
		}
		s.mu.Lock()
		armed, gen := s.armed, s.gen
		s.mu.Unlock()

		if !armed {
			select {
			case <-s.wake:
				continue
			case <-s.stopCh:
				return
			}
		}

		t := s.clock.NewTimer(s.ttl)
		s.sleeps.Add(1)
		select {
		case <-t.Chan():
			s.fire(gen)
		case <-s.wake:
			t.Stop()
		case <-s.stopCh:
			t.Stop()
			return
		}
	}
}

// fire handles the completion of a sleep tagged with gen. It reports whether
// the completion was current; stale completions do nothing.
func (s *Scheduler) fire(gen uint64) bool {
	s.mu.Lock()
	if s.closed || !s.armed || s.gen != gen {
		s.mu.Unlock()
		return false
	}
	s.gen++
	s.armed = s.rearm
	next := s.gen
	s.mu.Unlock()

	if s.onExpire != nil {
		s.onExpire(next)
	}
	return true
}
