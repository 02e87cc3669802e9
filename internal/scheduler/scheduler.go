// Package scheduler advances simulated time on a fixed interval.
package scheduler

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// DefaultInterval is the tick period used when none is configured.
const DefaultInterval = time.Second

// ErrInvalidInterval is returned for a non-positive tick interval.
var ErrInvalidInterval = errors.New("tick interval must be positive")

// TickFunc is invoked once per tick on the scheduler goroutine.
// It must not block and must not call Stop.
type TickFunc func(at time.Time)

// Scheduler runs at most one periodic timer at a time.
type Scheduler struct {
	clock Clock

	// lifecycle serializes Start and Stop so a replaced timer is always
	// stopped before its successor starts.
	lifecycle sync.Mutex

	mu       sync.Mutex
	interval time.Duration
	stopChan chan struct{}
	done     chan struct{}
}

// New creates a scheduler. A nil clock uses wall time.
func New(clock Clock) *Scheduler {
	if clock == nil {
		clock = RealClock{}
	}
	return &Scheduler{clock: clock}
}

// Start begins invoking onTick every interval. A running timer is
// stopped first, so two timers never overlap.
func (s *Scheduler) Start(interval time.Duration, onTick TickFunc) error {
	if interval <= 0 {
		return fmt.Errorf("start scheduler with %s: %w", interval, ErrInvalidInterval)
	}
	if onTick == nil {
		return errors.New("start scheduler: nil tick func")
	}

	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.interval = interval
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})

	go s.loop(s.clock.NewTicker(interval), s.stopChan, s.done, onTick)
	return nil
}

func (s *Scheduler) loop(ticker Ticker, stop <-chan struct{}, done chan<- struct{}, onTick TickFunc) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case at := <-ticker.C():
			// a stop racing with a tick wins
			select {
			case <-stop:
				return
			default:
			}
			onTick(at)
		}
	}
}

// Stop cancels the timer and waits for an in-flight tick to finish.
// Calling Stop on a stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.stop()
}

func (s *Scheduler) stop() {
	s.mu.Lock()
	stop, done := s.stopChan, s.done
	s.stopChan, s.done = nil, nil
	s.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// Running reports whether a timer is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopChan != nil
}

// Interval returns the period of the current or last timer.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}
