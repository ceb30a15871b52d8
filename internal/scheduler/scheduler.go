// Package scheduler drives the periodic auto-save sweep. Ticks are
// single-flight: a sweep still running when the next tick fires makes that
// tick a no-op rather than piling up concurrent sweeps.
package scheduler

import (
	"sync"
	"sync/atomic"
	"time"

	"triptribe/internal/logger"
	"triptribe/internal/services"
)

// Clock abstracts time so tests can drive ticks deterministically.
type Clock interface {
	Now() time.Time
}

// RealClock is the production Clock backed by the system time.
type RealClock struct{}

// Now returns the current system time.
func (RealClock) Now() time.Time { return time.Now() }

// Scheduler periodically runs the scheduled-contribution sweep.
type Scheduler struct {
	goals    services.GoalServicer
	interval time.Duration
	clock    Clock

	inFlight atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// New creates a scheduler sweeping every interval using the given clock.
func New(goals services.GoalServicer, interval time.Duration, clock Clock) *Scheduler {
	return &Scheduler{
		goals:    goals,
		interval: interval,
		clock:    clock,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the ticker loop in a background goroutine.
func (s *Scheduler) Start() {
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Tick()
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop terminates the ticker loop and waits for it to exit. An in-flight
// sweep finishes on its own.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

// Tick runs one sweep at the clock's current time. Returns false when a
// previous sweep is still in flight and nothing was done.
func (s *Scheduler) Tick() bool {
	if !s.inFlight.CompareAndSwap(false, true) {
		return false
	}
	defer s.inFlight.Store(false)

	now := s.clock.Now()
	report, err := s.goals.RunScheduledContributions(now)
	if err != nil {
		logger.Get().Errorw("scheduled contribution sweep failed", "error", err)
		return true
	}
	if len(report.Contributions) > 0 || len(report.Skipped) > 0 {
		logger.Get().Infow("scheduled contribution sweep finished",
			"contributions", len(report.Contributions),
			"skipped", len(report.Skipped),
			"at", now,
		)
	}
	return true
}
