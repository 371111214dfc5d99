// Package scheduler implements the background worker: a single dedicated
// task that invokes a run function at a fixed interval and exposes
// start/stop/status, with cooperative cancellation via a stop flag checked
// around the sleep. Grounded on a SyncScheduler whose run loop calls its
// sync function and then blocks on a timeout that doubles as both sleep and
// interrupt.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/ZahabTZ/ocean-watch/pkg/models"
)

// RunFunc executes one ingestion run and returns its result.
type RunFunc func(ctx context.Context) (*models.IngestionRunResult, error)

// Status is a snapshot of the scheduler's current state.
type Status struct {
	Running         bool
	IntervalSeconds float64
	LastRunAt       *time.Time
	LastResult      *models.IngestionRunResult
	LastError       string
}

// Scheduler runs a RunFunc on a fixed interval on a background goroutine.
type Scheduler struct {
	runFn RunFunc

	mu         sync.Mutex
	interval   time.Duration
	lastRunAt  *time.Time
	lastResult *models.IngestionRunResult
	lastError  string

	stopCh chan struct{}
	doneCh chan struct{}
	active bool
}

// New constructs a Scheduler around runFn.
func New(runFn RunFunc) *Scheduler {
	return &Scheduler{runFn: runFn}
}

// Start begins running at the given interval, stopping any run already in
// progress first.
func (s *Scheduler) Start(interval time.Duration) {
	s.Stop()

	s.mu.Lock()
	s.interval = interval
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.active = true
	stopCh := s.stopCh
	doneCh := s.doneCh
	s.mu.Unlock()

	go s.runLoop(stopCh, doneCh)
}

// Stop signals the background goroutine to exit and waits up to 2 seconds
// for it to do so.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	stopCh := s.stopCh
	doneCh := s.doneCh
	s.mu.Unlock()

	close(stopCh)
	select {
	case <-doneCh:
	case <-time.After(2 * time.Second):
	}

	s.mu.Lock()
	s.active = false
	s.mu.Unlock()
}

// Status returns a snapshot of the scheduler's current state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Running:         s.active,
		IntervalSeconds: s.interval.Seconds(),
		LastRunAt:       s.lastRunAt,
		LastResult:      s.lastResult,
		LastError:       s.lastError,
	}
}

func (s *Scheduler) runLoop(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	for {
		s.mu.Lock()
		interval := s.interval
		s.mu.Unlock()

		result, err := s.runFn(context.Background())
		now := time.Now().UTC()

		s.mu.Lock()
		s.lastRunAt = &now
		s.lastResult = result
		if err != nil {
			s.lastError = err.Error()
		} else {
			s.lastError = ""
		}
		s.mu.Unlock()

		select {
		case <-stopCh:
			return
		case <-time.After(interval):
		}
	}
}
