package ocr

import (
	"context"
	"sync"
	"time"

	"github.com/feichai0017/resource-ocr/pkg/logger"
)

// Maintainer runs one maintenance cycle.
type Maintainer interface {
	Maintenance(ctx context.Context) error
}

// DefaultInterval replaces a non-positive interval given to Start.
const DefaultInterval = 5 * time.Minute

type SchedulerState int

const (
	SchedulerIdle SchedulerState = iota
	SchedulerRunning
)

func (s SchedulerState) String() string {
	if s == SchedulerRunning {
		return "running"
	}
	return "idle"
}

// Scheduler runs maintenance cycles in the background. Each tick arms the
// next one only after its cycle has returned, so cycles never overlap even
// when one outlives the interval. A tick that finds a cycle from before a
// Stop/Start still running is skipped and re-armed.
type Scheduler struct {
	maintainer Maintainer
	logger     logger.Logger
	clock      Clock

	mu         sync.Mutex
	state      SchedulerState
	generation uint64
	// inFlight outlives Stop, so a restarted scheduler still waits for the
	// cycle started by the previous generation.
	inFlight bool
	timer      Timer
	interval   time.Duration
	ctx        context.Context
}

func NewScheduler(m Maintainer, log logger.Logger, clock Clock) *Scheduler {
	if clock == nil {
		clock = RealClock()
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Scheduler{
		maintainer: m,
		logger:     log.Named("scheduler"),
		clock:      clock,
	}
}

// Start arms the first tick. Calling it while running does nothing.
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == SchedulerRunning {
		return
	}
	if interval <= 0 {
		s.logger.Warn("Invalid maintenance interval, using default",
			logger.Duration("interval", interval),
			logger.Duration("default", DefaultInterval),
		)
		interval = DefaultInterval
	}

	s.logger.Info("Starting background service...", logger.Duration("interval", interval))
	s.state = SchedulerRunning
	s.generation++
	s.interval = interval
	s.ctx = ctx
	s.armLocked(s.generation)
}

// Stop cancels the pending tick. Once it returns no further cycle is
// started by this scheduler; a cycle already running is left to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("Stopping background service...")
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.state = SchedulerIdle
	s.generation++
}

func (s *Scheduler) State() SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scheduler) armLocked(gen uint64) {
	s.timer = s.clock.AfterFunc(s.interval, func() { s.tick(gen) })
}

func (s *Scheduler) tick(gen uint64) {
	s.mu.Lock()
	if s.state != SchedulerRunning || s.generation != gen {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	if s.inFlight {
		s.logger.Debug("Previous cycle still running, tick skipped")
		s.armLocked(gen)
		s.mu.Unlock()
		return
	}
	s.inFlight = true
	ctx := s.ctx
	s.mu.Unlock()

	if err := s.maintainer.Maintenance(ctx); err != nil {
		s.logger.Warn("Maintenance cycle failed", logger.Error(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
	if s.state == SchedulerRunning && s.generation == gen {
		s.armLocked(gen)
	}
}
