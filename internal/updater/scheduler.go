package updater

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/jose1711/lxplug-updater/internal/envgate"
)

// defaultPollInterval is how often the scheduler re-probes for network
// when the startup check found none.
const defaultPollInterval = 60 * time.Second

// Scheduler drives the orchestrator: a one-shot startup check, a network
// poll loop while offline, a periodic re-check timer, and manual "check
// now" requests. All timer state is owned by one run goroutine, so timer
// re-arming needs no locking.
type Scheduler struct {
	orch   *Orchestrator
	probes envgate.Prober
	logger *zap.Logger

	pollInterval  time.Duration
	tickUnit      time.Duration
	intervalHours int

	checkCh    chan struct{}
	intervalCh chan int
	stopCh     chan struct{}
	doneCh     chan struct{}
}

// NewScheduler creates a Scheduler. intervalHours is the period between
// automatic re-checks; 0 disables them.
func NewScheduler(orch *Orchestrator, probes envgate.Prober, intervalHours int, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		orch:          orch,
		probes:        probes,
		logger:        logger.Named("scheduler"),
		pollInterval:  defaultPollInterval,
		tickUnit:      time.Hour,
		intervalHours: intervalHours,
		checkCh:       make(chan struct{}, 1),
		intervalCh:    make(chan int, 1),
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
}

// Start launches the scheduling loop.
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler", zap.Int("intervalHours", s.intervalHours))
	go s.run()
}

// Stop terminates the scheduling loop. An in-flight pipeline is not
// interrupted; it runs to its terminal outcome.
func (s *Scheduler) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.logger.Info("scheduler stopped")
}

// CheckNow requests an immediate update check, sharing the in-flight
// guard with scheduled checks. Duplicate requests coalesce.
func (s *Scheduler) CheckNow() {
	select {
	case s.checkCh <- struct{}{}:
	default:
	}
}

// SetInterval replaces the periodic re-check period. The old timer is
// cancelled before the new one is armed; at most one is ever active.
func (s *Scheduler) SetInterval(hours int) {
	select {
	case s.intervalCh <- hours:
	case <-s.stopCh:
	}
}

func (s *Scheduler) run() {
	defer close(s.doneCh)

	var pollTicker, periodicTicker *time.Ticker
	var pollC, periodicC <-chan time.Time

	stopTickers := func() {
		if pollTicker != nil {
			pollTicker.Stop()
		}
		if periodicTicker != nil {
			periodicTicker.Stop()
		}
	}
	defer stopTickers()

	armPeriodic := func(hours int) {
		if periodicTicker != nil {
			periodicTicker.Stop()
			periodicTicker = nil
			periodicC = nil
		}
		if hours > 0 {
			periodicTicker = time.NewTicker(time.Duration(hours) * s.tickUnit)
			periodicC = periodicTicker.C
		}
	}
	armPeriodic(s.intervalHours)

	// Startup: the setup wizard runs its own check, so stay idle until
	// the first periodic tick if it is up. Otherwise check immediately,
	// or poll for network until a check becomes possible.
	switch {
	case s.probes.SetupWizardRunning():
		s.logger.Info("setup wizard running, skipping startup check")
	case s.probes.NetworkAvailable():
		s.startCheck()
	default:
		s.logger.Info("no network connection, polling")
		s.orch.markAwaitingNetwork()
		pollTicker = time.NewTicker(s.pollInterval)
		pollC = pollTicker.C
	}
	defer s.orch.clearAwaitingNetwork()

	for {
		select {
		case <-s.stopCh:
			return

		case <-pollC:
			if !s.probes.NetworkAvailable() {
				s.logger.Debug("no network connection, polling")
				continue
			}
			pollTicker.Stop()
			pollTicker = nil
			pollC = nil
			s.orch.clearAwaitingNetwork()
			s.startCheck()

		case <-periodicC:
			s.startCheck()

		case <-s.checkCh:
			s.startCheck()

		case hours := <-s.intervalCh:
			s.logger.Info("check interval changed", zap.Int("hours", hours))
			s.intervalHours = hours
			armPeriodic(hours)
		}
	}
}

// startCheck kicks off the check pipeline, dropping the request when one
// is already in flight; that run will produce a fresh outcome anyway.
func (s *Scheduler) startCheck() {
	if err := s.orch.StartCheck(context.Background()); err != nil {
		if errors.Is(err, ErrAlreadyRunning) {
			s.logger.Debug("check already in progress")
			return
		}
		s.logger.Warn("check failed to start", zap.Error(err))
	}
}
