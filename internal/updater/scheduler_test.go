package updater

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestScheduler(b *fakeBackend, probes *fakeProber, intervalHours int, ev Events) *Scheduler {
	orch := newTestOrchestrator(b, probes, nil, ev)
	s := NewScheduler(orch, probes, intervalHours, zap.NewNop())
	s.pollInterval = 10 * time.Millisecond
	s.tickUnit = 50 * time.Millisecond
	return s
}

func TestStartupSkipsCheckWhileWizardRunning(t *testing.T) {
	b := &fakeBackend{}
	probes := &fakeProber{network: true, wizard: true}
	s := newTestScheduler(b, probes, 0, newRecordingEvents())

	s.Start()
	defer s.Stop()

	time.Sleep(100 * time.Millisecond)
	if refreshCalls, _ := b.counts(); refreshCalls != 0 {
		t.Errorf("startup check ran %d times with wizard active, want 0", refreshCalls)
	}
}

func TestStartupChecksImmediatelyWhenOnline(t *testing.T) {
	b := &fakeBackend{}
	probes := &fakeProber{network: true}
	ev := newRecordingEvents()
	s := newTestScheduler(b, probes, 0, ev)

	s.Start()
	defer s.Stop()

	waitOutcome(t, ev)
	if refreshCalls, _ := b.counts(); refreshCalls != 1 {
		t.Errorf("startup ran %d checks, want 1", refreshCalls)
	}
}

func TestStartupPollsUntilNetworkAvailable(t *testing.T) {
	b := &fakeBackend{}
	probes := &fakeProber{network: false}
	ev := newRecordingEvents()
	s := newTestScheduler(b, probes, 0, ev)

	s.Start()
	defer s.Stop()

	// A few poll ticks pass with no network and no check.
	time.Sleep(50 * time.Millisecond)
	if refreshCalls, _ := b.counts(); refreshCalls != 0 {
		t.Fatalf("check ran %d times while offline, want 0", refreshCalls)
	}
	if got := s.orch.State(); got != StateAwaitingNetwork {
		t.Errorf("state while polling = %v, want awaiting-network", got)
	}
	if err := s.orch.StartCheck(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("StartCheck while polling = %v, want ErrAlreadyRunning", err)
	}

	probes.setNetwork(true)
	waitOutcome(t, ev)

	// The poll timer is cancelled after the one check it triggers.
	time.Sleep(100 * time.Millisecond)
	if refreshCalls, _ := b.counts(); refreshCalls != 1 {
		t.Errorf("poll loop triggered %d checks, want exactly 1", refreshCalls)
	}
}

func TestPeriodicTickTriggersChecks(t *testing.T) {
	b := &fakeBackend{}
	probes := &fakeProber{network: true}
	ev := newRecordingEvents()
	s := newTestScheduler(b, probes, 1, ev)

	s.Start()
	defer s.Stop()

	// Startup check plus at least one periodic tick.
	waitOutcome(t, ev)
	waitOutcome(t, ev)

	if refreshCalls, _ := b.counts(); refreshCalls < 2 {
		t.Errorf("refresh ran %d times, want at least 2", refreshCalls)
	}
}

func TestSetIntervalZeroDisablesPeriodicChecks(t *testing.T) {
	b := &fakeBackend{}
	probes := &fakeProber{network: true, wizard: true} // no startup check
	s := newTestScheduler(b, probes, 1, newRecordingEvents())

	s.Start()
	defer s.Stop()

	s.SetInterval(0)
	time.Sleep(20 * time.Millisecond)
	baseline, _ := b.counts()

	time.Sleep(200 * time.Millisecond)
	if refreshCalls, _ := b.counts(); refreshCalls != baseline {
		t.Errorf("checks kept firing after interval set to 0: %d -> %d", baseline, refreshCalls)
	}
}

func TestSetIntervalArmsSingleTimer(t *testing.T) {
	b := &fakeBackend{}
	probes := &fakeProber{network: true, wizard: true} // no startup check
	s := newTestScheduler(b, probes, 0, newRecordingEvents())

	s.Start()
	defer s.Stop()

	// Reconfigure twice in a row; only the last timer may survive.
	s.SetInterval(1)
	s.SetInterval(1)

	time.Sleep(280 * time.Millisecond)
	refreshCalls, _ := b.counts()
	if refreshCalls == 0 {
		t.Fatal("periodic timer never fired after reconfiguration")
	}
	// A single 50ms timer fires ~5 times in 280ms; two stacked timers
	// would roughly double that.
	if refreshCalls > 7 {
		t.Errorf("%d checks in 280ms suggests more than one armed timer", refreshCalls)
	}
}

func TestCheckNowTriggersCheck(t *testing.T) {
	b := &fakeBackend{}
	probes := &fakeProber{network: true, wizard: true} // no startup check
	ev := newRecordingEvents()
	s := newTestScheduler(b, probes, 0, ev)

	s.Start()
	defer s.Stop()

	s.CheckNow()
	waitOutcome(t, ev)
	if refreshCalls, _ := b.counts(); refreshCalls != 1 {
		t.Errorf("manual trigger ran %d checks, want 1", refreshCalls)
	}
}

func TestCheckNowWhileCheckRunning(t *testing.T) {
	gate := make(chan struct{})
	entered := make(chan struct{}, 4)
	b := &fakeBackend{refreshGate: gate, refreshEntered: entered}
	probes := &fakeProber{network: true, wizard: true}
	ev := newRecordingEvents()
	s := newTestScheduler(b, probes, 0, ev)

	s.Start()
	defer s.Stop()

	s.CheckNow()
	<-entered

	// The second trigger must be swallowed, not queued behind the slot.
	s.CheckNow()
	time.Sleep(30 * time.Millisecond)

	close(gate)
	waitOutcome(t, ev)

	time.Sleep(50 * time.Millisecond)
	if refreshCalls, _ := b.counts(); refreshCalls != 1 {
		t.Errorf("refresh ran %d times, want 1 (second trigger swallowed)", refreshCalls)
	}
}
