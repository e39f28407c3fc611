package updater

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/jose1711/lxplug-updater/internal/backend"
	"github.com/jose1711/lxplug-updater/internal/envgate"
	"github.com/jose1711/lxplug-updater/internal/pkginfo"
)

// Outcome is the terminal result of one pipeline run. Exactly one is
// produced per run, it is the last event delivered for that run, and it
// supersedes the previous outcome.
type Outcome struct {
	Kind    OutcomeKind
	Updates []pkginfo.Update // set for OutcomePending, in backend order
	Failure FailureKind      // set for OutcomeFailed
	Err     error            // set for OutcomeFailed
}

// Events is the UI boundary. The core emits these and never calls into
// rendering. Implementations receive events from pipeline goroutines and
// must be safe for that.
type Events interface {
	OnProgress(backend.ProgressEvent)
	OnOutcome(Outcome)
	OnInstallResult(err error)
}

// InstallFunc applies the given pending updates. The daemon wires this to
// the privileged installer launch; the install helper wires it straight
// to the backend.
type InstallFunc func(ctx context.Context, ids []string, progress backend.ProgressFunc) error

// Orchestrator owns the pipeline state slot, the cached pending list and
// the last outcome. All mutation happens under its lock; the slot is
// checked-and-set atomically when a pipeline starts.
type Orchestrator struct {
	backend backend.Backend
	probes  envgate.Prober
	install InstallFunc
	events  Events
	logger  *zap.Logger

	mu      sync.Mutex
	state   State
	pending []pkginfo.Update
	outcome *Outcome
}

// New creates an Orchestrator around the given collaborators.
func New(b backend.Backend, probes envgate.Prober, install InstallFunc, events Events, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		backend: b,
		probes:  probes,
		install: install,
		events:  events,
		logger:  logger.Named("updater"),
		state:   StateIdle,
	}
}

// State returns the current pipeline state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Pending returns a copy of the updates found by the last check.
func (o *Orchestrator) Pending() []pkginfo.Update {
	o.mu.Lock()
	defer o.mu.Unlock()
	pending := make([]pkginfo.Update, len(o.pending))
	copy(pending, o.pending)
	return pending
}

// LastOutcome returns the most recent terminal outcome, or nil before the
// first run completes.
func (o *Orchestrator) LastOutcome() *Outcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.outcome
}

// StartCheck begins the asynchronous check pipeline. It fails with
// ErrAlreadyRunning when the state slot is busy, making no backend calls
// in that case. The run's outcome arrives through the event sink.
func (o *Orchestrator) StartCheck(ctx context.Context) error {
	if err := o.acquire(StateRefreshingCache); err != nil {
		return err
	}

	o.logger.Info("checking for updates")
	go o.runCheck(ctx)
	return nil
}

// StartInstall begins the asynchronous install pipeline for the pending
// updates. Network and clock preconditions are probed at call time, not
// reused from the last check; a precondition failure leaves the state
// slot untouched.
func (o *Orchestrator) StartInstall(ctx context.Context) error {
	if !o.probes.NetworkAvailable() {
		return ErrNoNetwork
	}
	if !o.probes.ClockSynced() {
		return ErrClockNotSynced
	}

	if err := o.acquire(StateInstalling); err != nil {
		return err
	}

	o.logger.Info("installing updates")
	go o.runInstall(ctx)
	return nil
}

// markAwaitingNetwork parks the slot while the scheduler polls for
// connectivity; nothing else may start a pipeline that would only fail
// without network. Reports whether the slot was taken.
func (o *Orchestrator) markAwaitingNetwork() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateIdle {
		return false
	}
	o.state = StateAwaitingNetwork
	return true
}

// clearAwaitingNetwork releases a slot parked by markAwaitingNetwork.
func (o *Orchestrator) clearAwaitingNetwork() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == StateAwaitingNetwork {
		o.state = StateIdle
	}
}

// acquire takes the single pipeline slot, failing if it is not Idle.
func (o *Orchestrator) acquire(next State) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateIdle {
		return ErrAlreadyRunning
	}
	o.state = next
	return nil
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// finish releases the slot, records the outcome and delivers it as the
// run's terminal event.
func (o *Orchestrator) finish(out Outcome) {
	o.mu.Lock()
	o.state = StateIdle
	o.outcome = &out
	switch {
	case out.Kind == OutcomePending:
		o.pending = out.Updates
	case out.Failure == FailureInstall:
		// The install did not apply anything; the updates stay pending
		// so another install can be attempted without re-checking.
	default:
		o.pending = nil
	}
	o.mu.Unlock()

	switch out.Kind {
	case OutcomePending:
		o.logger.Info("check complete", zap.Int("updates", len(out.Updates)))
	case OutcomeUpToDate:
		o.logger.Info("check complete, system up to date")
	case OutcomeFailed:
		o.logger.Warn("pipeline failed",
			zap.Stringer("failure", out.Failure),
			zap.Error(out.Err))
	}

	if o.events != nil {
		o.events.OnOutcome(out)
	}
}

func (o *Orchestrator) emitProgress(ev backend.ProgressEvent) {
	if o.events != nil {
		o.events.OnProgress(ev)
	}
}

// runCheck drives refresh→compare→filter to a terminal outcome. Backend
// errors end the run with no retry; the scheduler's cadence governs when
// the next attempt happens.
func (o *Orchestrator) runCheck(ctx context.Context) {
	if err := o.backend.RefreshCache(ctx, true, o.emitProgress); err != nil {
		o.finish(Outcome{Kind: OutcomeFailed, Failure: FailureCacheRefresh, Err: err})
		return
	}

	o.setState(StateComparingVersions)
	updates, err := o.backend.GetUpdates(ctx, o.emitProgress)
	if err != nil {
		o.finish(Outcome{Kind: OutcomeFailed, Failure: FailureVersionCompare, Err: err})
		return
	}

	filtered := pkginfo.FilterForPlatform(updates, o.probes.TargetPlatform())
	if len(filtered) == 0 {
		o.finish(Outcome{Kind: OutcomeUpToDate})
		return
	}
	o.finish(Outcome{Kind: OutcomePending, Updates: filtered})
}

func (o *Orchestrator) runInstall(ctx context.Context) {
	ids := pkginfo.IDs(o.Pending())

	err := o.install(ctx, ids, o.emitProgress)
	if o.events != nil {
		o.events.OnInstallResult(err)
	}
	if err != nil {
		o.finish(Outcome{Kind: OutcomeFailed, Failure: FailureInstall, Err: err})
		return
	}

	// Everything that was pending is now installed.
	o.finish(Outcome{Kind: OutcomeUpToDate})
}
