// Package updater is the update-check/install orchestration core: the
// asynchronous refresh→compare→filter→install pipelines, and the
// scheduling policy that triggers them. At most one pipeline is in
// flight at any time; the shared state slot enforces that across both
// the check and install pipelines.
package updater

import (
	"errors"
	"fmt"
)

// State is the position of the single pipeline slot.
type State int32

const (
	StateIdle State = iota
	StateAwaitingNetwork
	StateRefreshingCache
	StateComparingVersions
	StateInstalling
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingNetwork:
		return "awaiting-network"
	case StateRefreshingCache:
		return "refreshing-cache"
	case StateComparingVersions:
		return "comparing-versions"
	case StateInstalling:
		return "installing"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Pipeline errors surfaced to callers.
var (
	// ErrAlreadyRunning means a pipeline was started while another was
	// in flight. Scheduled triggers swallow it; a fresher outcome is
	// already on the way.
	ErrAlreadyRunning = errors.New("update pipeline already running")

	// ErrNoNetwork and ErrClockNotSynced are install precondition
	// failures, probed at call time.
	ErrNoNetwork      = errors.New("no network connection")
	ErrClockNotSynced = errors.New("clock not synchronised")
)

// FailureKind classifies a failed pipeline run.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureCacheRefresh
	FailureVersionCompare
	FailureInstall
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureCacheRefresh:
		return "cache-refresh"
	case FailureVersionCompare:
		return "version-compare"
	case FailureInstall:
		return "install"
	default:
		return fmt.Sprintf("failure(%d)", int(k))
	}
}

// OutcomeKind discriminates the Outcome sum type.
type OutcomeKind int

const (
	OutcomeUpToDate OutcomeKind = iota
	OutcomePending
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeUpToDate:
		return "up-to-date"
	case OutcomePending:
		return "pending"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}
