// Package backend defines the package-management service contract the
// update pipelines consume, and provides the PackageKit implementation.
package backend

import (
	"context"

	"github.com/jose1711/lxplug-updater/internal/pkginfo"
)

// Phase identifies which stage of a backend operation a progress event
// belongs to.
type Phase string

const (
	PhaseCache    Phase = "cache"
	PhaseResolve  Phase = "resolve"
	PhaseDownload Phase = "download"
	PhaseInstall  Phase = "install"
)

// PercentIndeterminate marks progress events without a meaningful
// percentage; the UI shows a pulsing indicator for these.
const PercentIndeterminate = -1

// ProgressEvent is a transient observation forwarded to the UI boundary.
// Events never affect control flow.
type ProgressEvent struct {
	Phase   Phase
	Percent int
}

// ProgressFunc receives progress events as the backend emits them. It is
// called from the goroutine driving the backend call; implementations
// must not block.
type ProgressFunc func(ProgressEvent)

// Backend is the asynchronous package-management service. Calls block
// until the operation finishes or the context is done; incremental
// progress flows through the ProgressFunc.
type Backend interface {
	// RefreshCache re-downloads repository metadata. force discards any
	// cached metadata regardless of age.
	RefreshCache(ctx context.Context, force bool, progress ProgressFunc) error

	// GetUpdates returns the pending updates in the order the package
	// manager reports them.
	GetUpdates(ctx context.Context, progress ProgressFunc) ([]pkginfo.Update, error)

	// InstallPackages applies the given package updates.
	InstallPackages(ctx context.Context, ids []string, progress ProgressFunc) error
}
