package backend

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"

	"github.com/jose1711/lxplug-updater/internal/pkginfo"
)

const (
	pkBusName     = "org.freedesktop.PackageKit"
	pkObjectPath  = "/org/freedesktop/PackageKit"
	pkInterface   = "org.freedesktop.PackageKit"
	pkTxInterface = "org.freedesktop.PackageKit.Transaction"

	sigPackage      = pkTxInterface + ".Package"
	sigItemProgress = pkTxInterface + ".ItemProgress"
	sigErrorCode    = pkTxInterface + ".ErrorCode"
	sigFinished     = pkTxInterface + ".Finished"
)

// PackageKit enum values used on the wire.
const (
	pkFilterNone     uint64 = 1 << 0
	pkTxFlagNone     uint64 = 0
	pkExitSuccess    uint32 = 1
	pkStatusDownload uint32 = 8
	pkStatusInstall  uint32 = 9
	pkPercentUnknown uint32 = 101
)

// PackageKitBackend talks to the PackageKit system service over D-Bus.
type PackageKitBackend struct {
	conn   *dbus.Conn
	logger *zap.Logger
}

// NewPackageKit connects to the system bus and verifies the PackageKit
// service object is reachable.
func NewPackageKit(logger *zap.Logger) (*PackageKitBackend, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("system bus connect failed: %w", err)
	}

	return &PackageKitBackend{
		conn:   conn,
		logger: logger.Named("packagekit"),
	}, nil
}

// Close releases the bus connection.
func (b *PackageKitBackend) Close() error {
	return b.conn.Close()
}

// RefreshCache implements Backend.
func (b *PackageKitBackend) RefreshCache(ctx context.Context, force bool, progress ProgressFunc) error {
	_, err := b.runTransaction(ctx, PhaseCache, progress, "RefreshCache", force)
	return err
}

// GetUpdates implements Backend.
func (b *PackageKitBackend) GetUpdates(ctx context.Context, progress ProgressFunc) ([]pkginfo.Update, error) {
	ids, err := b.runTransaction(ctx, PhaseResolve, progress, "GetUpdates", pkFilterNone)
	if err != nil {
		return nil, err
	}

	updates := make([]pkginfo.Update, len(ids))
	for i, id := range ids {
		updates[i] = pkginfo.ParseID(id)
	}
	return dedupeByName(updates), nil
}

// InstallPackages implements Backend.
func (b *PackageKitBackend) InstallPackages(ctx context.Context, ids []string, progress ProgressFunc) error {
	_, err := b.runTransaction(ctx, PhaseDownload, progress, "UpdatePackages", pkTxFlagNone, ids)
	return err
}

// runTransaction creates a PackageKit transaction, invokes method on it,
// and pumps its signals until Finished. Package signals are collected in
// arrival order; ItemProgress is forwarded as progress events.
func (b *PackageKitBackend) runTransaction(ctx context.Context, phase Phase, progress ProgressFunc, method string, args ...interface{}) ([]string, error) {
	var txPath dbus.ObjectPath
	service := b.conn.Object(pkBusName, pkObjectPath)
	if err := service.CallWithContext(ctx, pkInterface+".CreateTransaction", 0).Store(&txPath); err != nil {
		return nil, fmt.Errorf("create transaction failed: %w", err)
	}

	matchOpts := []dbus.MatchOption{
		dbus.WithMatchObjectPath(txPath),
		dbus.WithMatchInterface(pkTxInterface),
	}
	if err := b.conn.AddMatchSignal(matchOpts...); err != nil {
		return nil, fmt.Errorf("signal match failed: %w", err)
	}
	defer func() {
		if err := b.conn.RemoveMatchSignal(matchOpts...); err != nil {
			b.logger.Warn("signal match removal failed", zap.Error(err))
		}
	}()

	signals := make(chan *dbus.Signal, 64)
	b.conn.Signal(signals)
	defer b.conn.RemoveSignal(signals)

	tx := b.conn.Object(pkBusName, txPath)
	if call := tx.CallWithContext(ctx, pkTxInterface+"."+method, 0, args...); call.Err != nil {
		return nil, fmt.Errorf("%s failed: %w", method, call.Err)
	}

	var ids []string
	var txErr error
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case sig, ok := <-signals:
			if !ok {
				return nil, fmt.Errorf("bus connection lost during %s", method)
			}
			if sig.Path != txPath {
				continue
			}
			switch sig.Name {
			case sigPackage:
				if id, ok := packageID(sig.Body); ok {
					ids = append(ids, id)
				}
			case sigItemProgress:
				if progress != nil {
					progress(itemProgressEvent(phase, sig.Body))
				}
			case sigErrorCode:
				txErr = transactionError(method, sig.Body)
			case sigFinished:
				if txErr != nil {
					return nil, txErr
				}
				if exit, ok := finishedExit(sig.Body); ok && exit != pkExitSuccess {
					return nil, fmt.Errorf("%s finished with exit code %d", method, exit)
				}
				return ids, nil
			}
		}
	}
}

// packageID extracts the package ID from a Package signal body
// (info uint32, package_id string, summary string).
func packageID(body []interface{}) (string, bool) {
	if len(body) < 2 {
		return "", false
	}
	id, ok := body[1].(string)
	return id, ok && id != ""
}

// itemProgressEvent maps an ItemProgress signal body (id string,
// status uint32, percentage uint32) to a progress event. During an
// install transaction the status distinguishes download from install.
func itemProgressEvent(phase Phase, body []interface{}) ProgressEvent {
	ev := ProgressEvent{Phase: phase, Percent: PercentIndeterminate}
	if len(body) < 3 {
		return ev
	}

	if status, ok := body[1].(uint32); ok && phase == PhaseDownload {
		if status == pkStatusInstall {
			ev.Phase = PhaseInstall
		}
		if status != pkStatusDownload && status != pkStatusInstall {
			return ev
		}
	}
	if pct, ok := body[2].(uint32); ok && pct <= 100 && pct != pkPercentUnknown {
		ev.Percent = int(pct)
	}
	return ev
}

// transactionError converts an ErrorCode signal body (code uint32,
// details string) into an error.
func transactionError(method string, body []interface{}) error {
	code := uint32(0)
	details := "unknown backend error"
	if len(body) > 0 {
		if c, ok := body[0].(uint32); ok {
			code = c
		}
	}
	if len(body) > 1 {
		if d, ok := body[1].(string); ok && d != "" {
			details = d
		}
	}
	return fmt.Errorf("%s error %d: %s", method, code, details)
}

// finishedExit extracts the exit enum from a Finished signal body
// (exit uint32, runtime uint32).
func finishedExit(body []interface{}) (uint32, bool) {
	if len(body) == 0 {
		return 0, false
	}
	exit, ok := body[0].(uint32)
	return exit, ok
}

// dedupeByName collapses multiple candidate rows for the same package
// name, keeping the newest version at the position of the first
// occurrence. Multiple origins can each offer a candidate for one name.
func dedupeByName(updates []pkginfo.Update) []pkginfo.Update {
	index := make(map[string]int, len(updates))
	result := make([]pkginfo.Update, 0, len(updates))
	for _, u := range updates {
		at, seen := index[u.Name]
		if !seen {
			index[u.Name] = len(result)
			result = append(result, u)
			continue
		}
		if u.Supersedes(result[at].Version) {
			result[at] = u
		}
	}
	return result
}
