// lxplug-updater-install is the privileged install helper. The daemon
// spawns it through sudo; it re-resolves the pending update set itself
// and applies it, so a stale id list can never be installed.
package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/jose1711/lxplug-updater/internal/backend"
	"github.com/jose1711/lxplug-updater/internal/config"
	"github.com/jose1711/lxplug-updater/internal/envgate"
	"github.com/jose1711/lxplug-updater/internal/updater"
)

// consoleEvents prints pipeline progress for the terminal the helper
// runs in.
type consoleEvents struct {
	outcomeCh chan updater.Outcome
	installCh chan error
	lastPhase backend.Phase
}

var phaseMessages = map[backend.Phase]string{
	backend.PhaseCache:    "Updating package data - please wait...",
	backend.PhaseResolve:  "Comparing versions - please wait...",
	backend.PhaseDownload: "Downloading packages - please wait...",
	backend.PhaseInstall:  "Installing updates - please wait...",
}

func (e *consoleEvents) OnProgress(ev backend.ProgressEvent) {
	if ev.Phase != e.lastPhase {
		e.lastPhase = ev.Phase
		fmt.Println(phaseMessages[ev.Phase])
	}
	if ev.Percent != backend.PercentIndeterminate {
		fmt.Printf("\r%3d%%", ev.Percent)
	}
}

func (e *consoleEvents) OnOutcome(out updater.Outcome) {
	e.outcomeCh <- out
}

func (e *consoleEvents) OnInstallResult(err error) {
	e.installCh <- err
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error -", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := zap.NewNop()
	if cfg.LogFile != "" {
		zcfg := zap.NewProductionConfig()
		zcfg.OutputPaths = []string{cfg.LogFile}
		if built, err := zcfg.Build(); err == nil {
			logger = built
			defer logger.Sync()
		}
	}

	pk, err := backend.NewPackageKit(logger)
	if err != nil {
		return fmt.Errorf("failed to connect to package backend: %w", err)
	}
	defer pk.Close()

	probes := envgate.New(cfg.WizardProcess, logger)
	events := &consoleEvents{
		outcomeCh: make(chan updater.Outcome, 1),
		installCh: make(chan error, 1),
	}
	orch := updater.New(pk, probes, pk.InstallPackages, events, logger)
	ctx := context.Background()

	fmt.Println(phaseMessages[backend.PhaseCache])
	events.lastPhase = backend.PhaseCache
	if err := orch.StartCheck(ctx); err != nil {
		return err
	}

	out := <-events.outcomeCh
	switch out.Kind {
	case updater.OutcomeFailed:
		return fmt.Errorf("%s: %w", out.Failure, out.Err)
	case updater.OutcomeUpToDate:
		fmt.Println("System is up to date")
		return nil
	}

	if err := orch.StartInstall(ctx); err != nil {
		return err
	}
	if err := <-events.installCh; err != nil {
		return fmt.Errorf("installing packages: %w", err)
	}
	<-events.outcomeCh

	fmt.Println("System is up to date")
	return nil
}
