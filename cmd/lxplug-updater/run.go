package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/jose1711/lxplug-updater/internal/backend"
	"github.com/jose1711/lxplug-updater/internal/config"
	"github.com/jose1711/lxplug-updater/internal/envgate"
	"github.com/jose1711/lxplug-updater/internal/installer"
	"github.com/jose1711/lxplug-updater/internal/notify"
	"github.com/jose1711/lxplug-updater/internal/updater"
)

// daemonEvents is the daemon's UI boundary: pending updates raise one
// desktop notification per outcome, install failures raise another.
type daemonEvents struct {
	notifier notify.Notifier
	logger   *zap.Logger
}

func (e *daemonEvents) OnProgress(ev backend.ProgressEvent) {
	e.logger.Debug("progress",
		zap.String("phase", string(ev.Phase)),
		zap.Int("percent", ev.Percent))
}

func (e *daemonEvents) OnOutcome(out updater.Outcome) {
	if out.Kind != updater.OutcomePending {
		return
	}
	e.notifier.Show(notify.Request{
		Title: "Updater",
		Body:  "Updates are available",
		Icon:  "update-avail",
	})
}

func (e *daemonEvents) OnInstallResult(err error) {
	if err == nil {
		return
	}
	e.notifier.Show(notify.Request{
		Title:   "Updater",
		Body:    "Installing updates failed: " + err.Error(),
		Urgency: "critical",
	})
}

func runDaemon(cfg *config.Config) error {
	logger, err := buildLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()

	pk, err := backend.NewPackageKit(logger)
	if err != nil {
		return fmt.Errorf("failed to connect to package backend: %w", err)
	}
	defer pk.Close()

	probes := envgate.New(cfg.WizardProcess, logger)
	notifier := notify.NewDesktop(logger)
	launcher := installer.NewSudo(cfg.InstallerPath, cfg.AskpassPath, logger)

	events := &daemonEvents{notifier: notifier, logger: logger.Named("events")}
	orch := updater.New(pk, probes, spawnInstaller(launcher), events, logger)
	sched := updater.NewScheduler(orch, probes, cfg.Interval, logger)

	sched.Start()
	defer sched.Stop()

	config.Watch(logger, func(c *config.Config) {
		sched.SetInterval(c.Interval)
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1, syscall.SIGUSR2)
	for sig := range sigCh {
		switch sig {
		case syscall.SIGUSR1:
			logger.Info("check requested")
			sched.CheckNow()
		case syscall.SIGUSR2:
			logger.Info("install requested")
			if err := orch.StartInstall(context.Background()); err != nil {
				reportInstallRefusal(err, notifier, logger)
			}
		default:
			logger.Info("shutting down", zap.String("signal", sig.String()))
			return nil
		}
	}
	return nil
}

// spawnInstaller adapts a Launcher to the orchestrator's install hook.
// The daemon never installs in-process; the privileged helper re-resolves
// the update set itself, so the ids are not forwarded.
func spawnInstaller(l installer.Launcher) updater.InstallFunc {
	return func(ctx context.Context, ids []string, progress backend.ProgressFunc) error {
		return l.Run(ctx)
	}
}

// reportInstallRefusal surfaces a precondition or in-flight refusal to
// the user; these never change pipeline state.
func reportInstallRefusal(err error, notifier notify.Notifier, logger *zap.Logger) {
	var body string
	switch {
	case errors.Is(err, updater.ErrNoNetwork):
		body = "No network connection - cannot install updates."
	case errors.Is(err, updater.ErrClockNotSynced):
		body = "Clock not synchronised - cannot install updates. Try again in a few minutes."
	case errors.Is(err, updater.ErrAlreadyRunning):
		logger.Info("install refused, pipeline busy")
		return
	default:
		body = "Cannot install updates: " + err.Error()
	}
	logger.Warn("install refused", zap.Error(err))
	notifier.Show(notify.Request{Title: "Updater", Body: body, Urgency: "critical"})
}

// checkEvents collects a single one-shot check outcome for the CLI.
type checkEvents struct {
	outcomeCh chan updater.Outcome
}

func (e *checkEvents) OnProgress(backend.ProgressEvent) {}

func (e *checkEvents) OnOutcome(out updater.Outcome) {
	e.outcomeCh <- out
}

func (e *checkEvents) OnInstallResult(error) {}

func runCheck(cfg *config.Config) error {
	logger, err := buildLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()

	pk, err := backend.NewPackageKit(logger)
	if err != nil {
		return fmt.Errorf("failed to connect to package backend: %w", err)
	}
	defer pk.Close()

	probes := envgate.New(cfg.WizardProcess, logger)
	events := &checkEvents{outcomeCh: make(chan updater.Outcome, 1)}
	orch := updater.New(pk, probes, nil, events, logger)

	if !probes.NetworkAvailable() {
		return errors.New("no network connection - update check failed")
	}
	if err := orch.StartCheck(context.Background()); err != nil {
		return err
	}

	out := <-events.outcomeCh
	switch out.Kind {
	case updater.OutcomeUpToDate:
		fmt.Println("System is up to date")
	case updater.OutcomePending:
		fmt.Printf("%d updates available:\n", len(out.Updates))
		for _, u := range out.Updates {
			fmt.Printf("  %s\t%s\n", u.Name, u.Version)
		}
	case updater.OutcomeFailed:
		return fmt.Errorf("update check failed (%s): %w", out.Failure, out.Err)
	}
	return nil
}
