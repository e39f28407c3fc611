// Package installer launches the privileged install helper. Applying
// updates needs root, so the daemon never installs in-process; it spawns
// the helper through sudo and reports its exit status.
package installer

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"go.uber.org/zap"
)

// Launcher spawns the privileged installer process.
type Launcher interface {
	// Run starts the installer and blocks until it exits. A non-nil
	// error means the install did not complete.
	Run(ctx context.Context) error
}

// Sudo runs the install helper under sudo with an askpass helper for the
// password prompt.
type Sudo struct {
	installerPath string
	askpassPath   string
	logger        *zap.Logger
}

// NewSudo creates a Sudo launcher.
func NewSudo(installerPath, askpassPath string, logger *zap.Logger) *Sudo {
	return &Sudo{
		installerPath: installerPath,
		askpassPath:   askpassPath,
		logger:        logger.Named("installer"),
	}
}

// Run implements Launcher.
func (s *Sudo) Run(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "sudo", "-A", s.installerPath)
	cmd.Env = append(os.Environ(), "SUDO_ASKPASS="+s.askpassPath)

	s.logger.Info("launching installer", zap.String("path", s.installerPath))

	output, err := cmd.CombinedOutput()
	if err != nil {
		s.logger.Error("installer failed",
			zap.Error(err),
			zap.ByteString("output", output))
		return fmt.Errorf("installer failed: %w", err)
	}

	s.logger.Info("installer finished")
	return nil
}
