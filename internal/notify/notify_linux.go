//go:build linux

package notify

import (
	"os/exec"

	"go.uber.org/zap"
)

// showOS shells out to notify-send. The daemon holds no session bus
// connection of its own, so the CLI is the simplest reliable path to
// org.freedesktop.Notifications.
func showOS(logger *zap.Logger, req Request) bool {
	var args []string
	if req.Icon != "" {
		args = append(args, "-i", req.Icon)
	}
	if req.Urgency != "" {
		args = append(args, "-u", req.Urgency)
	}
	args = append(args, req.Title, req.Body)

	if out, err := exec.Command("notify-send", args...).CombinedOutput(); err != nil {
		logger.Warn("notify-send failed",
			zap.Error(err),
			zap.ByteString("output", out))
		return false
	}
	return true
}
