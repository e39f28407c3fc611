//go:build !linux

package notify

import "go.uber.org/zap"

func showOS(logger *zap.Logger, req Request) bool {
	logger.Info("notification suppressed on this platform",
		zap.String("title", req.Title))
	return false
}
