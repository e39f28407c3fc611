// Package notify delivers desktop notification banners.
package notify

import "go.uber.org/zap"

// Request describes one desktop notification.
type Request struct {
	Title   string
	Body    string
	Icon    string
	Urgency string
}

// Notifier shows desktop notifications.
type Notifier interface {
	Show(req Request) bool
}

// Desktop is the platform notification implementation.
type Desktop struct {
	logger *zap.Logger
}

// NewDesktop creates a Desktop notifier.
func NewDesktop(logger *zap.Logger) *Desktop {
	return &Desktop{logger: logger.Named("notify")}
}

// Show sends a desktop notification. Returns true if it was delivered;
// failure is logged and never fatal.
func (d *Desktop) Show(req Request) bool {
	return showOS(d.logger, req)
}
