// Package envgate answers the yes/no environment questions that gate
// update checks and installs. Every probe degrades to false on failure:
// the daemon tries again later rather than crashing on a broken probe.
package envgate

import (
	"net"
	"strings"

	gopsnet "github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"
)

// Prober is the boolean contract the orchestration core depends on.
// Implementations may shell out, query system APIs, or be test fakes.
type Prober interface {
	NetworkAvailable() bool
	ClockSynced() bool
	SetupWizardRunning() bool
	TargetPlatform() bool
}

// Gate is the production Prober.
type Gate struct {
	wizardProcess string
	logger        *zap.Logger
}

// New creates a Gate. wizardProcess is the process name of the first-boot
// setup wizard; while it is running, startup update checks are skipped.
func New(wizardProcess string, logger *zap.Logger) *Gate {
	return &Gate{
		wizardProcess: wizardProcess,
		logger:        logger.Named("envgate"),
	}
}

// NetworkAvailable reports whether any interface other than loopback holds
// a global unicast address.
func (g *Gate) NetworkAvailable() bool {
	ifaces, err := gopsnet.Interfaces()
	if err != nil {
		g.logger.Warn("interface enumeration failed", zap.Error(err))
		return false
	}

	for _, iface := range ifaces {
		if hasFlag(iface.Flags, "loopback") || !hasFlag(iface.Flags, "up") {
			continue
		}
		for _, addr := range iface.Addrs {
			if globalUnicast(addr.Addr) {
				return true
			}
		}
	}
	return false
}

// ClockSynced reports whether the system clock is NTP-synchronized, via
// ntpq when ntpd is installed and timedatectl otherwise.
func (g *Gate) ClockSynced() bool {
	if ntpdInstalled() {
		return ntpPeerSelected()
	}
	return timedatectlSynced()
}

// SetupWizardRunning reports whether the first-boot wizard process is
// alive. The wizard runs its own update check, so the daemon stays out of
// its way.
func (g *Gate) SetupWizardRunning() bool {
	if g.wizardProcess == "" {
		return false
	}

	procs, err := process.Processes()
	if err != nil {
		g.logger.Warn("process snapshot failed", zap.Error(err))
		return false
	}

	want := strings.ToLower(g.wizardProcess)
	for _, p := range procs {
		name, err := p.Name()
		if err != nil {
			continue
		}
		if strings.ToLower(name) == want {
			return true
		}
	}
	return false
}

// TargetPlatform reports whether this machine is the platform the
// architecture filter is bypassed on. A failing probe means non-target,
// which keeps the filter active.
func (g *Gate) TargetPlatform() bool {
	return platformProbe()
}

// globalUnicast reports whether an interface address string (with or
// without a CIDR suffix) is a routable unicast address.
func globalUnicast(addr string) bool {
	ip, _, err := net.ParseCIDR(addr)
	if err != nil {
		ip = net.ParseIP(addr)
	}
	if ip == nil {
		return false
	}
	return ip.IsGlobalUnicast() && !ip.IsLinkLocalUnicast()
}

func hasFlag(flags []string, want string) bool {
	for _, f := range flags {
		if strings.EqualFold(f, want) {
			return true
		}
	}
	return false
}
