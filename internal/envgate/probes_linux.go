//go:build linux

package envgate

import (
	"os"
	"os/exec"
	"strings"
)

func ntpdInstalled() bool {
	_, err := os.Stat("/usr/sbin/ntpd")
	return err == nil
}

// ntpPeerSelected checks ntpq for a selected sync peer (a "*" row).
func ntpPeerSelected() bool {
	output, err := exec.Command("ntpq", "-p").Output()
	if err != nil {
		return false
	}
	for _, line := range strings.Split(string(output), "\n") {
		if strings.HasPrefix(line, "*") {
			return true
		}
	}
	return false
}

func timedatectlSynced() bool {
	output, err := exec.Command("timedatectl", "status").Output()
	if err != nil {
		return false
	}
	return strings.Contains(string(output), "synchronized: yes")
}

// platformProbe asks raspi-config whether this machine is a Pi. Exit
// status zero means yes; a missing or failing probe means no.
func platformProbe() bool {
	return exec.Command("raspi-config", "nonint", "is_pi").Run() == nil
}
