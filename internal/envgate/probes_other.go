//go:build !linux

package envgate

func ntpdInstalled() bool { return false }

func ntpPeerSelected() bool { return false }

func timedatectlSynced() bool { return false }

func platformProbe() bool { return false }
