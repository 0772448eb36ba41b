// Package netscan discovers devices on the local network.
//
// Discovery is deliberately thin: the interface and ARP table come from
// the same OS binaries an administrator would run by hand (ifconfig,
// networksetup, arp, nmap). The optional ping sweep only exists to warm
// the ARP table before it is read.
package netscan

import (
	"fmt"
	"strings"

	"grimm.is/netleash/internal/config"
	"grimm.is/netleash/internal/logging"
	"grimm.is/netleash/internal/system"
)

// Device is one entry discovered on the network.
type Device struct {
	Hostname   string
	IP         string
	MAC        string
	Interface  string
	Incomplete bool
}

// Scanner discovers devices on one interface.
type Scanner struct {
	exec   system.CommandExecutor
	cfg    *config.ScanConfig
	iface  string
	logger *logging.Logger
}

// NewScanner creates a Scanner for the given interface.
func NewScanner(exec system.CommandExecutor, iface string, cfg *config.ScanConfig, logger *logging.Logger) *Scanner {
	if cfg == nil {
		cfg = config.Default().Scan
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Scanner{
		exec:   exec,
		cfg:    cfg,
		iface:  iface,
		logger: logger.WithComponent("scan"),
	}
}

// CheckInterface verifies the interface exists and returns the raw
// ifconfig output for it.
func (s *Scanner) CheckInterface() (string, error) {
	out, err := s.exec.RunCommand("ifconfig", s.iface)
	if err != nil {
		return "", fmt.Errorf("interface %s not found: %w", s.iface, err)
	}
	return out, nil
}

// CurrentNetwork returns the Wi-Fi network the interface is joined to.
// Wired or unassociated interfaces yield an empty string, not an error.
func (s *Scanner) CurrentNetwork() string {
	out, err := s.exec.RunCommand("networksetup", "-getairportnetwork", s.iface)
	if err != nil {
		s.logger.Debug("networksetup query failed", "interface", s.iface, "error", err)
		return ""
	}
	// Output: "Current Wi-Fi Network: <name>"
	line := strings.TrimSpace(out)
	if idx := strings.Index(line, ":"); idx >= 0 {
		return strings.TrimSpace(line[idx+1:])
	}
	return ""
}

// ARPTable reads and parses the system ARP table, keeping only entries
// for the scanner's interface.
func (s *Scanner) ARPTable() ([]Device, error) {
	out, err := s.exec.RunCommand("arp", "-a")
	if err != nil {
		return nil, fmt.Errorf("ARP scan failed: %w", err)
	}

	devices := ParseARPOutput(out)
	filtered := devices[:0]
	for _, d := range devices {
		if d.Interface == s.iface {
			filtered = append(filtered, d)
		}
	}
	return filtered, nil
}

// NmapSweep runs an nmap ping scan of the given network and returns its
// raw output.
func (s *Scanner) NmapSweep(cidr string) (string, error) {
	out, err := s.exec.RunCommand("nmap", "-sn", cidr)
	if err != nil {
		return "", fmt.Errorf("nmap sweep failed: %w", err)
	}
	return out, nil
}
