// Package config provides HCL configuration handling for the tool.
package config

import (
	"fmt"
	"net"
	"path/filepath"
	"regexp"
	"time"

	"grimm.is/netleash/internal/brand"
)

// Config is the top-level structure for the tool configuration.
type Config struct {
	// Default network interface for scans (e.g. "en0")
	Interface string `hcl:"interface,optional"`

	// RuleFile is the fixed path the generated pf rule file is written to.
	RuleFile string `hcl:"rule_file,optional"`

	// PFConf is the system pf configuration file that receives the
	// guarded anchor reference when persistence is requested.
	PFConf string `hcl:"pf_conf,optional"`

	// AnchorFile is where the rule file is installed for persistence.
	AnchorFile string `hcl:"anchor_file,optional"`

	// AnchorName is the pf anchor the rules are loaded into.
	AnchorName string `hcl:"anchor_name,optional"`

	// StateFile tracks which targets are currently applied.
	StateFile string `hcl:"state_file,optional"`

	Scan *ScanConfig `hcl:"scan,block"`
	Log  *LogConfig  `hcl:"log,block"`
}

// ScanConfig controls device discovery behavior. The boolean switches are
// pointers so a scan block that sets only one of them leaves the others at
// their defaults; read them through the *Enabled accessors.
type ScanConfig struct {
	// Ping sweeps the interface subnet before reading the ARP table.
	// On unless disabled.
	Ping *bool `hcl:"ping,optional"`

	// Resolve looks up PTR names for discovered addresses. Off by default.
	Resolve *bool `hcl:"resolve,optional"`

	// Nmap additionally runs an nmap ping scan of the subnet. Off by default.
	Nmap *bool `hcl:"nmap,optional"`

	// PingTimeout bounds each probe, e.g. "2s".
	PingTimeout string `hcl:"ping_timeout,optional"`

	// PingWorkers bounds sweep concurrency.
	PingWorkers int `hcl:"ping_workers,optional"`

	// DNSServer for PTR lookups; system resolver when empty.
	DNSServer string `hcl:"dns_server,optional"`
}

// LogConfig controls log output.
type LogConfig struct {
	Level string `hcl:"level,optional"`
	JSON  bool   `hcl:"json,optional"`

	// File appends logs to a file instead of stderr. Relative paths
	// resolve against the brand log directory.
	File string `hcl:"file,optional"`
}

var ifaceNameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9.-]*$`)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Interface:  "en0",
		RuleFile:   "/tmp/" + brand.LowerName + ".pf.rules",
		PFConf:     "/etc/pf.conf",
		AnchorFile: "/etc/pf.anchors/" + brand.LowerName,
		AnchorName: brand.LowerName,
		StateFile:  filepath.Join(brand.GetStateDir(), "targets.yaml"),
		Scan: &ScanConfig{
			PingTimeout: "2s",
			PingWorkers: 64,
		},
		Log: &LogConfig{
			Level: "info",
		},
	}
}

// PingEnabled reports whether the subnet sweep is on; unset means on.
func (s *ScanConfig) PingEnabled() bool {
	return s.Ping == nil || *s.Ping
}

// ResolveEnabled reports whether PTR lookups are on; unset means off.
func (s *ScanConfig) ResolveEnabled() bool {
	return s.Resolve != nil && *s.Resolve
}

// NmapEnabled reports whether the nmap sweep is on; unset means off.
func (s *ScanConfig) NmapEnabled() bool {
	return s.Nmap != nil && *s.Nmap
}

// PingTimeoutDuration parses the configured ping timeout.
func (s *ScanConfig) PingTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(s.PingTimeout)
	if err != nil || d <= 0 {
		return 2 * time.Second
	}
	return d
}

// Validate checks the configuration for semantic errors.
func (c *Config) Validate() error {
	if !ifaceNameRegex.MatchString(c.Interface) {
		return fmt.Errorf("invalid interface name %q", c.Interface)
	}
	for name, path := range map[string]string{
		"rule_file":   c.RuleFile,
		"pf_conf":     c.PFConf,
		"anchor_file": c.AnchorFile,
		"state_file":  c.StateFile,
	} {
		if !filepath.IsAbs(path) {
			return fmt.Errorf("%s must be an absolute path, got %q", name, path)
		}
	}
	if c.AnchorName == "" {
		return fmt.Errorf("anchor_name must not be empty")
	}
	if c.Scan != nil && c.Scan.DNSServer != "" {
		host := c.Scan.DNSServer
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
		if net.ParseIP(host) == nil {
			return fmt.Errorf("scan dns_server must be an IP address, got %q", c.Scan.DNSServer)
		}
	}
	if c.Scan != nil && c.Scan.PingWorkers < 0 {
		return fmt.Errorf("scan ping_workers must not be negative")
	}
	return nil
}
