package config

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/hclsimple"
)

// LoadFile loads an HCL config file and merges it over the defaults.
// A missing file is not an error: the defaults are returned unchanged.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var fileCfg Config
	if err := hclsimple.Decode(path, data, nil, &fileCfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	merge(cfg, &fileCfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// merge overlays non-zero fields from src onto dst.
func merge(dst, src *Config) {
	if src.Interface != "" {
		dst.Interface = src.Interface
	}
	if src.RuleFile != "" {
		dst.RuleFile = src.RuleFile
	}
	if src.PFConf != "" {
		dst.PFConf = src.PFConf
	}
	if src.AnchorFile != "" {
		dst.AnchorFile = src.AnchorFile
	}
	if src.AnchorName != "" {
		dst.AnchorName = src.AnchorName
	}
	if src.StateFile != "" {
		dst.StateFile = src.StateFile
	}
	if src.Scan != nil {
		if src.Scan.Ping != nil {
			dst.Scan.Ping = src.Scan.Ping
		}
		if src.Scan.Resolve != nil {
			dst.Scan.Resolve = src.Scan.Resolve
		}
		if src.Scan.Nmap != nil {
			dst.Scan.Nmap = src.Scan.Nmap
		}
		if src.Scan.PingTimeout != "" {
			dst.Scan.PingTimeout = src.Scan.PingTimeout
		}
		if src.Scan.PingWorkers != 0 {
			dst.Scan.PingWorkers = src.Scan.PingWorkers
		}
		if src.Scan.DNSServer != "" {
			dst.Scan.DNSServer = src.Scan.DNSServer
		}
	}
	if src.Log != nil {
		log := *src.Log
		if log.Level == "" {
			log.Level = dst.Log.Level
		}
		dst.Log = &log
	}
}
