// Package cmd implements the CLI subcommand handlers.
package cmd

import (
	"fmt"
	"net"
	"os"
	"path/filepath"

	"grimm.is/netleash/internal/brand"
	"grimm.is/netleash/internal/config"
	"grimm.is/netleash/internal/i18n"
	"grimm.is/netleash/internal/logging"
)

// Printer renders all user-facing output in the system locale.
var Printer = i18n.NewCLIPrinter()

// loadConfig loads the config file and configures the default logger
// from its log block.
func loadConfig(configFile string) (*config.Config, error) {
	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return nil, err
	}

	logCfg := logging.DefaultConfig()
	if cfg.Log != nil {
		logCfg.Level = logging.ParseLevel(cfg.Log.Level)
		logCfg.JSON = cfg.Log.JSON
		if cfg.Log.File != "" {
			path := cfg.Log.File
			if !filepath.IsAbs(path) {
				path = filepath.Join(brand.GetLogDir(), path)
			}
			f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
			if err != nil {
				return nil, fmt.Errorf("failed to open log file: %w", err)
			}
			logCfg.Output = f
		}
	}
	logging.SetDefault(logging.New(logCfg))

	return cfg, nil
}

// parseTargetIP validates a --ip argument before anything else runs.
func parseTargetIP(ip string) (string, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "", fmt.Errorf("invalid IP address %q", ip)
	}
	return parsed.String(), nil
}
