package cmd

import (
	"grimm.is/netleash/internal/logging"
	"grimm.is/netleash/internal/system"
)

// RunRemove drops all rules for the given IP.
func RunRemove(configFile, ip string) error {
	ip, err := parseTargetIP(ip)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(configFile)
	if err != nil {
		return err
	}

	if err := system.RequireRoot(); err != nil {
		return err
	}

	a := newApplier(cfg, system.DefaultCommandExecutor, nil)
	if err := a.remove(ip); err != nil {
		return err
	}

	logging.Info("rules removed", "ip", ip)
	Printer.Printf("Removed rules for %s\n", ip)
	return nil
}
