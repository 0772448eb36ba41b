package cmd

import (
	"grimm.is/netleash/internal/logging"
	"grimm.is/netleash/internal/state"
	"grimm.is/netleash/internal/system"
)

// RunMonitor blocks all traffic to and from the given IP.
func RunMonitor(configFile, ip string, persistent, dryRun bool) error {
	ip, err := parseTargetIP(ip)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(configFile)
	if err != nil {
		return err
	}

	target := state.Target{
		IP:         ip,
		Mode:       state.ModeMonitor,
		Persistent: persistent,
	}

	if dryRun {
		a := newApplier(cfg, system.NewDryRunExecutor(), nil)
		return a.dryRunApply(target)
	}

	// Root is required before any subprocess or file write happens
	if err := system.RequireRoot(); err != nil {
		return err
	}

	a := newApplier(cfg, system.DefaultCommandExecutor, nil)
	if err := a.apply(target); err != nil {
		return err
	}

	logging.Info("started monitoring", "ip", ip, "persistent", persistent)
	Printer.Printf("Monitoring %s (all tcp/udp/icmp traffic blocked)\n", ip)
	if persistent {
		Printer.Println("Rules persist across reboots until removed.")
	}
	return nil
}
