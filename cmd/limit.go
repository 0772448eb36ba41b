package cmd

import (
	"fmt"

	"grimm.is/netleash/internal/logging"
	"grimm.is/netleash/internal/state"
	"grimm.is/netleash/internal/system"
)

// RunLimit applies bandwidth limits (in KB/s) to the given IP.
func RunLimit(configFile, ip string, upload, download uint, persistent, dryRun bool) error {
	ip, err := parseTargetIP(ip)
	if err != nil {
		return err
	}
	if upload == 0 && download == 0 {
		return fmt.Errorf("at least one of --upload or --download is required")
	}

	cfg, err := loadConfig(configFile)
	if err != nil {
		return err
	}

	target := state.Target{
		IP:         ip,
		Mode:       state.ModeLimit,
		UploadKBps: upload,
		DownKBps:   download,
		Persistent: persistent,
	}

	if dryRun {
		a := newApplier(cfg, system.NewDryRunExecutor(), nil)
		return a.dryRunApply(target)
	}

	if err := system.RequireRoot(); err != nil {
		return err
	}

	a := newApplier(cfg, system.DefaultCommandExecutor, nil)
	if err := a.apply(target); err != nil {
		return err
	}

	logging.Info("bandwidth limits applied", "ip", ip, "upload_kbps", upload, "download_kbps", download)
	Printer.Printf("Bandwidth limits applied for %s", ip)
	if upload > 0 {
		Printer.Printf(" up=%dKB/s", upload)
	}
	if download > 0 {
		Printer.Printf(" down=%dKB/s", download)
	}
	Printer.Println()
	return nil
}
