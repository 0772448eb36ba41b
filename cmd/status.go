package cmd

import (
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"grimm.is/netleash/internal/brand"
	"grimm.is/netleash/internal/config"
	"grimm.is/netleash/internal/pf"
	"grimm.is/netleash/internal/state"
	"grimm.is/netleash/internal/system"
)

// RunStatus prints pf status, the anchor's loaded rules and the tracked
// targets. The live pfctl queries need root and degrade to warnings; the
// target table from the state file always prints.
func RunStatus(configFile string) error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return err
	}
	return statusReport(cfg, system.DefaultCommandExecutor, os.Stdout, os.Stderr)
}

func statusReport(cfg *config.Config, exec system.CommandExecutor, out, errW io.Writer) error {
	Printer.Fprintf(out, "=== %s Status ===\n\n", brand.Name)

	ctl := pf.NewController(exec, cfg.AnchorName, nil)

	if info, err := ctl.Info(); err != nil {
		Printer.Fprintf(errW, "Warning: failed to query pf: %v\n", err)
	} else if enabled, err := pf.ParseEnabled(info); err != nil {
		Printer.Fprintf(errW, "Warning: failed to query pf: %v\n", err)
	} else if enabled {
		Printer.Fprintf(out, "Packet filter:  ENABLED\n")
	} else {
		Printer.Fprintf(out, "Packet filter:  DISABLED\n")
	}

	if rules, err := ctl.AnchorRules(); err != nil {
		Printer.Fprintf(errW, "Warning: failed to list anchor rules: %v\n", err)
	} else if rules == "" {
		Printer.Fprintf(out, "Anchor %q:      no rules loaded\n", cfg.AnchorName)
	} else {
		Printer.Fprintf(out, "Anchor %q rules:\n", cfg.AnchorName)
		Printer.Fprintf(out, "%s\n", indent(rules, "  "))
	}

	persister := &pf.Persister{PFConf: cfg.PFConf, AnchorFile: cfg.AnchorFile, AnchorName: cfg.AnchorName}
	if installed, err := persister.Installed(); err == nil && installed {
		Printer.Fprintf(out, "Persistence:    installed in %s\n", cfg.PFConf)
	}

	targets, err := state.NewStore(cfg.StateFile).Load()
	if err != nil {
		return err
	}

	Printer.Fprintf(out, "\n")
	if len(targets) == 0 {
		Printer.Fprintf(out, "No tracked targets.\n")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	Printer.Fprintf(w, "IP\tMODE\tUP KB/s\tDOWN KB/s\tPERSISTENT\tADDED\n")
	for _, t := range targets {
		up, down := "-", "-"
		if t.UploadKBps > 0 {
			up = Printer.Sprintf("%d", t.UploadKBps)
		}
		if t.DownKBps > 0 {
			down = Printer.Sprintf("%d", t.DownKBps)
		}
		Printer.Fprintf(w, "%s\t%s\t%s\t%s\t%v\t%s\n",
			t.IP, t.Mode, up, down, t.Persistent, t.AddedAt.Local().Format(time.DateTime))
	}
	return w.Flush()
}

func indent(s, prefix string) string {
	return prefix + strings.ReplaceAll(s, "\n", "\n"+prefix)
}
