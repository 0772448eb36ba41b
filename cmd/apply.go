package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"grimm.is/netleash/internal/config"
	"grimm.is/netleash/internal/logging"
	"grimm.is/netleash/internal/pf"
	"grimm.is/netleash/internal/state"
	"grimm.is/netleash/internal/system"
)

// applier runs the rule pipeline shared by monitor, limit and remove:
// update the target store, regenerate the rule file, load it into the
// anchor, and reconcile persistence. Failures abort where they happen;
// there is no rollback of earlier steps.
type applier struct {
	cfg       *config.Config
	store     *state.Store
	ctl       *pf.Controller
	persister *pf.Persister
	logger    *logging.Logger
}

func newApplier(cfg *config.Config, exec system.CommandExecutor, logger *logging.Logger) *applier {
	if logger == nil {
		logger = logging.Default()
	}
	return &applier{
		cfg:   cfg,
		store: state.NewStore(cfg.StateFile),
		ctl:   pf.NewController(exec, cfg.AnchorName, logger),
		persister: &pf.Persister{
			PFConf:     cfg.PFConf,
			AnchorFile: cfg.AnchorFile,
			AnchorName: cfg.AnchorName,
		},
		logger: logger,
	}
}

// apply records the target and loads the regenerated ruleset.
func (a *applier) apply(target state.Target) error {
	targets, err := a.store.Upsert(target)
	if err != nil {
		return err
	}

	rules, err := pf.GenerateRules(targets)
	if err != nil {
		return err
	}
	if err := pf.WriteRuleFile(a.cfg.RuleFile, rules); err != nil {
		return err
	}

	if err := a.ctl.Enable(); err != nil {
		return err
	}
	if err := a.ctl.LoadAnchor(a.cfg.RuleFile); err != nil {
		return err
	}

	if err := a.reconcilePersistence(targets, rules); err != nil {
		return err
	}

	a.logger.Audit(string(target.Mode), target.IP, map[string]any{
		"persistent": target.Persistent,
		"upload":     target.UploadKBps,
		"download":   target.DownKBps,
	})
	return nil
}

// remove drops the target and reloads or flushes the anchor.
func (a *applier) remove(ip string) error {
	remaining, err := a.store.Remove(ip)
	if err != nil {
		return err
	}

	rules, err := pf.GenerateRules(remaining)
	if err != nil {
		return err
	}
	if err := pf.WriteRuleFile(a.cfg.RuleFile, rules); err != nil {
		return err
	}

	if len(remaining) == 0 {
		if err := a.ctl.FlushAnchor(); err != nil {
			return err
		}
	} else {
		if err := a.ctl.LoadAnchor(a.cfg.RuleFile); err != nil {
			return err
		}
	}

	if err := a.reconcilePersistence(remaining, rules); err != nil {
		return err
	}

	a.logger.Audit("remove", ip, map[string]any{"remaining": len(remaining)})
	return nil
}

// reconcilePersistence keeps the boot-time wiring in step with the target
// list: while any persistent target exists the anchor file mirrors the
// rule file and pf.conf carries the guarded reference; once the last one
// goes, both are removed.
func (a *applier) reconcilePersistence(targets []state.Target, rules string) error {
	if state.HasPersistent(targets) {
		if err := a.persister.InstallAnchorFile(rules); err != nil {
			return err
		}
		return a.persister.EnsureReference()
	}

	if err := a.persister.RemoveAnchorFile(); err != nil {
		return err
	}
	return a.persister.RemoveReference()
}

// dryRunApply prints what apply would change without touching anything.
func (a *applier) dryRunApply(target state.Target) error {
	targets, err := a.store.Load()
	if err != nil {
		return err
	}

	// Simulate the upsert without saving
	replaced := false
	for i := range targets {
		if targets[i].IP == target.IP {
			targets[i] = target
			replaced = true
			break
		}
	}
	if !replaced {
		targets = append(targets, target)
	}

	rules, err := pf.GenerateRules(targets)
	if err != nil {
		return err
	}

	if err := a.printRuleDiff(rules); err != nil {
		return err
	}

	Printer.Println("\nCommands that would run:")
	Printer.Printf("  pfctl -e (only when pf is disabled)\n")
	Printer.Printf("  pfctl -a %s -f %s\n", a.cfg.AnchorName, a.cfg.RuleFile)
	if target.Persistent {
		Printer.Printf("  install %s and reference it from %s\n", a.cfg.AnchorFile, a.cfg.PFConf)
	}
	return nil
}

// printRuleDiff shows a unified diff between the current rule file and
// the ruleset that would be written.
func (a *applier) printRuleDiff(newRules string) error {
	current := ""
	if data, err := os.ReadFile(a.cfg.RuleFile); err == nil {
		current = string(data)
	}

	if current == newRules {
		Printer.Println("No rule file changes.")
		return nil
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(current),
		B:        difflib.SplitLines(newRules),
		FromFile: a.cfg.RuleFile,
		ToFile:   a.cfg.RuleFile + " (new)",
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return fmt.Errorf("failed to build diff: %w", err)
	}
	Printer.Print(strings.TrimRight(text, "\n") + "\n")
	return nil
}
