package pf

import (
	"fmt"
	"strings"

	"grimm.is/netleash/internal/logging"
	"grimm.is/netleash/internal/system"
)

// Controller drives pfctl. All rule loads go through a named anchor so the
// rest of the host ruleset is never touched.
type Controller struct {
	exec   system.CommandExecutor
	anchor string
	logger *logging.Logger
}

// NewController creates a Controller for the given anchor.
func NewController(exec system.CommandExecutor, anchor string, logger *logging.Logger) *Controller {
	if logger == nil {
		logger = logging.Default()
	}
	return &Controller{
		exec:   exec,
		anchor: anchor,
		logger: logger.WithComponent("pfctl"),
	}
}

// Anchor returns the anchor name this controller manages.
func (c *Controller) Anchor() string {
	return c.anchor
}

// Enabled reports whether pf is currently enabled, from `pfctl -s info`.
func (c *Controller) Enabled() (bool, error) {
	out, err := c.Info()
	if err != nil {
		return false, err
	}
	return ParseEnabled(out)
}

// ParseEnabled reads the Status line out of a `pfctl -s info` block.
func ParseEnabled(info string) (bool, error) {
	for _, line := range strings.Split(info, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "Status:") {
			return strings.Contains(line, "Enabled"), nil
		}
	}
	return false, fmt.Errorf("could not find Status line in pfctl -s info output")
}

// Enable turns pf on when it is not already enabled. pfctl -e exits
// non-zero if pf is already up, so the status is probed first.
func (c *Controller) Enable() error {
	enabled, err := c.Enabled()
	if err != nil {
		return err
	}
	if enabled {
		c.logger.Debug("pf already enabled")
		return nil
	}
	if _, err := c.exec.RunCommand("pfctl", "-e"); err != nil {
		return fmt.Errorf("failed to enable pf: %w", err)
	}
	c.logger.Info("enabled pf")
	return nil
}

// LoadAnchor loads the rule file into the managed anchor.
func (c *Controller) LoadAnchor(ruleFile string) error {
	if _, err := c.exec.RunCommand("pfctl", "-a", c.anchor, "-f", ruleFile); err != nil {
		return fmt.Errorf("failed to load rules into anchor %s: %w", c.anchor, err)
	}
	c.logger.Info("loaded rules", "anchor", c.anchor, "file", ruleFile)
	return nil
}

// FlushAnchor removes all rules from the managed anchor.
func (c *Controller) FlushAnchor() error {
	if _, err := c.exec.RunCommand("pfctl", "-a", c.anchor, "-F", "rules"); err != nil {
		return fmt.Errorf("failed to flush anchor %s: %w", c.anchor, err)
	}
	c.logger.Info("flushed anchor", "anchor", c.anchor)
	return nil
}

// AnchorRules returns the rules currently loaded in the managed anchor.
func (c *Controller) AnchorRules() (string, error) {
	out, err := c.exec.RunCommand("pfctl", "-a", c.anchor, "-s", "rules")
	if err != nil {
		return "", fmt.Errorf("failed to list anchor %s rules: %w", c.anchor, err)
	}
	return strings.TrimSpace(out), nil
}

// Info returns the raw `pfctl -s info` output.
func (c *Controller) Info() (string, error) {
	out, err := c.exec.RunCommand("pfctl", "-s", "info")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
