package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/netleash/internal/config"
	"grimm.is/netleash/internal/state"
	"grimm.is/netleash/internal/system"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.RuleFile = filepath.Join(dir, "netleash.pf.rules")
	cfg.PFConf = filepath.Join(dir, "pf.conf")
	cfg.AnchorFile = filepath.Join(dir, "pf.anchors", "netleash")
	cfg.StateFile = filepath.Join(dir, "targets.yaml")
	require.NoError(t, os.WriteFile(cfg.PFConf, []byte("anchor \"com.apple/*\"\n"), 0644))
	return cfg
}

func enabledExecutor() *system.DryRunExecutor {
	exec := system.NewDryRunExecutor()
	exec.Outputs = map[string]string{
		"pfctl -s info": "Status: Enabled for 0 days 01:00:00\n",
	}
	return exec
}

func TestApplyMonitorTarget(t *testing.T) {
	cfg := testConfig(t)
	exec := enabledExecutor()
	a := newApplier(cfg, exec, nil)

	err := a.apply(state.Target{IP: "192.168.1.50", Mode: state.ModeMonitor})
	require.NoError(t, err)

	// Rule file was regenerated
	data, err := os.ReadFile(cfg.RuleFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "block drop in proto {tcp udp icmp} from 192.168.1.50 to any")

	// pf was probed but not re-enabled, then the anchor was loaded
	assert.Equal(t, []string{
		"pfctl -s info",
		"pfctl -a netleash -f " + cfg.RuleFile,
	}, exec.Commands)

	// Non-persistent target leaves pf.conf alone
	pfconf, err := os.ReadFile(cfg.PFConf)
	require.NoError(t, err)
	assert.NotContains(t, string(pfconf), "netleash")
}

func TestApplyEnablesDisabledPF(t *testing.T) {
	cfg := testConfig(t)
	exec := system.NewDryRunExecutor()
	exec.Outputs = map[string]string{
		"pfctl -s info": "Status: Disabled for 0 days 00:01:00\n",
	}
	a := newApplier(cfg, exec, nil)

	require.NoError(t, a.apply(state.Target{IP: "192.168.1.50", Mode: state.ModeMonitor}))
	assert.Contains(t, exec.Commands, "pfctl -e")
}

func TestApplyPersistentTarget(t *testing.T) {
	cfg := testConfig(t)
	a := newApplier(cfg, enabledExecutor(), nil)

	err := a.apply(state.Target{IP: "192.168.1.50", Mode: state.ModeLimit, UploadKBps: 100, Persistent: true})
	require.NoError(t, err)

	// Anchor file mirrors the rule file
	anchorData, err := os.ReadFile(cfg.AnchorFile)
	require.NoError(t, err)
	ruleData, err := os.ReadFile(cfg.RuleFile)
	require.NoError(t, err)
	assert.Equal(t, string(ruleData), string(anchorData))

	// pf.conf carries the guarded reference
	pfconf, err := os.ReadFile(cfg.PFConf)
	require.NoError(t, err)
	assert.Contains(t, string(pfconf), `anchor "netleash"`)
	assert.Contains(t, string(pfconf), "# BEGIN netleash managed block")
}

func TestRemoveLastTargetFlushesAndCleansUp(t *testing.T) {
	cfg := testConfig(t)
	a := newApplier(cfg, enabledExecutor(), nil)

	require.NoError(t, a.apply(state.Target{IP: "192.168.1.50", Mode: state.ModeMonitor, Persistent: true}))

	exec := enabledExecutor()
	a = newApplier(cfg, exec, nil)
	require.NoError(t, a.remove("192.168.1.50"))

	assert.Contains(t, exec.Commands, "pfctl -a netleash -F rules")

	// Persistence wiring is gone
	_, err := os.Stat(cfg.AnchorFile)
	assert.True(t, os.IsNotExist(err))
	pfconf, err := os.ReadFile(cfg.PFConf)
	require.NoError(t, err)
	assert.NotContains(t, string(pfconf), "netleash")
}

func TestRemoveKeepsRemainingTargets(t *testing.T) {
	cfg := testConfig(t)
	a := newApplier(cfg, enabledExecutor(), nil)

	require.NoError(t, a.apply(state.Target{IP: "192.168.1.50", Mode: state.ModeMonitor}))
	require.NoError(t, a.apply(state.Target{IP: "192.168.1.60", Mode: state.ModeLimit, DownKBps: 200}))

	exec := enabledExecutor()
	a = newApplier(cfg, exec, nil)
	require.NoError(t, a.remove("192.168.1.50"))

	// Anchor was reloaded, not flushed
	assert.Contains(t, exec.Commands, "pfctl -a netleash -f "+cfg.RuleFile)
	assert.NotContains(t, exec.Commands, "pfctl -a netleash -F rules")

	data, err := os.ReadFile(cfg.RuleFile)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "192.168.1.50")
	assert.Contains(t, string(data), "192.168.1.60")
}

func TestRemoveUntrackedIP(t *testing.T) {
	cfg := testConfig(t)
	exec := enabledExecutor()
	a := newApplier(cfg, exec, nil)

	err := a.remove("10.0.0.1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not tracked")
	// Firewall untouched
	assert.Empty(t, exec.Commands)
}

func TestDryRunApplyChangesNothing(t *testing.T) {
	cfg := testConfig(t)
	a := newApplier(cfg, system.NewDryRunExecutor(), nil)

	err := a.dryRunApply(state.Target{IP: "192.168.1.50", Mode: state.ModeMonitor, Persistent: true})
	require.NoError(t, err)

	_, err = os.Stat(cfg.RuleFile)
	assert.True(t, os.IsNotExist(err), "dry run must not write the rule file")
	_, err = os.Stat(cfg.StateFile)
	assert.True(t, os.IsNotExist(err), "dry run must not write state")
}
