package pf

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/netleash/internal/system"
)

const pfInfoEnabled = `Status: Enabled for 0 days 02:33:09           Debug: Urgent

State Table                          Total             Rate
  current entries                       12
`

const pfInfoDisabled = `Status: Disabled for 0 days 00:00:42           Debug: Urgent
`

func TestEnabled(t *testing.T) {
	m := &system.MockCommandExecutor{}
	m.On("RunCommand", "pfctl", "-s", "info").Return(pfInfoEnabled, nil)

	c := NewController(m, "netleash", nil)
	enabled, err := c.Enabled()
	require.NoError(t, err)
	assert.True(t, enabled)
	m.AssertExpectations(t)
}

func TestParseEnabled(t *testing.T) {
	enabled, err := ParseEnabled(pfInfoEnabled)
	require.NoError(t, err)
	assert.True(t, enabled)

	enabled, err = ParseEnabled(pfInfoDisabled)
	require.NoError(t, err)
	assert.False(t, enabled)

	_, err = ParseEnabled("No ALTQ support in kernel\n")
	require.Error(t, err)
}

func TestEnableSkipsWhenAlreadyEnabled(t *testing.T) {
	m := &system.MockCommandExecutor{}
	m.On("RunCommand", "pfctl", "-s", "info").Return(pfInfoEnabled, nil)

	c := NewController(m, "netleash", nil)
	require.NoError(t, c.Enable())

	// pfctl -e must not have run
	m.AssertNotCalled(t, "RunCommand", "pfctl", "-e")
}

func TestEnableRunsWhenDisabled(t *testing.T) {
	m := &system.MockCommandExecutor{}
	m.On("RunCommand", "pfctl", "-s", "info").Return(pfInfoDisabled, nil)
	m.On("RunCommand", "pfctl", "-e").Return("pf enabled", nil)

	c := NewController(m, "netleash", nil)
	require.NoError(t, c.Enable())
	m.AssertExpectations(t)
}

func TestLoadAnchor(t *testing.T) {
	exec := system.NewDryRunExecutor()
	c := NewController(exec, "netleash", nil)

	require.NoError(t, c.LoadAnchor("/tmp/netleash.pf.rules"))
	require.Len(t, exec.Commands, 1)
	assert.Equal(t, "pfctl -a netleash -f /tmp/netleash.pf.rules", exec.Commands[0])
}

func TestFlushAnchor(t *testing.T) {
	exec := system.NewDryRunExecutor()
	c := NewController(exec, "netleash", nil)

	require.NoError(t, c.FlushAnchor())
	require.Len(t, exec.Commands, 1)
	assert.Equal(t, "pfctl -a netleash -F rules", exec.Commands[0])
}

func TestSubprocessFailurePropagates(t *testing.T) {
	m := &system.MockCommandExecutor{}
	m.On("RunCommand", "pfctl", "-a", "netleash", "-f", "/tmp/rules").
		Return("", errors.New("command pfctl failed: exit status 1, output: syntax error"))

	c := NewController(m, "netleash", nil)
	err := c.LoadAnchor("/tmp/rules")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "netleash")
	assert.Contains(t, err.Error(), "syntax error")
}

func TestAnchorRules(t *testing.T) {
	m := &system.MockCommandExecutor{}
	m.On("RunCommand", "pfctl", "-a", "netleash", "-s", "rules").
		Return("block drop in proto tcp from 192.168.1.50 to any\n", nil)

	c := NewController(m, "netleash", nil)
	rules, err := c.AnchorRules()
	require.NoError(t, err)
	assert.Equal(t, "block drop in proto tcp from 192.168.1.50 to any", rules)
}
