package netscan

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/netleash/internal/system"
)

func TestCheckInterface(t *testing.T) {
	m := &system.MockCommandExecutor{}
	m.On("RunCommand", "ifconfig", "en0").Return(sampleIfconfigOutput, nil)

	s := NewScanner(m, "en0", nil, nil)
	out, err := s.CheckInterface()
	require.NoError(t, err)
	assert.Contains(t, out, "192.168.1.20")
	m.AssertExpectations(t)
}

func TestCheckInterfaceMissing(t *testing.T) {
	m := &system.MockCommandExecutor{}
	m.On("RunCommand", "ifconfig", "en9").
		Return("", errors.New("command ifconfig [en9] failed: exit status 1, output: ifconfig: interface en9 does not exist"))

	s := NewScanner(m, "en9", nil, nil)
	_, err := s.CheckInterface()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "interface en9 not found")
}

func TestCurrentNetwork(t *testing.T) {
	m := &system.MockCommandExecutor{}
	m.On("RunCommand", "networksetup", "-getairportnetwork", "en0").
		Return("Current Wi-Fi Network: HomeBase-5G\n", nil)

	s := NewScanner(m, "en0", nil, nil)
	assert.Equal(t, "HomeBase-5G", s.CurrentNetwork())
}

func TestCurrentNetworkNotWiFi(t *testing.T) {
	m := &system.MockCommandExecutor{}
	m.On("RunCommand", "networksetup", "-getairportnetwork", "en5").
		Return("", errors.New("command networksetup failed: exit status 10"))

	s := NewScanner(m, "en5", nil, nil)
	// Wired interfaces degrade to empty, not an error
	assert.Equal(t, "", s.CurrentNetwork())
}

func TestARPTableFiltersInterface(t *testing.T) {
	m := &system.MockCommandExecutor{}
	m.On("RunCommand", "arp", "-a").Return(sampleARPOutput, nil)

	s := NewScanner(m, "en0", nil, nil)
	devices, err := s.ARPTable()
	require.NoError(t, err)

	require.Len(t, devices, 4)
	for _, d := range devices {
		assert.Equal(t, "en0", d.Interface)
	}
}

func TestARPTableFailure(t *testing.T) {
	m := &system.MockCommandExecutor{}
	m.On("RunCommand", "arp", "-a").Return("", errors.New("command arp [-a] failed: exit status 1"))

	s := NewScanner(m, "en0", nil, nil)
	_, err := s.ARPTable()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ARP scan failed")
}

func TestNmapSweep(t *testing.T) {
	exec := system.NewDryRunExecutor()
	s := NewScanner(exec, "en0", nil, nil)

	_, err := s.NmapSweep("192.168.1.0/24")
	require.NoError(t, err)
	require.Len(t, exec.Commands, 1)
	assert.Equal(t, "nmap -sn 192.168.1.0/24", exec.Commands[0])
}
