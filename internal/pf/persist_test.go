package pf

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPersister(t *testing.T) *Persister {
	t.Helper()
	dir := t.TempDir()
	return &Persister{
		PFConf:     filepath.Join(dir, "pf.conf"),
		AnchorFile: filepath.Join(dir, "pf.anchors", "netleash"),
		AnchorName: "netleash",
	}
}

const basePFConf = `scrub-anchor "com.apple/*"
nat-anchor "com.apple/*"
anchor "com.apple/*"
load anchor "com.apple" from "/etc/pf.anchors/com.apple"
`

func TestEnsureReferenceInserts(t *testing.T) {
	p := newTestPersister(t)
	require.NoError(t, os.WriteFile(p.PFConf, []byte(basePFConf), 0644))

	require.NoError(t, p.EnsureReference())

	data, err := os.ReadFile(p.PFConf)
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, `anchor "netleash"`)
	assert.Contains(t, content, `load anchor "netleash" from `+strconvQuote(p.AnchorFile))
	// Existing configuration is preserved
	assert.True(t, strings.HasPrefix(content, basePFConf))

	installed, err := p.Installed()
	require.NoError(t, err)
	assert.True(t, installed)
}

func TestEnsureReferenceIsIdempotent(t *testing.T) {
	p := newTestPersister(t)
	require.NoError(t, os.WriteFile(p.PFConf, []byte(basePFConf), 0644))

	require.NoError(t, p.EnsureReference())
	first, err := os.ReadFile(p.PFConf)
	require.NoError(t, err)

	require.NoError(t, p.EnsureReference())
	second, err := os.ReadFile(p.PFConf)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestEnsureReferenceBacksUp(t *testing.T) {
	p := newTestPersister(t)
	require.NoError(t, os.WriteFile(p.PFConf, []byte(basePFConf), 0644))

	require.NoError(t, p.EnsureReference())

	matches, err := filepath.Glob(p.PFConf + ".*.bak")
	require.NoError(t, err)
	require.Len(t, matches, 1)

	backup, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Equal(t, basePFConf, string(backup))
}

func TestRemoveReferenceRestoresOriginal(t *testing.T) {
	p := newTestPersister(t)
	require.NoError(t, os.WriteFile(p.PFConf, []byte(basePFConf), 0644))

	require.NoError(t, p.EnsureReference())
	require.NoError(t, p.RemoveReference())

	data, err := os.ReadFile(p.PFConf)
	require.NoError(t, err)
	assert.Equal(t, basePFConf, string(data))

	// Removing again is a no-op
	require.NoError(t, p.RemoveReference())
}

func TestRemoveReferenceWithoutMarkers(t *testing.T) {
	p := newTestPersister(t)
	require.NoError(t, os.WriteFile(p.PFConf, []byte(basePFConf), 0644))

	require.NoError(t, p.RemoveReference())

	data, err := os.ReadFile(p.PFConf)
	require.NoError(t, err)
	assert.Equal(t, basePFConf, string(data))
}

func TestRemoveReferenceMissingEndMarker(t *testing.T) {
	p := newTestPersister(t)
	broken := basePFConf + "\n" + p.beginMarker() + "\nanchor \"netleash\"\n"
	require.NoError(t, os.WriteFile(p.PFConf, []byte(broken), 0644))

	err := p.RemoveReference()
	require.Error(t, err, "must refuse to edit a file with unbalanced markers")
}

func TestAnchorFileInstallAndRemove(t *testing.T) {
	p := newTestPersister(t)

	require.NoError(t, p.InstallAnchorFile("# rules\n"))
	data, err := os.ReadFile(p.AnchorFile)
	require.NoError(t, err)
	assert.Equal(t, "# rules\n", string(data))

	require.NoError(t, p.RemoveAnchorFile())
	_, err = os.Stat(p.AnchorFile)
	assert.True(t, os.IsNotExist(err))

	// Removing a missing anchor file is not an error
	require.NoError(t, p.RemoveAnchorFile())
}

func TestInstalledOnMissingPFConf(t *testing.T) {
	p := newTestPersister(t)
	installed, err := p.Installed()
	require.NoError(t, err)
	assert.False(t, installed)
}

// strconvQuote mirrors the %q quoting used when rendering the managed block.
func strconvQuote(s string) string {
	return `"` + s + `"`
}
