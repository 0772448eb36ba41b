package testutil

import (
	"os"
	"testing"
)

// RequireNonRoot skips the test when running as root, for tests that
// assert privilege-check rejections.
func RequireNonRoot(t *testing.T) {
	t.Helper()
	if os.Geteuid() == 0 {
		t.Skip("Skipping test: requires non-root user")
	}
}

// RequireRoot skips the test unless running as root AND the caller opted
// in via NETLEASH_PRIV_TEST. Tests with this guard touch the real packet
// filter and must never run on a developer machine by accident.
func RequireRoot(t *testing.T) {
	t.Helper()
	if os.Geteuid() != 0 || os.Getenv("NETLEASH_PRIV_TEST") == "" {
		t.Skip("Skipping test: requires root and NETLEASH_PRIV_TEST environment")
	}
}
