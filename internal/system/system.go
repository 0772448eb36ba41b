// Package system abstracts execution of external OS binaries so that
// command handlers can be exercised without touching the host.
package system

import (
	"fmt"
	"os"

	"grimm.is/netleash/internal/brand"
)

// CommandExecutor is an interface that abstracts executing shell commands.
type CommandExecutor interface {
	RunCommand(name string, arg ...string) (string, error)
}

// RequireRoot returns an error when the process lacks root privileges.
// Privileged handlers call this before running any subprocess.
func RequireRoot() error {
	if os.Geteuid() != 0 {
		return fmt.Errorf("this command requires root privileges, run with: sudo %s", brand.BinaryName)
	}
	return nil
}
