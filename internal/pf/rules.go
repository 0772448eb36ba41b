// Package pf generates pf rule files and drives the pfctl binary.
//
// The rule file is never edited in place: it is regenerated in full from
// the tracked-target list on every mutation, so its content is a pure
// function of that list.
package pf

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"grimm.is/netleash/internal/brand"
	"grimm.is/netleash/internal/state"
)

// GenerateRules renders the pf rule file for the given targets.
func GenerateRules(targets []state.Target) (string, error) {
	sorted := make([]state.Target, len(targets))
	copy(sorted, targets)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].IP < sorted[j].IP })

	var sb strings.Builder
	sb.WriteString("# Generated by " + brand.BinaryName + " - do not edit, this file is rewritten on every change\n")

	for _, t := range sorted {
		if net.ParseIP(t.IP) == nil {
			return "", fmt.Errorf("invalid IP address %q", t.IP)
		}

		switch t.Mode {
		case state.ModeMonitor:
			sb.WriteString("\n# Monitoring rules\n")
			fmt.Fprintf(&sb, "block drop in proto {tcp udp icmp} from %s to any\n", t.IP)
			fmt.Fprintf(&sb, "block drop out proto {tcp udp icmp} from any to %s\n", t.IP)

		case state.ModeLimit:
			if t.UploadKBps == 0 && t.DownKBps == 0 {
				return "", fmt.Errorf("limit target %s has no upload or download limit", t.IP)
			}
			sb.WriteString("\n# Bandwidth limiting rules\n")
			if t.UploadKBps > 0 {
				fmt.Fprintf(&sb, "pass out proto tcp from %s to any flags S/SA keep state (max-src-states %d, max-src-conn-rate %d/5)\n",
					t.IP, t.UploadKBps, t.UploadKBps)
			}
			if t.DownKBps > 0 {
				fmt.Fprintf(&sb, "pass in proto tcp from any to %s flags S/SA keep state (max-src-states %d, max-src-conn-rate %d/5)\n",
					t.IP, t.DownKBps, t.DownKBps)
			}

		default:
			return "", fmt.Errorf("unknown target mode %q for %s", t.Mode, t.IP)
		}
	}

	return sb.String(), nil
}

// WriteRuleFile writes content to path atomically (temp file + rename) so
// a concurrent pfctl load never sees a torn file.
func WriteRuleFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create rule file dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write rule file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace rule file: %w", err)
	}
	return nil
}
