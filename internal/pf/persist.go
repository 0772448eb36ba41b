package pf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"grimm.is/netleash/internal/clock"
)

// Persister installs and removes the boot-time anchor wiring: the anchor
// file under /etc/pf.anchors and a marker-guarded reference in pf.conf.
type Persister struct {
	PFConf     string
	AnchorFile string
	AnchorName string
}

func (p *Persister) beginMarker() string {
	return "# BEGIN " + p.AnchorName + " managed block"
}

func (p *Persister) endMarker() string {
	return "# END " + p.AnchorName + " managed block"
}

// managedBlock is the text inserted into pf.conf, bounded by markers so
// insertion and removal stay idempotent.
func (p *Persister) managedBlock() string {
	return fmt.Sprintf("%s\nanchor %q\nload anchor %q from %q\n%s\n",
		p.beginMarker(), p.AnchorName, p.AnchorName, p.AnchorFile, p.endMarker())
}

// InstallAnchorFile writes the rule file content to the anchor file path.
func (p *Persister) InstallAnchorFile(content string) error {
	if err := os.MkdirAll(filepath.Dir(p.AnchorFile), 0755); err != nil {
		return fmt.Errorf("failed to create anchors dir: %w", err)
	}
	tmp := p.AnchorFile + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write anchor file: %w", err)
	}
	if err := os.Rename(tmp, p.AnchorFile); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace anchor file: %w", err)
	}
	return nil
}

// RemoveAnchorFile deletes the installed anchor file. A missing file is
// not an error.
func (p *Persister) RemoveAnchorFile() error {
	if err := os.Remove(p.AnchorFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove anchor file: %w", err)
	}
	return nil
}

// Installed reports whether pf.conf currently carries the managed block.
func (p *Persister) Installed() (bool, error) {
	data, err := os.ReadFile(p.PFConf)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read %s: %w", p.PFConf, err)
	}
	return strings.Contains(string(data), p.beginMarker()), nil
}

// EnsureReference inserts the managed block into pf.conf. Running it again
// with the block already present changes nothing. A timestamped backup of
// pf.conf is written before the first modification.
func (p *Persister) EnsureReference() error {
	installed, err := p.Installed()
	if err != nil {
		return err
	}
	if installed {
		return nil
	}

	data, err := os.ReadFile(p.PFConf)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read %s: %w", p.PFConf, err)
	}

	if len(data) > 0 {
		if err := p.backup(data); err != nil {
			return err
		}
	}

	content := string(data)
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += "\n" + p.managedBlock()

	return p.writePFConf(content)
}

// RemoveReference deletes exactly the managed block from pf.conf. Absent
// markers leave the file untouched.
func (p *Persister) RemoveReference() error {
	data, err := os.ReadFile(p.PFConf)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", p.PFConf, err)
	}

	content := string(data)
	begin := strings.Index(content, p.beginMarker())
	if begin < 0 {
		return nil
	}
	end := strings.Index(content, p.endMarker())
	if end < 0 {
		return fmt.Errorf("%s has a begin marker but no end marker, refusing to edit", p.PFConf)
	}
	end += len(p.endMarker())
	if end < len(content) && content[end] == '\n' {
		end++
	}

	// Drop the blank line the insertion added before the block.
	if begin > 0 && content[begin-1] == '\n' {
		if begin > 1 && content[begin-2] == '\n' {
			begin--
		}
	}

	return p.writePFConf(content[:begin] + content[end:])
}

func (p *Persister) backup(data []byte) error {
	backupPath := fmt.Sprintf("%s.%s.bak", p.PFConf, clock.Now().Format("20060102-150405"))
	if err := os.WriteFile(backupPath, data, 0644); err != nil {
		return fmt.Errorf("failed to back up %s: %w", p.PFConf, err)
	}
	return nil
}

func (p *Persister) writePFConf(content string) error {
	tmp := p.PFConf + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", p.PFConf, err)
	}
	if err := os.Rename(tmp, p.PFConf); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", p.PFConf, err)
	}
	return nil
}
