package emit

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
)

// WriteArtifacts writes files below root, creating directories as needed.
// Files whose content is already current are left alone so file watchers do
// not see spurious changes. It returns the number of files written.
func WriteArtifacts(root string, files []Artifact) (int, error) {
	written := 0
	for _, f := range files {
		target := filepath.Join(root, filepath.FromSlash(f.Path))
		if existing, err := os.ReadFile(target); err == nil && bytes.Equal(existing, []byte(f.Content)) {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return written, fmt.Errorf("failed to create directory for %s: %w", f.Path, err)
		}
		if err := os.WriteFile(target, []byte(f.Content), 0o644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", f.Path, err)
		}
		written++
	}
	return written, nil
}
