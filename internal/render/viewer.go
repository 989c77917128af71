package render

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// NoViewerError indicates that no viewer is registered for a MIME
// type, neither exactly nor under its major/* wildcard.
type NoViewerError struct {
	MIMEType string
}

func (e *NoViewerError) Error() string {
	return fmt.Sprintf("no viewer registered for %s", e.MIMEType)
}

// IsNoViewer reports whether err (or any error in its chain) is a
// NoViewerError.
func IsNoViewer(err error) bool {
	var viewerErr *NoViewerError
	return errors.As(err, &viewerErr)
}

// Registry maps MIME type patterns to viewer argv templates. Keys are
// exact types ("application/pdf") or major wildcards ("image/*"); a
// "%f" element in the argv is replaced with the file path at launch,
// and the path is appended when no element carries one.
type Registry struct {
	viewers map[string][]string
}

// NewRegistry builds a Registry from a configuration table. Keys are
// matched case-insensitively.
func NewRegistry(viewers map[string][]string) *Registry {
	table := make(map[string][]string, len(viewers))
	for pattern, argv := range viewers {
		table[strings.ToLower(strings.TrimSpace(pattern))] = argv
	}
	return &Registry{viewers: table}
}

// Lookup resolves the viewer argv for a MIME type: the exact type
// first, then the major/* wildcard, else a NoViewerError.
func (r *Registry) Lookup(mimeType string) ([]string, error) {
	clean := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(clean, ';'); i >= 0 {
		clean = strings.TrimSpace(clean[:i])
	}

	if argv, ok := r.viewers[clean]; ok && len(argv) > 0 {
		return argv, nil
	}
	if major, _, ok := strings.Cut(clean, "/"); ok {
		if argv, ok := r.viewers[major+"/*"]; ok && len(argv) > 0 {
			return argv, nil
		}
	}
	return nil, &NoViewerError{MIMEType: clean}
}

// Launch starts the viewer on path and leaves it running detached;
// the caller does not wait for it to exit.
func Launch(argv []string, path string) error {
	if len(argv) == 0 {
		return errors.New("empty viewer command")
	}

	args := expandArgv(argv, path)
	bin, err := exec.LookPath(args[0])
	if err != nil {
		return fmt.Errorf("viewer %s not found: %w", args[0], err)
	}

	cmd := exec.Command(bin, args[1:]...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launching viewer %s: %w", args[0], err)
	}
	return cmd.Process.Release()
}

// expandArgv substitutes %f with path in every element, appending the
// path as a final argument when no element mentions it.
func expandArgv(argv []string, path string) []string {
	args := make([]string, 0, len(argv)+1)
	replaced := false
	for _, a := range argv {
		if strings.Contains(a, "%f") {
			a = strings.ReplaceAll(a, "%f", path)
			replaced = true
		}
		args = append(args, a)
	}
	if !replaced {
		args = append(args, path)
	}
	return args
}

// WriteTemp stores attachment bytes in the system temp directory
// under a collision-free name, keeping the original extension so
// viewers that sniff by suffix still work. The caller removes the
// file when done; files from crashed runs are left to the OS.
func WriteTemp(data []byte, filename string) (string, error) {
	name := "mailcheck-" + uuid.New().String() + filepath.Ext(filename)
	path := filepath.Join(os.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("writing attachment to %s: %w", path, err)
	}
	return path, nil
}
