package adapter

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	m "github.com/toabey/gnat-llvm/internal/model"
)

// WorkspaceAdapter manages the on-disk working directories a build writes
// its artifacts into. Every target gets its own directory so concurrent
// builds of distinct targets never share state.
type WorkspaceAdapter interface {
	// CreateWorkDir makes a fresh directory for one build of target and
	// returns its absolute path.
	CreateWorkDir(target m.Target) (m.Path, error)

	// RemoveAll deletes a working directory and everything in it.
	RemoveAll(path m.Path) error
}

// LocalWorkspaceAdapter keeps working directories under one root
// (default: the system temp directory).
type LocalWorkspaceAdapter struct {
	root string
}

// NewLocalWorkspaceAdapter constructs a workspace rooted at root; an empty
// root falls back to os.TempDir.
func NewLocalWorkspaceAdapter(root string) *LocalWorkspaceAdapter {
	if root == "" {
		root = os.TempDir()
	}

	return &LocalWorkspaceAdapter{root: root}
}

// CreateWorkDir makes `<root>/gnatllvm-<target>-<uuid>` and returns its
// absolute path. The uuid suffix keeps repeated builds of one target name
// apart, so a rebuild never observes a previous run's artifacts.
func (a *LocalWorkspaceAdapter) CreateWorkDir(target m.Target) (m.Path, error) {
	name := fmt.Sprintf("gnatllvm-%s-%s", target, uuid.NewString()[:8])
	dir := filepath.Join(a.root, name)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create work dir: %w", err)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	return m.Path(abs), nil
}

// RemoveAll deletes a working directory and its contents.
func (a *LocalWorkspaceAdapter) RemoveAll(path m.Path) error {
	if path == "" {
		return nil
	}

	return os.RemoveAll(string(path))
}
