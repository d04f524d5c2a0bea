package media

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"clipforge/internal/logging"
)

// ErrUnknownType is returned when a filename's extension is outside the
// allow-list.
type ErrUnknownType struct {
	Filename string
}

func (e *ErrUnknownType) Error() string {
	return fmt.Sprintf("unsupported media type: %q (allowed extensions: %v)", e.Filename, AllowedExtensions())
}

// Store owns the scratch directory where edit outputs land. It hands out
// fresh temp paths for command outputs and resolves artifacts back to
// filesystem paths.
type Store struct {
	scratchDir string
}

// NewStore creates a store rooted at scratchDir, creating the directory if
// needed.
func NewStore(scratchDir string) (*Store, error) {
	if scratchDir == "" {
		scratchDir = filepath.Join(os.TempDir(), "clipforge")
	}
	if err := os.MkdirAll(scratchDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	abs, err := filepath.Abs(scratchDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve scratch directory: %w", err)
	}
	logging.SessionDebug("Store initialized: scratch=%s", abs)
	return &Store{scratchDir: abs}, nil
}

// Import builds an Artifact from an existing file on disk. The file's
// extension must be in the allow-list and the file must exist.
func (s *Store) Import(path string) (Artifact, error) {
	kind, ok := KindForFilename(path)
	if !ok {
		return Artifact{}, &ErrUnknownType{Filename: filepath.Base(path)}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Artifact{}, fmt.Errorf("cannot read input file: %w", err)
	}
	if info.IsDir() {
		return Artifact{}, fmt.Errorf("input %s is a directory, not a media file", path)
	}
	return Artifact{
		Filename: filepath.Base(abs),
		Location: abs,
		Kind:     kind,
	}, nil
}

// ResolvePath returns the filesystem path backing an artifact.
func (s *Store) ResolvePath(a Artifact) string {
	return a.Location
}

// FreshTempPath returns a unique path in the scratch directory with the
// given extension (without dot). Callers own the eventual file.
func (s *Store) FreshTempPath(ext string) string {
	name := uuid.NewString()
	if ext != "" {
		name += "." + ext
	}
	return filepath.Join(s.scratchDir, name)
}

// Adopt wraps a file the store produced (via FreshTempPath) into an
// Artifact with a user-facing display name.
func (s *Store) Adopt(path, displayName string) (Artifact, error) {
	kind, ok := KindForFilename(path)
	if !ok {
		return Artifact{}, &ErrUnknownType{Filename: filepath.Base(path)}
	}
	if displayName == "" {
		displayName = filepath.Base(path)
	}
	return Artifact{
		Filename: displayName,
		Location: path,
		Kind:     kind,
	}, nil
}

// Discard removes a stale attempt output. Missing files are not an error:
// failed commands often never created the path.
func (s *Store) Discard(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logging.SessionWarn("Failed to discard stale output %s: %v", path, err)
	}
}
