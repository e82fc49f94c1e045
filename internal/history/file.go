package history

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"
)

const (
	dirPerm  fs.FileMode = 0o700
	filePerm fs.FileMode = 0o600
)

// Persister loads and saves whole history snapshots.
// Load returns an empty snapshot and no error when nothing was saved yet.
type Persister interface {
	Load() (Snapshot, error)
	Save(Snapshot) error
}

// FilePersister stores the history as a single JSON document. Every Save
// rewrites the whole file through a temporary file and a rename.
type FilePersister struct {
	fs   afero.Fs
	path string
}

// Compile-time interface check.
var _ Persister = (*FilePersister)(nil)

// NewFilePersister returns a persister writing to path on the given
// filesystem. A nil fs means the OS filesystem.
func NewFilePersister(fsys afero.Fs, path string) *FilePersister {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &FilePersister{fs: fsys, path: path}
}

// Path returns the backing file path.
func (p *FilePersister) Path() string {
	return p.path
}

// Load reads and validates the backing file.
func (p *FilePersister) Load() (Snapshot, error) {
	data, err := afero.ReadFile(p.fs, p.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Snapshot{}, nil
		}
		return nil, fmt.Errorf("history: reading %s: %w", p.path, err)
	}
	return Decode(data)
}

// Save writes the snapshot, replacing the previous document.
func (p *FilePersister) Save(s Snapshot) error {
	data, err := Encode(s)
	if err != nil {
		return err
	}

	dir := filepath.Dir(p.path)
	if err := p.fs.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("history: create directory %s: %w", dir, err)
	}

	tmp, err := afero.TempFile(p.fs, dir, "."+filepath.Base(p.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("history: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = p.fs.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("history: write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("history: sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("history: close %s: %w", tmpName, err)
	}
	if err := p.fs.Chmod(tmpName, filePerm); err != nil {
		cleanup()
		return fmt.Errorf("history: chmod %s: %w", tmpName, err)
	}
	if err := p.fs.Rename(tmpName, p.path); err != nil {
		cleanup()
		return fmt.Errorf("history: rename %s: %w", tmpName, err)
	}
	return nil
}
