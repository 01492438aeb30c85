package token

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultRoadtoolsPath is the file name roadtools looks for in the working directory.
const DefaultRoadtoolsPath = ".roadtools_auth"

// FilePersister writes snapshots to a roadtools auth file.
//
// SECURITY: the file holds a refresh token. It is written with 0600
// permissions and replaced atomically, so readers never see a partial file.
type FilePersister struct {
	Path string
}

// NewFilePersister creates a persister for path, defaulting to .roadtools_auth.
func NewFilePersister(path string) *FilePersister {
	if path == "" {
		path = DefaultRoadtoolsPath
	}
	return &FilePersister{Path: path}
}

// Location implements Persister.
func (p *FilePersister) Location() string {
	return p.Path
}

// Save implements Persister.
func (p *FilePersister) Save(ctx context.Context, snapshot Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := MarshalRoadtools(snapshot)
	if err != nil {
		return fmt.Errorf("encode tokens: %w", err)
	}
	return writeFileAtomic(p.Path, data, 0600)
}

// writeFileAtomic writes data to a temp file in the target directory, syncs
// it and renames it over path.
func writeFileAtomic(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".msauth-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()

	// No-op after a successful rename
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if err := tmp.Chmod(perm); err != nil {
		return fmt.Errorf("chmod temp: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("fsync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
