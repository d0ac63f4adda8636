// Package nodeconfig reads and persists the published-nodes file. The file is
// the only on-disk state of the configuration core; its bytes are guarded by
// a dedicated lock that is never held together with the registry locks on a
// read path.
package nodeconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// File owns the published-nodes file path and the lock over its bytes.
type File struct {
	mu   sync.Mutex
	path string
}

func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) Path() string { return f.path }

// Read returns the file content. A missing file is not an error; the second
// return reports whether the file existed.
func (f *File) Read() ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", f.path, err)
	}
	return raw, true, nil
}

// Replace atomically overwrites the file with the full new content. The data
// lands in a temp file first and is renamed into place, so readers never see
// a partial write.
func (f *File) Replace(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", f.path, err)
	}
	return nil
}
