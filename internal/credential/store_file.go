package credential

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileStore keeps one JSON file per credential under a directory. Files are
// named "{project_id}.json" by convention, but nothing here relies on that;
// matching is always on the embedded project_id field.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: filepath.Clean(dir)}
}

// Dir returns the backing directory.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read credential directory: %w", err)
	}
	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(entry.Name()), ".json") {
			continue
		}
		ids = append(ids, entry.Name())
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *FileStore) Read(_ context.Context, identity string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, filepath.Base(identity)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read credential %s: %w", identity, err)
	}
	return data, nil
}

func (s *FileStore) Write(_ context.Context, identity string, data []byte) error {
	if identity == "" {
		return fmt.Errorf("credential identity is required")
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("prepare credential directory: %w", err)
	}
	path := filepath.Join(s.dir, filepath.Base(identity))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write credential %s: %w", identity, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename credential %s: %w", identity, err)
	}
	return nil
}
