// Package blob writes run artifacts to the local filesystem with atomic
// replace semantics: a reader at the final path sees either the previous
// complete artifact or the new one, never a partial write.
package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// LocalStore stores artifacts under a root directory.
type LocalStore struct {
	root string
}

// NewLocalStore creates a LocalStore rooted at root, creating it if needed.
func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create artifact dir %s: %w", root, err)
	}
	return &LocalStore{root: root}, nil
}

// Put atomically writes one artifact: temp file in the target directory,
// fsync, then rename over the final path.
func (s *LocalStore) Put(ctx context.Context, key string, data []byte) error {
	tmp, err := s.stage(key, data)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, filepath.Join(s.root, key)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", key, err)
	}
	return nil
}

// PutAll writes a set of artifacts as one logical replace: every artifact is
// staged to a temp file first, and renames only start once all staging has
// succeeded. A failure during staging leaves every final path untouched.
func (s *LocalStore) PutAll(ctx context.Context, artifacts map[string][]byte) error {
	staged := make(map[string]string, len(artifacts))
	cleanup := func() {
		for _, tmp := range staged {
			os.Remove(tmp)
		}
	}

	for key, data := range artifacts {
		tmp, err := s.stage(key, data)
		if err != nil {
			cleanup()
			return err
		}
		staged[key] = tmp
	}

	// Rename in sorted key order so the replace sequence is the same on
	// every run.
	keys := make([]string, 0, len(staged))
	for key := range staged {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := os.Rename(staged[key], filepath.Join(s.root, key)); err != nil {
			cleanup()
			return fmt.Errorf("replace %s: %w", key, err)
		}
	}
	return nil
}

// Get reads an artifact back from the store.
func (s *LocalStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.root, key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("artifact %s not found", key)
		}
		return nil, fmt.Errorf("read artifact %s: %w", key, err)
	}
	return data, nil
}

// stage writes data to a synced temp file next to the final path and returns
// the temp path. Same-directory placement keeps the later rename atomic.
func (s *LocalStore) stage(key string, data []byte) (string, error) {
	f, err := os.CreateTemp(s.root, key+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("stage %s: %w", key, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("stage %s: %w", key, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("sync %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close %s: %w", key, err)
	}
	return f.Name(), nil
}
