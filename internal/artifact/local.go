package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// LocalStore keeps artifacts under root/<jobID>/<name> on disk.
type LocalStore struct {
	root string
}

func NewLocalStore(root string) (*LocalStore, error) {
	if root == "" {
		root = "outputs"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact root: %w", err)
	}
	return &LocalStore{root: root}, nil
}

func (s *LocalStore) Save(_ context.Context, jobID, name string, data []byte, _ string) (string, error) {
	if !ValidName(name) {
		return "", fmt.Errorf("invalid artifact name %q", name)
	}
	dir := filepath.Join(s.root, jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (s *LocalStore) Read(_ context.Context, jobID, name string) ([]byte, error) {
	if !ValidName(name) {
		return nil, fmt.Errorf("invalid artifact name %q", name)
	}
	data, err := os.ReadFile(filepath.Join(s.root, jobID, name))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return data, err
}

func (s *LocalStore) List(_ context.Context, jobID string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, jobID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (s *LocalStore) Remove(_ context.Context, jobID string) error {
	return os.RemoveAll(filepath.Join(s.root, jobID))
}
