package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore keeps SeenState in a single JSON document: {"IN": ["id", ...], ...}
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by the JSON file at path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(_ context.Context, accounts []string) (SeenState, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return NewSeenState(accounts), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var data map[string][]string
	if err := json.Unmarshal(b, &data); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptState, s.path, err)
	}

	state := make(SeenState, len(data))
	for acct, ids := range data {
		set := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			set[id] = struct{}{}
		}
		state[acct] = set
	}
	return state.ensure(accounts), nil
}

// Save writes to a temp file next to the target and renames it into place
func (s *FileStore) Save(_ context.Context, state SeenState) error {
	data := make(map[string][]string, len(state))
	for acct := range state {
		data[acct] = state.IDs(acct)
	}
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create state dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
