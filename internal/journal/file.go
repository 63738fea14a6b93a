package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// File keeps the journal as a JSON array. Every change rewrites the file
// through a temporary file and a rename.
type File struct {
	mu      sync.Mutex
	path    string
	entries []Entry
}

func OpenFile(path string) (*File, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("journal file path is required")
	}

	f := &File{path: path}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return f, nil
	case err != nil:
		return nil, fmt.Errorf("read journal %s: %w", path, err)
	}

	if len(strings.TrimSpace(string(data))) == 0 {
		return f, nil
	}

	if err := json.Unmarshal(data, &f.entries); err != nil {
		return nil, fmt.Errorf("decode journal %s: %w", path, err)
	}

	return f, nil
}

func (f *File) Record(_ context.Context, entry Entry) error {
	if err := validate(entry); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.entries = append(f.entries, entry)
	return f.flush()
}

func (f *File) Remove(_ context.Context, actionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	before := len(f.entries)
	f.entries = slices.DeleteFunc(f.entries, func(e Entry) bool {
		return e.ActionID == actionID
	})

	if len(f.entries) == before {
		return nil
	}
	return f.flush()
}

func (f *File) Entries(_ context.Context) ([]Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries := slices.Clone(f.entries)
	slices.SortStableFunc(entries, func(a, b Entry) int {
		return a.DecidedAt.Compare(b.DecidedAt)
	})
	return entries, nil
}

func (f *File) DecidedIDs(_ context.Context) (map[string]struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return decidedIDs(f.entries), nil
}

func (f *File) Close() error {
	return nil
}

// flush must be called with f.mu held.
func (f *File) flush() error {
	entries := f.entries
	if entries == nil {
		entries = []Entry{}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode journal: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create journal dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".journal-*.json")
	if err != nil {
		return fmt.Errorf("create temp journal: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp journal: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp journal: %w", err)
	}

	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace journal: %w", err)
	}
	return nil
}
