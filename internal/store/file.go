package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

// FileStore keeps all blobs in a single JSON document on disk, rewritten
// atomically (temp file + rename) on every Put.
type FileStore struct {
	mu       sync.Mutex
	filePath string
	blobs    map[string]json.RawMessage
}

// NewFileStore opens (or creates) the store at filePath.
func NewFileStore(filePath string) (*FileStore, error) {
	if dir := filepath.Dir(filePath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	fs := &FileStore{
		filePath: filePath,
		blobs:    make(map[string]json.RawMessage),
	}
	if err := fs.load(); err != nil {
		return nil, fmt.Errorf("failed to load blob file: %w", err)
	}
	return fs, nil
}

func (fs *FileStore) load() error {
	data, err := os.ReadFile(fs.filePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	blobs := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &blobs); err != nil {
		// The next Put rewrites the file from the empty state.
		log.Warn().Err(err).Str("path", fs.filePath).Msg("file store: ignoring unreadable blob file")
		return nil
	}
	fs.blobs = blobs
	return nil
}

func (fs *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	blob, ok := fs.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), blob...), nil
}

// Put stores value under key. value must be valid JSON since blobs are
// embedded in the document as raw messages.
func (fs *FileStore) Put(_ context.Context, key string, value []byte) error {
	if !json.Valid(value) {
		return fmt.Errorf("file store: value for %q is not valid JSON", key)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	next := make(map[string]json.RawMessage, len(fs.blobs)+1)
	for k, v := range fs.blobs {
		next[k] = v
	}
	next[key] = append(json.RawMessage(nil), value...)

	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal blobs: %w", err)
	}

	tmp := fs.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write blob file: %w", err)
	}
	if err := os.Rename(tmp, fs.filePath); err != nil {
		return fmt.Errorf("failed to replace blob file: %w", err)
	}

	fs.blobs = next
	return nil
}

func (fs *FileStore) Close() error {
	return nil
}
