// Package store persists the application state to disk as brotli-compressed JSON.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"taleweaver/logger"
	"taleweaver/types"

	"github.com/andybalholm/brotli"
)

// StateFileName is the name of the state file inside the store directory
const StateFileName = "state.json.br"

// CorruptSuffix is appended to a state file that could not be decoded
const CorruptSuffix = ".corrupt"

// FileStore saves and loads types.AppState under Dir
type FileStore struct {
	Dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

func (s *FileStore) path() string {
	return filepath.Join(s.Dir, StateFileName)
}

// Load reads the saved state. A missing state file yields the zero state.
// A state file that cannot be decoded is moved aside to StateFileName +
// CorruptSuffix and also yields the zero state.
func (s *FileStore) Load() (types.AppState, error) {
	f, err := os.Open(s.path())
	if errors.Is(err, os.ErrNotExist) {
		return types.AppState{}, nil
	}
	if err != nil {
		return types.AppState{}, fmt.Errorf("failed to open state file: %w", err)
	}

	state, err := decode(f)
	f.Close()
	if err != nil {
		logger.Warn("store: discarding unreadable state file: %v", err)
		if err := os.Rename(s.path(), s.path()+CorruptSuffix); err != nil {
			return types.AppState{}, fmt.Errorf("failed to move corrupt state file: %w", err)
		}
		return types.AppState{}, nil
	}
	return state, nil
}

func decode(r io.Reader) (types.AppState, error) {
	var state types.AppState

	data, err := io.ReadAll(brotli.NewReader(r))
	if err != nil {
		return state, fmt.Errorf("failed to decompress state: %w", err)
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return state, fmt.Errorf("failed to decode state: %w", err)
	}

	logger.Debug("store: loaded state (%d bytes, %d history entries)", len(data), len(state.History))
	return state, nil
}

// Save writes state atomically through a temp file in the same directory.
// Transient fields (loading, error, pending revision) are not written.
func (s *FileStore) Save(state types.AppState) error {
	jsonData, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	// Compress with brotli (quality 5 balances size and speed for prose)
	var compressedBuf bytes.Buffer
	brotliWriter := brotli.NewWriterLevel(&compressedBuf, 5)
	if _, err := brotliWriter.Write(jsonData); err != nil {
		return fmt.Errorf("failed to compress state: %w", err)
	}
	if err := brotliWriter.Close(); err != nil {
		return fmt.Errorf("failed to close brotli writer: %w", err)
	}

	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create store dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.Dir, StateFileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(compressedBuf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path()); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace state file: %w", err)
	}

	logger.Debug("store: saved state (%d -> %d bytes)", len(jsonData), compressedBuf.Len())
	return nil
}
