package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/user/elemelon/internal/interfaces"
	"github.com/user/elemelon/internal/types"
)

var slotPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

func validSlot(slot string) error {
	if !slotPattern.MatchString(slot) {
		return fmt.Errorf("%w: %q", ErrInvalidSlot, slot)
	}
	return nil
}

// FileStore keeps one JSON file per save slot in a directory
type FileStore struct {
	dir       string
	stateLock sync.RWMutex
}

var _ interfaces.SaveStore = (*FileStore)(nil)

// NewFileStore creates a file store rooted at dir
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create save directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (fs *FileStore) path(slot string) string {
	return filepath.Join(fs.dir, slot+".json")
}

// Save writes rec to slot, replacing any previous save
func (fs *FileStore) Save(slot string, rec *types.SaveRecord) error {
	if err := validSlot(slot); err != nil {
		return err
	}
	data, err := EncodeSaveRecord(rec)
	if err != nil {
		return err
	}

	fs.stateLock.Lock()
	defer fs.stateLock.Unlock()

	// write then rename so a crash never leaves a torn save
	tmp := fs.path(slot) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write save: %w", err)
	}
	if err := os.Rename(tmp, fs.path(slot)); err != nil {
		return fmt.Errorf("failed to write save: %w", err)
	}
	return nil
}

// Load returns the raw content of slot
func (fs *FileStore) Load(slot string) ([]byte, error) {
	if err := validSlot(slot); err != nil {
		return nil, err
	}

	fs.stateLock.RLock()
	defer fs.stateLock.RUnlock()

	data, err := os.ReadFile(fs.path(slot))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: slot %s", ErrNoSave, slot)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read save: %w", err)
	}
	return data, nil
}

// List returns the readable saves, newest first
func (fs *FileStore) List() ([]types.SaveSummary, error) {
	fs.stateLock.RLock()
	defer fs.stateLock.RUnlock()

	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list saves: %w", err)
	}

	summaries := make([]types.SaveSummary, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(fs.dir, name))
		if err != nil {
			continue
		}
		var s types.SaveSummary
		if err := json.Unmarshal(data, &s); err != nil {
			continue
		}
		s.Slot = strings.TrimSuffix(name, ".json")
		summaries = append(summaries, s)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Timestamp.After(summaries[j].Timestamp)
	})
	return summaries, nil
}

// Close is a no-op for the file store
func (fs *FileStore) Close() error {
	return nil
}
