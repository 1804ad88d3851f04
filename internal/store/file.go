package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/rcliao/wingo/internal/model"
)

// Document formats for the file backend.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// chatRecord is one entry of the history document.
type chatRecord struct {
	LastSerial string      `json:"last_serial" yaml:"last_serial"`
	Color      model.Color `json:"color" yaml:"color"`
	Size       model.Size  `json:"size" yaml:"size"`
}

// FileStore keeps overrides and chat history in two documents,
// memory.<ext> and history.<ext>, rewritten in full on every change.
type FileStore struct {
	mu        sync.RWMutex
	dir       string
	format    string
	overrides map[string]model.Outcome
	chats     map[string]chatRecord
	log       *zap.Logger
}

// NewFileStore loads the documents in dir, creating empty ones if absent.
func NewFileStore(dir, format string, log *zap.Logger) (*FileStore, error) {
	if format == "" {
		format = FormatJSON
	}
	if format != FormatJSON && format != FormatYAML {
		return nil, fmt.Errorf("unknown document format %q (valid: json, yaml)", format)
	}
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	s := &FileStore{
		dir:       dir,
		format:    format,
		overrides: map[string]model.Outcome{},
		chats:     map[string]chatRecord{},
		log:       log,
	}
	if err := loadOrInit(s.memoryPath(), s.format, &s.overrides); err != nil {
		return nil, err
	}
	if err := loadOrInit(s.historyPath(), s.format, &s.chats); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) memoryPath() string  { return filepath.Join(s.dir, "memory."+s.format) }
func (s *FileStore) historyPath() string { return filepath.Join(s.dir, "history."+s.format) }

func (s *FileStore) GetOverride(_ context.Context, serial string) (*model.Override, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out, ok := s.overrides[serial]
	if !ok {
		return nil, fmt.Errorf("override %s: %w", serial, ErrNotFound)
	}
	return &model.Override{Serial: serial, Outcome: out}, nil
}

func (s *FileStore) PutOverride(_ context.Context, p OverrideParams) (*model.Override, error) {
	if err := validateOverride(p); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]model.Outcome, len(s.overrides)+1)
	for k, v := range s.overrides {
		next[k] = v
	}
	next[p.Serial] = p.Outcome

	// The in-memory map only changes once the document is on disk.
	if err := writeDoc(s.memoryPath(), s.format, next); err != nil {
		return nil, fmt.Errorf("write memory: %w", err)
	}
	s.overrides = next

	return &model.Override{
		Serial:    p.Serial,
		Outcome:   p.Outcome,
		ChatID:    p.ChatID,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (s *FileStore) ListOverrides(_ context.Context, p ListParams) ([]model.Override, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	serials := make([]string, 0, len(s.overrides))
	for serial := range s.overrides {
		if strings.HasPrefix(serial, p.Prefix) {
			serials = append(serials, serial)
		}
	}
	sort.Strings(serials)
	if len(serials) > limit {
		serials = serials[:limit]
	}

	overrides := make([]model.Override, 0, len(serials))
	for _, serial := range serials {
		overrides = append(overrides, model.Override{Serial: serial, Outcome: s.overrides[serial]})
	}
	return overrides, nil
}

func (s *FileStore) GetChat(_ context.Context, chatID string) (*model.ChatEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.chats[chatID]
	if !ok {
		return nil, fmt.Errorf("chat %s: %w", chatID, ErrNotFound)
	}
	return &model.ChatEntry{
		ChatID:     chatID,
		LastSerial: rec.LastSerial,
		Outcome:    model.Outcome{Color: rec.Color, Size: rec.Size},
	}, nil
}

func (s *FileStore) PutChat(_ context.Context, p ChatParams) (*model.ChatEntry, error) {
	if err := validateChat(p); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]chatRecord, len(s.chats)+1)
	for k, v := range s.chats {
		next[k] = v
	}
	next[p.ChatID] = chatRecord{LastSerial: p.Serial, Color: p.Color, Size: p.Size}

	if err := writeDoc(s.historyPath(), s.format, next); err != nil {
		return nil, fmt.Errorf("write history: %w", err)
	}
	s.chats = next

	return &model.ChatEntry{
		ChatID:     p.ChatID,
		LastSerial: p.Serial,
		Outcome:    p.Outcome,
		UpdatedAt:  time.Now().UTC(),
	}, nil
}

func (s *FileStore) Close() error {
	return nil
}

// loadOrInit decodes the document at path into v, writing an empty document
// first if none exists.
func loadOrInit(path, format string, v interface{}) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if err := writeDoc(path, format, v); err != nil {
			return fmt.Errorf("init %s: %w", filepath.Base(path), err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := decodeDoc(data, format, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

func decodeDoc(data []byte, format string, v interface{}) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if format == FormatYAML {
		return yaml.Unmarshal(data, v)
	}
	return json.Unmarshal(data, v)
}

func encodeDoc(format string, v interface{}) ([]byte, error) {
	if format == FormatYAML {
		return yaml.Marshal(v)
	}
	return json.MarshalIndent(v, "", "    ")
}

// renameFile is replaced in tests to fail the final step of writeDoc.
var renameFile = os.Rename

// writeDoc replaces the document at path atomically: the new content goes to
// a temp file in the same directory, is synced, then renamed over path. The
// directory is synced afterwards so the rename itself survives a crash.
func writeDoc(path, format string, v interface{}) error {
	data, err := encodeDoc(format, v)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := renameFile(tmpName, path); err != nil {
		return err
	}
	return syncDir(filepath.Dir(path))
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
