package store

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/rcliao/wingo/internal/model"
)

// Watch reloads a document whenever it is replaced or edited on disk by
// someone else, until ctx is done. A document that fails to decode is
// ignored and the current contents are kept.
func (s *FileStore) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: rename-over replaces the inode a file watch
	// would be attached to.
	if err := watcher.Add(s.dir); err != nil {
		return fmt.Errorf("watch %s: %w", s.dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			s.reload(event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("store watcher error", zap.Error(err))
		}
	}
}

// reload holds the write lock across read, decode and swap so a document
// read before one of this store's own writes cannot replace the newer map.
func (s *FileStore) reload(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch filepath.Clean(name) {
	case s.memoryPath():
		var next map[string]model.Outcome
		if !s.readInto(name, &next) {
			return
		}
		s.overrides = next
		s.log.Info("reloaded memory document", zap.Int("overrides", len(next)))
	case s.historyPath():
		var next map[string]chatRecord
		if !s.readInto(name, &next) {
			return
		}
		s.chats = next
		s.log.Debug("reloaded history document", zap.Int("chats", len(next)))
	}
}

func (s *FileStore) readInto(name string, v interface{}) bool {
	data, err := os.ReadFile(name)
	if err != nil {
		// Renamed away or mid-replace; the next event brings the new file.
		return false
	}
	if len(bytes.TrimSpace(data)) == 0 {
		// Truncated by an in-place editor; wait for the content.
		return false
	}
	if err := decodeDoc(data, s.format, v); err != nil {
		s.log.Warn("ignoring undecodable document", zap.String("path", name), zap.Error(err))
		return false
	}
	return true
}
