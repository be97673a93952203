package workspace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/golang/snappy"

	"github.com/dd0wney/nodewire/pkg/logging"
	"github.com/dd0wney/nodewire/pkg/metrics"
)

const (
	plainExt      = ".json"
	compressedExt = ".json.sz"
)

// FileStoreConfig holds FileStore configuration.
type FileStoreConfig struct {
	// Dir is the nexus directory holding one file per workspace.
	Dir string

	// Compress writes new workspaces snappy-compressed. Loads accept
	// both forms regardless, so flipping this never strands old files.
	Compress bool
}

// FileStore keeps workspaces as files under a nexus directory:
// <sanitized-name>.json plain, or <sanitized-name>.json.sz compressed.
// Save overwrites, Load prefers the compressed form when both exist.
type FileStore struct {
	config   FileStoreConfig
	logger   logging.Logger
	registry *metrics.Registry
}

// NewFileStore creates the nexus directory if needed and returns a store
// over it. Nil logger and registry fall back to no-op logging and the
// shared registry.
func NewFileStore(config FileStoreConfig, logger logging.Logger, registry *metrics.Registry) (*FileStore, error) {
	if config.Dir == "" {
		return nil, fmt.Errorf("file store: nexus directory required")
	}
	if err := os.MkdirAll(config.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create nexus directory: %w", err)
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if registry == nil {
		registry = metrics.DefaultRegistry()
	}
	return &FileStore{config: config, logger: logger, registry: registry}, nil
}

// Save writes one workspace, overwriting any previous version under the
// same name (plain or compressed).
func (s *FileStore) Save(name string, data Data) (err error) {
	defer s.observe("save", time.Now(), &err)

	if name == "" {
		return storeError("save", name, ErrNameRequired)
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return storeError("save", name, err)
	}
	s.registry.WorkspaceSizeBytes.Observe(float64(len(payload)))

	ext := plainExt
	if s.config.Compress {
		payload = snappy.Encode(nil, payload)
		ext = compressedExt
	}

	key := SanitizeName(name)
	if err := os.WriteFile(filepath.Join(s.config.Dir, key+ext), payload, 0o644); err != nil {
		return storeError("save", name, err)
	}

	// Drop the other form so a later load cannot resurrect stale data.
	stale := plainExt
	if !s.config.Compress {
		stale = compressedExt
	}
	_ = os.Remove(filepath.Join(s.config.Dir, key+stale))

	s.logger.Info("workspace saved",
		logging.Workspace(name),
		logging.Count(len(payload)))
	return nil
}

// Load reads one workspace by name, decompressing when needed. A missing
// name returns ErrNotFound.
func (s *FileStore) Load(name string) (_ Data, err error) {
	defer s.observe("load", time.Now(), &err)

	if name == "" {
		return Data{}, storeError("load", name, ErrNameRequired)
	}

	key := SanitizeName(name)
	payload, compressed, err := s.read(key)
	if err != nil {
		return Data{}, storeError("load", name, err)
	}
	if compressed {
		payload, err = snappy.Decode(nil, payload)
		if err != nil {
			return Data{}, storeError("load", name, fmt.Errorf("%w: %v", ErrCorrupt, err))
		}
	}

	var data Data
	if err := json.Unmarshal(payload, &data); err != nil {
		return Data{}, storeError("load", name, fmt.Errorf("%w: %v", ErrCorrupt, err))
	}
	return data, nil
}

// List returns every stored workspace name, sorted.
func (s *FileStore) List() (_ []string, err error) {
	defer s.observe("list", time.Now(), &err)

	entries, err := os.ReadDir(s.config.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, storeError("list", "", err)
	}

	seen := make(map[string]struct{})
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name, ok := stemOf(entry.Name())
		if !ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	sort.Strings(names)
	return names, nil
}

// Delete removes one workspace in whatever form it is stored. An absent
// name returns ErrNotFound.
func (s *FileStore) Delete(name string) (err error) {
	defer s.observe("delete", time.Now(), &err)

	if name == "" {
		return storeError("delete", name, ErrNameRequired)
	}

	key := SanitizeName(name)
	removed := false
	for _, ext := range []string{plainExt, compressedExt} {
		rmErr := os.Remove(filepath.Join(s.config.Dir, key+ext))
		if rmErr == nil {
			removed = true
		} else if !os.IsNotExist(rmErr) {
			return storeError("delete", name, rmErr)
		}
	}
	if !removed {
		return storeError("delete", name, ErrNotFound)
	}

	s.logger.Info("workspace deleted", logging.Workspace(name))
	return nil
}

// read returns the stored payload for a key, preferring the compressed
// form.
func (s *FileStore) read(key string) (payload []byte, compressed bool, err error) {
	data, err := os.ReadFile(filepath.Join(s.config.Dir, key+compressedExt))
	if err == nil {
		return data, true, nil
	}
	if !os.IsNotExist(err) {
		return nil, false, err
	}

	data, err = os.ReadFile(filepath.Join(s.config.Dir, key+plainExt))
	if err == nil {
		return data, false, nil
	}
	if os.IsNotExist(err) {
		return nil, false, ErrNotFound
	}
	return nil, false, err
}

// observe records the operation outcome and duration.
func (s *FileStore) observe(op string, start time.Time, err *error) {
	status := "success"
	if *err != nil {
		status = "error"
	}
	s.registry.RecordWorkspaceOp(op, status, time.Since(start))
}

// stemOf strips the store's file extensions, reporting whether the name
// was a workspace file at all.
func stemOf(filename string) (string, bool) {
	if strings.HasSuffix(filename, compressedExt) {
		return strings.TrimSuffix(filename, compressedExt), true
	}
	if strings.HasSuffix(filename, plainExt) {
		return strings.TrimSuffix(filename, plainExt), true
	}
	return "", false
}

var _ Store = (*FileStore)(nil)
