package token

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/cache"
	"go.uber.org/zap"
)

// FileCache persists the identity library's serialized token cache to a
// single file. The file is read once at construction and rewritten only when
// the serialized state differs from what was last read or written.
type FileCache struct {
	path   string
	logger *zap.Logger

	mu   sync.Mutex
	blob []byte
}

var _ cache.ExportReplace = (*FileCache)(nil)

// NewFileCache loads the cache blob at path. A missing file is an empty cache.
func NewFileCache(path string, logger *zap.Logger) (*FileCache, error) {
	c := &FileCache{path: path, logger: logger}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.Debug("Token cache file not found, starting empty", zap.String("path", path))
	case err != nil:
		logger.Error("Failed to read token cache", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("failed to read token cache %s: %w", path, err)
	default:
		c.blob = data
		logger.Debug("Loaded token cache", zap.String("path", path), zap.Int("bytes", len(data)))
	}

	return c, nil
}

// Replace hands the persisted blob to the identity library.
func (c *FileCache) Replace(ctx context.Context, u cache.Unmarshaler, _ cache.ReplaceHints) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.blob) == 0 {
		return nil
	}
	if err := u.Unmarshal(c.blob); err != nil {
		c.logger.Warn("Failed to unmarshal token cache, ignoring it", zap.String("path", c.path), zap.Error(err))
		return nil
	}
	return nil
}

// Export writes the library's state to disk if it changed.
func (c *FileCache) Export(ctx context.Context, m cache.Marshaler, _ cache.ExportHints) error {
	data, err := m.Marshal()
	if err != nil {
		c.logger.Error("Failed to marshal token cache", zap.Error(err))
		return fmt.Errorf("failed to marshal token cache: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if bytes.Equal(data, c.blob) {
		c.logger.Debug("Token cache unchanged, skipping write", zap.String("path", c.path))
		return nil
	}

	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		c.logger.Error("Failed to write token cache", zap.String("path", c.path), zap.Error(err))
		return fmt.Errorf("failed to write token cache %s: %w", c.path, err)
	}
	c.blob = data

	c.logger.Info("Token cache persisted", zap.String("path", c.path), zap.Int("bytes", len(data)))
	return nil
}

// Cached reports whether the blob holds at least one account or access token.
func (c *FileCache) Cached() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.blob) == 0 {
		return false
	}
	var contract map[string]map[string]json.RawMessage
	if err := json.Unmarshal(c.blob, &contract); err != nil {
		return false
	}
	return len(contract["Account"]) > 0 || len(contract["AccessToken"]) > 0
}

// Path returns the cache file location.
func (c *FileCache) Path() string {
	return c.path
}
