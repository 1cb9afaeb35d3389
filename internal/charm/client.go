// ABOUTME: Charm KV client wrapper for the cloud-synced transcript archive
// ABOUTME: Finished conversations are stored under transcript: keys with SSH key auth handled by charm
package charm

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/charmbracelet/charm/kv"
	"github.com/rs/zerolog"

	"github.com/harper/obala/internal/models"
)

// TranscriptPrefix namespaces archived conversations
const TranscriptPrefix = "transcript:"

// archiveTimeFormat sorts lexically in time order
const archiveTimeFormat = "20060102T150405.000000000"

// ErrClosed is returned by every operation after Close
var ErrClosed = errors.New("transcript archive is closed")

// Config holds charm client configuration
type Config struct {
	Host     string
	DBName   string
	AutoSync bool
}

// store is the subset of charm KV the archive uses
type store interface {
	Set(key, value []byte) error
	Get(key []byte) ([]byte, error)
	Delete(key []byte) error
	Keys() ([][]byte, error)
	Sync() error
	Close() error
}

// Client wraps charm KV for transcript storage
type Client struct {
	kv     store
	config *Config
	mu     sync.Mutex
	logger zerolog.Logger
}

// NewClient opens the charm KV database named in cfg
func NewClient(cfg *Config, logger zerolog.Logger) (*Client, error) {
	// Set CHARM_HOST before opening KV
	if err := os.Setenv("CHARM_HOST", cfg.Host); err != nil {
		return nil, fmt.Errorf("failed to set CHARM_HOST: %w", err)
	}

	db, err := kv.OpenWithDefaults(cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("failed to open charm kv: %w", err)
	}

	c := newClient(db, cfg, logger)

	// Pull remote data on startup
	if cfg.AutoSync {
		if err := db.Sync(); err != nil {
			logger.Warn().Err(err).Msg("initial charm sync failed")
		}
	}

	return c, nil
}

func newClient(db store, cfg *Config, logger zerolog.Logger) *Client {
	return &Client{kv: db, config: cfg, logger: logger}
}

// Close closes the KV database
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.kv != nil {
		err := c.kv.Close()
		c.kv = nil
		return err
	}
	return nil
}

// syncIfEnabled syncs to cloud after writes
func (c *Client) syncIfEnabled() {
	if c.config.AutoSync {
		if err := c.kv.Sync(); err != nil {
			c.logger.Warn().Err(err).Msg("charm sync failed")
		}
	}
}

// Sync manually triggers a sync with the cloud
func (c *Client) Sync() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.kv == nil {
		return ErrClosed
	}
	return c.kv.Sync()
}

// ArchiveID identifies a transcript: end time first so IDs sort chronologically
func ArchiveID(t *models.Transcript) string {
	return t.EndedAt.UTC().Format(archiveTimeFormat) + "_" + t.SessionID
}

// TranscriptKey generates the KV key for an archive ID
func TranscriptKey(id string) string {
	return TranscriptPrefix + id
}

// SaveTranscript stores a finished conversation
func (c *Client) SaveTranscript(t *models.Transcript) error {
	if t.EndedAt.IsZero() {
		t.EndedAt = time.Now().UTC()
	}
	data, err := sonic.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}

	key := TranscriptKey(ArchiveID(t))

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.kv == nil {
		return ErrClosed
	}
	if err := c.kv.Set([]byte(key), data); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	c.syncIfEnabled()
	return nil
}

// GetTranscript loads one transcript by archive ID
func (c *Client) GetTranscript(id string) (*models.Transcript, error) {
	c.mu.Lock()
	if c.kv == nil {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	data, err := c.kv.Get([]byte(TranscriptKey(id)))
	c.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to get transcript %s: %w", id, err)
	}
	if data == nil {
		return nil, fmt.Errorf("transcript not found: %s", id)
	}

	var t models.Transcript
	if err := sonic.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to decode transcript %s: %w", id, err)
	}
	return &t, nil
}

// ListTranscripts returns archive IDs, newest first
func (c *Client) ListTranscripts() ([]string, error) {
	c.mu.Lock()
	if c.kv == nil {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	keys, err := c.kv.Keys()
	c.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}

	var ids []string
	for _, key := range keys {
		if id, ok := strings.CutPrefix(string(key), TranscriptPrefix); ok {
			ids = append(ids, id)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids, nil
}

// DeleteTranscript removes one transcript
func (c *Client) DeleteTranscript(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.kv == nil {
		return ErrClosed
	}

	key := TranscriptKey(id)
	if err := c.kv.Delete([]byte(key)); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	c.syncIfEnabled()
	return nil
}
