// Package cache persists fetched messages on disk, one file per
// message under a per-account directory, so repeated reads of the
// same message skip the network.
package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
)

// ErrMessageGone reports a fetch for an identifier the server no
// longer has.
var ErrMessageGone = errors.New("message no longer on server")

// Fetcher is the slice of the mail session the fetch-or-populate
// policy needs.
type Fetcher interface {
	FetchMessageSize(id string) (int64, bool, error)
	FetchMessageBody(id string) ([]byte, bool, error)
}

// Cache stores raw messages as <root>/<account>/<id>.msg. Distinct
// keys are safe to use concurrently; writers never leave a partial
// file visible.
type Cache struct {
	root    string
	enabled bool
	enc     encoding.Encoding // nil stores wire bytes untouched
	logger  *slog.Logger
}

// New builds a cache rooted at root. encodingName is the IANA charset
// for file content; "utf-8" or "" keeps wire bytes untouched, any
// other name transcodes on save and load.
func New(root string, enabled bool, encodingName string, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var enc encoding.Encoding
	switch strings.ToLower(encodingName) {
	case "", "utf-8", "utf8":
	default:
		e, err := ianaindex.IANA.Encoding(encodingName)
		if err != nil || e == nil {
			return nil, fmt.Errorf("unsupported cache encoding %q", encodingName)
		}
		enc = e
	}

	return &Cache{root: root, enabled: enabled, enc: enc, logger: logger}, nil
}

// Enabled reports whether the cache touches disk at all.
func (c *Cache) Enabled() bool {
	return c.enabled
}

// Has reports whether a message is cached. Always false when the
// cache is disabled.
func (c *Cache) Has(account, id string) bool {
	if !c.enabled {
		return false
	}
	path, err := c.entryPath(account, id)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Load reads a cached message. A miss or a disabled cache returns
// (nil, false, nil); a file that exists but cannot be read or decoded
// is an error, never silently skipped.
func (c *Cache) Load(account, id string) ([]byte, bool, error) {
	if !c.enabled {
		return nil, false, nil
	}
	path, err := c.entryPath(account, id)
	if err != nil {
		return nil, false, err
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cached message %s: %w", id, err)
	}

	raw, err = c.decode(raw)
	if err != nil {
		return nil, false, fmt.Errorf("decoding cached message %s: %w", id, err)
	}
	return raw, true, nil
}

// Save writes a message to the cache, creating the account directory
// on first use. The file appears atomically: content goes to a
// uniquely named temp file in the same directory, then renames into
// place. A disabled cache saves nothing.
func (c *Cache) Save(account, id string, raw []byte) error {
	if !c.enabled {
		return nil
	}
	path, err := c.entryPath(account, id)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	data, err := c.encode(raw)
	if err != nil {
		return fmt.Errorf("encoding message %s: %w", id, err)
	}

	tmp := path + "." + uuid.New().String()
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing cached message %s: %w", id, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("placing cached message %s: %w", id, err)
	}
	return nil
}

// FetchOrPopulate resolves a message body, preferring the cache. On a
// miss it probes the message size first and only caches bodies of at
// most threshold bytes; larger ones are fetched without touching
// disk. threshold <= 0 caches regardless of size. A failed save is
// logged and the fetched body returned anyway; the network copy is
// authoritative.
func (c *Cache) FetchOrPopulate(f Fetcher, account, id string, threshold int64) ([]byte, error) {
	if !c.enabled {
		return fetchBody(f, id)
	}

	raw, hit, err := c.Load(account, id)
	if err != nil {
		return nil, err
	}
	if hit {
		return raw, nil
	}

	if threshold > 0 {
		size, found, err := f.FetchMessageSize(id)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, fmt.Errorf("message %s: %w", id, ErrMessageGone)
		}
		if size > threshold {
			return fetchBody(f, id)
		}
	}

	raw, err = fetchBody(f, id)
	if err != nil {
		return nil, err
	}
	if err := c.Save(account, id, raw); err != nil {
		c.logger.Warn("could not save message to cache", "id", id, "error", err)
	}
	return raw, nil
}

func fetchBody(f Fetcher, id string) ([]byte, error) {
	raw, found, err := f.FetchMessageBody(id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("message %s: %w", id, ErrMessageGone)
	}
	return raw, nil
}

var pathUnsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// entryPath builds <root>/<account>/<id>.msg with both components
// sanitized so no input can escape the cache root.
func (c *Cache) entryPath(account, id string) (string, error) {
	account = pathUnsafeChars.ReplaceAllString(account, "_")
	id = pathUnsafeChars.ReplaceAllString(id, "_")
	if account == "" || account == "." || account == ".." {
		return "", fmt.Errorf("invalid cache account %q", account)
	}
	if id == "" || id == "." || id == ".." {
		return "", fmt.Errorf("invalid cache message id %q", id)
	}
	return filepath.Join(c.root, account, id+".msg"), nil
}

func (c *Cache) encode(raw []byte) ([]byte, error) {
	if c.enc == nil {
		return raw, nil
	}
	return c.enc.NewEncoder().Bytes(raw)
}

func (c *Cache) decode(raw []byte) ([]byte, error) {
	if c.enc == nil {
		return raw, nil
	}
	return c.enc.NewDecoder().Bytes(raw)
}
