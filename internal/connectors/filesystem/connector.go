// Package filesystem provides a connector that fetches documents from
// a local directory tree.
package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// DefaultMaxFileSize caps how large a file the connector will read.
const DefaultMaxFileSize = 10 << 20 // 10 MiB

// mimeByExtension maps file extensions to the MIME types the converter
// registry understands.
var mimeByExtension = map[string]string{
	".txt":      "text/plain",
	".text":     "text/plain",
	".log":      "text/plain",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".html":     "text/html",
	".htm":      "text/html",
}

// Config holds filesystem connector settings.
type Config struct {
	// Path is the root directory to walk (required).
	Path string

	// IncludeHidden walks dot-files and dot-directories when true.
	IncludeHidden bool

	// Extensions restricts the walk to these extensions (with dot).
	// Empty means every extension with a known MIME type.
	Extensions []string

	// MaxFileSize skips files larger than this many bytes.
	MaxFileSize int64
}

// ConfigFromSource extracts connector configuration from a source's
// config map.
func ConfigFromSource(source domain.Source) (*Config, error) {
	path := source.Config["path"]
	if path == "" {
		return nil, fmt.Errorf("%w: filesystem source requires a path", domain.ErrInvalidInput)
	}

	cfg := &Config{
		Path:          path,
		IncludeHidden: source.Config["include_hidden"] == "true",
		MaxFileSize:   DefaultMaxFileSize,
	}
	if exts := source.Config["extensions"]; exts != "" {
		for _, ext := range strings.Split(exts, ",") {
			ext = strings.TrimSpace(ext)
			if ext == "" {
				continue
			}
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			cfg.Extensions = append(cfg.Extensions, strings.ToLower(ext))
		}
	}
	return cfg, nil
}

// Connector fetches documents from a local directory tree.
type Connector struct {
	sourceID string
	config   *Config
	mu       sync.Mutex
	closed   bool
	watcher  *fsnotify.Watcher
}

// New creates a new filesystem connector.
func New(sourceID string, cfg *Config) *Connector {
	return &Connector{
		sourceID: sourceID,
		config:   cfg,
	}
}

// NewFromSource creates a connector from a source configuration.
func NewFromSource(source domain.Source) (driven.Connector, error) {
	cfg, err := ConfigFromSource(source)
	if err != nil {
		return nil, err
	}
	return New(source.ID, cfg), nil
}

// Type returns the connector type identifier.
func (c *Connector) Type() string {
	return "filesystem"
}

// SourceID returns the source identifier.
func (c *Connector) SourceID() string {
	return c.sourceID
}

// Capabilities returns the connector's capabilities.
func (c *Connector) Capabilities() driven.ConnectorCapabilities {
	return driven.ConnectorCapabilities{
		SupportsWatch:      true,
		SupportsBinary:     false,
		RequiresAuth:       false,
		SupportsValidation: true,
	}
}

// Validate checks the configured path exists and is a readable directory.
func (c *Connector) Validate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return domain.ErrConnectorClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	info, err := os.Stat(c.config.Path)
	if err != nil {
		return fmt.Errorf("%w: path %s: %v", domain.ErrInvalidInput, c.config.Path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: path %s is not a directory", domain.ErrInvalidInput, c.config.Path)
	}
	return nil
}

// Fetch walks the directory tree and produces one document per
// matching file. Both channels close when the walk completes.
func (c *Connector) Fetch(ctx context.Context) (<-chan domain.Document, <-chan error) {
	docsChan := make(chan domain.Document)
	errsChan := make(chan error, 1)

	go func() {
		defer close(docsChan)
		defer close(errsChan)

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			errsChan <- domain.ErrConnectorClosed
			return
		}
		c.mu.Unlock()

		root := c.config.Path
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				// Unreadable entries are skipped, not fatal.
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			name := d.Name()
			hidden := strings.HasPrefix(name, ".") && name != "." && name != ".."
			if d.IsDir() {
				if hidden && !c.config.IncludeHidden && path != root {
					return filepath.SkipDir
				}
				return nil
			}
			if hidden && !c.config.IncludeHidden {
				return nil
			}

			mimeType, ok := c.matchFile(path)
			if !ok {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				return nil
			}
			if c.config.MaxFileSize > 0 && info.Size() > c.config.MaxFileSize {
				return nil
			}

			content, err := os.ReadFile(path)
			if err != nil {
				return nil
			}

			doc := c.buildDocument(path, mimeType, content)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case docsChan <- doc:
			}
			return nil
		})
		if err != nil && ctx.Err() == nil {
			errsChan <- fmt.Errorf("%w: walking %s: %v", domain.ErrSourceFetch, root, err)
		}
	}()

	return docsChan, errsChan
}

// matchFile reports whether a file should be fetched and its MIME type.
func (c *Connector) matchFile(path string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if len(c.config.Extensions) > 0 {
		found := false
		for _, allowed := range c.config.Extensions {
			if ext == allowed {
				found = true
				break
			}
		}
		if !found {
			return "", false
		}
	}
	mimeType, ok := mimeByExtension[ext]
	if !ok {
		if len(c.config.Extensions) > 0 {
			// Explicitly requested extension without a known type.
			return "text/plain", true
		}
		return "", false
	}
	return mimeType, true
}

func (c *Connector) buildDocument(path, mimeType string, content []byte) domain.Document {
	rel, err := filepath.Rel(c.config.Path, path)
	if err != nil {
		rel = path
	}
	return domain.Document{
		ID:          domain.DocumentID("filesystem", c.sourceID, path),
		SourceType:  "filesystem",
		SourceID:    c.sourceID,
		URL:         path,
		Title:       rel,
		RawContent:  content,
		MIMEType:    mimeType,
		ContentHash: domain.HashContent(content),
		Metadata: map[string]string{
			"relative_path": rel,
		},
		FetchedAt: time.Now().UTC(),
	}
}

// Watch emits a document for every file created or modified under the
// configured path until the context is cancelled. Removed files are
// emitted with IsDeleted set.
func (c *Connector) Watch(ctx context.Context) (<-chan domain.Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, domain.ErrConnectorClosed
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	// Watch the root and every existing subdirectory.
	err = filepath.WalkDir(c.config.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") && !c.config.IncludeHidden && path != c.config.Path {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", c.config.Path, err)
	}

	c.watcher = watcher
	docsChan := make(chan domain.Document)

	go func() {
		defer close(docsChan)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				c.handleEvent(ctx, event, watcher, docsChan)
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
				// Watch errors are transient; keep watching.
			}
		}
	}()

	return docsChan, nil
}

func (c *Connector) handleEvent(ctx context.Context, event fsnotify.Event, watcher *fsnotify.Watcher, docsChan chan<- domain.Document) {
	switch {
	case event.Has(fsnotify.Create) || event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil {
			return
		}
		if info.IsDir() {
			if event.Has(fsnotify.Create) {
				watcher.Add(event.Name)
			}
			return
		}
		mimeType, ok := c.matchFile(event.Name)
		if !ok {
			return
		}
		content, err := os.ReadFile(event.Name)
		if err != nil {
			return
		}
		doc := c.buildDocument(event.Name, mimeType, content)
		select {
		case <-ctx.Done():
		case docsChan <- doc:
		}

	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		if _, ok := c.matchFile(event.Name); !ok {
			return
		}
		doc := domain.Document{
			ID:         domain.DocumentID("filesystem", c.sourceID, event.Name),
			SourceType: "filesystem",
			SourceID:   c.sourceID,
			URL:        event.Name,
			IsDeleted:  true,
			FetchedAt:  time.Now().UTC(),
		}
		select {
		case <-ctx.Done():
		case docsChan <- doc:
		}
	}
}

// Close releases resources.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.watcher != nil {
		c.watcher.Close()
		c.watcher = nil
	}
	return nil
}
