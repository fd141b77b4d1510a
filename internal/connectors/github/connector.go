// Package github provides a connector that fetches repository files
// from the GitHub API.
package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// MaxBlobSize caps how large a repository file the connector will fetch.
const MaxBlobSize = 1 << 20 // 1 MiB

// Config holds GitHub connector settings.
type Config struct {
	// Token is the personal access token or OAuth token (required).
	Token string

	// Repos lists repositories to fetch as "owner/name" (required).
	Repos []string

	// Branch overrides the default branch for every repo when set.
	Branch string

	// FilePatterns restricts fetched files to matching glob patterns.
	// Empty means all non-binary files.
	FilePatterns []string
}

// ConfigFromSource extracts connector configuration from a source's
// config map.
func ConfigFromSource(source domain.Source) (*Config, error) {
	token := source.Config["token"]
	if token == "" {
		return nil, fmt.Errorf("%w: github source requires a token", domain.ErrInvalidInput)
	}

	reposRaw := source.Config["repos"]
	if reposRaw == "" {
		return nil, fmt.Errorf("%w: github source requires repos", domain.ErrInvalidInput)
	}

	var repos []string
	for _, repo := range strings.Split(reposRaw, ",") {
		repo = strings.TrimSpace(repo)
		if repo == "" {
			continue
		}
		if !strings.Contains(repo, "/") {
			return nil, fmt.Errorf("%w: repo %q must be owner/name", domain.ErrInvalidInput, repo)
		}
		repos = append(repos, repo)
	}
	if len(repos) == 0 {
		return nil, fmt.Errorf("%w: github source requires repos", domain.ErrInvalidInput)
	}

	cfg := &Config{
		Token:  token,
		Repos:  repos,
		Branch: source.Config["branch"],
	}
	if patterns := source.Config["patterns"]; patterns != "" {
		for _, p := range strings.Split(patterns, ",") {
			if p = strings.TrimSpace(p); p != "" {
				cfg.FilePatterns = append(cfg.FilePatterns, p)
			}
		}
	}
	return cfg, nil
}

// Connector fetches files from GitHub repositories.
type Connector struct {
	sourceID string
	config   *Config
	client   *client
	mu       sync.Mutex
	closed   bool
}

// New creates a new GitHub connector.
func New(ctx context.Context, sourceID string, cfg *Config) *Connector {
	return &Connector{
		sourceID: sourceID,
		config:   cfg,
		client:   newClient(ctx, cfg.Token),
	}
}

// NewFromSource creates a connector from a source configuration.
func NewFromSource(source domain.Source) (driven.Connector, error) {
	cfg, err := ConfigFromSource(source)
	if err != nil {
		return nil, err
	}
	return New(context.Background(), source.ID, cfg), nil
}

// Type returns the connector type identifier.
func (c *Connector) Type() string {
	return "github"
}

// SourceID returns the source identifier.
func (c *Connector) SourceID() string {
	return c.sourceID
}

// Capabilities returns the connector's capabilities.
func (c *Connector) Capabilities() driven.ConnectorCapabilities {
	return driven.ConnectorCapabilities{
		SupportsWatch:        false, // No webhook listener in the CLI
		SupportsBinary:       false,
		RequiresAuth:         true,
		SupportsValidation:   true,
		SupportsRateLimiting: true,
	}
}

// Validate checks credentials by fetching the authenticated user.
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

	return c.client.validate(ctx)
}

// Fetch lists each configured repository's tree and produces one
// document per matching file. Both channels close when all repos have
// been walked.
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

		for _, repoRef := range c.config.Repos {
			select {
			case <-ctx.Done():
				return
			default:
			}

			if err := c.fetchRepo(ctx, repoRef, docsChan); err != nil {
				if ctx.Err() != nil {
					return
				}
				errsChan <- err
				return
			}
		}
	}()

	return docsChan, errsChan
}

func (c *Connector) fetchRepo(ctx context.Context, repoRef string, docsChan chan<- domain.Document) error {
	owner, name, _ := strings.Cut(repoRef, "/")

	branch := c.config.Branch
	if branch == "" {
		repo, err := c.client.getRepo(ctx, owner, name)
		if err != nil {
			return err
		}
		branch = repo.GetDefaultBranch()
	}

	tree, err := c.client.getTree(ctx, owner, name, branch)
	if err != nil {
		return err
	}

	for _, entry := range tree.Entries {
		if entry.GetType() != "blob" {
			continue
		}

		path := entry.GetPath()
		if !matchesPatterns(path, c.config.FilePatterns) {
			continue
		}
		if isBinaryExtension(path) {
			continue
		}
		if entry.GetSize() > MaxBlobSize {
			continue
		}

		content, err := c.fetchBlobContent(ctx, owner, name, entry.GetSHA())
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// Skip files we can't read.
			continue
		}

		url := fmt.Sprintf("github://%s/%s/blob/%s/%s", owner, name, branch, path)
		doc := domain.Document{
			ID:          domain.DocumentID("github", c.sourceID, url),
			SourceType:  "github",
			SourceID:    c.sourceID,
			URL:         url,
			Title:       path,
			RawContent:  content,
			MIMEType:    detectFileMIMEType(path),
			ContentHash: domain.HashContent(content),
			Metadata: map[string]string{
				"owner":  owner,
				"repo":   name,
				"branch": branch,
				"path":   path,
				"sha":    entry.GetSHA(),
			},
			FetchedAt: time.Now().UTC(),
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case docsChan <- doc:
		}
	}

	return nil
}

// fetchBlobContent fetches a blob and decodes its content.
func (c *Connector) fetchBlobContent(ctx context.Context, owner, repo, sha string) ([]byte, error) {
	blob, err := c.client.getBlob(ctx, owner, repo, sha)
	if err != nil {
		return nil, err
	}
	if blob.GetEncoding() == "base64" {
		content := strings.ReplaceAll(blob.GetContent(), "\n", "")
		return base64.StdEncoding.DecodeString(content)
	}
	return []byte(blob.GetContent()), nil
}

// Watch is not supported; GitHub would need a webhook listener.
func (c *Connector) Watch(_ context.Context) (<-chan domain.Document, error) {
	return nil, fmt.Errorf("%w: github connector does not support watch", domain.ErrUnsupportedType)
}

// Close releases resources.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// extMIMETypes maps extensions to MIME types for common types not in
// Go's registry (and avoids mime returning video/mp2t for .ts).
var extMIMETypes = map[string]string{
	".md": "text/markdown", ".markdown": "text/markdown",
	".go": "text/x-go", ".py": "text/x-python", ".rs": "text/x-rust",
	".ts": "text/typescript", ".tsx": "text/typescript-jsx",
	".yaml": "text/yaml", ".yml": "text/yaml", ".toml": "text/toml",
	".sh": "text/x-shellscript", ".sql": "text/x-sql",
}

// detectFileMIMEType determines the MIME type from the file extension.
func detectFileMIMEType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return "text/plain"
	}
	if t, ok := extMIMETypes[ext]; ok {
		return t
	}
	if mimeType := mime.TypeByExtension(ext); mimeType != "" {
		if idx := strings.Index(mimeType, ";"); idx != -1 {
			mimeType = strings.TrimSpace(mimeType[:idx])
		}
		return mimeType
	}
	return "text/plain"
}

// matchesPatterns checks if a path matches any of the glob patterns.
func matchesPatterns(path string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, pattern := range patterns {
		if matched, err := filepath.Match(pattern, filepath.Base(path)); err == nil && matched {
			return true
		}
		if matched, err := filepath.Match(pattern, path); err == nil && matched {
			return true
		}
	}
	return false
}

// isBinaryExtension checks if a file extension indicates a binary file.
func isBinaryExtension(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".exe", ".dll", ".so", ".dylib",
		".zip", ".tar", ".gz", ".bz2", ".7z",
		".png", ".jpg", ".jpeg", ".gif", ".ico", ".webp",
		".pdf", ".doc", ".docx", ".xls", ".xlsx",
		".mp3", ".mp4", ".avi", ".mov",
		".woff", ".woff2", ".ttf", ".eot",
		".bin", ".dat", ".db", ".sqlite",
		".pyc", ".class", ".o", ".a":
		return true
	}
	return false
}
