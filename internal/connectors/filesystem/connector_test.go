package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/vecsync/internal/core/domain"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func collectDocs(t *testing.T, c *Connector) []domain.Document {
	t.Helper()
	docsChan, errsChan := c.Fetch(context.Background())

	var docs []domain.Document
	for doc := range docsChan {
		docs = append(docs, doc)
	}
	for err := range errsChan {
		require.NoError(t, err)
	}
	return docs
}

func TestConfigFromSource(t *testing.T) {
	source := domain.Source{
		ID:        "src-1",
		ProjectID: "proj",
		Type:      "filesystem",
		Config: map[string]string{
			"path":       "/tmp/docs",
			"extensions": "md, txt,html",
		},
	}

	cfg, err := ConfigFromSource(source)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/docs", cfg.Path)
	assert.Equal(t, []string{".md", ".txt", ".html"}, cfg.Extensions)
	assert.Equal(t, int64(DefaultMaxFileSize), cfg.MaxFileSize)
}

func TestConfigFromSource_MissingPath(t *testing.T) {
	_, err := ConfigFromSource(domain.Source{ID: "src-1", Config: map[string]string{}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	c := New("src-1", &Config{Path: dir})
	assert.NoError(t, c.Validate(context.Background()))
}

func TestValidate_MissingPath(t *testing.T) {
	c := New("src-1", &Config{Path: "/nonexistent/path"})
	err := c.Validate(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestValidate_Closed(t *testing.T) {
	c := New("src-1", &Config{Path: t.TempDir()})
	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Validate(context.Background()), domain.ErrConnectorClosed)
}

func TestFetch_WalksTree(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "readme.md", "# Hello")
	writeFile(t, dir, "notes.txt", "plain notes")
	writeFile(t, dir, "sub/page.html", "<p>deep</p>")
	writeFile(t, dir, "image.png", "binary") // no known MIME type

	c := New("src-1", &Config{Path: dir})
	docs := collectDocs(t, c)

	require.Len(t, docs, 3)

	byTitle := make(map[string]domain.Document)
	for _, doc := range docs {
		byTitle[doc.Title] = doc
	}

	md := byTitle["readme.md"]
	assert.Equal(t, "text/markdown", md.MIMEType)
	assert.Equal(t, "filesystem", md.SourceType)
	assert.Equal(t, "src-1", md.SourceID)
	assert.Equal(t, domain.HashContent([]byte("# Hello")), md.ContentHash)
	assert.Equal(t, domain.DocumentID("filesystem", "src-1", md.URL), md.ID)

	assert.Contains(t, byTitle, filepath.Join("sub", "page.html"))
}

func TestFetch_DeterministicIDs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "content")

	c := New("src-1", &Config{Path: dir})
	first := collectDocs(t, c)
	second := collectDocs(t, c)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, first[0].ContentHash, second[0].ContentHash)
}

func TestFetch_SkipsHidden(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".hidden.md", "secret")
	writeFile(t, dir, ".git/config.txt", "repo config")
	writeFile(t, dir, "visible.md", "public")

	c := New("src-1", &Config{Path: dir})
	docs := collectDocs(t, c)

	require.Len(t, docs, 1)
	assert.Equal(t, "visible.md", docs[0].Title)
}

func TestFetch_IncludeHidden(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".hidden.md", "secret")
	writeFile(t, dir, "visible.md", "public")

	c := New("src-1", &Config{Path: dir, IncludeHidden: true})
	docs := collectDocs(t, c)
	assert.Len(t, docs, 2)
}

func TestFetch_ExtensionFilter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.md", "markdown")
	writeFile(t, dir, "b.txt", "text")

	c := New("src-1", &Config{Path: dir, Extensions: []string{".md"}})
	docs := collectDocs(t, c)

	require.Len(t, docs, 1)
	assert.Equal(t, "a.md", docs[0].Title)
}

func TestFetch_SkipsOversizedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "small.txt", "ok")
	writeFile(t, dir, "big.txt", "this content is larger than the cap")

	c := New("src-1", &Config{Path: dir, MaxFileSize: 10})
	docs := collectDocs(t, c)

	require.Len(t, docs, 1)
	assert.Equal(t, "small.txt", docs[0].Title)
}

func TestFetch_Cancelled(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 10; i++ {
		writeFile(t, dir, filepath.Join("sub", "file"+string(rune('a'+i))+".txt"), "content")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New("src-1", &Config{Path: dir})
	docsChan, errsChan := c.Fetch(ctx)

	count := 0
	for range docsChan {
		count++
	}
	for range errsChan {
	}
	assert.Zero(t, count)
}

func TestFetch_Closed(t *testing.T) {
	c := New("src-1", &Config{Path: t.TempDir()})
	require.NoError(t, c.Close())

	docsChan, errsChan := c.Fetch(context.Background())
	for range docsChan {
		t.Fatal("no documents expected from closed connector")
	}
	var got error
	for err := range errsChan {
		got = err
	}
	assert.ErrorIs(t, got, domain.ErrConnectorClosed)
}

func TestCapabilities(t *testing.T) {
	c := New("src-1", &Config{Path: "/tmp"})
	caps := c.Capabilities()
	assert.True(t, caps.SupportsWatch)
	assert.False(t, caps.RequiresAuth)
}

// awaitDoc receives events until one matches the given path, so extra
// events from the same change (create then write) don't fail the test.
func awaitDoc(t *testing.T, docs <-chan domain.Document, path string) domain.Document {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case doc, ok := <-docs:
			require.True(t, ok, "watch channel closed before event for %s", path)
			if doc.URL == path {
				return doc
			}
		case <-deadline:
			t.Fatalf("timeout waiting for event for %s", path)
		}
	}
}

func TestWatch_FileCreated(t *testing.T) {
	dir := t.TempDir()
	c := New("src-1", &Config{Path: dir})
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	docs, err := c.Watch(ctx)
	require.NoError(t, err)

	path := filepath.Join(dir, "new-file.txt")
	go func() {
		time.Sleep(50 * time.Millisecond)
		os.WriteFile(path, []byte("fresh content"), 0644)
	}()

	doc := awaitDoc(t, docs, path)
	assert.False(t, doc.IsDeleted)
	assert.Equal(t, domain.DocumentID("filesystem", "src-1", path), doc.ID)
	assert.Equal(t, "text/plain", doc.MIMEType)
}

func TestWatch_FileModified(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "note.md", "initial")

	c := New("src-1", &Config{Path: dir})
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	docs, err := c.Watch(ctx)
	require.NoError(t, err)

	go func() {
		time.Sleep(50 * time.Millisecond)
		os.WriteFile(path, []byte("modified"), 0644)
	}()

	doc := awaitDoc(t, docs, path)
	assert.False(t, doc.IsDeleted)
	assert.Equal(t, "text/markdown", doc.MIMEType)
}

func TestWatch_FileRemoved(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "doomed.txt", "delete me")

	c := New("src-1", &Config{Path: dir})
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	docs, err := c.Watch(ctx)
	require.NoError(t, err)

	go func() {
		time.Sleep(50 * time.Millisecond)
		os.Remove(path)
	}()

	doc := awaitDoc(t, docs, path)
	assert.True(t, doc.IsDeleted)
	assert.Equal(t, domain.DocumentID("filesystem", "src-1", path), doc.ID)
}

func TestWatch_IgnoresUnmatchedExtensions(t *testing.T) {
	dir := t.TempDir()
	c := New("src-1", &Config{Path: dir, Extensions: []string{".md"}})
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	docs, err := c.Watch(ctx)
	require.NoError(t, err)

	skipped := filepath.Join(dir, "binary.bin")
	wanted := filepath.Join(dir, "wanted.md")
	go func() {
		time.Sleep(50 * time.Millisecond)
		os.WriteFile(skipped, []byte{0x01}, 0644)
		os.WriteFile(wanted, []byte("# heading"), 0644)
	}()

	// The .bin change must never surface; the .md one must.
	doc := awaitDoc(t, docs, wanted)
	assert.Equal(t, wanted, doc.URL)
}

func TestWatch_ChannelClosesOnCancel(t *testing.T) {
	dir := t.TempDir()
	c := New("src-1", &Config{Path: dir})
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	docs, err := c.Watch(ctx)
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-docs:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("watch channel did not close after cancellation")
	}
}

func TestWatch_Closed(t *testing.T) {
	dir := t.TempDir()
	c := New("src-1", &Config{Path: dir})
	require.NoError(t, c.Close())

	docs, err := c.Watch(context.Background())
	assert.ErrorIs(t, err, domain.ErrConnectorClosed)
	assert.Nil(t, docs)
}
