// Package output materializes rendered artifacts. A Writer post-processes
// HTML (live reload injection, minification) and hands the result to a
// Target: the disk, or an in-memory store served by the preview server.
package output

import (
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/natefinch/atomic"

	foundation "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// IndexFile is the document written for every renderable directory.
const IndexFile = "index.html"

// Target stores one artifact at components/filename.
type Target interface {
	Name() string
	Put(components []string, filename string, content []byte) error
	// Delete drops the artifact at components/filename. A missing artifact
	// is not an error.
	Delete(components []string, filename string) error
}

// DiskTarget writes files below Root, creating directories eagerly.
type DiskTarget struct {
	Root string
}

func (DiskTarget) Name() string { return "disk" }

// Put writes the file atomically so a concurrent reader never sees a partial artifact.
func (d DiskTarget) Put(components []string, filename string, content []byte) error {
	dir := filepath.Join(append([]string{d.Root}, components...)...)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return foundation.WrapError(err, foundation.CategoryFileSystem, "create output directory").
			WithContext("path", dir).Build()
	}
	dest := filepath.Join(dir, filename)
	if err := atomic.WriteFile(dest, strings.NewReader(string(content))); err != nil {
		return foundation.WrapError(err, foundation.CategoryFileSystem, "write output file").
			WithContext("path", dest).Build()
	}
	return nil
}

func (d DiskTarget) Delete(components []string, filename string) error {
	dest := filepath.Join(append(append([]string{d.Root}, components...), filename)...)
	if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
		return foundation.WrapError(err, foundation.CategoryFileSystem, "remove output file").
			WithContext("path", dest).Build()
	}
	return nil
}

// MemoryStore is the in-memory target used by the preview server. It is
// owned by the caller and outlives individual builds; Reset clears it.
type MemoryStore struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{files: make(map[string][]byte)}
}

func (*MemoryStore) Name() string { return "memory" }

// Put stores content under the normalized key of components/filename.
func (m *MemoryStore) Put(components []string, filename string, content []byte) error {
	key := Key(components, filename)
	m.mu.Lock()
	m.files[key] = content
	m.mu.Unlock()
	return nil
}

// Delete drops the artifact stored for components/filename.
func (m *MemoryStore) Delete(components []string, filename string) error {
	key := Key(components, filename)
	m.mu.Lock()
	delete(m.files, key)
	m.mu.Unlock()
	return nil
}

// Get returns the artifact stored under a normalized key.
func (m *MemoryStore) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.files[key]
	return b, ok
}

// Lookup resolves a request path. "/a/b/", "/a/b/index.html" and
// "/a/b%20c/" style paths map to the same keys Put produces.
func (m *MemoryStore) Lookup(urlPath string) ([]byte, bool) {
	return m.Get(normalize(urlPath))
}

// Keys returns every stored key.
func (m *MemoryStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.files))
	for k := range m.files {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of stored artifacts.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.files)
}

// Reset drops every artifact. Callers reset before each full rebuild.
func (m *MemoryStore) Reset() {
	m.mu.Lock()
	m.files = make(map[string][]byte)
	m.mu.Unlock()
}

// Key returns the canonical memory key of components/filename: the URL path
// without its leading slash, percent-decoded. An index.html maps to its
// directory key, which ends in a slash (the root directory is "").
func Key(components []string, filename string) string {
	var parts []string
	for _, c := range components {
		if c = strings.Trim(c, "/"); c != "" {
			parts = append(parts, c)
		}
	}
	dir := strings.Join(parts, "/")
	if filename == IndexFile || filename == "" {
		if dir == "" {
			return ""
		}
		return normalize(dir + "/")
	}
	return normalize(path.Join(dir, filename))
}

func normalize(p string) string {
	if unescaped, err := url.PathUnescape(p); err == nil {
		p = unescaped
	}
	p = strings.TrimLeft(p, "/")
	if p == IndexFile {
		return ""
	}
	if strings.HasSuffix(p, "/"+IndexFile) {
		p = strings.TrimSuffix(p, IndexFile)
	}
	return p
}
