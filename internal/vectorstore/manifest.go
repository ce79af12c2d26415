package vectorstore

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"tutor-rag/internal/models"
)

const manifestFile = "manifest.json"

// Manifest tracks what the persisted index was built from: the
// embedding function identifier and a content hash per document, so
// re-ingestion can skip unchanged sources and a query with a different
// embedder is rejected instead of silently mixing spaces.
type Manifest struct {
	Embedder  string            `json:"embedder"`
	Documents map[string]string `json:"documents"`

	path string
}

// LoadManifest reads the manifest next to the index, creating an empty
// one bound to embedder if none exists yet.
func LoadManifest(dir, embedder string) (*Manifest, error) {
	path := filepath.Join(dir, manifestFile)
	m := &Manifest{
		Embedder:  embedder,
		Documents: make(map[string]string),
		path:      path,
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, err
	}
	m.path = path
	if m.Documents == nil {
		m.Documents = make(map[string]string)
	}
	if m.Embedder != embedder {
		return nil, models.ErrEmbedderMismatch
	}
	return m, nil
}

// Save writes the manifest back to disk.
func (m *Manifest) Save() error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.path, data, 0o644)
}

// Changed reports whether source needs (re-)ingestion.
func (m *Manifest) Changed(source, hash string) bool {
	return m.Documents[source] != hash
}

// Record marks source as ingested at the given content hash.
func (m *Manifest) Record(source, hash string) {
	m.Documents[source] = hash
}

// Sources lists every recorded document, sorted.
func (m *Manifest) Sources() []string {
	sources := make([]string, 0, len(m.Documents))
	for source := range m.Documents {
		sources = append(sources, source)
	}
	sort.Strings(sources)
	return sources
}

// Forget drops source from the manifest, e.g. after its chunks were
// removed from the index.
func (m *Manifest) Forget(source string) {
	delete(m.Documents, source)
}

// VerifyEmbedder checks that the persisted index at dir was built with
// the given embedding function. It must pass before any store is
// opened for serving, not just at ingestion time: querying an index in
// a different embedding space silently corrupts similarity scores.
func VerifyEmbedder(dir, embedder string) error {
	_, err := LoadManifest(dir, embedder)
	return err
}

// HashFile returns the content hash used for change tracking.
func HashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
