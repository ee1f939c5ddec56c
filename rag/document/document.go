// Package document holds the knowledge-base source and chunk types used by
// ingestion.
package document

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Document represents a knowledge source that can be chunked and indexed.
type Document struct {
	ID       string         `json:"id"`
	Title    string         `json:"title,omitempty"`
	Source   string         `json:"source"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Chunk represents a slice of a document that is indexed into a vector store.
type Chunk struct {
	ID         string         `json:"id"`
	DocumentID string         `json:"document_id"`
	Content    string         `json:"content"`
	Index      int            `json:"index"`
	Total      int            `json:"total"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// FromFile builds a document for a file under root. The ID is the slash
// separated path relative to root, so re-ingesting a directory replaces the
// previous chunks instead of duplicating them.
func FromFile(root, path, content string) Document {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)
	name := filepath.Base(path)
	return Document{
		ID:      rel,
		Title:   strings.TrimSuffix(name, filepath.Ext(name)),
		Source:  name,
		Content: content,
		Metadata: map[string]any{
			"path":   rel,
			"format": strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), "."),
		},
	}
}

// ChunkID derives a stable chunk identifier from the document ID.
func ChunkID(docID string, index int) string {
	return fmt.Sprintf("%s#%d", docID, index)
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	out := d
	out.Metadata = cloneMap(d.Metadata)
	return out
}

// Clone returns a deep copy of the chunk.
func (c Chunk) Clone() Chunk {
	out := c
	out.Metadata = cloneMap(c.Metadata)
	return out
}

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
