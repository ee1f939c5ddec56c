// Package vector defines the knowledge-base index contracts: embedding
// models, similarity search and collection maintenance.
package vector

import (
	"context"
	"fmt"
	"math"
)

// StatusReady is the collection status reported by a searchable index.
const StatusReady = "green"

// Embedder defines the interface for creating embeddings from text
type Embedder interface {
	// Embed converts text to a vector embedding
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch converts multiple texts to embeddings
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension return number of embedding dimensions
	Dimension() int
}

// Hit is one raw search match. Payload is passed through uninterpreted
// except for the documented content, metadata and source keys.
type Hit struct {
	ID      string
	Score   float64
	Payload map[string]any
}

// Point is one vector with its payload, as written by the indexer.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// Index is the read side used at query time.
type Index interface {
	// Search returns up to limit hits ranked by descending score.
	Search(ctx context.Context, query []float32, limit int) ([]Hit, error)

	// Status reports the collection status; StatusReady means searchable.
	Status(ctx context.Context) (string, error)
}

// Writer is the write side used by ingestion.
type Writer interface {
	// EnsureCollection creates the collection with cosine distance when it
	// does not exist yet.
	EnsureCollection(ctx context.Context, dimension int) error

	// Upsert inserts or replaces points by ID.
	Upsert(ctx context.Context, points []Point) error
}

// Store is an index that can also be written.
type Store interface {
	Index
	Writer
}

// Payload keys written by the indexer and read by the retriever.
const (
	PayloadContent     = "content"
	PayloadMetadata    = "metadata"
	PayloadSource      = "source"
	PayloadTitle       = "title"
	PayloadChunkIndex  = "chunkIndex"
	PayloadTotalChunks = "totalChunks"
	PayloadTimestamp   = "timestamp"
)

// PayloadString reads a string payload field, or def when absent or blank.
func PayloadString(payload map[string]any, key, def string) string {
	if v, ok := payload[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return def
}

// PayloadMap reads a nested object payload field. It never returns nil.
func PayloadMap(payload map[string]any, key string) map[string]any {
	if v, ok := payload[key].(map[string]any); ok && v != nil {
		return v
	}
	return map[string]any{}
}

// CheckDimension fails when vec does not have the expected length.
func CheckDimension(vec []float32, want int) error {
	if want > 0 && len(vec) != want {
		return fmt.Errorf("vector dimension %d does not match %d", len(vec), want)
	}
	return nil
}

// CosineSimilarity calculates the cosine similarity between two vectors
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Normalize scales the vector to unit length (L2 norm).
func Normalize(vec []float32) []float32 {
	if len(vec) == 0 {
		return vec
	}
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range vec {
		vec[i] *= inv
	}
	return vec
}
