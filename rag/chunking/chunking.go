package chunking

import (
	"context"
	"strings"

	"github.com/sweetpotato0/kgpgpt/rag/document"
)

// Defaults used when indexing the knowledge base.
const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 200
)

// Chunker splits documents into chunks that can be embedded and indexed.
type Chunker interface {
	Chunk(ctx context.Context, doc document.Document) ([]document.Chunk, error)
}

type Options struct {
	ChunkSize   int
	Overlap     int
	IncludeMeta bool
}

// SlidingChunker cuts documents into overlapping character windows. A window
// ends at the last sentence boundary past its midpoint when there is one.
type SlidingChunker struct {
	size    int
	overlap int
	addMeta bool
}

// Option customizes the chunker.
type Option func(*Options)

// WithChunkSize overrides the default chunk size (characters).
func WithChunkSize(size int) Option {
	return func(o *Options) {
		if size > 0 {
			o.ChunkSize = size
		}
	}
}

// WithOverlap configures overlap (characters) between consecutive chunks.
func WithOverlap(overlap int) Option {
	return func(o *Options) {
		if overlap >= 0 {
			o.Overlap = overlap
		}
	}
}

// WithMetadataCopy toggles whether document metadata should be copied to chunks.
func WithMetadataCopy(enabled bool) Option {
	return func(o *Options) {
		o.IncludeMeta = enabled
	}
}

// NewSlidingChunker constructs a chunker with 1000/200 windows.
func NewSlidingChunker(opts ...Option) *SlidingChunker {
	cfg := &Options{
		ChunkSize:   DefaultChunkSize,
		Overlap:     DefaultOverlap,
		IncludeMeta: true,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Overlap >= cfg.ChunkSize {
		cfg.Overlap = cfg.ChunkSize / 5
	}
	return &SlidingChunker{
		size:    cfg.ChunkSize,
		overlap: cfg.Overlap,
		addMeta: cfg.IncludeMeta,
	}
}

// Chunk splits the document into bounded, overlapping pieces. Blank
// documents produce no chunks.
func (c *SlidingChunker) Chunk(ctx context.Context, doc document.Document) ([]document.Chunk, error) {
	text := []rune(strings.TrimSpace(doc.Content))
	var pieces []string

	for start := 0; start < len(text); {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := start + c.size
		if end >= len(text) {
			end = len(text)
		} else if cut := sentenceEnd(text, start+c.size/2, end); cut > 0 {
			end = cut
		}
		if piece := strings.TrimSpace(string(text[start:end])); piece != "" {
			pieces = append(pieces, piece)
		}
		if end == len(text) {
			break
		}
		next := end - c.overlap
		if next <= start {
			next = end
		}
		start = next
	}

	chunks := make([]document.Chunk, 0, len(pieces))
	for i, piece := range pieces {
		chunks = append(chunks, c.newChunk(doc, i, len(pieces), piece))
	}
	return chunks, nil
}

// sentenceEnd returns the index just past the last sentence terminator in
// text[from:to], or -1.
func sentenceEnd(text []rune, from, to int) int {
	for i := to - 1; i >= from; i-- {
		switch text[i] {
		case '\n':
			return i + 1
		case '.', '!', '?':
			if i+1 == len(text) || text[i+1] == ' ' || text[i+1] == '\n' {
				return i + 1
			}
		}
	}
	return -1
}

func (c *SlidingChunker) newChunk(doc document.Document, index, total int, content string) document.Chunk {
	chunk := document.Chunk{
		ID:         document.ChunkID(doc.ID, index),
		DocumentID: doc.ID,
		Content:    content,
		Index:      index,
		Total:      total,
	}
	if c.addMeta && doc.Metadata != nil {
		chunk.Metadata = make(map[string]any, len(doc.Metadata))
		for k, v := range doc.Metadata {
			chunk.Metadata[k] = v
		}
	}
	return chunk
}
