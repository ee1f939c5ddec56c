// Package indexer loads knowledge-base files into a vector collection.
package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/sweetpotato0/kgpgpt/pkg/logging"
	"github.com/sweetpotato0/kgpgpt/pkg/telemetry"
	"github.com/sweetpotato0/kgpgpt/rag/chunking"
	"github.com/sweetpotato0/kgpgpt/rag/document"
	"github.com/sweetpotato0/kgpgpt/rag/preprocess"
	"github.com/sweetpotato0/kgpgpt/vector"
)

const (
	DefaultBatchSize   = 100
	DefaultConcurrency = 4
)

// Stats summarises one ingestion run.
type Stats struct {
	Files   int `json:"files"`
	Skipped int `json:"skipped"`
	Chunks  int `json:"chunks"`
}

// Indexer chunks documents, embeds the chunks in batches and upserts them.
type Indexer struct {
	store       vector.Writer
	embedder    vector.Embedder
	chunker     chunking.Chunker
	byFormat    map[string]chunking.Chunker
	batchSize   int
	concurrency int
	logger      *slog.Logger
	now         func() time.Time
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithChunker replaces the default 1000/200 sliding chunker.
func WithChunker(c chunking.Chunker) Option {
	return func(ix *Indexer) {
		if c != nil {
			ix.chunker = c
		}
	}
}

// WithFormatChunker uses c for documents of the given format ("md", "html").
func WithFormatChunker(format string, c chunking.Chunker) Option {
	return func(ix *Indexer) {
		if c != nil {
			ix.byFormat[strings.ToLower(format)] = c
		}
	}
}

// WithBatchSize sets how many chunks are embedded and upserted per call.
func WithBatchSize(n int) Option {
	return func(ix *Indexer) {
		if n > 0 {
			ix.batchSize = n
		}
	}
}

// WithConcurrency bounds the number of batches in flight.
func WithConcurrency(n int) Option {
	return func(ix *Indexer) {
		if n > 0 {
			ix.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(ix *Indexer) {
		if l != nil {
			ix.logger = l
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(ix *Indexer) {
		if now != nil {
			ix.now = now
		}
	}
}

// New creates an indexer writing to store.
func New(store vector.Writer, emb vector.Embedder, opts ...Option) *Indexer {
	ix := &Indexer{
		store:       store,
		embedder:    emb,
		chunker:     chunking.NewSlidingChunker(),
		byFormat:    make(map[string]chunking.Chunker),
		batchSize:   DefaultBatchSize,
		concurrency: DefaultConcurrency,
		logger:      logging.WithComponent("indexer"),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Supported reports whether the file extension can be ingested.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".html", ".htm":
		return true
	}
	return false
}

// LoadFile reads and cleans one file. HTML is reduced to text first.
func LoadFile(root, path string) (document.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return document.Document{}, err
	}
	text := string(raw)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		if text, err = preprocess.HTMLToText(text); err != nil {
			return document.Document{}, fmt.Errorf("parse html %s: %w", path, err)
		}
	}
	return document.FromFile(root, path, preprocess.Preprocess(text)), nil
}

// IndexDir ingests every supported file under dir. Unreadable or empty files
// are skipped and logged. Files are visited in lexical order.
func (ix *Indexer) IndexDir(ctx context.Context, dir string) (Stats, error) {
	var stats Stats
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !Supported(path) {
			stats.Skipped++
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(paths)

	docs := make([]document.Document, 0, len(paths))
	for _, path := range paths {
		doc, err := LoadFile(dir, path)
		if err != nil {
			ix.logger.Warn("skipping unreadable file", "path", path, "error", err)
			stats.Skipped++
			continue
		}
		if strings.TrimSpace(doc.Content) == "" {
			ix.logger.Warn("skipping empty file", "path", path)
			stats.Skipped++
			continue
		}
		docs = append(docs, doc)
	}

	n, err := ix.IndexDocuments(ctx, docs...)
	stats.Files = len(docs)
	stats.Chunks = n
	return stats, err
}

// IndexDocuments chunks, embeds and upserts docs, creating the collection when
// it is missing. It returns the number of chunks written.
func (ix *Indexer) IndexDocuments(ctx context.Context, docs ...document.Document) (n int, err error) {
	if ix.store == nil || ix.embedder == nil {
		return 0, fmt.Errorf("indexer not fully configured")
	}
	ctx, span := telemetry.StartStage(ctx, "ingest", attribute.Int("documents", len(docs)))
	defer func() { telemetry.End(span, err) }()

	if err := ix.store.EnsureCollection(ctx, ix.embedder.Dimension()); err != nil {
		return 0, fmt.Errorf("ensure collection: %w", err)
	}

	var chunks []document.Chunk
	for _, doc := range docs {
		cs, err := ix.chunkerFor(doc).Chunk(ctx, doc)
		if err != nil {
			return 0, fmt.Errorf("chunk document %s: %w", doc.ID, err)
		}
		ix.logger.Debug("document chunked", "document", doc.ID, "chunks", len(cs))
		for i := range cs {
			if cs[i].Metadata == nil {
				cs[i].Metadata = map[string]any{}
			}
			cs[i].Metadata["title"] = doc.Title
			cs[i].Metadata["source"] = doc.Source
		}
		chunks = append(chunks, cs...)
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	stamp := ix.now().UTC().Format(time.RFC3339)
	batches := (len(chunks) + ix.batchSize - 1) / ix.batchSize

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.concurrency)
	for b := 0; b < batches; b++ {
		lo := b * ix.batchSize
		hi := min(lo+ix.batchSize, len(chunks))
		batch := chunks[lo:hi]
		g.Go(func() error {
			if err := ix.writeBatch(gctx, batch, stamp); err != nil {
				return fmt.Errorf("batch %d/%d: %w", b+1, batches, err)
			}
			ix.logger.Info("batch indexed", "batch", b+1, "batches", batches, "chunks", len(batch))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

func (ix *Indexer) chunkerFor(doc document.Document) chunking.Chunker {
	if format, ok := doc.Metadata["format"].(string); ok {
		if c, ok := ix.byFormat[format]; ok {
			return c
		}
	}
	return ix.chunker
}

func (ix *Indexer) writeBatch(ctx context.Context, batch []document.Chunk, stamp string) error {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Content
	}
	vecs, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	if len(vecs) != len(batch) {
		return fmt.Errorf("embed: got %d vectors for %d chunks", len(vecs), len(batch))
	}

	points := make([]vector.Point, len(batch))
	for i, c := range batch {
		points[i] = vector.Point{
			ID:      c.ID,
			Vector:  vecs[i],
			Payload: Payload(c, stamp),
		}
	}
	return ix.store.Upsert(ctx, points)
}

// Payload renders the stored payload for a chunk. The retriever reads content,
// source and metadata back from it.
func Payload(c document.Chunk, stamp string) map[string]any {
	source, _ := c.Metadata["source"].(string)
	meta := make(map[string]any, len(c.Metadata)+1)
	for k, v := range c.Metadata {
		meta[k] = v
	}
	meta["documentId"] = c.DocumentID
	return map[string]any{
		vector.PayloadTitle:       fmt.Sprintf("%s - Chunk %d", source, c.Index+1),
		vector.PayloadContent:     c.Content,
		vector.PayloadSource:      source,
		vector.PayloadChunkIndex:  c.Index,
		vector.PayloadTotalChunks: c.Total,
		vector.PayloadTimestamp:   stamp,
		vector.PayloadMetadata:    meta,
	}
}
