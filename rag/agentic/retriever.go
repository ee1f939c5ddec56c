package agentic

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	kgperrors "github.com/sweetpotato0/kgpgpt/errors"
	"github.com/sweetpotato0/kgpgpt/pkg/logging"
	"github.com/sweetpotato0/kgpgpt/vector"
)

// DefaultTopK is how many passages a retrieval returns.
const DefaultTopK = 5

// DefaultRetrievalTimeout bounds the embed and search calls of one retrieval
// so a stalled backend leaves time for the web fallback.
const DefaultRetrievalTimeout = 8 * time.Second

// Retriever embeds a query and searches the knowledge-base index.
type Retriever struct {
	embedder vector.Embedder
	index    vector.Index
	topK     int
	timeout  time.Duration
	logger   *slog.Logger
}

// RetrieverOption configures a Retriever.
type RetrieverOption func(*Retriever)

// WithTopK overrides how many passages are requested from the index.
func WithTopK(k int) RetrieverOption {
	return func(r *Retriever) {
		if k > 0 {
			r.topK = k
		}
	}
}

// WithRetrievalTimeout overrides DefaultRetrievalTimeout.
func WithRetrievalTimeout(d time.Duration) RetrieverOption {
	return func(r *Retriever) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithRetrieverLogger overrides the component logger.
func WithRetrieverLogger(logger *slog.Logger) RetrieverOption {
	return func(r *Retriever) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRetriever creates a retriever over index using embedder for queries.
func NewRetriever(embedder vector.Embedder, index vector.Index, opts ...RetrieverOption) (*Retriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", kgperrors.ErrInvalidInput)
	}
	if index == nil {
		return nil, fmt.Errorf("%w: vector index is required", kgperrors.ErrInvalidInput)
	}
	r := &Retriever{
		embedder: embedder,
		index:    index,
		topK:     DefaultTopK,
		timeout:  DefaultRetrievalTimeout,
		logger:   logging.WithComponent("retriever"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Retrieve returns the top passages for query in backend order. Every failure,
// including running past the retrieval timeout, wraps ErrRetrieval.
func (r *Retriever) Retrieve(ctx context.Context, query string) (*RetrievalResult, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %w", kgperrors.ErrRetrieval, err)
	}
	hits, err := r.index.Search(ctx, embedding, r.topK)
	if err != nil {
		return nil, fmt.Errorf("%w: vector search: %w", kgperrors.ErrRetrieval, err)
	}

	docs := make([]RetrievedDocument, 0, len(hits))
	for _, hit := range hits {
		docs = append(docs, RetrievedDocument{
			ID:       hit.ID,
			Content:  vector.PayloadString(hit.Payload, vector.PayloadContent, ""),
			Metadata: vector.PayloadMap(hit.Payload, vector.PayloadMetadata),
			Score:    hit.Score,
			Source:   vector.PayloadString(hit.Payload, vector.PayloadSource, "unknown"),
		})
	}

	elapsed := time.Since(start)
	r.logger.Debug("retrieval finished", "query", logging.Trim(query, 120), "documents", len(docs), "elapsed", elapsed)
	return &RetrievalResult{
		Documents:  docs,
		TotalFound: len(docs),
		Query:      query,
		SearchTime: elapsed,
	}, nil
}

// Ready reports whether the collection is searchable. Backend errors read as
// not ready.
func (r *Retriever) Ready(ctx context.Context) bool {
	status, err := r.index.Status(ctx)
	if err != nil {
		r.logger.Warn("collection status check failed", "error", err)
		return false
	}
	return status == vector.StatusReady
}
