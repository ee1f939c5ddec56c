// Package gemini embeds text with Google's Gemini embedding models.
package gemini

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/sweetpotato0/kgpgpt/vector"
)

// maxBatch is the largest batch the embedding endpoint accepts.
const maxBatch = 100

// Embedder implements vector.Embedder. Single texts are embedded as search
// queries, batches as knowledge-base documents.
type Embedder struct {
	client    *genai.Client
	query     *genai.EmbeddingModel
	document  *genai.EmbeddingModel
	dimension int
}

var _ vector.Embedder = (*Embedder)(nil)

// New creates an embedder for model, e.g. text-embedding-004.
func New(ctx context.Context, apiKey, model string, dimension int) (*Embedder, error) {
	if model == "" {
		model = "text-embedding-004"
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Embedder{
		client:    client,
		query:     embeddingModel(client, model, genai.TaskTypeRetrievalQuery),
		document:  embeddingModel(client, model, genai.TaskTypeRetrievalDocument),
		dimension: dimension,
	}, nil
}

func embeddingModel(client *genai.Client, name string, task genai.TaskType) *genai.EmbeddingModel {
	em := client.EmbeddingModel(name)
	em.TaskType = task
	return em
}

// Dimension return number of embedding dimensions
func (e *Embedder) Dimension() int {
	return e.dimension
}

// Embed converts a query to a vector embedding
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	res, err := e.query.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}
	if res.Embedding == nil {
		return nil, fmt.Errorf("no embedding returned")
	}
	return fit(res.Embedding.Values, e.dimension), nil
}

// EmbedBatch converts texts in chunks of at most 100 per request.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatch {
		end := min(start+maxBatch, len(texts))
		batch := e.document.NewBatch()
		for _, t := range texts[start:end] {
			batch.AddContent(genai.Text(t))
		}
		res, err := e.document.BatchEmbedContents(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("batch embed contents: %w", err)
		}
		if len(res.Embeddings) != end-start {
			return nil, fmt.Errorf("expected %d embeddings, got %d", end-start, len(res.Embeddings))
		}
		for _, emb := range res.Embeddings {
			out = append(out, fit(emb.Values, e.dimension))
		}
	}
	return out, nil
}

// Close releases the underlying client.
func (e *Embedder) Close() error {
	return e.client.Close()
}

func fit(values []float32, expected int) []float32 {
	if expected <= 0 || len(values) == expected {
		return values
	}
	vec := make([]float32, expected)
	copy(vec, values)
	return vec
}
