package agentic

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/sweetpotato0/kgpgpt/message"
	"github.com/sweetpotato0/kgpgpt/search"
	"github.com/sweetpotato0/kgpgpt/vector"
)

type stubLLM struct {
	response string
	err      error
	prompts  []string
}

func (s *stubLLM) Generate(ctx context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubLLM) Model() string { return "stub-model" }

type stubEmbedder struct {
	err   error
	block bool
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.err != nil {
		return nil, s.err
	}
	return []float32{1, 0, 0}, nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		v, err := s.Embed(ctx, texts[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (s *stubEmbedder) Dimension() int { return 3 }

type stubIndex struct {
	hits      []vector.Hit
	err       error
	status    string
	statusErr error
	limit     int
}

func (s *stubIndex) Search(ctx context.Context, query []float32, limit int) ([]vector.Hit, error) {
	s.limit = limit
	if s.err != nil {
		return nil, s.err
	}
	return s.hits, nil
}

func (s *stubIndex) Status(ctx context.Context) (string, error) {
	return s.status, s.statusErr
}

type stubRetriever struct {
	result *RetrievalResult
	err    error
	ready  bool
	panics bool
	calls  atomic.Int32
}

func (s *stubRetriever) Retrieve(ctx context.Context, query string) (*RetrievalResult, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	if s.result == nil {
		return &RetrievalResult{Query: query}, nil
	}
	return s.result, nil
}

func (s *stubRetriever) Ready(ctx context.Context) bool {
	if s.panics {
		panic("status probe exploded")
	}
	return s.ready
}

type stubWeb struct {
	response *search.Response
	err      error
	status   string
	calls    atomic.Int32
}

func (s *stubWeb) Search(ctx context.Context, query string, history []message.Message) (*search.Response, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	if s.response == nil {
		return &search.Response{Query: query, Results: []search.Result{}}, nil
	}
	return s.response, nil
}

func (s *stubWeb) ProviderStatus() string { return s.status }

type stubGenerator struct {
	pingErr error
	inputs  []GenerateInput
}

func (s *stubGenerator) Generate(ctx context.Context, in GenerateInput) *SummarizedResponse {
	s.inputs = append(s.inputs, in)
	return &SummarizedResponse{
		Response:   "generated answer",
		Confidence: in.Reasoning.Context.Confidence,
		Sources:    evidenceSources(in.Reasoning.Context),
		Metadata:   GenerationMetadata{Model: "stub-model"},
	}
}

func (s *stubGenerator) Ping(ctx context.Context) error { return s.pingErr }

var errBackend = errors.New("backend unavailable")
