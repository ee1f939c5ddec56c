package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/sweetpotato0/kgpgpt/agent"
	"github.com/sweetpotato0/kgpgpt/config"
	"github.com/sweetpotato0/kgpgpt/contrib/embedder/gemini"
	"github.com/sweetpotato0/kgpgpt/contrib/embedder/openai"
	"github.com/sweetpotato0/kgpgpt/contrib/provider/claude"
	geminiprovider "github.com/sweetpotato0/kgpgpt/contrib/provider/gemini"
	openaiprovider "github.com/sweetpotato0/kgpgpt/contrib/provider/openai"
	"github.com/sweetpotato0/kgpgpt/contrib/search/bing"
	"github.com/sweetpotato0/kgpgpt/contrib/search/brightdata"
	"github.com/sweetpotato0/kgpgpt/contrib/search/duckduckgo"
	"github.com/sweetpotato0/kgpgpt/contrib/search/scholar"
	"github.com/sweetpotato0/kgpgpt/contrib/search/serper"
	"github.com/sweetpotato0/kgpgpt/contrib/search/tavily"
	"github.com/sweetpotato0/kgpgpt/contrib/tokenizer/tiktoken"
	"github.com/sweetpotato0/kgpgpt/contrib/vector/inmemory"
	"github.com/sweetpotato0/kgpgpt/contrib/vector/pg"
	"github.com/sweetpotato0/kgpgpt/contrib/vector/qdrant"
	"github.com/sweetpotato0/kgpgpt/conversation"
	"github.com/sweetpotato0/kgpgpt/middleware"
	"github.com/sweetpotato0/kgpgpt/middleware/enricher"
	"github.com/sweetpotato0/kgpgpt/middleware/errorhandler"
	"github.com/sweetpotato0/kgpgpt/middleware/limiter"
	"github.com/sweetpotato0/kgpgpt/middleware/logger"
	"github.com/sweetpotato0/kgpgpt/middleware/validator"
	"github.com/sweetpotato0/kgpgpt/pkg/logging"
	"github.com/sweetpotato0/kgpgpt/pkg/metrics"
	"github.com/sweetpotato0/kgpgpt/pkg/telemetry"
	"github.com/sweetpotato0/kgpgpt/rag/agentic"
	"github.com/sweetpotato0/kgpgpt/runner"
	"github.com/sweetpotato0/kgpgpt/search"
	"github.com/sweetpotato0/kgpgpt/vector"
)

// closers runs cleanup functions in reverse registration order.
type closers []func(context.Context) error

func (c *closers) add(fn func(context.Context) error) { *c = append(*c, fn) }

func (c *closers) addCloser(cl io.Closer) {
	c.add(func(context.Context) error { return cl.Close() })
}

func (c closers) close(ctx context.Context) error {
	var errs []error
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// app is the fully wired process.
type app struct {
	cfg          *config.Config
	logger       *slog.Logger
	metrics      *metrics.Recorder
	orchestrator *agentic.Orchestrator
	closers      closers
}

// newApp validates cfg and wires the pipeline. Callers must call close.
func newApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &app{
		cfg:     cfg,
		logger:  logging.WithComponent("main"),
		metrics: metrics.Default(),
	}
	defer func() {
		if err != nil {
			_ = a.close(context.Background())
		}
	}()

	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    "kgpgpt",
		ServiceVersion: version,
		Endpoint:       cfg.System.OTLPEndpoint,
		Disable:        cfg.System.DisableTracing,
	})
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	a.closers.add(shutdown)

	llm, err := newLLM(ctx, cfg, &a.closers)
	if err != nil {
		return nil, err
	}
	emb, err := newEmbedder(ctx, cfg, &a.closers)
	if err != nil {
		return nil, err
	}
	index, err := newVectorStore(ctx, cfg, &a.closers)
	if err != nil {
		return nil, err
	}

	retriever, err := agentic.NewRetriever(emb, index,
		agentic.WithTopK(cfg.System.MaxRetrievalResults),
		agentic.WithRetrievalTimeout(cfg.System.RetrievalTimeout),
	)
	if err != nil {
		return nil, err
	}
	web := search.NewAggregator(searchProviders(cfg),
		search.WithProviderTimeout(cfg.Search.ProviderTimeout),
		search.WithMetrics(a.metrics),
	)

	genOpts := []agentic.GeneratorOption{}
	if counter, err := tiktoken.New(cfg.ActiveModel()); err == nil {
		genOpts = append(genOpts, agentic.WithTokenCounter(counter))
	} else if counter, err := tiktoken.New("cl100k_base"); err == nil {
		genOpts = append(genOpts, agentic.WithTokenCounter(counter))
	}
	generator, err := agentic.NewGenerator(agent.New(
		agent.WithName("answer_generator"),
		agent.WithProvider(llm),
	), genOpts...)
	if err != nil {
		return nil, err
	}

	a.orchestrator, err = agentic.NewOrchestrator(retriever, web, generator,
		agentic.WithMetrics(a.metrics),
		agentic.WithRunner(runner.New(cfg.System.MaxConcurrentQueries)),
	)
	if err != nil {
		return nil, err
	}
	a.logger.Info("pipeline ready",
		"llm", cfg.LLM.Provider,
		"model", cfg.ActiveModel(),
		"vector_backend", cfg.Vector.Backend,
		"web_search", web.ProviderStatus(),
	)
	return a, nil
}

func (a *app) close(ctx context.Context) error {
	return a.closers.close(ctx)
}

// newChain builds the request middleware in execution order. store may be nil.
func newChain(cfg *config.Config, store conversation.Store) *middleware.Chain {
	chain := middleware.NewChain(
		logger.NewRequestLogger(logging.WithComponent("request")),
		errorhandler.NewErrorHandler(nil),
		limiter.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst),
		validator.NewInputValidator(validator.MaxQueryRunes),
	)
	if store != nil {
		chain.Add(enricher.NewContextEnricher(enricher.LoadHistory(store, enricher.DefaultHistoryTurns)))
	}
	return chain
}

func newLLM(ctx context.Context, cfg *config.Config, c *closers) (agent.LLMClient, error) {
	switch cfg.LLM.Provider {
	case "openai":
		pc := openaiprovider.DefaultConfig(cfg.LLM.OpenAIAPIKey)
		pc.BaseURL = cfg.LLM.OpenAIBaseURL
		pc.Model = cfg.LLM.OpenAIModel
		pc.MaxTokens = int64(cfg.LLM.MaxTokens)
		pc.Temperature = cfg.LLM.Temperature
		return openaiprovider.New(pc), nil
	case "claude":
		pc := claude.DefaultConfig(cfg.LLM.AnthropicAPIKey)
		pc.Model = cfg.LLM.AnthropicModel
		pc.MaxTokens = int64(cfg.LLM.MaxTokens)
		pc.Temperature = cfg.LLM.Temperature
		return claude.New(pc), nil
	case "gemini":
		pc := geminiprovider.DefaultConfig(cfg.LLM.GeminiAPIKey)
		pc.Model = cfg.LLM.GeminiModel
		pc.MaxTokens = int32(cfg.LLM.MaxTokens)
		pc.Temperature = float32(cfg.LLM.Temperature)
		p, err := geminiprovider.New(ctx, pc)
		if err != nil {
			return nil, err
		}
		c.addCloser(p)
		return p, nil
	}
	return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLM.Provider)
}

func newEmbedder(ctx context.Context, cfg *config.Config, c *closers) (vector.Embedder, error) {
	switch cfg.Embedder.Provider {
	case "openai":
		return openai.New(cfg.LLM.OpenAIAPIKey, cfg.LLM.OpenAIBaseURL, cfg.Embedder.OpenAIModel, cfg.Embedder.Dimension), nil
	case "gemini":
		e, err := gemini.New(ctx, cfg.LLM.GeminiAPIKey, cfg.Embedder.GeminiModel, cfg.Embedder.Dimension)
		if err != nil {
			return nil, err
		}
		c.addCloser(e)
		return e, nil
	}
	return nil, fmt.Errorf("unknown embedder %q", cfg.Embedder.Provider)
}

func newVectorStore(ctx context.Context, cfg *config.Config, c *closers) (vector.Store, error) {
	switch cfg.Vector.Backend {
	case "memory":
		return inmemory.New(), nil
	case "pgvector":
		p := cfg.Vector.Postgres
		s, err := pg.New(ctx, &pg.Config{
			Host:      p.Host,
			Port:      p.Port,
			User:      p.User,
			Password:  p.Password,
			DBName:    p.DBName,
			SSLMode:   p.SSLMode,
			TableName: cfg.Vector.Collection,
		})
		if err != nil {
			return nil, err
		}
		c.addCloser(s)
		return s, nil
	case "qdrant", "":
		qc := qdrant.DefaultConfig()
		qc.URL = cfg.Vector.QdrantURL
		qc.Collection = cfg.Vector.Collection
		return qdrant.New(qc), nil
	}
	return nil, fmt.Errorf("unknown vector backend %q", cfg.Vector.Backend)
}

// searchProviders lists every adapter in fan-out order. Adapters without
// credentials report themselves disabled and are skipped by the aggregator.
func searchProviders(cfg *config.Config) []search.Provider {
	s := cfg.Search
	return []search.Provider{
		serper.New(serper.Config{APIKey: s.SerperAPIKey, Timeout: s.ProviderTimeout}),
		bing.New(bing.Config{APIKey: s.BingAPIKey, Timeout: s.ProviderTimeout}),
		tavily.New(tavily.Config{APIKey: s.TavilyAPIKey, Timeout: s.ProviderTimeout}),
		scholar.New(scholar.Config{APIKey: s.SemanticScholarAPIKey, Timeout: s.ProviderTimeout}),
		brightdata.New(brightdata.Config{
			APIKey:   s.BrightDataAPIKey,
			Username: s.BrightDataUsername,
			Password: s.BrightDataPassword,
			Timeout:  s.ProviderTimeout,
		}),
		duckduckgo.New(duckduckgo.Config{Enabled: s.DuckDuckGoEnabled, Timeout: s.ProviderTimeout}),
	}
}
