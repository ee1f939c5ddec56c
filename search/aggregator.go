package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	kgperrors "github.com/sweetpotato0/kgpgpt/errors"
	"github.com/sweetpotato0/kgpgpt/message"
	"github.com/sweetpotato0/kgpgpt/pkg/logging"
	"github.com/sweetpotato0/kgpgpt/pkg/metrics"
)

// Key status values reported by Aggregator.ProviderStatus.
const (
	StatusMissing = "missing"
	StatusLimited = "limited"
	StatusPresent = "present"
)

const (
	defaultMaxResults      = 10
	defaultProviderTimeout = 8 * time.Second
	staffThreshold         = 3
	careerThreshold        = 2
)

var staffSites = []string{
	"som.iitkgp.ac.in",
	"cdc.iitkgp.ac.in",
	"library.iitkgp.ac.in",
	"erp.iitkgp.ac.in",
	"gymkhana.iitkgp.ac.in",
	"metakgp.org",
	"gateoffice.iitkgp.ac.in",
}

// Aggregator fans a query out to every enabled provider, merges the answers
// and ranks them. Provider failures are logged and dropped; the aggregator
// itself only fails when its context is done before it starts.
type Aggregator struct {
	providers  []Provider
	timeout    time.Duration
	maxResults int
	logger     *slog.Logger
	metrics    *metrics.Recorder
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithProviderTimeout bounds each individual provider call.
func WithProviderTimeout(d time.Duration) AggregatorOption {
	return func(a *Aggregator) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithMaxResults caps the ranked results returned per query.
func WithMaxResults(n int) AggregatorOption {
	return func(a *Aggregator) {
		if n > 0 {
			a.maxResults = n
		}
	}
}

// WithLogger overrides the component logger.
func WithLogger(logger *slog.Logger) AggregatorOption {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithMetrics reports provider failures to rec.
func WithMetrics(rec *metrics.Recorder) AggregatorOption {
	return func(a *Aggregator) {
		a.metrics = rec
	}
}

// NewAggregator creates an aggregator over providers. Registry order matters:
// it is the tie-break order of equally ranked results, and the first enabled
// serper or bing provider serves the site-restricted tiers.
func NewAggregator(providers []Provider, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		providers:  providers,
		timeout:    defaultProviderTimeout,
		maxResults: defaultMaxResults,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = logging.WithComponent("web_search")
	}
	return a
}

// EnabledEngines lists the names of providers with credentials.
func (a *Aggregator) EnabledEngines() []string {
	var names []string
	for _, p := range a.enabled() {
		names = append(names, p.Name())
	}
	return names
}

// ProviderStatus summarises credential availability.
func (a *Aggregator) ProviderStatus() string {
	engines := a.EnabledEngines()
	switch {
	case len(engines) == 0:
		return StatusMissing
	case len(engines) == 1 && engines[0] == EngineDuckDuckGo:
		return StatusLimited
	default:
		return StatusPresent
	}
}

// Search enhances query with the conversation history, runs the matching
// tier and returns the top ranked results. An empty result set is a valid
// answer when every provider failed.
func (a *Aggregator) Search(ctx context.Context, query string, history []message.Message) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	enhanced := EnhanceQuery(query, history)
	if enhanced != query {
		a.logger.Debug("query enhanced", "query", logging.Trim(query, 120), "enhanced", logging.Trim(enhanced, 120))
	}

	var collected []Result
	switch {
	case IsStaffQuery(enhanced):
		collected = a.tiered(ctx, "staff", enhanced, a.searchStaffSites, staffThreshold)
	case IsCareerQuery(enhanced):
		collected = a.tiered(ctx, "career", enhanced, a.searchCareerSites, careerThreshold)
	default:
		collected = a.searchAll(ctx, enhanced)
	}

	ranked := MergeAndRank(collected)
	resp := &Response{
		Results:    ranked,
		TotalFound: len(ranked),
		Query:      query,
		SearchTime: time.Since(start),
	}
	if len(resp.Results) > a.maxResults {
		resp.Results = resp.Results[:a.maxResults]
	}
	a.logger.Info("web search finished",
		"results", len(resp.Results),
		"total", resp.TotalFound,
		"elapsed", resp.SearchTime,
	)
	return resp, nil
}

// tiered runs a site-restricted search first and widens to every provider
// when it returns fewer than threshold hits.
func (a *Aggregator) tiered(ctx context.Context, tier, query string, sites func(context.Context, Provider, string) []Result, threshold int) []Result {
	var local []Result
	if primary := a.primary(); primary != nil {
		local = sites(ctx, primary, query)
	} else {
		a.logger.Debug("no primary engine for site search", "tier", tier)
	}
	if len(local) >= threshold {
		a.logger.Debug("site search sufficient", "tier", tier, "results", len(local))
		return local
	}
	a.logger.Debug("site search widened", "tier", tier, "results", len(local))
	return append(local, a.searchAll(ctx, query)...)
}

func (a *Aggregator) searchStaffSites(ctx context.Context, p Provider, query string) []Result {
	out, _ := a.call(ctx, p, query+" site:"+officialDomain)

	calls := make([]func(context.Context) ([]Result, error), len(staffSites))
	for i, site := range staffSites {
		q := query + " site:" + site
		calls[i] = func(ctx context.Context) ([]Result, error) { return a.call(ctx, p, q) }
	}
	for _, batch := range a.settle(ctx, calls) {
		out = append(out, batch...)
	}
	return out
}

func (a *Aggregator) searchCareerSites(ctx context.Context, p Provider, query string) []Result {
	queries := []string{
		query + " site:" + careerDomain,
		query + " cdc placement site:" + officialDomain,
		query + " cdc placement site:metakgp.org",
	}
	var out []Result
	for _, q := range queries {
		if ctx.Err() != nil {
			break
		}
		res, _ := a.call(ctx, p, q)
		out = append(out, res...)
	}
	return out
}

// searchAll queries every enabled provider concurrently and concatenates the
// answers in registry order.
func (a *Aggregator) searchAll(ctx context.Context, query string) []Result {
	providers := a.enabled()
	if len(providers) == 0 {
		a.logger.Warn("no web search provider enabled")
		return nil
	}
	calls := make([]func(context.Context) ([]Result, error), len(providers))
	for i, p := range providers {
		calls[i] = func(ctx context.Context) ([]Result, error) { return a.call(ctx, p, query) }
	}

	batches := a.settle(ctx, calls)
	var out []Result
	succeeded := 0
	for _, batch := range batches {
		if batch != nil {
			succeeded++
		}
		out = append(out, batch...)
	}
	if succeeded == 0 {
		a.logger.Warn("web search degraded", "error", kgperrors.ErrSearchAggregate, "providers", len(providers))
	}
	return out
}

type outcome struct {
	index   int
	results []Result
}

// settle runs calls concurrently and waits for all of them or for ctx. Slot i
// holds the results of call i; a failed or abandoned call leaves it nil.
// Late answers from calls that ignored cancellation are discarded.
func (a *Aggregator) settle(ctx context.Context, calls []func(context.Context) ([]Result, error)) [][]Result {
	out := make([][]Result, len(calls))
	done := make(chan outcome, len(calls))
	for i, call := range calls {
		go func() {
			res, err := call(ctx)
			if err != nil {
				done <- outcome{index: i}
				return
			}
			if res == nil {
				res = []Result{}
			}
			done <- outcome{index: i, results: res}
		}()
	}
	for range calls {
		select {
		case o := <-done:
			out[o.index] = o.results
		case <-ctx.Done():
			a.logger.Warn("web search abandoned pending providers", "error", ctx.Err())
			return out
		}
	}
	return out
}

// call runs one provider under its own timeout and converts panics and
// errors into a logged ErrSearchProvider.
func (a *Aggregator) call(ctx context.Context, p Provider, query string) (res []Result, err error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			err = fmt.Errorf("%w: %s: %w", kgperrors.ErrSearchProvider, p.Name(), err)
			a.logger.Warn("search provider failed", "engine", p.Name(), "error", err)
			a.metrics.ProviderFailed(p.Name())
			res = nil
		}
	}()
	return p.Search(ctx, query)
}

func (a *Aggregator) enabled() []Provider {
	var out []Provider
	for _, p := range a.providers {
		if p != nil && p.Enabled() {
			out = append(out, p)
		}
	}
	return out
}

func (a *Aggregator) primary() Provider {
	for _, p := range a.enabled() {
		if name := p.Name(); name == EngineSerper || name == EngineBing {
			return p
		}
	}
	return nil
}
