// Package qdrant talks to a Qdrant collection over its REST API.
package qdrant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/sweetpotato0/kgpgpt/vector"
)

// Config holds the Qdrant endpoint and collection.
type Config struct {
	URL        string
	Collection string
	APIKey     string
	Timeout    time.Duration
	// Retries is how many times a transient failure is retried.
	Retries uint64
}

// DefaultConfig returns the local development settings.
func DefaultConfig() Config {
	return Config{
		URL:        "http://localhost:6333",
		Collection: "kgp_knowledge_base",
		Timeout:    10 * time.Second,
		Retries:    2,
	}
}

// Client implements vector.Store against one Qdrant collection.
type Client struct {
	http       *resty.Client
	collection string
	retries    uint64
}

// New creates a client. No request is made until first use.
func New(cfg Config) *Client {
	def := DefaultConfig()
	if cfg.URL == "" {
		cfg.URL = def.URL
	}
	if cfg.Collection == "" {
		cfg.Collection = def.Collection
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.URL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("api-key", cfg.APIKey)
	}

	return &Client{http: client, collection: cfg.Collection, retries: cfg.Retries}
}

type searchRequest struct {
	Vector      []float32 `json:"vector"`
	Limit       int       `json:"limit"`
	WithPayload bool      `json:"with_payload"`
	WithVector  bool      `json:"with_vector"`
}

type scoredPoint struct {
	ID      any            `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload"`
}

type searchResponse struct {
	Result []scoredPoint `json:"result"`
	Status any           `json:"status"`
	Time   float64       `json:"time"`
}

type collectionResponse struct {
	Result struct {
		Status string `json:"status"`
	} `json:"result"`
}

type createCollectionRequest struct {
	Vectors struct {
		Size     int    `json:"size"`
		Distance string `json:"distance"`
	} `json:"vectors"`
}

type upsertPoint struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

type upsertRequest struct {
	Points []upsertPoint `json:"points"`
}

type errorResponse struct {
	Status struct {
		Error string `json:"error"`
	} `json:"status"`
}

// Search runs a top-K similarity search, requesting payloads but not vectors.
func (c *Client) Search(ctx context.Context, query []float32, limit int) ([]vector.Hit, error) {
	var out searchResponse
	err := c.do(ctx, func(ctx context.Context) (*resty.Response, error) {
		return c.http.R().
			SetContext(ctx).
			SetBody(searchRequest{Vector: query, Limit: limit, WithPayload: true}).
			SetResult(&out).
			SetError(&errorResponse{}).
			Post(c.path("/points/search"))
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}

	hits := make([]vector.Hit, 0, len(out.Result))
	for _, p := range out.Result {
		payload := p.Payload
		if payload == nil {
			payload = map[string]any{}
		}
		hits = append(hits, vector.Hit{ID: fmt.Sprint(p.ID), Score: p.Score, Payload: payload})
	}
	return hits, nil
}

// Status returns the collection status, "green" when searchable.
func (c *Client) Status(ctx context.Context) (string, error) {
	var out collectionResponse
	err := c.do(ctx, func(ctx context.Context) (*resty.Response, error) {
		return c.http.R().
			SetContext(ctx).
			SetResult(&out).
			SetError(&errorResponse{}).
			Get(c.path(""))
	})
	if err != nil {
		return "", fmt.Errorf("qdrant collection info: %w", err)
	}
	return out.Result.Status, nil
}

// EnsureCollection creates the collection with cosine distance unless it
// already exists.
func (c *Client) EnsureCollection(ctx context.Context, dimension int) error {
	resp, err := c.http.R().SetContext(ctx).Get(c.path(""))
	if err != nil {
		return fmt.Errorf("qdrant collection info: %w", err)
	}
	if resp.StatusCode() == http.StatusOK {
		return nil
	}
	if resp.StatusCode() != http.StatusNotFound {
		return fmt.Errorf("qdrant collection info: unexpected status %d", resp.StatusCode())
	}

	var body createCollectionRequest
	body.Vectors.Size = dimension
	body.Vectors.Distance = "Cosine"
	err = c.do(ctx, func(ctx context.Context) (*resty.Response, error) {
		return c.http.R().
			SetContext(ctx).
			SetBody(body).
			SetError(&errorResponse{}).
			Put(c.path(""))
	})
	if err != nil {
		return fmt.Errorf("qdrant create collection: %w", err)
	}
	return nil
}

// Upsert writes points. Qdrant only accepts UUID or integer IDs, so other
// IDs are mapped to a stable name-based UUID and kept in the payload.
func (c *Client) Upsert(ctx context.Context, points []vector.Point) error {
	if len(points) == 0 {
		return nil
	}
	body := upsertRequest{Points: make([]upsertPoint, 0, len(points))}
	for _, p := range points {
		payload := make(map[string]any, len(p.Payload)+1)
		for k, v := range p.Payload {
			payload[k] = v
		}
		payload["pointId"] = p.ID
		body.Points = append(body.Points, upsertPoint{ID: PointID(p.ID), Vector: p.Vector, Payload: payload})
	}

	err := c.do(ctx, func(ctx context.Context) (*resty.Response, error) {
		return c.http.R().
			SetContext(ctx).
			SetQueryParam("wait", "true").
			SetBody(body).
			SetError(&errorResponse{}).
			Put(c.path("/points"))
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert: %w", err)
	}
	return nil
}

// PointID converts an arbitrary string ID into a Qdrant-compatible UUID.
func PointID(id string) string {
	if _, err := uuid.Parse(id); err == nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("kgpgpt:"+id)).String()
}

func (c *Client) path(suffix string) string {
	return "/collections/" + c.collection + suffix
}

// do runs call with exponential backoff. Only transport errors and 5xx/429
// responses are retried.
func (c *Client) do(ctx context.Context, call func(context.Context) (*resty.Response, error)) error {
	backoff := retry.WithMaxRetries(c.retries, retry.NewExponential(100*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, err := call(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return retry.RetryableError(err)
		}
		if !resp.IsError() {
			return nil
		}
		statusErr := fmt.Errorf("status %d: %s", resp.StatusCode(), describe(resp))
		if resp.StatusCode() >= 500 || resp.StatusCode() == http.StatusTooManyRequests {
			return retry.RetryableError(statusErr)
		}
		return statusErr
	})
}

func describe(resp *resty.Response) string {
	if e, ok := resp.Error().(*errorResponse); ok && e.Status.Error != "" {
		return e.Status.Error
	}
	body := resp.String()
	if len(body) > 200 {
		body = body[:200]
	}
	return body
}
