// Package rest holds the resty plumbing shared by the web-search adapters.
package rest

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultTimeout applies when an adapter is configured without one.
const DefaultTimeout = 8 * time.Second

// NewClient returns a JSON client for baseURL. Responses are decoded as JSON
// whatever content type the server claims.
func NewClient(baseURL string, timeout time.Duration, headers map[string]string) *resty.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
			r.ForceContentType("application/json")
			return nil
		})
	for k, v := range headers {
		if v != "" {
			client.SetHeader(k, v)
		}
	}
	return client
}

// Check turns a transport error or a non-2xx response into an error naming
// the engine.
func Check(engine string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", engine, err)
	}
	if resp.IsError() {
		body := resp.String()
		if len(body) > 200 {
			body = body[:200]
		}
		return fmt.Errorf("%s: status %d: %s", engine, resp.StatusCode(), body)
	}
	return nil
}
