// Package middleware wraps each orchestration call in a chain of
// interceptors: logging, validation, rate limiting, history loading and
// error normalisation.
package middleware

import (
	"context"

	"github.com/sweetpotato0/kgpgpt/rag/agentic"
)

// Context represents the middleware execution context
type Context struct {
	// Request is the inbound query. Middlewares may rewrite it.
	Request *agentic.Request

	// Result is set by the final handler.
	Result *agentic.OrchestrationResult

	// ClientID identifies the caller for rate limiting.
	ClientID string

	// ConversationID names a stored conversation to load history from.
	ConversationID string

	// Metadata for passing data between middlewares
	Metadata map[string]any

	context context.Context
}

// NewContext creates a new middleware context
func NewContext(ctx context.Context, req *agentic.Request) *Context {
	return &Context{
		Request:  req,
		Metadata: make(map[string]any),
		context:  ctx,
	}
}

// Context returns the underlying context.Context
func (c *Context) Context() context.Context {
	if c.context == nil {
		return context.Background()
	}
	return c.context
}

// SetContext replaces the underlying context.Context.
func (c *Context) SetContext(ctx context.Context) {
	c.context = ctx
}

// Query returns the request's query, or "" without a request.
func (c *Context) Query() string {
	if c.Request == nil {
		return ""
	}
	return c.Request.Query
}

// Middleware defines the interface for middleware components
type Middleware interface {
	// Name returns the name of the middleware for logging and debugging
	Name() string

	// Execute runs the middleware logic. Returning an error stops the chain.
	Execute(ctx *Context, next Handler) error
}

// Handler is the function called to pass control to the next middleware
type Handler func(*Context) error

// Chain represents a sequence of middleware to be executed
type Chain struct {
	middlewares []Middleware
}

// NewChain creates a new middleware chain
func NewChain(middlewares ...Middleware) *Chain {
	return &Chain{middlewares: middlewares}
}

// Add appends a middleware to the chain
func (c *Chain) Add(m Middleware) *Chain {
	c.middlewares = append(c.middlewares, m)
	return c
}

// Names lists the middlewares in execution order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.middlewares))
	for i, m := range c.middlewares {
		names[i] = m.Name()
	}
	return names
}

// Execute runs all middlewares in the chain, then finalHandler.
func (c *Chain) Execute(ctx *Context, finalHandler Handler) error {
	return c.executeMiddleware(ctx, 0, finalHandler)
}

func (c *Chain) executeMiddleware(ctx *Context, index int, finalHandler Handler) error {
	if index >= len(c.middlewares) {
		return finalHandler(ctx)
	}
	next := func(ctx *Context) error {
		return c.executeMiddleware(ctx, index+1, finalHandler)
	}
	return c.middlewares[index].Execute(ctx, next)
}

// Func adapts a plain function into a named Middleware.
type Func struct {
	name string
	fn   func(*Context, Handler) error
}

// NewFunc wraps fn.
func NewFunc(name string, fn func(*Context, Handler) error) *Func {
	return &Func{name: name, fn: fn}
}

// Name returns the middleware name
func (f *Func) Name() string { return f.name }

// Execute calls the wrapped function.
func (f *Func) Execute(ctx *Context, next Handler) error { return f.fn(ctx, next) }
