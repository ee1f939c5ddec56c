package errors

import "errors"

// Sentinel errors for common error conditions
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates that input validation failed
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyQuery is returned when a query is blank after trimming
	ErrEmptyQuery = errors.New("query is required and must be a non-empty string")

	// ErrRateLimited indicates the caller exceeded the request budget
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrClassification indicates the classifier could not produce an analysis
	ErrClassification = errors.New("classification failed")

	// ErrRetrieval indicates the knowledge retriever failed
	ErrRetrieval = errors.New("retrieval failed")

	// ErrSearchProvider indicates one web-search provider failed
	ErrSearchProvider = errors.New("search provider failed")

	// ErrSearchAggregate indicates every enabled web-search provider failed
	ErrSearchAggregate = errors.New("all search providers failed")

	// ErrProviderDisabled is returned by a provider called without credentials
	ErrProviderDisabled = errors.New("search provider disabled")

	// ErrGeneration indicates the generative model call failed
	ErrGeneration = errors.New("generation failed")

	// ErrOrchestration is the only failure surfaced to callers as a hard error
	ErrOrchestration = errors.New("orchestration failed")
)

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Join returns an error that wraps the given errors.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
