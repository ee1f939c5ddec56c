// Package tokenizer counts tokens for response metadata.
package tokenizer

// Counter counts the tokens of a text.
type Counter interface {
	CountTokens(text string) int
}

// Estimate approximates tokens as one per four bytes of text.
type Estimate struct{}

var _ Counter = Estimate{}

// CountTokens implements Counter.
func (Estimate) CountTokens(text string) int {
	return len(text) / 4
}

// Count uses c when set and falls back to Estimate.
func Count(c Counter, text string) int {
	if c == nil {
		return Estimate{}.CountTokens(text)
	}
	return c.CountTokens(text)
}
