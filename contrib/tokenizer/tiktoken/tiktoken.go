// Package tiktoken counts tokens with OpenAI's BPE encodings.
package tiktoken

import (
	"github.com/pkoukk/tiktoken-go"

	"github.com/sweetpotato0/kgpgpt/rag/tokenizer"
)

// Tokenizer implements tokenizer.Counter.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

var _ tokenizer.Counter = (*Tokenizer)(nil)

// New resolves name as a model first and as an encoding second. Models the
// library does not know, such as Gemini, should pass "cl100k_base".
func New(name string) (*Tokenizer, error) {
	enc, err := tiktoken.EncodingForModel(name)
	if err != nil {
		enc, err = tiktoken.GetEncoding(name)
		if err != nil {
			return nil, err
		}
	}
	return &Tokenizer{enc: enc}, nil
}

// Encode returns the token ids of text.
func (t *Tokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

// CountTokens returns the number of tokens in text.
func (t *Tokenizer) CountTokens(text string) int {
	return len(t.Encode(text))
}

// Decode turns token ids back into text.
func (t *Tokenizer) Decode(ids []int) string {
	return t.enc.Decode(ids)
}
