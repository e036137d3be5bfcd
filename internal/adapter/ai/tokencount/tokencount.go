// Package tokencount provides token counting for completion telemetry.
//
// It uses tiktoken-go to measure prompt and completion sizes. Counts feed
// metrics and logs only; the chunking decision deliberately stays on the
// cheaper characters/4 estimate so behavior does not depend on tokenizer
// availability.
package tokencount

import (
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// Counter provides thread-safe token counting. Gemini does not publish its
// tokenizer; cl100k_base is a close enough approximation for telemetry.
type Counter struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
	err  error
}

// NewCounter creates a new token counter instance.
func NewCounter() *Counter {
	return &Counter{}
}

// DefaultCounter is a global token counter instance.
var DefaultCounter = NewCounter()

func (c *Counter) encoding() (*tiktoken.Tiktoken, error) {
	c.once.Do(func() {
		c.enc, c.err = tiktoken.GetEncoding("cl100k_base")
	})
	return c.enc, c.err
}

// CountTokens counts the tokens in text, falling back to the rough
// characters/4 estimate when the tokenizer cannot be loaded.
func (c *Counter) CountTokens(text string) int {
	enc, err := c.encoding()
	if err != nil {
		return Estimate(text)
	}
	return len(enc.Encode(text, nil, nil))
}

// Estimate approximates the token count as characterLength/4.
func Estimate(text string) int {
	return len(text) / 4
}

// CountTokensDefault uses the default counter to count tokens.
func CountTokensDefault(text string) int {
	return DefaultCounter.CountTokens(text)
}
