// Package keypool rotates API credentials round-robin across outbound calls.
//
// The pool is immutable after construction; only the cursor moves. A revoked
// or rate-limited key is not skipped, it simply comes around again next cycle.
package keypool

import (
	"fmt"
	"sync"

	"github.com/fairyhunter13/ai-doc-companion/internal/domain"
)

// Pool dispenses credentials in strict round-robin order. Safe for concurrent
// use; the cursor is guarded by a mutex so no dispensation is lost or
// duplicated under parallel callers.
type Pool struct {
	mu     sync.Mutex
	keys   []string
	cursor int
}

// New constructs a Pool over the given credentials in order. The slice is
// copied; an empty pool is legal to construct but Next will fail.
func New(keys []string) *Pool {
	cp := make([]string, len(keys))
	copy(cp, keys)
	return &Pool{keys: cp}
}

// Next returns the next credential and advances the cursor, wrapping modulo
// the pool size. Fails with domain.ErrNoCredentials when the pool is empty.
func (p *Pool) Next() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.keys) == 0 {
		return "", fmt.Errorf("%w: set GEMINI_API_KEY_1..6 or GEMINI_API_KEY", domain.ErrNoCredentials)
	}
	key := p.keys[p.cursor]
	p.cursor = (p.cursor + 1) % len(p.keys)
	return key, nil
}

// Size returns the number of configured credentials.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.keys)
}
