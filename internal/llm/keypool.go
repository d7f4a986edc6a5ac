package llm

import (
	"fmt"
	"sync"
)

// KeyPool is an ordered set of API credentials with a round-robin rotation
// cursor. The cursor is the only shared mutable state; every access goes
// through the mutex, so one pool may serve many concurrent sessions.
type KeyPool struct {
	mu     sync.Mutex
	keys   []string
	cursor int
}

// NewKeyPool creates a pool from the ordered credential list.
func NewKeyPool(keys []string) (*KeyPool, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("no API keys available")
	}
	cp := make([]string, len(keys))
	copy(cp, keys)
	return &KeyPool{keys: cp}, nil
}

// Next returns the credential at the cursor and advances it modulo pool size.
func (p *KeyPool) Next() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := p.keys[p.cursor]
	p.cursor = (p.cursor + 1) % len(p.keys)
	return key
}

// Size returns the number of credentials in the pool.
func (p *KeyPool) Size() int {
	return len(p.keys)
}

// Cursor returns the current cursor position.
func (p *KeyPool) Cursor() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}
