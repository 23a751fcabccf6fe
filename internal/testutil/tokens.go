package testutil

import (
	"fmt"
	"sync"
)

// SeqTokens generates operation tokens "<prefix>-1", "<prefix>-2", ...
//
// It satisfies engine.TokenGenerator. Unlike engine.FixedGenerator it never
// runs out, so it suits scenarios whose operation count is not known up
// front.
type SeqTokens struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSeqTokens creates a generator. An empty prefix means "op".
func NewSeqTokens(prefix string) *SeqTokens {
	if prefix == "" {
		prefix = "op"
	}
	return &SeqTokens{prefix: prefix}
}

// Generate returns the next token.
func (g *SeqTokens) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
