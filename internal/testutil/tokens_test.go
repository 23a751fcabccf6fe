package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeqTokens(t *testing.T) {
	gen := NewSeqTokens("scenario")
	assert.Equal(t, "scenario-1", gen.Generate())
	assert.Equal(t, "scenario-2", gen.Generate())
}

func TestSeqTokens_DefaultPrefix(t *testing.T) {
	assert.Equal(t, "op-1", NewSeqTokens("").Generate())
}

func TestSeqTokens_Unique(t *testing.T) {
	gen := NewSeqTokens("")
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[string]bool{}
	)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				tok := gen.Generate()
				mu.Lock()
				seen[tok] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 1000)
}
