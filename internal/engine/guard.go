package engine

import (
	"sync"

	"github.com/roach88/linkcast/internal/ir"
)

// GuardKey identifies one guarded dispatch.
type GuardKey struct {
	Command ir.Command
	Ref     ir.ItemRef
}

// Guard tracks (command, node, item) triples that are currently being
// processed so a re-fired notification for the same triple is a no-op.
//
// Different commands on the same item do not block each other, and the same
// command on different items does not either.
//
// Thread-safe: Can be called concurrently.
type Guard struct {
	mu     sync.Mutex
	active map[GuardKey]struct{}
}

// NewGuard creates an empty guard.
func NewGuard() *Guard {
	return &Guard{
		active: make(map[GuardKey]struct{}),
	}
}

// TryEnter admits the triple if it is not already held.
//
// Returns false if the triple is in progress; the caller must return
// immediately without side effects.
func (g *Guard) TryEnter(cmd ir.Command, ref ir.ItemRef) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := GuardKey{Command: cmd, Ref: ref}
	if _, held := g.active[key]; held {
		return false
	}
	g.active[key] = struct{}{}
	return true
}

// Exit releases the triple. Releasing a triple that is not held is a no-op.
func (g *Guard) Exit(cmd ir.Command, ref ir.ItemRef) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.active, GuardKey{Command: cmd, Ref: ref})
}

// Acquire is the scoped form of TryEnter. When ok is true the caller must
// defer release; calling release more than once is safe.
//
//	release, ok := g.Acquire(cmd, ref)
//	if !ok {
//		return
//	}
//	defer release()
func (g *Guard) Acquire(cmd ir.Command, ref ir.ItemRef) (release func(), ok bool) {
	if !g.TryEnter(cmd, ref) {
		return func() {}, false
	}
	var once sync.Once
	return func() { once.Do(func() { g.Exit(cmd, ref) }) }, true
}

// Held reports whether the triple is currently in progress.
func (g *Guard) Held(cmd ir.Command, ref ir.ItemRef) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	_, held := g.active[GuardKey{Command: cmd, Ref: ref}]
	return held
}

// Size returns the number of held triples.
//
// Used for testing and introspection.
func (g *Guard) Size() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.active)
}
