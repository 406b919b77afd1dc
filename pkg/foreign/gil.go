package foreign

import (
	"sync"
	"sync/atomic"

	"github.com/petermattis/goid"
)

// GIL is the global interpreter lock guarding a Runtime.
//
// It is reentrant: the owning goroutine may call Ensure again, and each
// Ensure must be matched by one Release. Save and Restore temporarily give
// the lock up around blocking host work, regardless of recursion depth.
type GIL struct {
	mu    sync.Mutex
	owner atomic.Int64
	depth int
}

// Ensure acquires the lock for the calling goroutine.
func (g *GIL) Ensure() {
	id := goid.Get()
	if g.owner.Load() == id {
		g.depth++
		return
	}
	g.mu.Lock()
	g.owner.Store(id)
	g.depth = 1
}

// Release undoes one Ensure. Releasing a lock the calling goroutine does
// not hold is a bridge bug and panics.
func (g *GIL) Release() {
	if g.owner.Load() != goid.Get() {
		panic("foreign: GIL released by a goroutine that does not hold it")
	}
	g.depth--
	if g.depth == 0 {
		g.owner.Store(0)
		g.mu.Unlock()
	}
}

// Held reports whether the calling goroutine holds the lock.
func (g *GIL) Held() bool {
	return g.owner.Load() == goid.Get()
}

// Do runs fn with the lock held.
func (g *GIL) Do(fn func()) {
	g.Ensure()
	defer g.Release()
	fn()
}

// Save fully releases the lock held by the calling goroutine and returns
// the recursion depth to pass to Restore. It returns 0 when the lock is
// not held.
func (g *GIL) Save() int {
	if !g.Held() {
		return 0
	}
	depth := g.depth
	g.depth = 0
	g.owner.Store(0)
	g.mu.Unlock()
	return depth
}

// Restore reacquires the lock released by Save.
func (g *GIL) Restore(depth int) {
	if depth == 0 {
		return
	}
	g.mu.Lock()
	g.owner.Store(goid.Get())
	g.depth = depth
}
