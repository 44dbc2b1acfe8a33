// Package partsource implements the PartSource capability (spec.md §4.2): a
// pull-style byte source used to add one fork to an archive, with three
// variants (file-backed, memory-backed, generated AppleDouble header).
//
// Grounded on the teacher's Object.Open (backend/zip/zip.go, backend/
// archive/squashfs/squashfs.go): open-then-stream-then-close, with optional
// offset handling.
package partsource

import (
	"context"
	"sync"

	arcfs "github.com/retropack/arcengine/fs"
)

// leakTracker records sources opened but never closed, so tests (and,
// optionally, a host app) can assert Testable Property 4 (no stream leaks).
// It mirrors spec.md §9's "finalizer-based leak detection" design note as
// an explicit, non-finalizer instrumentation hook rather than relying on
// runtime.SetFinalizer timing, which the spec explicitly says to avoid.
type leakTracker struct {
	mu   sync.Mutex
	open map[*guarded]string
}

var globalLeaks = &leakTracker{open: make(map[*guarded]string)}

func (t *leakTracker) track(g *guarded, label string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.open[g] = label
}

func (t *leakTracker) untrack(g *guarded) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.open, g)
}

// OpenLeaks returns the labels of every PartSource opened (via Open, below)
// but not yet Close'd or Dispose'd.
func OpenLeaks() []string {
	globalLeaks.mu.Lock()
	defer globalLeaks.mu.Unlock()
	out := make([]string, 0, len(globalLeaks.open))
	for _, label := range globalLeaks.open {
		out = append(out, label)
	}
	return out
}

type guarded struct {
	arcfs.PartSource
	closed bool
	label  string
}

func (g *guarded) Close() error {
	if !g.closed {
		globalLeaks.untrack(g)
		g.closed = true
	}
	return g.PartSource.Close()
}

func (g *guarded) Dispose() {
	if !g.closed {
		// Dropped without Close: log-and-assert per spec.md §4.2's
		// finalization invariant. A library can't assert on behalf of
		// its caller, so this logs at error level and still releases
		// the resource rather than leaving it dangling.
		arcfs.Errorf(nil, "PartSource %q disposed without Close", g.label)
		globalLeaks.untrack(g)
		g.closed = true
	}
	g.PartSource.Dispose()
}

// Open opens s, wires up leak tracking, and returns the wrapped source.
// Call Close (or, on an error path, Dispose) on the result.
func Open(ctx context.Context, s arcfs.PartSource, label string) (arcfs.PartSource, error) {
	if err := s.Open(ctx); err != nil {
		return nil, err
	}
	g := &guarded{PartSource: s, label: label}
	globalLeaks.track(g, label)
	return g, nil
}
