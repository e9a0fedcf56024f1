package task

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Handle identifies one running operation. Callers can cancel it or wait for
// it to finish.
type Handle struct {
	ID        string
	PackageID string
	Op        Operation

	cancel context.CancelFunc
	done   chan struct{}
}

// Cancel kills the underlying process. The package settles to Idle (or keeps
// its last terminal state) rather than staying stuck busy.
func (h *Handle) Cancel() { h.cancel() }

// Wait blocks until the operation has fully finished, including state
// settlement and registry removal.
func (h *Handle) Wait() { <-h.done }

// Done returns a channel closed when the operation finishes.
func (h *Handle) Done() <-chan struct{} { return h.done }

// registry tracks active operations, at most one per package id. A second
// request for a busy package observes the existing handle instead of
// starting a duplicate process.
type registry struct {
	mu      sync.Mutex
	handles map[string]*Handle
}

func newRegistry() *registry {
	return &registry{handles: make(map[string]*Handle)}
}

// begin registers a new handle for pkgID. When an operation is already
// active it returns that handle and false.
func (r *registry) begin(pkgID string, op Operation, cancel context.CancelFunc) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.handles[pkgID]; ok {
		return existing, false
	}

	h := &Handle{
		ID:        uuid.NewString(),
		PackageID: pkgID,
		Op:        op,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	r.handles[pkgID] = h
	return h, true
}

// get returns the active handle for pkgID, if any.
func (r *registry) get(pkgID string) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[pkgID]
	return h, ok
}

// end removes the handle and signals waiters. Runs on every exit path so no
// stuck entry can leak.
func (r *registry) end(h *Handle) {
	r.mu.Lock()
	if r.handles[h.PackageID] == h {
		delete(r.handles, h.PackageID)
	}
	r.mu.Unlock()
	close(h.done)
}

// active returns the number of running operations.
func (r *registry) active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}
