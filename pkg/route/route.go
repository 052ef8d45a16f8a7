// Package route is the minimal stand-in for the out-of-scope route
// table and data-service attach/detach plumbing: just enough surface
// for the cache to register itself as a storage data service and to
// push/pull queued bundle references across bounded sub-queues.
package route

import (
	"fmt"
	"sync"

	"github.com/dtnkit/bpcache/pkg/bpid"
	"github.com/dtnkit/bpcache/pkg/bundle"
)

// QueuedRef is one bundle reference moving through a sub-queue: the
// decoded bundle plus a flag marking whether it is an "indirect" block
// whose input reference must be recycled by the caller once consumed
// (mirrors spec.md's egress_impl step "recycle the input reference if
// it was an indirect block").
type QueuedRef struct {
	Bundle   *bundle.Bundle
	Indirect bool
}

// SubQueue is a bounded FIFO of QueuedRef with a depth limit that can
// be dropped to zero to implement backpressure (interface down).
type SubQueue struct {
	mu         sync.Mutex
	items      []QueuedRef
	depthLimit int
}

// NewSubQueue returns a sub-queue with the given initial depth limit.
func NewSubQueue(depthLimit int) *SubQueue {
	return &SubQueue{depthLimit: depthLimit}
}

// MayPush reports whether the queue currently has room for one more push.
func (q *SubQueue) MayPush() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) < q.depthLimit
}

// Push enqueues ref if there is room, returning false if rejected by
// the current depth limit (the interface is down, or saturated).
func (q *SubQueue) Push(ref QueuedRef) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) >= q.depthLimit {
		return false
	}
	q.items = append(q.items, ref)
	return true
}

// TryPull is a non-blocking pop from the head of the queue (the
// try_pull(timeout=0) of spec.md's egress_impl / self-ingress drain).
func (q *SubQueue) TryPull() (QueuedRef, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return QueuedRef{}, false
	}
	ref := q.items[0]
	q.items = q.items[1:]
	return ref, true
}

// SetDepthLimit sets the current depth limit — 0 when the interface is
// down, MAX_SUBQ_DEPTH when it is up.
func (q *SubQueue) SetDepthLimit(n int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.depthLimit = n
}

// Depth reports the current queue occupancy, for metrics/debug.
func (q *SubQueue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Handlers are the two callbacks a data service registers at attach
// time: Egress is invoked by the fabric to hand the service newly
// arrived blocks; Event dispatches {poll, up, down}. There is no
// ingress callback: pushes go straight onto a SubQueue, gated only by
// its depth limit.
type Handlers struct {
	Egress func(q *SubQueue)
	Event  func(ev Event)
}

// EventKind distinguishes the three event-loop event kinds.
type EventKind uint8

const (
	EventPoll EventKind = iota
	EventUp
	EventDown
)

// Event is the tagged union {poll, up{intf_id}, down{intf_id}} of
// spec.md §6.
type Event struct {
	Kind     EventKind
	IntfAddr bpid.EID
}

// Handle is the refcounted attach handle returned by Table.Attach; the
// intentional circular self-reference CacheState holds back to its
// own flow block is modeled by the attach handle itself being the
// thing whose release tears the state down — see cache.Attach.
type Handle struct {
	addr     bpid.EID
	release  func()
	released bool
}

// Release breaks the interface's self-reference. Idempotent.
func (h *Handle) Release() {
	if h == nil || h.released {
		return
	}
	h.released = true
	if h.release != nil {
		h.release()
	}
}

// Table is the route table's attach/detach surface as seen by a
// storage data service.
type Table interface {
	// Attach registers a storage data service at addr with the given
	// handlers, returning a handle the service must Release on detach.
	// Attaching at an address already in use is an InvalidHandle error.
	Attach(addr bpid.EID, h Handlers) (*Handle, error)
	// Detach releases the previously attached handle for addr.
	Detach(addr bpid.EID) error
}

// ErrInvalidHandle is returned when attach/detach addresses a service
// that does not exist or is already attached.
var ErrInvalidHandle = fmt.Errorf("route: invalid handle")

// InMemoryTable is a Table backed by a map, suitable for a
// single-process agent or tests.
type InMemoryTable struct {
	mu       sync.Mutex
	services map[bpid.EID]*attachedService
}

type attachedService struct {
	handlers Handlers
	onDetach func()
}

// NewInMemoryTable returns an empty in-memory route table.
func NewInMemoryTable() *InMemoryTable {
	return &InMemoryTable{services: make(map[bpid.EID]*attachedService)}
}

// Attach implements Table.
func (t *InMemoryTable) Attach(addr bpid.EID, h Handlers) (*Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.services[addr]; exists {
		return nil, fmt.Errorf("%w: %s already attached", ErrInvalidHandle, addr)
	}
	svc := &attachedService{handlers: h}
	t.services[addr] = svc
	handle := &Handle{addr: addr}
	handle.release = func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.services, addr)
		if svc.onDetach != nil {
			svc.onDetach()
		}
	}
	return handle, nil
}

// Detach implements Table. In this in-memory model detach is
// symmetrical with releasing the handle returned by Attach; callers
// that only have the address (not the handle) can still force removal.
func (t *InMemoryTable) Detach(addr bpid.EID) error {
	t.mu.Lock()
	svc, ok := t.services[addr]
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s not attached", ErrInvalidHandle, addr)
	}
	delete(t.services, addr)
	t.mu.Unlock()
	if svc.onDetach != nil {
		svc.onDetach()
	}
	return nil
}

// Dispatch delivers an event to the handlers registered at addr, if
// any. Used by tests and by a simulated fabric to drive the event loop.
func (t *InMemoryTable) Dispatch(addr bpid.EID, ev Event) {
	t.mu.Lock()
	svc, ok := t.services[addr]
	t.mu.Unlock()
	if ok && svc.handlers.Event != nil {
		svc.handlers.Event(ev)
	}
}

// DeliverEgress hands q to the handlers registered at addr's Egress
// callback, simulating the fabric draining a block into storage.
func (t *InMemoryTable) DeliverEgress(addr bpid.EID, q *SubQueue) {
	t.mu.Lock()
	svc, ok := t.services[addr]
	t.mu.Unlock()
	if ok && svc.handlers.Egress != nil {
		svc.handlers.Egress(q)
	}
}
