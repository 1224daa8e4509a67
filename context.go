package mpmc

import (
	"sync"
	"sync/atomic"
	"time"
	"unsafe"
)

var contextIDCounter atomic.Uint64

// Context is the per-blocking-call parking handle a goroutine uses
// while it waits for a send or receive to become possible. It plays
// the role native crossbeam-channel gives an OS thread: a single
// source of truth (sel) that exactly one party can CAS away from
// "waiting", and a wake signal any other goroutine can trigger once it
// has done so.
//
// Go has no thread-local storage with the right lifetime and no
// portable "current thread" handle, so two substitutions are made
// here relative to the upstream Rust Context: parking is a buffered
// channel receive instead of thread::park, and per-call contexts are
// recycled through a sync.Pool instead of a thread-local Cell (see
// contextPool below).
type Context struct {
	id     uint64
	sel    atomic.Uint64
	packet unsafe.Pointer // write-only; see doc comment on storePacket
	wake   chan struct{}
}

func newContext() *Context {
	return &Context{
		id:   contextIDCounter.Add(1),
		wake: make(chan struct{}, 1),
	}
}

var contextPool = sync.Pool{
	New: func() any { return newContext() },
}

// withContext runs f with a freshly reset Context, recycled from a
// pool to amortize the allocation cost of its wake channel across
// repeated blocking calls — the same amortization
// eventloop/ingress.go gets from pooling its chunk nodes, adapted
// here since Go cannot give a Context real goroutine affinity.
func withContext(f func(cx *Context)) {
	cx := contextPool.Get().(*Context)
	cx.reset()
	f(cx)
	contextPool.Put(cx)
}

func (cx *Context) reset() {
	cx.sel.Store(uint64(selectedWaiting))
	atomic.StorePointer(&cx.packet, nil)
	// Drain any stale wake signal left by a prior use of this pooled
	// Context so wait does not return immediately for the wrong reason.
	select {
	case <-cx.wake:
	default:
	}
}

// trySelect attempts to move this context from "waiting" to sel. It
// reports the value that ended up stored (sel on success, whatever
// already-selected value was there on failure) and whether the CAS
// won.
func (cx *Context) trySelect(sel selected) (selected, bool) {
	if cx.sel.CompareAndSwap(uint64(selectedWaiting), uint64(sel)) {
		return sel, true
	}
	return selected(cx.sel.Load()), false
}

// storePacket records an out-of-band pointer alongside a successful
// trySelect. Upstream reads this back only from the multi-way select!
// machinery, which this package does not implement, so nothing in
// array.go/list.go/zero.go ever reads it back either; it is kept
// write-only for structural parity with the Context this package is
// grounded on.
func (cx *Context) storePacket(p unsafe.Pointer) {
	atomic.StorePointer(&cx.packet, p)
}

// waitUntil blocks until this context is selected, or — if hasDeadline
// is set — until deadline passes, in which case it self-aborts.
func (cx *Context) waitUntil(deadline time.Time, hasDeadline bool) selected {
	for {
		sel := selected(cx.sel.Load())
		if sel != selectedWaiting {
			return sel
		}

		if hasDeadline {
			now := time.Now()
			if now.Before(deadline) {
				timer := time.NewTimer(deadline.Sub(now))
				select {
				case <-cx.wake:
				case <-timer.C:
				}
				timer.Stop()
			} else {
				if s, ok := cx.trySelect(selectedAborted); ok {
					return s
				}
				return selected(cx.sel.Load())
			}
		} else {
			<-cx.wake
		}
	}
}

// unpark wakes a goroutine parked in waitUntil. It never blocks: the
// wake channel is buffered to depth 1, so a wake delivered before the
// other side starts waiting is simply observed on its next sel check.
func (cx *Context) unpark() {
	select {
	case cx.wake <- struct{}{}:
	default:
	}
}

func (cx *Context) threadID() uint64 { return cx.id }
