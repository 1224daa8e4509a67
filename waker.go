package mpmc

import (
	"sync"
	"sync/atomic"
	"unsafe"
)

// wakerEntry records one blocked call: which operation it is, an
// optional out-of-band packet pointer (used by the zero flavor to
// hand a rendezvous partner's stack-allocated packet across), and the
// Context to select and wake.
type wakerEntry struct {
	oper   operation
	packet unsafe.Pointer
	cx     *Context
}

// waker tracks blocked calls on one side of one channel (e.g. the
// array channel's senders) and matches them against notifications
// from the other side. observers is carried for structural parity
// with upstream but is never populated: this package's three flavors
// never register an "observer" entry, only "selector" entries, since
// multi-way select is out of scope.
type waker struct {
	selectors []wakerEntry
	observers []wakerEntry
}

func (w *waker) register(oper operation, cx *Context) {
	w.registerWithPacket(oper, nil, cx)
}

func (w *waker) registerWithPacket(oper operation, packet unsafe.Pointer, cx *Context) {
	w.selectors = append(w.selectors, wakerEntry{oper: oper, packet: packet, cx: cx})
}

func (w *waker) unregister(oper operation) (wakerEntry, bool) {
	for i, e := range w.selectors {
		if e.oper == oper {
			w.selectors = append(w.selectors[:i], w.selectors[i+1:]...)
			return e, true
		}
	}
	return wakerEntry{}, false
}

// trySelect looks for a blocked call to hand this notification to. On
// a match, it stores the entry's packet into the matched Context and
// wakes it.
//
// Upstream skips an entry whose thread_id equals the notifying
// thread's own id, to guard against a thread selecting an operation it
// is itself blocked on. That can only arise with multi-way select
// across several pending operations at once, which this package does
// not implement — a goroutine blocked in one channel call cannot
// simultaneously be running the code that calls trySelect against its
// own entry — so the guard is omitted here (see DESIGN.md).
func (w *waker) trySelect() (wakerEntry, bool) {
	for i, e := range w.selectors {
		if _, ok := e.cx.trySelect(selectedForOperation(e.oper)); ok {
			e.cx.storePacket(e.packet)
			e.cx.unpark()
			w.selectors = append(w.selectors[:i], w.selectors[i+1:]...)
			return e, true
		}
	}
	return wakerEntry{}, false
}

// notify wakes every registered observer. It is retained for parity
// with upstream; since observers is never populated, this is
// effectively a no-op today but kept so the disconnect fan-out below
// stays structurally faithful.
func (w *waker) notify() {
	observers := w.observers
	w.observers = nil
	for _, e := range observers {
		if _, ok := e.cx.trySelect(selectedForOperation(e.oper)); ok {
			e.cx.unpark()
		}
	}
}

// disconnect selects every blocked call as Disconnected and wakes it.
func (w *waker) disconnect() {
	for _, e := range w.selectors {
		if _, ok := e.cx.trySelect(selectedDisconnected); ok {
			e.cx.unpark()
		}
	}
	w.notify()
}

// syncWaker is a waker shared across goroutines without requiring its
// own caller to hold a lock. A lock-free isEmpty fast path keeps the
// overwhelmingly common "nobody is blocked" case from touching the
// mutex at all, matching SyncWaker in the source this is grounded on.
type syncWaker struct {
	mu      sync.Mutex
	inner   waker
	isEmpty atomic.Bool
}

func newSyncWaker() *syncWaker {
	sw := &syncWaker{}
	sw.isEmpty.Store(true)
	return sw
}

func (sw *syncWaker) updateEmpty() {
	sw.isEmpty.Store(len(sw.inner.selectors) == 0 && len(sw.inner.observers) == 0)
}

func (sw *syncWaker) register(oper operation, cx *Context) {
	sw.mu.Lock()
	sw.inner.register(oper, cx)
	sw.updateEmpty()
	sw.mu.Unlock()
}

func (sw *syncWaker) unregister(oper operation) (wakerEntry, bool) {
	sw.mu.Lock()
	e, ok := sw.inner.unregister(oper)
	sw.updateEmpty()
	sw.mu.Unlock()
	return e, ok
}

func (sw *syncWaker) notify() {
	if sw.isEmpty.Load() {
		return
	}
	sw.mu.Lock()
	if !sw.isEmpty.Load() {
		sw.inner.trySelect()
		sw.inner.notify()
		sw.updateEmpty()
	}
	sw.mu.Unlock()
}

func (sw *syncWaker) disconnect() {
	sw.mu.Lock()
	sw.inner.disconnect()
	sw.updateEmpty()
	sw.mu.Unlock()
}
