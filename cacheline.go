package mpmc

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// paddedUint64 is an atomic.Uint64 padded to its own cache line so
// that, e.g., a ring buffer's head and tail indices never share a
// line and cause false sharing under concurrent CAS retries.
type paddedUint64 struct {
	_ cpu.CacheLinePad
	v atomic.Uint64
	_ cpu.CacheLinePad
}

func (p *paddedUint64) Load() uint64            { return p.v.Load() }
func (p *paddedUint64) Store(val uint64)        { p.v.Store(val) }
func (p *paddedUint64) Add(delta uint64) uint64 { return p.v.Add(delta) }
func (p *paddedUint64) CompareAndSwap(old, newV uint64) bool {
	return p.v.CompareAndSwap(old, newV)
}

// FetchOr atomically ORs bits into the value and returns the value as
// it was immediately before. sync/atomic's generic Uint64 has no
// built-in bitwise-or, so this is a CAS retry loop, same as any other
// read-modify-write built on CompareAndSwap.
func (p *paddedUint64) FetchOr(bits uint64) uint64 {
	return fetchOrUint64(&p.v, bits)
}

// fetchOrUint64 atomically ORs bits into v and returns the value as it
// was immediately before, the same CAS retry idiom paddedUint64.FetchOr
// uses above, shared with plain (unpadded) atomic.Uint64 fields such as
// list.go's block/position state words.
func fetchOrUint64(v *atomic.Uint64, bits uint64) uint64 {
	for {
		old := v.Load()
		if old&bits == bits {
			return old
		}
		if v.CompareAndSwap(old, old|bits) {
			return old
		}
	}
}
