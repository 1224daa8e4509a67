package mpmc

import "sync/atomic"

// counter is the shared reference-counted handle both Sender and
// Receiver hold onto: a sender and receiver count, and the underlying
// channel itself. On each side, the last handle to drop its count
// calls that side's disconnect exactly once.
//
// Upstream (counter.rs) additionally tracks a "destroy" flag so the
// very last dropped handle frees the manually-allocated Counter via
// Box::from_raw. Go's garbage collector reclaims this struct once
// both the Sender and Receiver holding it go out of scope, so that
// bookkeeping has no equivalent here (see DESIGN.md).
type counter[C any] struct {
	senders   atomic.Int64
	receivers atomic.Int64
	channel   C
}

func newCounter[C any](channel C) *counter[C] {
	c := &counter[C]{channel: channel}
	c.senders.Store(1)
	c.receivers.Store(1)
	return c
}

func (c *counter[C]) acquireSender() {
	if n := c.senders.Add(1); n <= 0 {
		panic("mpmc: sender reference count overflow")
	}
}

func (c *counter[C]) acquireReceiver() {
	if n := c.receivers.Add(1); n <= 0 {
		panic("mpmc: receiver reference count overflow")
	}
}

// releaseSender decrements the sender count and, if it just reached
// zero, invokes disconnect on the underlying channel.
func (c *counter[C]) releaseSender(disconnect func(C)) {
	if c.senders.Add(-1) == 0 {
		disconnect(c.channel)
	}
}

// releaseReceiver is releaseSender's receiver-side counterpart.
func (c *counter[C]) releaseReceiver(disconnect func(C)) {
	if c.receivers.Add(-1) == 0 {
		disconnect(c.channel)
	}
}
