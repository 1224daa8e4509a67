package mpmc

import (
	"sync/atomic"
	"time"
)

// Channel creates an unbounded channel backed by the block-linked list
// flavor: sends never block; they fail only once the channel is
// disconnected.
func Channel[T any]() (*Sender[T], *Receiver[T]) {
	c := newCounter[*listChan[T]](newListChan[T]())
	return &Sender[T]{list: c}, &Receiver[T]{list: c}
}

// SyncChannel creates a channel with a fixed capacity. capacity == 0
// produces a rendezvous (zero-capacity) channel, where a send and a
// recv must meet in lockstep; capacity > 0 produces a bounded
// lock-free ring buffer. Negative capacity panics — there is no
// silent clamping.
func SyncChannel[T any](capacity int) (*Sender[T], *Receiver[T]) {
	switch {
	case capacity < 0:
		panic("mpmc: capacity must not be negative")
	case capacity == 0:
		c := newCounter[*zeroChan[T]](newZeroChan[T]())
		return &Sender[T]{zero: c}, &Receiver[T]{zero: c}
	default:
		c := newCounter[*arrayChan[T]](newArrayChan[T](capacity))
		return &Sender[T]{array: c}, &Receiver[T]{array: c}
	}
}

// Sender is the sending half of a channel created by Channel or
// SyncChannel. It dispatches to exactly one of the three channel
// flavors, decided once at construction time.
//
// Call Close when a Sender is no longer needed. Go has no destructor
// to call this automatically (unlike the Rust Drop this type is
// grounded on); forgetting to call Close on every clone leaves the
// channel's receiver waiting on a sender count that never reaches
// zero.
type Sender[T any] struct {
	array  *counter[*arrayChan[T]]
	list   *counter[*listChan[T]]
	zero   *counter[*zeroChan[T]]
	closed atomic.Bool
}

// TrySend attempts to send msg without blocking.
func (s *Sender[T]) TrySend(msg T) *TrySendError[T] {
	switch {
	case s.array != nil:
		return s.array.channel.trySend(msg)
	case s.list != nil:
		return s.list.channel.trySend(msg)
	default:
		return s.zero.channel.trySend(msg)
	}
}

// Send blocks until msg is delivered or the channel disconnects.
func (s *Sender[T]) Send(msg T) *SendError[T] {
	var err *SendTimeoutError[T]
	switch {
	case s.array != nil:
		err = s.array.channel.send(msg, time.Time{}, false)
	case s.list != nil:
		if sendErr := s.list.channel.send(msg); sendErr != nil {
			return sendErr
		}
		return nil
	default:
		err = s.zero.channel.send(msg, time.Time{}, false)
	}
	if err == nil {
		return nil
	}
	return &SendError[T]{value: err.Value()}
}

// SendTimeout blocks until msg is delivered, the channel disconnects,
// or timeout elapses, whichever happens first.
func (s *Sender[T]) SendTimeout(msg T, timeout time.Duration) *SendTimeoutError[T] {
	return s.SendDeadline(msg, time.Now().Add(timeout))
}

// SendDeadline is SendTimeout with an absolute deadline instead of a
// relative duration.
func (s *Sender[T]) SendDeadline(msg T, deadline time.Time) *SendTimeoutError[T] {
	switch {
	case s.array != nil:
		return s.array.channel.send(msg, deadline, true)
	case s.list != nil:
		if err := s.list.channel.send(msg); err != nil {
			return &SendTimeoutError[T]{value: err.Value()}
		}
		return nil
	default:
		return s.zero.channel.send(msg, deadline, true)
	}
}

// IsEmpty reports whether the channel currently holds no messages.
// Always true for the zero flavor.
func (s *Sender[T]) IsEmpty() bool {
	switch {
	case s.array != nil:
		return s.array.channel.isEmpty()
	case s.list != nil:
		return s.list.channel.isEmpty()
	default:
		return s.zero.channel.isEmpty()
	}
}

// IsFull reports whether the channel currently has no room for
// another message. Always false for the list flavor, always true for
// the zero flavor.
func (s *Sender[T]) IsFull() bool {
	switch {
	case s.array != nil:
		return s.array.channel.isFull()
	case s.list != nil:
		return s.list.channel.isFull()
	default:
		return s.zero.channel.isFull()
	}
}

// Len returns the number of messages currently buffered.
func (s *Sender[T]) Len() int {
	switch {
	case s.array != nil:
		return s.array.channel.len()
	case s.list != nil:
		return s.list.channel.len()
	default:
		return s.zero.channel.len()
	}
}

// Cap returns the channel's capacity: ok is false for the unbounded
// list flavor, otherwise n is the fixed capacity (0 for zero, the
// configured bound for array).
func (s *Sender[T]) Cap() (n int, ok bool) {
	switch {
	case s.array != nil:
		return s.array.channel.capacity()
	case s.list != nil:
		return s.list.channel.capacity()
	default:
		return s.zero.channel.capacity()
	}
}

// SameChannel reports whether s and other share the same underlying
// channel. Senders of different flavors are never the same channel.
func (s *Sender[T]) SameChannel(other *Sender[T]) bool {
	switch {
	case s.array != nil && other.array != nil:
		return s.array == other.array
	case s.list != nil && other.list != nil:
		return s.list == other.list
	case s.zero != nil && other.zero != nil:
		return s.zero == other.zero
	default:
		return false
	}
}

// Clone returns a new handle to the same channel, incrementing the
// live-sender count. The clone must be Closed independently.
func (s *Sender[T]) Clone() *Sender[T] {
	switch {
	case s.array != nil:
		s.array.acquireSender()
		return &Sender[T]{array: s.array}
	case s.list != nil:
		s.list.acquireSender()
		return &Sender[T]{list: s.list}
	default:
		s.zero.acquireSender()
		return &Sender[T]{zero: s.zero}
	}
}

// Close releases this handle's share of the sender count. Once every
// Sender handle for a channel has been Closed, the channel disconnects
// and every blocked or future Receiver call observes it. Close is
// idempotent; calling it more than once on the same handle is a no-op
// after the first call.
func (s *Sender[T]) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	switch {
	case s.array != nil:
		s.array.releaseSender(func(ch *arrayChan[T]) { ch.disconnect() })
	case s.list != nil:
		s.list.releaseSender(func(ch *listChan[T]) { ch.disconnectSenders() })
	default:
		s.zero.releaseSender(func(ch *zeroChan[T]) { ch.disconnect() })
	}
}

// Receiver is the receiving half of a channel created by Channel or
// SyncChannel. See Sender's doc comment for the Close lifecycle note.
type Receiver[T any] struct {
	array  *counter[*arrayChan[T]]
	list   *counter[*listChan[T]]
	zero   *counter[*zeroChan[T]]
	closed atomic.Bool
}

// TryRecv attempts to receive a message without blocking.
func (r *Receiver[T]) TryRecv() (T, *TryRecvError) {
	switch {
	case r.array != nil:
		return r.array.channel.tryRecv()
	case r.list != nil:
		return r.list.channel.tryRecv()
	default:
		return r.zero.channel.tryRecv()
	}
}

// Recv blocks until a message arrives or the channel disconnects.
func (r *Receiver[T]) Recv() (T, *RecvError) {
	var msg T
	var err *RecvTimeoutError
	switch {
	case r.array != nil:
		msg, err = r.array.channel.recv(time.Time{}, false)
	case r.list != nil:
		msg, err = r.list.channel.recv(time.Time{}, false)
	default:
		msg, err = r.zero.channel.recv(time.Time{}, false)
	}
	if err == nil {
		return msg, nil
	}
	return msg, &RecvError{}
}

// RecvTimeout blocks until a message arrives, the channel
// disconnects, or timeout elapses, whichever happens first.
func (r *Receiver[T]) RecvTimeout(timeout time.Duration) (T, *RecvTimeoutError) {
	return r.RecvDeadline(time.Now().Add(timeout))
}

// RecvDeadline is RecvTimeout with an absolute deadline instead of a
// relative duration.
func (r *Receiver[T]) RecvDeadline(deadline time.Time) (T, *RecvTimeoutError) {
	switch {
	case r.array != nil:
		return r.array.channel.recv(deadline, true)
	case r.list != nil:
		return r.list.channel.recv(deadline, true)
	default:
		return r.zero.channel.recv(deadline, true)
	}
}

// IsEmpty reports whether the channel currently holds no messages.
func (r *Receiver[T]) IsEmpty() bool {
	switch {
	case r.array != nil:
		return r.array.channel.isEmpty()
	case r.list != nil:
		return r.list.channel.isEmpty()
	default:
		return r.zero.channel.isEmpty()
	}
}

// IsFull reports whether the channel currently has no room for
// another message.
func (r *Receiver[T]) IsFull() bool {
	switch {
	case r.array != nil:
		return r.array.channel.isFull()
	case r.list != nil:
		return r.list.channel.isFull()
	default:
		return r.zero.channel.isFull()
	}
}

// Len returns the number of messages currently buffered.
func (r *Receiver[T]) Len() int {
	switch {
	case r.array != nil:
		return r.array.channel.len()
	case r.list != nil:
		return r.list.channel.len()
	default:
		return r.zero.channel.len()
	}
}

// Cap returns the channel's capacity; see Sender.Cap.
func (r *Receiver[T]) Cap() (n int, ok bool) {
	switch {
	case r.array != nil:
		return r.array.channel.capacity()
	case r.list != nil:
		return r.list.channel.capacity()
	default:
		return r.zero.channel.capacity()
	}
}

// SameChannel reports whether r and other share the same underlying
// channel.
func (r *Receiver[T]) SameChannel(other *Receiver[T]) bool {
	switch {
	case r.array != nil && other.array != nil:
		return r.array == other.array
	case r.list != nil && other.list != nil:
		return r.list == other.list
	case r.zero != nil && other.zero != nil:
		return r.zero == other.zero
	default:
		return false
	}
}

// Clone returns a new handle to the same channel, incrementing the
// live-receiver count. The clone must be Closed independently.
func (r *Receiver[T]) Clone() *Receiver[T] {
	switch {
	case r.array != nil:
		r.array.acquireReceiver()
		return &Receiver[T]{array: r.array}
	case r.list != nil:
		r.list.acquireReceiver()
		return &Receiver[T]{list: r.list}
	default:
		r.zero.acquireReceiver()
		return &Receiver[T]{zero: r.zero}
	}
}

// Close releases this handle's share of the receiver count. Once every
// Receiver handle for a list channel has been Closed, its remaining
// messages are discarded eagerly (see listChan.disconnectReceivers);
// array and zero channels simply disconnect. Close is idempotent.
func (r *Receiver[T]) Close() {
	if !r.closed.CompareAndSwap(false, true) {
		return
	}
	switch {
	case r.array != nil:
		r.array.releaseReceiver(func(ch *arrayChan[T]) { ch.disconnect() })
	case r.list != nil:
		r.list.releaseReceiver(func(ch *listChan[T]) { ch.disconnectReceivers() })
	default:
		r.zero.releaseReceiver(func(ch *zeroChan[T]) { ch.disconnect() })
	}
}
