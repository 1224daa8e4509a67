package mpmc

import (
	"sync"
	"sync/atomic"
	"time"
	"unsafe"
)

// zeroPacket is the stack-or-heap-allocated handoff slot a rendezvous
// send and its paired recv write into and read out of directly,
// without ever touching the channel's own storage (there is none).
type zeroPacket[T any] struct {
	ready atomic.Bool
	msg   T
}

func (p *zeroPacket[T]) waitReady() {
	var bo backoff
	for !p.ready.Load() {
		bo.spinHeavy()
	}
}

// zeroInner holds the two waker queues under one mutex: a sender
// parks in senders while waiting for a receiver (and vice versa), and
// try_send/try_recv match directly against the opposite queue without
// ever touching the channel's (nonexistent) storage.
type zeroInner struct {
	senders      waker
	receivers    waker
	disconnected bool
}

// zeroChan is the zero-capacity rendezvous channel flavor: a send and
// a recv must be in progress at the same moment for either to
// complete.
type zeroChan[T any] struct {
	mu    sync.Mutex
	inner zeroInner
}

func newZeroChan[T any]() *zeroChan[T] {
	return &zeroChan[T]{}
}

func (ch *zeroChan[T]) write(tok *token, msg T) bool {
	if tok.zero.packet == nil {
		return false
	}
	packet := (*zeroPacket[T])(tok.zero.packet)
	packet.msg = msg
	packet.ready.Store(true)
	return true
}

func (ch *zeroChan[T]) read(tok *token) (T, bool) {
	var zero T
	if tok.zero.packet == nil {
		return zero, false
	}
	packet := (*zeroPacket[T])(tok.zero.packet)
	msg := packet.msg
	packet.msg = zero
	packet.ready.Store(true)
	return msg, true
}

func (ch *zeroChan[T]) trySend(msg T) *TrySendError[T] {
	tok := &token{}
	ch.mu.Lock()
	if entry, ok := ch.inner.receivers.trySelect(); ok {
		tok.zero.packet = entry.packet
		ch.mu.Unlock()
		ch.write(tok, msg)
		return nil
	}
	disconnected := ch.inner.disconnected
	ch.mu.Unlock()
	if disconnected {
		return &TrySendError[T]{value: msg}
	}
	return &TrySendError[T]{full: true, value: msg}
}

func (ch *zeroChan[T]) send(msg T, deadline time.Time, hasDeadline bool) *SendTimeoutError[T] {
	tok := &token{}
	ch.mu.Lock()

	if entry, ok := ch.inner.receivers.trySelect(); ok {
		tok.zero.packet = entry.packet
		ch.mu.Unlock()
		ch.write(tok, msg)
		return nil
	}

	if ch.inner.disconnected {
		ch.mu.Unlock()
		return &SendTimeoutError[T]{value: msg}
	}

	var result *SendTimeoutError[T]
	withContext(func(cx *Context) {
		oper := hookOperation(tok)
		packet := &zeroPacket[T]{msg: msg}
		ch.inner.senders.registerWithPacket(oper, unsafe.Pointer(packet), cx)
		ch.inner.receivers.notify()
		ch.mu.Unlock()

		sel := cx.waitUntil(deadline, hasDeadline)

		switch sel {
		case selectedWaiting:
			panic("mpmc: context selected while still waiting")
		case selectedAborted:
			ch.mu.Lock()
			ch.inner.senders.unregister(oper)
			ch.mu.Unlock()
			result = &SendTimeoutError[T]{timedOut: true, value: packet.msg}
		case selectedDisconnected:
			ch.mu.Lock()
			ch.inner.senders.unregister(oper)
			ch.mu.Unlock()
			result = &SendTimeoutError[T]{value: packet.msg}
		default:
			packet.waitReady()
			result = nil
		}
	})
	return result
}

func (ch *zeroChan[T]) tryRecv() (T, *TryRecvError) {
	tok := &token{}
	ch.mu.Lock()
	if entry, ok := ch.inner.senders.trySelect(); ok {
		tok.zero.packet = entry.packet
		ch.mu.Unlock()
		msg, ok := ch.read(tok)
		if !ok {
			return msg, &TryRecvError{disconnected: true}
		}
		return msg, nil
	}
	disconnected := ch.inner.disconnected
	ch.mu.Unlock()
	var zero T
	if disconnected {
		return zero, &TryRecvError{disconnected: true}
	}
	return zero, &TryRecvError{}
}

func (ch *zeroChan[T]) recv(deadline time.Time, hasDeadline bool) (T, *RecvTimeoutError) {
	tok := &token{}
	ch.mu.Lock()

	if entry, ok := ch.inner.senders.trySelect(); ok {
		tok.zero.packet = entry.packet
		ch.mu.Unlock()
		msg, ok := ch.read(tok)
		if !ok {
			return msg, &RecvTimeoutError{}
		}
		return msg, nil
	}

	if ch.inner.disconnected {
		ch.mu.Unlock()
		var zero T
		return zero, &RecvTimeoutError{}
	}

	var msg T
	var result *RecvTimeoutError
	withContext(func(cx *Context) {
		oper := hookOperation(tok)
		packet := &zeroPacket[T]{}
		ch.inner.receivers.registerWithPacket(oper, unsafe.Pointer(packet), cx)
		ch.inner.senders.notify()
		ch.mu.Unlock()

		sel := cx.waitUntil(deadline, hasDeadline)

		switch sel {
		case selectedWaiting:
			panic("mpmc: context selected while still waiting")
		case selectedAborted:
			ch.mu.Lock()
			ch.inner.receivers.unregister(oper)
			ch.mu.Unlock()
			result = &RecvTimeoutError{timedOut: true}
		case selectedDisconnected:
			ch.mu.Lock()
			ch.inner.receivers.unregister(oper)
			ch.mu.Unlock()
			result = &RecvTimeoutError{}
		default:
			packet.waitReady()
			msg = packet.msg
			result = nil
		}
	})
	return msg, result
}

// disconnect marks the channel disconnected and wakes every blocked
// sender and receiver. Returns true if this call is the one that
// actually disconnected it.
func (ch *zeroChan[T]) disconnect() bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if !ch.inner.disconnected {
		ch.inner.disconnected = true
		ch.inner.senders.disconnect()
		ch.inner.receivers.disconnect()
		logEvent(LevelInfo, "zero", "disconnect", "channel disconnected")
		return true
	}
	return false
}

func (ch *zeroChan[T]) len() int { return 0 }

func (ch *zeroChan[T]) capacity() (int, bool) { return 0, true }

func (ch *zeroChan[T]) isEmpty() bool { return true }

func (ch *zeroChan[T]) isFull() bool { return true }
