package mpmc

import (
	"math/bits"
	"sync/atomic"
	"time"
	"unsafe"
)

// arraySlot holds one message plus a stamp used to detect which lap
// of the ring a slot's current occupant belongs to, the same
// ABA-proofing scheme eventloop/ingress.go's MicrotaskRing uses with
// its per-slot sequence numbers.
type arraySlot[T any] struct {
	stamp atomic.Uint64
	msg   T
}

func nextPowerOfTwo(n uint64) uint64 {
	if n <= 1 {
		return 1
	}
	return 1 << (64 - bits.LeadingZeros64(n-1))
}

// arrayChan is the bounded, lock-free ring-buffer channel flavor.
// Senders CAS tail forward to reserve a slot, receivers CAS head
// forward to claim one; a per-slot stamp tells each side whether the
// slot it is looking at belongs to the lap it expects.
type arrayChan[T any] struct {
	head      paddedUint64
	tail      paddedUint64
	buffer    []arraySlot[T]
	cap       uint64
	oneLap    uint64
	markBit   uint64
	senders   *syncWaker
	receivers *syncWaker
}

func newArrayChan[T any](capacity int) *arrayChan[T] {
	if capacity <= 0 {
		panic("mpmc: array channel capacity must be positive")
	}
	capU := uint64(capacity)
	markBit := nextPowerOfTwo(capU + 1)
	oneLap := markBit * 2

	ch := &arrayChan[T]{
		buffer:    make([]arraySlot[T], capU),
		cap:       capU,
		oneLap:    oneLap,
		markBit:   markBit,
		senders:   newSyncWaker(),
		receivers: newSyncWaker(),
	}
	for i := range ch.buffer {
		ch.buffer[i].stamp.Store(uint64(i))
	}
	return ch
}

// startSend reserves a slot for a send, publishing it into tok.array.
// It returns false only when the channel is full; a disconnected
// channel is reported as "true" with a nil slot, matching upstream's
// treatment of disconnect as an always-ready error condition.
func (ch *arrayChan[T]) startSend(tok *token) bool {
	var bo backoff
	tail := ch.tail.Load()

	for {
		if tail&ch.markBit != 0 {
			tok.array.slot = nil
			tok.array.stamp = 0
			return true
		}

		index := tail & (ch.markBit - 1)
		lap := tail &^ (ch.oneLap - 1)

		slot := &ch.buffer[index]
		stamp := slot.stamp.Load()

		if tail == stamp {
			var newTail uint64
			if index+1 < ch.cap {
				newTail = tail + 1
			} else {
				newTail = lap + ch.oneLap
			}

			if ch.tail.CompareAndSwap(tail, newTail) {
				tok.array.slot = unsafe.Pointer(slot)
				tok.array.stamp = tail + 1
				return true
			}
			bo.spinLight()
			tail = ch.tail.Load()
		} else if stamp+ch.oneLap == tail+1 {
			head := ch.head.Load()
			if head+ch.oneLap == tail {
				return false
			}
			bo.spinLight()
			tail = ch.tail.Load()
		} else {
			bo.spinHeavy()
			tail = ch.tail.Load()
		}
	}
}

// write commits a message into the slot tok.array reserved. It
// reports false when the reservation was actually a disconnect
// marker, in which case the message was never delivered.
func (ch *arrayChan[T]) write(tok *token, msg T) bool {
	if tok.array.slot == nil {
		return false
	}
	slot := (*arraySlot[T])(tok.array.slot)
	slot.msg = msg
	slot.stamp.Store(tok.array.stamp)
	ch.receivers.notify()
	return true
}

func (ch *arrayChan[T]) startRecv(tok *token) bool {
	var bo backoff
	head := ch.head.Load()

	for {
		index := head & (ch.markBit - 1)
		lap := head &^ (ch.oneLap - 1)

		slot := &ch.buffer[index]
		stamp := slot.stamp.Load()

		if head+1 == stamp {
			var newHead uint64
			if index+1 < ch.cap {
				newHead = head + 1
			} else {
				newHead = lap + ch.oneLap
			}

			if ch.head.CompareAndSwap(head, newHead) {
				tok.array.slot = unsafe.Pointer(slot)
				tok.array.stamp = head + ch.oneLap
				return true
			}
			bo.spinLight()
			head = ch.head.Load()
		} else if stamp == head {
			tail := ch.tail.Load()
			if (tail &^ ch.markBit) == head {
				if tail&ch.markBit != 0 {
					tok.array.slot = nil
					tok.array.stamp = 0
					return true
				}
				return false
			}
			bo.spinLight()
			head = ch.head.Load()
		} else {
			bo.spinHeavy()
			head = ch.head.Load()
		}
	}
}

func (ch *arrayChan[T]) read(tok *token) (T, bool) {
	var zero T
	if tok.array.slot == nil {
		return zero, false
	}
	slot := (*arraySlot[T])(tok.array.slot)
	msg := slot.msg
	slot.msg = zero // drop the reference promptly, same intent as Rust's drop_in_place
	slot.stamp.Store(tok.array.stamp)
	ch.senders.notify()
	return msg, true
}

func (ch *arrayChan[T]) trySend(msg T) *TrySendError[T] {
	tok := &token{}
	if ch.startSend(tok) {
		if !ch.write(tok, msg) {
			return &TrySendError[T]{value: msg}
		}
		return nil
	}
	return &TrySendError[T]{full: true, value: msg}
}

func (ch *arrayChan[T]) send(msg T, deadline time.Time, hasDeadline bool) *SendTimeoutError[T] {
	tok := &token{}
	for {
		var bo backoff
		for {
			if ch.startSend(tok) {
				if !ch.write(tok, msg) {
					return &SendTimeoutError[T]{value: msg}
				}
				return nil
			}
			if bo.isCompleted() {
				break
			}
			bo.spinLight()
		}

		if hasDeadline && !time.Now().Before(deadline) {
			return &SendTimeoutError[T]{timedOut: true, value: msg}
		}

		withContext(func(cx *Context) {
			oper := hookOperation(tok)
			ch.senders.register(oper, cx)

			if !ch.isFull() || ch.isDisconnected() {
				cx.trySelect(selectedAborted)
			}

			sel := cx.waitUntil(deadline, hasDeadline)
			switch sel {
			case selectedWaiting:
				panic("mpmc: context selected while still waiting")
			case selectedAborted, selectedDisconnected:
				ch.senders.unregister(oper)
			}
		})
	}
}

func (ch *arrayChan[T]) tryRecv() (T, *TryRecvError) {
	tok := &token{}
	if ch.startRecv(tok) {
		msg, ok := ch.read(tok)
		if !ok {
			return msg, &TryRecvError{disconnected: true}
		}
		return msg, nil
	}
	var zero T
	return zero, &TryRecvError{}
}

func (ch *arrayChan[T]) recv(deadline time.Time, hasDeadline bool) (T, *RecvTimeoutError) {
	tok := &token{}
	for {
		if ch.startRecv(tok) {
			msg, ok := ch.read(tok)
			if !ok {
				return msg, &RecvTimeoutError{}
			}
			return msg, nil
		}

		if hasDeadline && !time.Now().Before(deadline) {
			var zero T
			return zero, &RecvTimeoutError{timedOut: true}
		}

		withContext(func(cx *Context) {
			oper := hookOperation(tok)
			ch.receivers.register(oper, cx)

			if !ch.isEmpty() || ch.isDisconnected() {
				cx.trySelect(selectedAborted)
			}

			sel := cx.waitUntil(deadline, hasDeadline)
			switch sel {
			case selectedWaiting:
				panic("mpmc: context selected while still waiting")
			case selectedAborted, selectedDisconnected:
				ch.receivers.unregister(oper)
			}
		})
	}
}

func (ch *arrayChan[T]) len() int {
	for {
		tail := ch.tail.Load()
		head := ch.head.Load()
		if ch.tail.Load() == tail {
			hix := head & (ch.markBit - 1)
			tix := tail & (ch.markBit - 1)
			switch {
			case hix < tix:
				return int(tix - hix)
			case hix > tix:
				return int(ch.cap - hix + tix)
			case (tail &^ ch.markBit) == head:
				return 0
			default:
				return int(ch.cap)
			}
		}
	}
}

func (ch *arrayChan[T]) capacity() (int, bool) { return int(ch.cap), true }

func (ch *arrayChan[T]) disconnect() bool {
	tail := ch.tail.FetchOr(ch.markBit)
	if tail&ch.markBit == 0 {
		ch.senders.disconnect()
		ch.receivers.disconnect()
		logEvent(LevelInfo, "array", "disconnect", "channel disconnected")
		return true
	}
	return false
}

func (ch *arrayChan[T]) isDisconnected() bool {
	return ch.tail.Load()&ch.markBit != 0
}

func (ch *arrayChan[T]) isEmpty() bool {
	head := ch.head.Load()
	tail := ch.tail.Load()
	return (tail &^ ch.markBit) == head
}

func (ch *arrayChan[T]) isFull() bool {
	tail := ch.tail.Load()
	head := ch.head.Load()
	return head+ch.oneLap == tail&^ch.markBit
}
