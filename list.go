package mpmc

import (
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/cpu"
)

const (
	listWrite   = uint64(1)
	listRead    = uint64(2)
	listDestroy = uint64(4)

	listLap      = 32
	listBlockCap = listLap - 1
	listShift    = 1
	listMarkBit  = uint64(1)
)

// listSlot is one message slot inside a block. state tracks whether
// the message has been written, read, and whether the block it
// belongs to has started cooperative destruction.
type listSlot[T any] struct {
	msg   T
	state atomic.Uint64
}

func (s *listSlot[T]) waitWrite() {
	var bo backoff
	for s.state.Load()&listWrite == 0 {
		bo.spinHeavy()
	}
}

// listBlock is one node of the unbounded channel's linked list: a
// fixed-size run of slots plus a pointer to the next block, allocated
// lazily as senders outrun the current block's capacity.
//
// Grounded on eventloop/ingress.go's ChunkedIngress node shape
// (fixed-size slot array + next pointer); the WRITE/READ/DESTROY
// handoff below has no ChunkedIngress equivalent since that queue is
// single-consumer, so it is new code grounded directly on
// original_source/src/mpmc/list.rs.
type listBlock[T any] struct {
	next  atomic.Pointer[listBlock[T]]
	slots [listBlockCap]listSlot[T]
}

func (b *listBlock[T]) waitNext() *listBlock[T] {
	var bo backoff
	for {
		if next := b.next.Load(); next != nil {
			return next
		}
		bo.spinHeavy()
	}
}

// destroy marks every remaining slot in the block from start onward
// as DESTROY, except the last; if a reader is still busy with a slot
// (has not yet set READ) it inherits the responsibility of destroying
// the block and this call returns without freeing anything. Once
// every slot has been read (or destruction is handed off), the block
// is simply left unreferenced for the garbage collector — there is no
// Box::from_raw step to mirror here.
func destroyListBlock[T any](b *listBlock[T], start int) {
	for i := start; i < listBlockCap-1; i++ {
		slot := &b.slots[i]
		if slot.state.Load()&listRead == 0 {
			if prev := fetchOrUint64(&slot.state, listDestroy); prev&listRead == 0 {
				return
			}
		}
	}
	// Every slot has been read; the block becomes unreachable once its
	// last reference (head.block, or a sibling's next pointer) is
	// updated away from it, which the caller has already done.
}

// listPosition tracks the list channel's head or tail: a linear index
// plus the block currently at that index.
type listPosition[T any] struct {
	_     cpu.CacheLinePad
	index atomic.Uint64
	block atomic.Pointer[listBlock[T]]
	_     cpu.CacheLinePad
}

// listChan is the unbounded, block-linked channel flavor. Sends never
// block on capacity (there is none); only a disconnected channel can
// reject a send.
type listChan[T any] struct {
	head      listPosition[T]
	tail      listPosition[T]
	receivers *syncWaker
}

func newListChan[T any]() *listChan[T] {
	return &listChan[T]{receivers: newSyncWaker()}
}

func (ch *listChan[T]) startSend(tok *token) bool {
	var bo backoff
	tail := ch.tail.index.Load()
	block := ch.tail.block.Load()
	var nextBlock *listBlock[T]

	for {
		if tail&listMarkBit != 0 {
			tok.list.block = nil
			return true
		}

		offset := (tail >> listShift) % listLap

		if offset == listBlockCap {
			bo.spinHeavy()
			tail = ch.tail.index.Load()
			block = ch.tail.block.Load()
			continue
		}

		if offset+1 == listBlockCap && nextBlock == nil {
			nextBlock = &listBlock[T]{}
		}

		if block == nil {
			newBlock := &listBlock[T]{}
			if ch.tail.block.CompareAndSwap(nil, newBlock) {
				ch.head.block.Store(newBlock)
				block = newBlock
			} else {
				nextBlock = newBlock
				tail = ch.tail.index.Load()
				block = ch.tail.block.Load()
				continue
			}
		}

		newTail := tail + (1 << listShift)

		if ch.tail.index.CompareAndSwap(tail, newTail) {
			if offset+1 == listBlockCap {
				ch.tail.block.Store(nextBlock)
				ch.tail.index.Add(1 << listShift)
				block.next.Store(nextBlock)
			}
			tok.list.block = unsafe.Pointer(block)
			tok.list.offset = int(offset)
			return true
		}

		bo.spinLight()
		tail = ch.tail.index.Load()
		block = ch.tail.block.Load()
	}
}

func (ch *listChan[T]) write(tok *token, msg T) bool {
	if tok.list.block == nil {
		return false
	}
	block := (*listBlock[T])(tok.list.block)
	slot := &block.slots[tok.list.offset]
	slot.msg = msg
	fetchOrUint64(&slot.state, listWrite)
	ch.receivers.notify()
	return true
}

func (ch *listChan[T]) trySend(msg T) *TrySendError[T] {
	if err := ch.send(msg); err != nil {
		return &TrySendError[T]{value: err.value}
	}
	return nil
}

// send always commits unless the channel is disconnected: the list
// flavor has no capacity limit, so start_send can never report "full".
func (ch *listChan[T]) send(msg T) *SendError[T] {
	tok := &token{}
	if !ch.startSend(tok) {
		panic("mpmc: list channel start_send unexpectedly reported full")
	}
	if !ch.write(tok, msg) {
		return &SendError[T]{value: msg}
	}
	return nil
}

func (ch *listChan[T]) startRecv(tok *token) bool {
	var bo backoff
	head := ch.head.index.Load()
	block := ch.head.block.Load()

	for {
		offset := (head >> listShift) % listLap

		if offset == listBlockCap {
			bo.spinHeavy()
			head = ch.head.index.Load()
			block = ch.head.block.Load()
			continue
		}

		newHead := head + (1 << listShift)

		if newHead&listMarkBit == 0 {
			tail := ch.tail.index.Load()

			if head>>listShift == tail>>listShift {
				if tail&listMarkBit != 0 {
					tok.list.block = nil
					return true
				}
				return false
			}

			if (head>>listShift)/listLap != (tail>>listShift)/listLap {
				newHead |= listMarkBit
			}
		}

		if block == nil {
			bo.spinHeavy()
			head = ch.head.index.Load()
			block = ch.head.block.Load()
			continue
		}

		if ch.head.index.CompareAndSwap(head, newHead) {
			if offset+1 == listBlockCap {
				next := block.waitNext()
				nextIndex := (newHead &^ listMarkBit) + (1 << listShift)
				if next.next.Load() != nil {
					nextIndex |= listMarkBit
				}
				ch.head.block.Store(next)
				ch.head.index.Store(nextIndex)
			}
			tok.list.block = unsafe.Pointer(block)
			tok.list.offset = int(offset)
			return true
		}

		bo.spinLight()
		head = ch.head.index.Load()
		block = ch.head.block.Load()
	}
}

func (ch *listChan[T]) read(tok *token) (T, bool) {
	var zero T
	if tok.list.block == nil {
		return zero, false
	}

	block := (*listBlock[T])(tok.list.block)
	offset := tok.list.offset
	slot := &block.slots[offset]
	slot.waitWrite()
	msg := slot.msg
	slot.msg = zero

	if offset+1 == listBlockCap {
		destroyListBlock[T](block, 0)
	} else if prev := fetchOrUint64(&slot.state, listRead); prev&listDestroy != 0 {
		destroyListBlock[T](block, offset+1)
	}

	return msg, true
}

func (ch *listChan[T]) tryRecv() (T, *TryRecvError) {
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

func (ch *listChan[T]) recv(deadline time.Time, hasDeadline bool) (T, *RecvTimeoutError) {
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

func (ch *listChan[T]) len() int {
	for {
		tail := ch.tail.index.Load()
		head := ch.head.index.Load()

		if ch.tail.index.Load() == tail {
			tail &^= (1 << listShift) - 1
			head &^= (1 << listShift) - 1

			if (tail>>listShift)&(listLap-1) == listLap-1 {
				tail += 1 << listShift
			}
			if (head>>listShift)&(listLap-1) == listLap-1 {
				head += 1 << listShift
			}

			lap := (head >> listShift) / listLap
			tail -= (lap * listLap) << listShift
			head -= (lap * listLap) << listShift

			tail >>= listShift
			head >>= listShift

			return int(tail - head - tail/listLap)
		}
	}
}

func (ch *listChan[T]) capacity() (int, bool) { return 0, false }

func (ch *listChan[T]) disconnectSenders() bool {
	tail := fetchOrUint64(&ch.tail.index, listMarkBit)
	if tail&listMarkBit == 0 {
		ch.receivers.disconnect()
		logEvent(LevelInfo, "list", "disconnect", "senders disconnected")
		return true
	}
	return false
}

func (ch *listChan[T]) disconnectReceivers() bool {
	tail := fetchOrUint64(&ch.tail.index, listMarkBit)
	if tail&listMarkBit == 0 {
		ch.discardAllMessages()
		logEvent(LevelInfo, "list", "disconnect", "receivers disconnected")
		return true
	}
	return false
}

// discardAllMessages drops every remaining message and releases every
// remaining block, called only once all receivers are gone (so
// nothing else will ever read from this channel again).
func (ch *listChan[T]) discardAllMessages() {
	var bo backoff
	tail := ch.tail.index.Load()
	for {
		offset := (tail >> listShift) % listLap
		if offset != listBlockCap {
			break
		}
		bo.spinHeavy()
		tail = ch.tail.index.Load()
	}

	head := ch.head.index.Load()
	block := ch.head.block.Load()

	for head>>listShift != tail>>listShift {
		offset := (head >> listShift) % listLap

		if offset < listBlockCap {
			slot := &block.slots[offset]
			slot.waitWrite()
			var zero T
			slot.msg = zero
		} else {
			block.waitNext()
			block = block.next.Load()
		}

		head += 1 << listShift
	}

	head &^= listMarkBit
	ch.head.block.Store(nil)
	ch.head.index.Store(head)
}

func (ch *listChan[T]) isDisconnected() bool {
	return ch.tail.index.Load()&listMarkBit != 0
}

func (ch *listChan[T]) isEmpty() bool {
	head := ch.head.index.Load()
	tail := ch.tail.index.Load()
	return head>>listShift == tail>>listShift
}

func (ch *listChan[T]) isFull() bool { return false }
