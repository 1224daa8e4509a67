// Package mpmc implements multi-producer, multi-consumer in-process
// channels with three interchangeable storage flavors behind one API:
// an unbounded block-linked list, a bounded lock-free ring buffer, and
// a zero-capacity rendezvous channel.
//
// Channel and SyncChannel are the two constructors. Channel returns an
// unbounded channel; SyncChannel(capacity) returns a bounded channel
// for capacity > 0, or a rendezvous channel for capacity == 0. Both
// return a Sender[T] and a Receiver[T] sharing one underlying channel
// through reference-counted handles — call Close on each handle once
// you are done with it.
//
// Blocked senders and receivers park on a per-call Context and are
// woken by a Waker registered on the channel; multi-way select across
// several channels at once is not implemented.
package mpmc
