// Package queue provides the bounded FIFO buffer between Submit and
// the delivery workers.
//
// The two admission policies are separate implementations behind one
// interface, because their invariants are mutually exclusive:
//
//   - Blocking: Offer waits for space (optionally bounded by a
//     timeout); nothing is ever dropped and Dropped() stays 0.
//   - Failsafe: Offer never blocks; when full the entry is discarded
//     and counted in Dropped().
//
// Both are backed by a buffered channel, so FIFO order and
// multi-producer/multi-consumer safety come from the channel itself.
package queue
