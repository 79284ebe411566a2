// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package queue

import (
	"context"
	"errors"
	"math"
	"time"
)

// Unbounded is the capacity of a queue created without an explicit bound.
const Unbounded = math.MaxInt

var (
	// ErrNullElement is returned when a nil item, sequence, or sink is supplied.
	ErrNullElement = errors.New("nil elements are not permitted")

	// ErrIllegalArgument is returned for a nonpositive capacity, a seed larger than the
	// capacity, or a bulk operation that refers to the queue itself.
	ErrIllegalArgument = errors.New("illegal argument")

	// ErrCapacityExceeded is returned when an unconditional insert cannot fit into a bounded queue.
	ErrCapacityExceeded = errors.New("the queue is full")

	// ErrCancelled is returned when the context of a blocked operation is canceled or expires
	// before the operation could complete.  The returned error also wraps ctx.Err().
	ErrCancelled = errors.New("the queue operation was cancelled")
)

// Sequence is a finite, ordered source of elements.  It is used to seed a queue and
// as the source of AddAll.
type Sequence[T any] interface {
	// Len returns the number of elements Each will visit.
	Len() int

	// Each visits elements in order until f returns false.
	Each(f func(T) bool)
}

// Sink receives elements drained from a queue.
type Sink[T any] interface {
	// Add appends an element.  A non-nil error stops a drain, and the element
	// that could not be added stays in the queue.
	Add(T) error
}

// Slice adapts a Go slice to both Sequence and Sink.  A nil Slice is an empty sequence.
type Slice[T any] []T

func (s Slice[T]) Len() int {
	return len(s)
}

func (s Slice[T]) Each(f func(T) bool) {
	for _, v := range s {
		if !f(v) {
			return
		}
	}
}

// Add appends v.  It never fails.
func (s *Slice[T]) Add(v T) error {
	*s = append(*s, v)
	return nil
}

// Interface is a FIFO queue with an optional fixed capacity whose producers block when it is
// full and whose consumers block when it is empty.
//
// Probing methods (Offer, OfferWait, Poll, PollWait, Peek) report that they could not proceed
// through their boolean result.  Errors are reserved for invalid input and cancellation.
type Interface[T comparable] interface {
	Sequence[T]
	Sink[T]

	// Offer inserts v if there is room, returning false immediately if the queue is full.
	Offer(v T) (bool, error)

	// OfferWait inserts v, waiting up to timeout for room.  It returns false if the timeout
	// elapses first.  If ctx is canceled while waiting, ErrCancelled is returned.
	OfferWait(ctx context.Context, v T, timeout time.Duration) (bool, error)

	// Put inserts v, waiting as long as necessary for room.  If ctx is canceled while
	// waiting, ErrCancelled is returned and the queue is unchanged.
	Put(ctx context.Context, v T) error

	// Take removes the head, waiting as long as necessary for an element.  If ctx is canceled
	// while waiting, ErrCancelled is returned.
	Take(ctx context.Context) (T, error)

	// Poll removes the head if there is one, returning false immediately if the queue is empty.
	Poll() (T, bool)

	// PollWait removes the head, waiting up to timeout for an element.  It returns false if
	// the timeout elapses first.  If ctx is canceled while waiting, ErrCancelled is returned.
	PollWait(ctx context.Context, timeout time.Duration) (T, bool, error)

	// Peek returns the head without removing it.
	Peek() (T, bool)

	// Remove deletes the first element equal to v, returning true if one was found.
	Remove(v T) bool

	// Contains tests if any element is equal to v.
	Contains(v T) bool

	// DrainTo moves at most max elements, in order, into sink.
	DrainTo(sink Sink[T], max int) (int, error)

	// Drain moves every element, in order, into sink.
	Drain(sink Sink[T]) (int, error)

	// AddAll inserts every element of seq, or none of them.  It returns true if the queue changed.
	AddAll(seq Sequence[T]) (bool, error)

	// RemainingCapacity returns the number of elements that can be inserted without blocking.
	RemainingCapacity() int

	// Capacity returns the fixed bound of this queue, or Unbounded.
	Capacity() int

	// Clear removes every element.
	Clear()
}
