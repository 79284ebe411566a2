// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package queue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-kit/log"
	"github.com/xmidt-org/collections/clock"
	"github.com/xmidt-org/collections/logging"
)

// node is a single link in a Linked queue.  The head of a Linked queue is always
// a sentinel node whose item is the zero value.
type node[T comparable] struct {
	item T
	next *node[T]
}

// Linked is the Interface implementation backed by a singly linked list with separate
// locks for the put and take sides, so that producers and consumers do not contend
// with each other for ordinary single element operations.
//
// The element count is the only state shared by both sides, and it is maintained
// atomically.  The put lock guards the tail and the take lock guards the head.
// Operations that need a consistent view of the whole list (Remove, Contains, Clear,
// Each, Slice) acquire the put lock and then the take lock.
//
// Instances must be created with New, NewUnbounded, NewFrom, or NewBounded.
type Linked[T comparable] struct {
	capacity int
	count    atomic.Int64

	takeLock sync.Mutex
	notEmpty *cond
	head     *node[T]

	putLock sync.Mutex
	notFull *cond
	last    *node[T]

	nillable bool
	equal    func(a, b T) bool
	clock    clock.Interface
	logger   log.Logger
}

var _ Interface[string] = (*Linked[string])(nil)

// New creates an empty queue with a fixed capacity.  A nonpositive capacity results
// in ErrIllegalArgument.
func New[T comparable](capacity int, o ...Option[T]) (*Linked[T], error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w: the capacity must be positive, was %d", ErrIllegalArgument, capacity)
	}

	return newLinked(capacity, o), nil
}

// NewUnbounded creates an empty queue whose capacity is Unbounded.
func NewUnbounded[T comparable](o ...Option[T]) *Linked[T] {
	return newLinked(Unbounded, o)
}

// NewFrom creates an Unbounded queue initially holding the elements of seed, in order.
// A nil seed, or a seed containing a nil element, results in ErrNullElement.
func NewFrom[T comparable](seed Sequence[T], o ...Option[T]) (*Linked[T], error) {
	return newSeeded(Unbounded, seed, o)
}

// NewBounded creates a queue with a fixed capacity initially holding the elements of seed,
// in order.  A seed with more elements than the capacity results in ErrIllegalArgument.
func NewBounded[T comparable](capacity int, seed Sequence[T], o ...Option[T]) (*Linked[T], error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w: the capacity must be positive, was %d", ErrIllegalArgument, capacity)
	}

	return newSeeded(capacity, seed, o)
}

func newLinked[T comparable](capacity int, o []Option[T]) *Linked[T] {
	sentinel := new(node[T])
	q := &Linked[T]{
		capacity: capacity,
		nillable: nillable[T](),
		head:     sentinel,
		last:     sentinel,
		equal:    defaultEqual[T],
		clock:    clock.System(),
		logger:   logging.DefaultLogger(),
	}

	q.notEmpty = newCond(&q.takeLock)
	q.notFull = newCond(&q.putLock)
	for _, f := range o {
		f(q)
	}

	return q
}

func newSeeded[T comparable](capacity int, seed Sequence[T], o []Option[T]) (*Linked[T], error) {
	q := newLinked(capacity, o)
	items, err := q.collect(seed)
	if err != nil {
		return nil, err
	}

	if len(items) > capacity {
		return nil, fmt.Errorf("%w: the seed has %d elements, exceeding the capacity %d", ErrIllegalArgument, len(items), capacity)
	}

	q.putLock.Lock()
	for _, v := range items {
		q.enqueue(&node[T]{item: v})
	}

	q.count.Store(int64(len(items)))
	q.putLock.Unlock()
	return q, nil
}

// collect copies a sequence, rejecting nil sequences and nil elements
func (q *Linked[T]) collect(seq Sequence[T]) ([]T, error) {
	if isNil(seq) {
		return nil, ErrNullElement
	}

	var (
		items = make([]T, 0, max(seq.Len(), 0))
		err   error
	)

	seq.Each(func(v T) bool {
		if q.isNil(v) {
			err = fmt.Errorf("%w: element %d of the sequence is nil", ErrNullElement, len(items))
			return false
		}

		items = append(items, v)
		return true
	})

	return items, err
}

// isNil tests v only when T is a type with a nil value
func (q *Linked[T]) isNil(v T) bool {
	return q.nillable && isNil(v)
}

func (q *Linked[T]) size() int {
	return int(q.count.Load())
}

// enqueue links n at the tail.  The put lock must be held.
func (q *Linked[T]) enqueue(n *node[T]) {
	q.last.next = n
	q.last = n
}

// dequeue unlinks the first node after the sentinel, which becomes the new sentinel.
// The take lock must be held and the queue must not be empty.
func (q *Linked[T]) dequeue() T {
	var (
		zero  T
		h     = q.head
		first = h.next
	)

	h.next = nil
	q.head = first
	v := first.item
	first.item = zero
	return v
}

// insert enqueues n and cascades the not full signal to any other waiting producer.
// It returns the count prior to insertion.  The put lock must be held.
func (q *Linked[T]) insert(n *node[T]) int {
	q.enqueue(n)
	c := int(q.count.Add(1)) - 1
	if c+1 < q.capacity {
		q.notFull.signal()
	}

	return c
}

// extract dequeues the head and cascades the not empty signal to any other waiting consumer.
// It returns the head and the count prior to removal.  The take lock must be held.
func (q *Linked[T]) extract() (T, int) {
	v := q.dequeue()
	c := int(q.count.Add(-1)) + 1
	if c > 1 {
		q.notEmpty.signal()
	}

	return v, c
}

// signalNotEmpty wakes a waiting consumer.  Only called from the put side, without the take lock.
func (q *Linked[T]) signalNotEmpty() {
	q.takeLock.Lock()
	q.notEmpty.signal()
	q.takeLock.Unlock()
}

// signalNotFull wakes a waiting producer.  Only called from the take side, without the put lock.
func (q *Linked[T]) signalNotFull() {
	q.putLock.Lock()
	q.notFull.signal()
	q.putLock.Unlock()
}

// fullyLock acquires both locks.  The order is always put, then take.
func (q *Linked[T]) fullyLock() {
	q.putLock.Lock()
	q.takeLock.Lock()
}

func (q *Linked[T]) fullyUnlock() {
	q.takeLock.Unlock()
	q.putLock.Unlock()
}

// refersTo tests if x is this queue, or a decoration or wrapper of it
func (q *Linked[T]) refersTo(x any) bool {
	for {
		switch v := x.(type) {
		case *Linked[T]:
			return v == q

		case interface{ Unwrap() Interface[T] }:
			x = v.Unwrap()

		case interface{ Unwrap() Sequence[T] }:
			x = v.Unwrap()

		default:
			return false
		}
	}
}

// cancelled produces the error for an abandoned wait.  No locks may be held.
func (q *Linked[T]) cancelled(ctx context.Context, op string) error {
	logging.Debug(q.logger).Log(
		logging.MessageKey(), "abandoned blocked wait",
		"op", op,
		logging.ErrorKey(), ctx.Err(),
	)

	return fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
}

func (q *Linked[T]) Len() int {
	return q.size()
}

func (q *Linked[T]) IsEmpty() bool {
	return q.size() == 0
}

func (q *Linked[T]) Capacity() int {
	return q.capacity
}

func (q *Linked[T]) RemainingCapacity() int {
	return q.capacity - q.size()
}

// Add inserts v, returning ErrCapacityExceeded if the queue is full.
func (q *Linked[T]) Add(v T) error {
	ok, err := q.Offer(v)
	switch {
	case err != nil:
		return err

	case !ok:
		return fmt.Errorf("%w: capacity %d", ErrCapacityExceeded, q.capacity)

	default:
		return nil
	}
}

func (q *Linked[T]) Offer(v T) (bool, error) {
	if q.isNil(v) {
		return false, ErrNullElement
	}

	if q.size() == q.capacity {
		return false, nil
	}

	c := -1
	n := &node[T]{item: v}
	q.putLock.Lock()
	if q.size() < q.capacity {
		c = q.insert(n)
	}

	q.putLock.Unlock()
	if c == 0 {
		q.signalNotEmpty()
	}

	return c >= 0, nil
}

func (q *Linked[T]) OfferWait(ctx context.Context, v T, timeout time.Duration) (bool, error) {
	if q.isNil(v) {
		return false, ErrNullElement
	}

	if ctx == nil {
		ctx = context.Background()
	}

	var timer clock.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	n := &node[T]{item: v}
	q.putLock.Lock()
	for q.size() == q.capacity {
		if timeout <= 0 {
			q.putLock.Unlock()
			return false, nil
		}

		if timer == nil {
			timer = q.clock.NewTimer(timeout)
		}

		switch q.notFull.wait(ctx.Done(), timer.C()) {
		case expired:
			q.putLock.Unlock()
			return false, nil

		case canceled:
			q.putLock.Unlock()
			return false, q.cancelled(ctx, "offer")
		}
	}

	c := q.insert(n)
	q.putLock.Unlock()
	if c == 0 {
		q.signalNotEmpty()
	}

	return true, nil
}

func (q *Linked[T]) Put(ctx context.Context, v T) error {
	if q.isNil(v) {
		return ErrNullElement
	}

	if ctx == nil {
		ctx = context.Background()
	}

	n := &node[T]{item: v}
	q.putLock.Lock()
	for q.size() == q.capacity {
		if q.notFull.wait(ctx.Done(), nil) == canceled {
			q.putLock.Unlock()
			return q.cancelled(ctx, "put")
		}
	}

	c := q.insert(n)
	q.putLock.Unlock()
	if c == 0 {
		q.signalNotEmpty()
	}

	return nil
}

func (q *Linked[T]) Take(ctx context.Context) (T, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	q.takeLock.Lock()
	for q.size() == 0 {
		if q.notEmpty.wait(ctx.Done(), nil) == canceled {
			q.takeLock.Unlock()
			var zero T
			return zero, q.cancelled(ctx, "take")
		}
	}

	v, c := q.extract()
	q.takeLock.Unlock()
	if c == q.capacity {
		q.signalNotFull()
	}

	return v, nil
}

func (q *Linked[T]) Poll() (v T, ok bool) {
	if q.size() == 0 {
		return
	}

	c := -1
	q.takeLock.Lock()
	if q.size() > 0 {
		v, c = q.extract()
		ok = true
	}

	q.takeLock.Unlock()
	if c == q.capacity {
		q.signalNotFull()
	}

	return
}

func (q *Linked[T]) PollWait(ctx context.Context, timeout time.Duration) (T, bool, error) {
	var zero T
	if ctx == nil {
		ctx = context.Background()
	}

	var timer clock.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	q.takeLock.Lock()
	for q.size() == 0 {
		if timeout <= 0 {
			q.takeLock.Unlock()
			return zero, false, nil
		}

		if timer == nil {
			timer = q.clock.NewTimer(timeout)
		}

		switch q.notEmpty.wait(ctx.Done(), timer.C()) {
		case expired:
			q.takeLock.Unlock()
			return zero, false, nil

		case canceled:
			q.takeLock.Unlock()
			return zero, false, q.cancelled(ctx, "poll")
		}
	}

	v, c := q.extract()
	q.takeLock.Unlock()
	if c == q.capacity {
		q.signalNotFull()
	}

	return v, true, nil
}

func (q *Linked[T]) Peek() (v T, ok bool) {
	if q.size() == 0 {
		return
	}

	q.takeLock.Lock()
	defer q.takeLock.Unlock()

	// only producers can run concurrently, and they never shrink the queue
	if q.size() > 0 {
		v, ok = q.head.next.item, true
	}

	return
}

// unlink removes p, whose predecessor is trail.  Both locks must be held.
func (q *Linked[T]) unlink(p, trail *node[T]) {
	var zero T
	p.item = zero
	trail.next = p.next
	if q.last == p {
		q.last = trail
	}

	if int(q.count.Add(-1))+1 == q.capacity {
		q.notFull.signal()
	}
}

func (q *Linked[T]) Remove(v T) bool {
	if q.isNil(v) {
		return false
	}

	q.fullyLock()
	defer q.fullyUnlock()

	for trail, p := q.head, q.head.next; p != nil; trail, p = p, p.next {
		if q.equal(v, p.item) {
			q.unlink(p, trail)
			return true
		}
	}

	return false
}

func (q *Linked[T]) Contains(v T) bool {
	if q.isNil(v) {
		return false
	}

	q.fullyLock()
	defer q.fullyUnlock()

	for p := q.head.next; p != nil; p = p.next {
		if q.equal(v, p.item) {
			return true
		}
	}

	return false
}

// Slice returns a copy of the current elements, in order.
func (q *Linked[T]) Slice() []T {
	q.fullyLock()
	defer q.fullyUnlock()

	items := make([]T, 0, q.size())
	for p := q.head.next; p != nil; p = p.next {
		items = append(items, p.item)
	}

	return items
}

// Each visits a snapshot of the current elements.  No locks are held while f runs,
// so f may freely use this queue.
func (q *Linked[T]) Each(f func(T) bool) {
	for _, v := range q.Slice() {
		if !f(v) {
			return
		}
	}
}

func (q *Linked[T]) Clear() {
	q.fullyLock()
	defer q.fullyUnlock()

	var zero T
	for h := q.head; h.next != nil; {
		p := h.next
		h.next = nil
		p.item = zero
		h = p
	}

	q.head = q.last
	if int(q.count.Swap(0)) == q.capacity {
		q.notFull.signal()
	}
}

func (q *Linked[T]) DrainTo(sink Sink[T], max int) (int, error) {
	if isNil(sink) {
		return 0, ErrNullElement
	}

	if q.refersTo(sink) {
		return 0, fmt.Errorf("%w: a queue cannot be drained into itself", ErrIllegalArgument)
	}

	if max <= 0 {
		return 0, nil
	}

	return q.drain(sink, max)
}

func (q *Linked[T]) Drain(sink Sink[T]) (int, error) {
	return q.DrainTo(sink, Unbounded)
}

// drain moves up to max elements into sink under a single acquisition of the take lock.
// Elements handed to sink stay drained even if sink panics partway through.
func (q *Linked[T]) drain(sink Sink[T], max int) (i int, err error) {
	var (
		zero T
		full bool
	)

	q.takeLock.Lock()
	h := q.head
	defer func() {
		if i > 0 {
			q.head = h
			full = int(q.count.Add(int64(-i)))+i == q.capacity
		}

		q.takeLock.Unlock()
		if full {
			q.signalNotFull()
		}
	}()

	for n := min(max, q.size()); i < n; i++ {
		p := h.next
		if err = sink.Add(p.item); err != nil {
			break
		}

		p.item = zero
		h.next = nil
		h = p
	}

	return
}

func (q *Linked[T]) AddAll(seq Sequence[T]) (bool, error) {
	if isNil(seq) {
		return false, ErrNullElement
	}

	if q.refersTo(seq) {
		return false, fmt.Errorf("%w: a queue cannot be added to itself", ErrIllegalArgument)
	}

	items, err := q.collect(seq)
	if err != nil {
		return false, err
	} else if len(items) == 0 {
		return false, nil
	}

	q.putLock.Lock()

	// consumers can only grow the remaining capacity while the put lock is held
	if remaining := q.capacity - q.size(); len(items) > remaining {
		q.putLock.Unlock()
		return false, fmt.Errorf("%w: %d elements do not fit into the remaining capacity %d", ErrCapacityExceeded, len(items), remaining)
	}

	for _, v := range items {
		q.enqueue(&node[T]{item: v})
	}

	c := int(q.count.Add(int64(len(items)))) - len(items)
	if c+len(items) < q.capacity {
		q.notFull.signal()
	}

	q.putLock.Unlock()
	if c == 0 {
		q.signalNotEmpty()
	}

	return true, nil
}
