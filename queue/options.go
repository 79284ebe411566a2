package queue

import (
	"github.com/go-kit/log"
	"github.com/xmidt-org/collections/clock"
	"github.com/xmidt-org/collections/logging"
)

// Option is a configurable option for a Linked queue.
type Option[T comparable] func(*Linked[T])

// WithEqual sets the equality used by Remove and Contains.  By default, == is used.
// A nil function restores the default.
func WithEqual[T comparable](f func(a, b T) bool) Option[T] {
	return func(q *Linked[T]) {
		if f != nil {
			q.equal = f
		} else {
			q.equal = defaultEqual[T]
		}
	}
}

// WithClock sets the source of timers for OfferWait and PollWait.  A nil clock
// restores clock.System().
func WithClock[T comparable](c clock.Interface) Option[T] {
	return func(q *Linked[T]) {
		if c != nil {
			q.clock = c
		} else {
			q.clock = clock.System()
		}
	}
}

// WithLogger sets the go-kit logger used to report abandoned waits.  A nil logger
// restores logging.DefaultLogger().
func WithLogger[T comparable](l log.Logger) Option[T] {
	return func(q *Linked[T]) {
		if l != nil {
			q.logger = l
		} else {
			q.logger = logging.DefaultLogger()
		}
	}
}

func defaultEqual[T comparable](a, b T) bool {
	return a == b
}
