package queue

import (
	"container/list"
	"sync"
	"time"
)

// waitResult describes why a cond.wait returned
type waitResult int

const (
	signaled waitResult = iota
	canceled
	expired
)

// waiter is a single goroutine parked on a cond
type waiter struct {
	c        chan struct{}
	signaled bool
}

// cond is a condition variable bound to a lock, similar to sync.Cond.  Unlike sync.Cond,
// a wait can be abandoned when a done channel closes or a timer fires.
//
// Waiters are woken in FIFO order.  Both wait and signal must be called with the lock held.
type cond struct {
	l       sync.Locker
	waiters list.List
}

func newCond(l sync.Locker) *cond {
	return &cond{l: l}
}

// wait atomically releases the lock and parks the calling goroutine until it is signaled,
// done is closed, or timeout fires.  Either channel may be nil.  The lock is held again when
// this method returns.
//
// A waiter that gives up after being chosen by signal hands that signal to the next waiter.
// Callers must recheck their predicate in a loop.
func (c *cond) wait(done <-chan struct{}, timeout <-chan time.Time) waitResult {
	w := &waiter{c: make(chan struct{}, 1)}
	e := c.waiters.PushBack(w)
	c.l.Unlock()

	var result waitResult
	select {
	case <-w.c:
		result = signaled
	case <-done:
		result = canceled
	case <-timeout:
		result = expired
	}

	c.l.Lock()
	if result != signaled {
		if w.signaled {
			c.signal()
		} else {
			c.waiters.Remove(e)
		}
	}

	return result
}

// signal wakes the longest waiting goroutine, if any
func (c *cond) signal() {
	if front := c.waiters.Front(); front != nil {
		w := c.waiters.Remove(front).(*waiter)
		w.signaled = true
		w.c <- struct{}{}
	}
}

// len returns the number of parked goroutines
func (c *cond) len() int {
	return c.waiters.Len()
}
