package concurrent

import (
	"sync"
	"time"
)

// WaitGroup is an extension of sync.WaitGroup that supplies additional behavior
type WaitGroup struct {
	sync.WaitGroup
}

// Unwrap returns the embedded sync.WaitGroup
func (wait *WaitGroup) Unwrap() *sync.WaitGroup {
	return &wait.WaitGroup
}

// WaitTimeout waits on this WaitGroup until either the wait succeeds or the
// timeout elapses.  This method returns true if sync.WaitGroup.Wait() returned
// within the timeout, false if the timeout elapsed.
func (wait *WaitGroup) WaitTimeout(timeout time.Duration) bool {
	return WaitTimeout(&wait.WaitGroup, timeout)
}
