// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package concurrent

import (
	"context"
	"sync"
	"time"
)

// WaitTimeout performs a timed wait on a given sync.WaitGroup
func WaitTimeout(waitGroup *sync.WaitGroup, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return WaitContext(ctx, waitGroup)
}

// WaitContext waits on a given sync.WaitGroup until either the wait succeeds or
// the context is done.  The goroutine that waits on the group lingers until the
// group completes.
func WaitContext(ctx context.Context, waitGroup *sync.WaitGroup) bool {
	success := make(chan struct{})
	go func() {
		defer close(success)
		waitGroup.Wait()
	}()

	select {
	case <-success:
		return true
	case <-ctx.Done():
		return false
	}
}
