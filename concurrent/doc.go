// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

/*
Package concurrent provides common functionality for dealing with concurrency that extends
or enhances the core golang packages.

Map is a concurrent key/value contract with atomic conditional updates.  Striped partitions
entries across independently locked stripes, while SyncMap builds on the compare-and-swap
operations of sync.Map.

Runnable, Execute, and Await manage groups of goroutines that shut down together, and
WaitTimeout adds a timed wait to sync.WaitGroup.
*/
package concurrent
