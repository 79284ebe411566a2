// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

/*
Package queue provides a FIFO blocking queue with an optional fixed capacity.

Linked is the standard implementation.  It keeps separate locks for producers and
consumers, so a Put and a Take on a nonempty, nonfull queue never contend with each
other.  Blocking operations accept a context.Context, and timed operations accept an
explicit timeout.  A blocked operation whose context is canceled returns an error
for which errors.Is(err, ErrCancelled) is true.

Probing operations such as Offer and Poll report a full or empty queue through their
boolean result rather than an error.  Instrument decorates any Interface with go-kit
metrics, and Metrics supplies the matching xmetrics module.
*/
package queue
