package queue

import (
	"context"
	"errors"
	"time"

	"github.com/go-kit/kit/metrics/discard"
	"github.com/xmidt-org/collections/xmetrics"
)

// InstrumentOption represents a configurable option for instrumenting a queue
type InstrumentOption func(*instruments)

type instruments struct {
	size      xmetrics.Setter
	inserts   xmetrics.Adder
	removals  xmetrics.Adder
	rejected  xmetrics.Adder
	timeouts  xmetrics.Adder
	cancelled xmetrics.Adder
}

// WithSize establishes a gauge that tracks the number of elements in the queue after each
// mutating call made through the instrumented queue.  If a nil gauge is supplied, sizes are discarded.
func WithSize(s xmetrics.Setter) InstrumentOption {
	return func(i *instruments) {
		if s != nil {
			i.size = s
		} else {
			i.size = discard.NewGauge()
		}
	}
}

// WithInserts establishes a counter of inserted elements.  If a nil counter is supplied,
// insert counts are discarded.
func WithInserts(a xmetrics.Adder) InstrumentOption {
	return func(i *instruments) {
		if a != nil {
			i.inserts = a
		} else {
			i.inserts = discard.NewCounter()
		}
	}
}

// WithRemovals establishes a counter of removed elements, whether taken, polled, drained, or
// deleted.  If a nil counter is supplied, removal counts are discarded.
func WithRemovals(a xmetrics.Adder) InstrumentOption {
	return func(i *instruments) {
		if a != nil {
			i.removals = a
		} else {
			i.removals = discard.NewCounter()
		}
	}
}

// WithRejected establishes a counter of inserts refused because the queue was full.
// If a nil counter is supplied, rejections are discarded.
func WithRejected(a xmetrics.Adder) InstrumentOption {
	return func(i *instruments) {
		if a != nil {
			i.rejected = a
		} else {
			i.rejected = discard.NewCounter()
		}
	}
}

// WithTimeouts establishes a counter of timed operations whose timeout elapsed.
// If a nil counter is supplied, timeouts are discarded.
func WithTimeouts(a xmetrics.Adder) InstrumentOption {
	return func(i *instruments) {
		if a != nil {
			i.timeouts = a
		} else {
			i.timeouts = discard.NewCounter()
		}
	}
}

// WithCancelled establishes a counter of blocked operations abandoned because their context
// was canceled.  If a nil counter is supplied, cancellations are discarded.
func WithCancelled(a xmetrics.Adder) InstrumentOption {
	return func(i *instruments) {
		if a != nil {
			i.cancelled = a
		} else {
			i.cancelled = discard.NewCounter()
		}
	}
}

// WithMeasures is syntactic sugar for applying every metric in a Measures
func WithMeasures(m Measures) InstrumentOption {
	return func(i *instruments) {
		WithSize(m.Size)(i)
		WithInserts(m.Inserts)(i)
		WithRemovals(m.Removals)(i)
		WithRejected(m.Rejected)(i)
		WithTimeouts(m.Timeouts)(i)
		WithCancelled(m.Cancelled)(i)
	}
}

// Instrument decorates an existing queue with a set of options.  A nil queue results in a panic.
func Instrument[T comparable](q Interface[T], o ...InstrumentOption) Interface[T] {
	if q == nil {
		panic("The queue cannot be nil")
	}

	iq := &instrumentedQueue[T]{
		Interface: q,
		instruments: instruments{
			size:      discard.NewGauge(),
			inserts:   discard.NewCounter(),
			removals:  discard.NewCounter(),
			rejected:  discard.NewCounter(),
			timeouts:  discard.NewCounter(),
			cancelled: discard.NewCounter(),
		},
	}

	for _, f := range o {
		f(&iq.instruments)
	}

	iq.updateSize()
	return iq
}

type instrumentedQueue[T comparable] struct {
	Interface[T]
	instruments
}

// Unwrap returns the decorated queue
func (iq *instrumentedQueue[T]) Unwrap() Interface[T] {
	return iq.Interface
}

func (iq *instrumentedQueue[T]) updateSize() {
	iq.size.Set(float64(iq.Interface.Len()))
}

func (iq *instrumentedQueue[T]) inserted(ok bool, err error) {
	switch {
	case errors.Is(err, ErrCapacityExceeded):
		iq.rejected.Add(1.0)

	case errors.Is(err, ErrCancelled):
		iq.cancelled.Add(1.0)

	case err != nil:
		// validation failures are not counted

	case ok:
		iq.inserts.Add(1.0)
		iq.updateSize()

	default:
		iq.rejected.Add(1.0)
	}
}

func (iq *instrumentedQueue[T]) removed(n int, err error) {
	if errors.Is(err, ErrCancelled) {
		iq.cancelled.Add(1.0)
	}

	if n > 0 {
		iq.removals.Add(float64(n))
		iq.updateSize()
	}
}

func (iq *instrumentedQueue[T]) Add(v T) error {
	err := iq.Interface.Add(v)
	iq.inserted(err == nil, err)
	return err
}

func (iq *instrumentedQueue[T]) Offer(v T) (bool, error) {
	ok, err := iq.Interface.Offer(v)
	iq.inserted(ok, err)
	return ok, err
}

func (iq *instrumentedQueue[T]) OfferWait(ctx context.Context, v T, timeout time.Duration) (bool, error) {
	ok, err := iq.Interface.OfferWait(ctx, v, timeout)
	if !ok && err == nil && timeout > 0 {
		iq.timeouts.Add(1.0)
	}

	iq.inserted(ok, err)
	return ok, err
}

func (iq *instrumentedQueue[T]) Put(ctx context.Context, v T) error {
	err := iq.Interface.Put(ctx, v)
	iq.inserted(err == nil, err)
	return err
}

// countingSequence counts the elements a Sequence actually yields, which can differ
// from its Len when the sequence is changing concurrently
type countingSequence[T any] struct {
	Sequence[T]
	yielded int
}

func (cs *countingSequence[T]) Each(f func(T) bool) {
	cs.Sequence.Each(func(v T) bool {
		if !f(v) {
			return false
		}

		cs.yielded++
		return true
	})
}

func (cs *countingSequence[T]) Unwrap() Sequence[T] {
	return cs.Sequence
}

func (iq *instrumentedQueue[T]) AddAll(seq Sequence[T]) (bool, error) {
	if isNil(seq) {
		return iq.Interface.AddAll(seq)
	}

	counted := &countingSequence[T]{Sequence: seq}
	changed, err := iq.Interface.AddAll(counted)
	if errors.Is(err, ErrCapacityExceeded) {
		iq.rejected.Add(1.0)
	}

	// AddAll is all or nothing, so every yielded element was inserted
	if changed {
		iq.inserts.Add(float64(counted.yielded))
		iq.updateSize()
	}

	return changed, err
}

func (iq *instrumentedQueue[T]) Take(ctx context.Context) (T, error) {
	v, err := iq.Interface.Take(ctx)
	if err == nil {
		iq.removed(1, nil)
	} else {
		iq.removed(0, err)
	}

	return v, err
}

func (iq *instrumentedQueue[T]) Poll() (T, bool) {
	v, ok := iq.Interface.Poll()
	if ok {
		iq.removed(1, nil)
	}

	return v, ok
}

func (iq *instrumentedQueue[T]) PollWait(ctx context.Context, timeout time.Duration) (T, bool, error) {
	v, ok, err := iq.Interface.PollWait(ctx, timeout)
	switch {
	case ok:
		iq.removed(1, nil)

	case err != nil:
		iq.removed(0, err)

	case timeout > 0:
		iq.timeouts.Add(1.0)
	}

	return v, ok, err
}

func (iq *instrumentedQueue[T]) Remove(v T) bool {
	ok := iq.Interface.Remove(v)
	if ok {
		iq.removed(1, nil)
	}

	return ok
}

func (iq *instrumentedQueue[T]) DrainTo(sink Sink[T], max int) (int, error) {
	n, err := iq.Interface.DrainTo(sink, max)
	iq.removed(n, err)
	return n, err
}

func (iq *instrumentedQueue[T]) Drain(sink Sink[T]) (int, error) {
	n, err := iq.Interface.Drain(sink)
	iq.removed(n, err)
	return n, err
}

func (iq *instrumentedQueue[T]) Clear() {
	iq.Interface.Clear()
	iq.updateSize()
}
