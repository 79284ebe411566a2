// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-kit/kit/metrics/provider"
	"github.com/go-kit/log"
	"github.com/segmentio/ksuid"
	"github.com/xmidt-org/collections/clock"
	"github.com/xmidt-org/collections/concurrent"
	"github.com/xmidt-org/collections/logging"
	"github.com/xmidt-org/collections/queue"
)

const (
	// WorkQueue is the name of the bounded queue shared by producers and consumers
	WorkQueue = "work"

	// ViolationsQueue is the name of the unbounded queue holding every item delivered
	// more than once or out of order
	ViolationsQueue = "violations"

	// maxReportedViolations caps the violations included in a Summary
	maxReportedViolations = 20
)

// item is a single sequenced element inserted by a producer
type item struct {
	Producer int `json:"producer"`
	Sequence int `json:"sequence"`
}

// QueueSummary describes the state of one named queue
type QueueSummary struct {
	Len               int `json:"len"`
	Capacity          int `json:"capacity"`
	RemainingCapacity int `json:"remainingCapacity"`
}

// Summary is the report of a soak run.  Lost is only computed once a run has finished,
// as in-flight items make it meaningless before then.
type Summary struct {
	ID         string                  `json:"id"`
	Finished   bool                    `json:"finished"`
	Elapsed    string                  `json:"elapsed"`
	Expected   int64                   `json:"expected"`
	Produced   int64                   `json:"produced"`
	Consumed   int64                   `json:"consumed"`
	Timeouts   int64                   `json:"timeouts"`
	Duplicates int64                   `json:"duplicates"`
	OutOfOrder int64                   `json:"outOfOrder"`
	Lost       int64                   `json:"lost"`
	Queues     map[string]QueueSummary `json:"queues"`
	Violations []item                  `json:"violations,omitempty"`
}

// Failed tests if the run observed any violation of queue semantics
func (s Summary) Failed() bool {
	return s.Duplicates > 0 || s.OutOfOrder > 0 || s.Lost != 0
}

// run is a single soak run over a named set of queues
type run struct {
	id     ksuid.KSUID
	config Config
	logger log.Logger
	clock  clock.Interface

	queues     concurrent.Map[string, *queue.Linked[item]]
	delivered  concurrent.Map[item, int]
	work       queue.Interface[item]
	violations *queue.Linked[item]

	started atomic.Pointer[time.Time]
	stopped atomic.Pointer[time.Time]
	cancel  context.CancelFunc

	produced   atomic.Int64
	consumed   atomic.Int64
	timeouts   atomic.Int64
	duplicates atomic.Int64
	outOfOrder atomic.Int64
}

// newRun creates the queues for a soak run.  The work queue is instrumented with
// metrics from the given provider.
func newRun(c Config, logger log.Logger, p provider.Provider) (*run, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}

	r := &run{
		id:        ksuid.New(),
		config:    c,
		clock:     clock.System(),
		queues:    concurrent.NewSyncMap[string, *queue.Linked[item]](),
		delivered: concurrent.NewStriped[item, int](),
	}

	r.logger = logging.Enrich(logger, r)
	work, err := r.queue(WorkQueue, func() (*queue.Linked[item], error) {
		return queue.New(c.Capacity, queue.WithLogger[item](r.logger))
	})

	if err != nil {
		return nil, err
	}

	r.work = queue.Instrument[item](work, queue.WithMeasures(queue.NewMeasures(p)))
	r.violations, err = r.queue(ViolationsQueue, func() (*queue.Linked[item], error) {
		return queue.NewUnbounded[item](), nil
	})

	if err != nil {
		return nil, err
	}

	return r, nil
}

// Metadata exposes the run identifier to logging.Enrich
func (r *run) Metadata() map[string]interface{} {
	return map[string]interface{}{
		"runID": r.id.String(),
	}
}

// queue returns the named queue, using factory to create it if it does not already exist.
// Concurrent callers always receive the same queue.
func (r *run) queue(name string, factory func() (*queue.Linked[item], error)) (*queue.Linked[item], error) {
	if existing, ok := r.queues.Get(name); ok {
		return existing, nil
	}

	created, err := factory()
	if err != nil {
		return nil, err
	}

	existing, loaded, err := r.queues.PutIfAbsent(name, created)
	switch {
	case err != nil:
		return nil, err

	case loaded:
		return existing, nil

	default:
		return created, nil
	}
}

// Run executes the soak until every item is consumed, the configured duration elapses, or
// ctx is canceled.  Any extra runnables are started first and are shut down along with the run.
func (r *run) Run(ctx context.Context, extra ...concurrent.Runnable) (Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, r.config.Duration)
	defer cancel()

	r.cancel = cancel
	started := r.clock.Now()
	r.started.Store(&started)

	logging.Info(r.logger).Log(
		logging.MessageKey(), "soak starting",
		CapacityKey, r.config.Capacity,
		ProducersKey, r.config.Producers,
		ConsumersKey, r.config.Consumers,
		ItemsKey, r.config.Items,
		DurationKey, r.config.Duration,
	)

	runnables := append(concurrent.RunnableSet{}, extra...)
	runnables = append(runnables,
		r.progress(),
		concurrent.RunnableGroup(r.config.Consumers, func(index int, _ <-chan struct{}) {
			r.consume(ctx, index)
		}),
		concurrent.RunnableGroup(r.config.Producers, func(index int, shutdown <-chan struct{}) {
			r.produce(ctx, index, shutdown)
		}),
	)

	err := concurrent.AwaitContext(ctx, runnables)
	stopped := r.clock.Now()
	r.stopped.Store(&stopped)
	s := r.Summary()
	if err != nil {
		logging.Error(r.logger).Log(logging.MessageKey(), "soak could not start", logging.ErrorKey(), err)
		return s, err
	}

	l := logging.Info(r.logger)
	if s.Failed() {
		l = logging.Error(r.logger)
	}

	l.Log(
		logging.MessageKey(), "soak finished",
		"elapsed", s.Elapsed,
		"produced", s.Produced,
		"consumed", s.Consumed,
		"timeouts", s.Timeouts,
		"duplicates", s.Duplicates,
		"outOfOrder", s.OutOfOrder,
		"lost", s.Lost,
	)

	return s, nil
}

// produce inserts this producer's items in sequence until done or shut down
func (r *run) produce(ctx context.Context, producer int, shutdown <-chan struct{}) {
	for s := 0; s < r.config.Items; s++ {
		select {
		case <-shutdown:
			return
		case <-ctx.Done():
			return
		default:
		}

		var (
			v   = item{Producer: producer, Sequence: s}
			err error
		)

		if producer%2 == 0 {
			err = r.work.Put(ctx, v)
		} else {
			err = r.offer(ctx, v)
		}

		if err != nil {
			logging.Debug(r.logger).Log(logging.MessageKey(), "producer stopped", "producer", producer, logging.ErrorKey(), err)
			return
		}

		r.produced.Add(1)
	}
}

// offer retries OfferWait until v is inserted or ctx is done
func (r *run) offer(ctx context.Context, v item) error {
	for {
		ok, err := r.work.OfferWait(ctx, v, r.config.OfferTimeout)
		if ok || err != nil {
			return err
		}

		r.timeouts.Add(1)
	}
}

// consume removes items until ctx is done
func (r *run) consume(ctx context.Context, consumer int) {
	last := make(map[int]int, r.config.Producers)
	for {
		v, err := r.next(ctx, consumer)
		if err != nil {
			logging.Debug(r.logger).Log(logging.MessageKey(), "consumer stopped", "consumer", consumer, logging.ErrorKey(), err)
			return
		}

		r.record(consumer, v, last)
	}
}

// next retrieves the next item for a consumer
func (r *run) next(ctx context.Context, consumer int) (item, error) {
	if consumer%2 == 0 {
		return r.work.Take(ctx)
	}

	for {
		v, ok, err := r.work.PollWait(ctx, r.config.PollTimeout)
		if ok || err != nil {
			return v, err
		}

		r.timeouts.Add(1)
	}
}

// record checks a delivered item against every item seen so far and against the last
// item this consumer received from the same producer.  last is owned by the consumer.
func (r *run) record(consumer int, v item, last map[int]int) {
	if _, loaded, err := r.delivered.PutIfAbsent(v, consumer); err != nil || loaded {
		r.duplicates.Add(1)
		r.violation(v, "duplicate delivery", consumer)
	}

	if previous, ok := last[v.Producer]; ok && v.Sequence <= previous {
		r.outOfOrder.Add(1)
		r.violation(v, "out of order delivery", consumer)
	}

	last[v.Producer] = v.Sequence
	if r.consumed.Add(1) == r.config.expected() && r.cancel != nil {
		r.cancel()
	}
}

func (r *run) violation(v item, message string, consumer int) {
	r.violations.Add(v)
	logging.Error(r.logger).Log(
		logging.MessageKey(), message,
		"consumer", consumer,
		"producer", v.Producer,
		"sequence", v.Sequence,
	)
}

// progress periodically logs a summary of the run
func (r *run) progress() concurrent.Runnable {
	return concurrent.RunnableFunc(func(waitGroup *sync.WaitGroup, shutdown <-chan struct{}) error {
		ticker := r.clock.NewTicker(r.config.Progress)
		waitGroup.Add(1)
		go func() {
			defer waitGroup.Done()
			defer ticker.Stop()

			for {
				select {
				case <-shutdown:
					return

				case <-ticker.C():
					s := r.Summary()
					logging.Info(r.logger).Log(
						logging.MessageKey(), "soak progress",
						"elapsed", s.Elapsed,
						"produced", s.Produced,
						"consumed", s.Consumed,
						"queued", s.Queues[WorkQueue].Len,
					)
				}
			}
		}()

		return nil
	})
}

// Summary reports the current state of the run.  It is safe to call at any time.
func (r *run) Summary() Summary {
	s := Summary{
		ID:         r.id.String(),
		Finished:   r.stopped.Load() != nil,
		Expected:   r.config.expected(),
		Produced:   r.produced.Load(),
		Consumed:   r.consumed.Load(),
		Timeouts:   r.timeouts.Load(),
		Duplicates: r.duplicates.Load(),
		OutOfOrder: r.outOfOrder.Load(),
		Queues:     make(map[string]QueueSummary, r.queues.Len()),
	}

	if started := r.started.Load(); started != nil {
		if stopped := r.stopped.Load(); stopped != nil {
			s.Elapsed = stopped.Sub(*started).String()
		} else {
			s.Elapsed = clock.Since(r.clock, *started).String()
		}
	}

	r.queues.Range(func(name string, q *queue.Linked[item]) bool {
		s.Queues[name] = QueueSummary{
			Len:               q.Len(),
			Capacity:          q.Capacity(),
			RemainingCapacity: q.RemainingCapacity(),
		}

		return true
	})

	r.violations.Each(func(v item) bool {
		s.Violations = append(s.Violations, v)
		return len(s.Violations) < maxReportedViolations
	})

	if s.Finished {
		// every produced item was either consumed or is still queued
		s.Lost = s.Produced - s.Consumed - int64(s.Queues[WorkQueue].Len)
	}

	return s
}
