package queue

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-kit/log/level"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xmidt-org/collections/clock/clocktest"
	"github.com/xmidt-org/collections/logging"
)

// waitingProducers blocks until n goroutines are parked on the queue's not full condition
func waitingProducers[T comparable](t *testing.T, q *Linked[T], n int) {
	parked(t, &q.putLock, q.notFull, n)
}

// waitingConsumers blocks until n goroutines are parked on the queue's not empty condition
func waitingConsumers[T comparable](t *testing.T, q *Linked[T], n int) {
	parked(t, &q.takeLock, q.notEmpty, n)
}

func testPutBlocksUntilTake(t *testing.T) {
	var (
		assert  = assert.New(t)
		require = require.New(t)
		q       = mustNew[string](t, 1)
		result  = make(chan error, 1)
	)

	require.NoError(q.Add("a"))
	go func() {
		result <- q.Put(context.Background(), "b")
	}()

	waitingProducers(t, q, 1)
	assert.Equal([]string{"a"}, q.Slice(), "Put must not insert into a full queue")

	v, err := q.Take(context.Background())
	require.NoError(err)
	assert.Equal("a", v)

	select {
	case err := <-result:
		assert.NoError(err)
	case <-time.After(5 * time.Second):
		assert.FailNow("Put did not unblock after Take")
	}

	assert.Equal([]string{"b"}, q.Slice())
}

func testTakeBlocksUntilPut(t *testing.T) {
	var (
		assert = assert.New(t)
		q      = mustNew[int](t, 3)
		result = make(chan int, 1)
	)

	go func() {
		v, err := q.Take(context.Background())
		assert.NoError(err)
		result <- v
	}()

	waitingConsumers(t, q, 1)
	assert.NoError(q.Put(context.Background(), 42))

	select {
	case v := <-result:
		assert.Equal(42, v)
	case <-time.After(5 * time.Second):
		assert.FailNow("Take did not unblock after Put")
	}

	assert.True(q.IsEmpty())
}

func testPutCancelled(t *testing.T) {
	var (
		assert      = assert.New(t)
		require     = require.New(t)
		logger      = logging.NewCaptureLogger()
		q           = mustNew(t, 1, WithLogger[string](logger))
		ctx, cancel = context.WithCancel(context.Background())
		result      = make(chan error, 1)
	)

	require.NoError(q.Add("a"))
	go func() {
		result <- q.Put(ctx, "b")
	}()

	waitingProducers(t, q, 1)
	cancel()

	select {
	case err := <-result:
		assert.ErrorIs(err, ErrCancelled)
		assert.ErrorIs(err, context.Canceled)
	case <-time.After(5 * time.Second):
		assert.FailNow("Put did not unblock after cancellation")
	}

	assert.Equal([]string{"a"}, q.Slice(), "a cancelled Put must not insert")
	assertCapacityLaw(t, q)

	select {
	case entry := <-logger.Output():
		assert.Equal(level.DebugValue(), entry[level.Key()])
		assert.Equal("put", entry["op"])
		assert.Equal(context.Canceled, entry[logging.ErrorKey()])
	case <-time.After(5 * time.Second):
		assert.Fail("no log entry for the cancelled Put")
	}

	// the queue must still work for other producers and consumers
	v, err := q.Take(context.Background())
	assert.NoError(err)
	assert.Equal("a", v)
	assert.NoError(q.Put(context.Background(), "c"))
}

func testTakeCancelled(t *testing.T) {
	var (
		assert      = assert.New(t)
		q           = mustNew[string](t, 1)
		ctx, cancel = context.WithTimeout(context.Background(), 50*time.Millisecond)
	)

	defer cancel()
	v, err := q.Take(ctx)
	assert.Empty(v)
	assert.ErrorIs(err, ErrCancelled)
	assert.ErrorIs(err, context.DeadlineExceeded)

	waitingConsumers(t, q, 0)
	assert.NoError(q.Add("a"))
	v, ok := q.Poll()
	assert.True(ok)
	assert.Equal("a", v)
}

func testAlreadyCancelled(t *testing.T) {
	var (
		assert      = assert.New(t)
		q           = mustNew[string](t, 1)
		ctx, cancel = context.WithCancel(context.Background())
	)

	cancel()

	// a cancelled context does not prevent operations that need not wait
	assert.NoError(q.Put(ctx, "a"))
	assert.ErrorIs(q.Put(ctx, "b"), ErrCancelled)

	v, err := q.Take(ctx)
	assert.NoError(err)
	assert.Equal("a", v)

	_, err = q.Take(ctx)
	assert.ErrorIs(err, ErrCancelled)

	_, ok, err := q.PollWait(ctx, time.Hour)
	assert.False(ok)
	assert.ErrorIs(err, ErrCancelled)

	ok, err = q.OfferWait(ctx, "b", time.Hour)
	assert.True(ok)
	assert.NoError(err)

	ok, err = q.OfferWait(ctx, "c", time.Hour)
	assert.False(ok)
	assert.ErrorIs(err, ErrCancelled)
}

func TestBlocking(t *testing.T) {
	t.Run("PutBlocksUntilTake", testPutBlocksUntilTake)
	t.Run("TakeBlocksUntilPut", testTakeBlocksUntilPut)
	t.Run("PutCancelled", testPutCancelled)
	t.Run("TakeCancelled", testTakeCancelled)
	t.Run("AlreadyCancelled", testAlreadyCancelled)
}

// startProducers runs a blocking Put for each value in its own goroutine
func startProducers[T comparable](q *Linked[T], values ...T) <-chan error {
	results := make(chan error, len(values))
	for _, v := range values {
		go func(v T) {
			results <- q.Put(context.Background(), v)
		}(v)
	}

	return results
}

// startConsumers runs n blocking Takes, each in its own goroutine
func startConsumers[T comparable](q *Linked[T], n int) <-chan T {
	results := make(chan T, n)
	for i := 0; i < n; i++ {
		go func() {
			v, err := q.Take(context.Background())
			if err == nil {
				results <- v
			}
		}()
	}

	return results
}

// released waits for n results from blocked goroutines
func released[R any](t *testing.T, results <-chan R, n int) []R {
	var values []R
	for i := 0; i < n; i++ {
		select {
		case v := <-results:
			values = append(values, v)
		case <-time.After(5 * time.Second):
			require.FailNow(t, "blocked goroutines were not released", "expected %d, released %d", n, len(values))
		}
	}

	return values
}

func testDrainToReleasesProducers(t *testing.T) {
	var (
		assert  = assert.New(t)
		require = require.New(t)
		q       = mustNew[string](t, 2)
		drained Slice[string]
	)

	require.NoError(q.Add("a"))
	require.NoError(q.Add("b"))
	results := startProducers(q, "c", "d")
	waitingProducers(t, q, 2)

	// leaving the full state wakes exactly one producer, which refills the queue
	n, err := q.DrainTo(&drained, 1)
	require.NoError(err)
	assert.Equal(1, n)
	for _, err := range released(t, results, 1) {
		assert.NoError(err)
	}

	waitingProducers(t, q, 1)
	assert.Equal(2, q.Len())

	n, err = q.DrainTo(&drained, 1)
	require.NoError(err)
	assert.Equal(1, n)
	for _, err := range released(t, results, 1) {
		assert.NoError(err)
	}

	assert.Equal(Slice[string]{"a", "b"}, drained)
	assert.ElementsMatch([]string{"c", "d"}, q.Slice())
	assertCapacityLaw(t, q)
}

func testDrainToCascades(t *testing.T) {
	var (
		assert  = assert.New(t)
		require = require.New(t)
		q       = mustNew[string](t, 2)
		drained Slice[string]
	)

	require.NoError(q.Add("a"))
	require.NoError(q.Add("b"))
	results := startProducers(q, "c", "d")
	waitingProducers(t, q, 2)

	// a single signal, passed on by the first producer to the second
	n, err := q.Drain(&drained)
	require.NoError(err)
	assert.Equal(2, n)
	for _, err := range released(t, results, 2) {
		assert.NoError(err)
	}

	assert.ElementsMatch([]string{"c", "d"}, q.Slice())
	assertCapacityLaw(t, q)
}

func testRemoveReleasesProducers(t *testing.T) {
	var (
		assert  = assert.New(t)
		require = require.New(t)
		q       = mustNew[string](t, 2)
	)

	require.NoError(q.Add("a"))
	require.NoError(q.Add("b"))
	results := startProducers(q, "c", "d")
	waitingProducers(t, q, 2)

	assert.True(q.Remove("a"))
	for _, err := range released(t, results, 1) {
		assert.NoError(err)
	}

	waitingProducers(t, q, 1)
	assert.True(q.Remove("b"))
	for _, err := range released(t, results, 1) {
		assert.NoError(err)
	}

	assert.ElementsMatch([]string{"c", "d"}, q.Slice())
	assertCapacityLaw(t, q)
}

func testClearReleasesProducers(t *testing.T) {
	var (
		assert  = assert.New(t)
		require = require.New(t)
		q       = mustNew[string](t, 2)
	)

	require.NoError(q.Add("a"))
	require.NoError(q.Add("b"))
	results := startProducers(q, "c", "d")
	waitingProducers(t, q, 2)

	q.Clear()
	for _, err := range released(t, results, 2) {
		assert.NoError(err)
	}

	assert.ElementsMatch([]string{"c", "d"}, q.Slice())
	assertCapacityLaw(t, q)
}

func testAddAllReleasesConsumers(t *testing.T) {
	var (
		assert  = assert.New(t)
		require = require.New(t)
		q       = mustNew[string](t, 5)
	)

	results := startConsumers(q, 3)
	waitingConsumers(t, q, 3)

	// the first consumer is signaled by AddAll, and each passes the signal on
	ok, err := q.AddAll(Slice[string]{"a", "b", "c"})
	require.NoError(err)
	assert.True(ok)

	assert.ElementsMatch([]string{"a", "b", "c"}, released(t, results, 3))
	assert.True(q.IsEmpty())
	assertCapacityLaw(t, q)
}

func TestSignalling(t *testing.T) {
	t.Run("DrainToReleasesProducers", testDrainToReleasesProducers)
	t.Run("DrainToCascades", testDrainToCascades)
	t.Run("RemoveReleasesProducers", testRemoveReleasesProducers)
	t.Run("ClearReleasesProducers", testClearReleasesProducers)
	t.Run("AddAllReleasesConsumers", testAddAllReleasesConsumers)
}

func testOfferWaitTimeout(t *testing.T) {
	var (
		assert  = assert.New(t)
		require = require.New(t)
		fired   = make(chan time.Time, 1)
		timer   = clocktest.NewMockTimer(fired)
		c       = new(clocktest.Mock)
		q       = mustNew(t, 1, WithClock[string](c))
	)

	c.OnNewTimer(time.Minute, timer).Once()
	require.NoError(q.Add("a"))

	// the timer has already fired, so the offer gives up as soon as it waits
	fired <- time.Now()
	ok, err := q.OfferWait(context.Background(), "b", time.Minute)
	assert.False(ok)
	assert.NoError(err)
	assert.Equal([]string{"a"}, q.Slice())

	c.AssertExpectations(t)
	timer.AssertCalled(t, "Stop")
}

func testOfferWaitNoTimeout(t *testing.T) {
	var (
		assert = assert.New(t)
		c      = new(clocktest.Mock)
		q      = mustNew(t, 1, WithClock[string](c))
	)

	// neither a zero timeout nor room in the queue ever creates a timer
	ok, err := q.OfferWait(context.Background(), "a", time.Minute)
	assert.True(ok)
	assert.NoError(err)

	ok, err = q.OfferWait(context.Background(), "b", 0)
	assert.False(ok)
	assert.NoError(err)

	c.AssertNotCalled(t, "NewTimer", time.Minute)
}

func testOfferWaitSucceeds(t *testing.T) {
	var (
		assert = assert.New(t)
		fired  = make(chan time.Time, 1)
		timer  = clocktest.NewMockTimer(fired)
		c      = new(clocktest.Mock)
		q      = mustNew(t, 1, WithClock[string](c))
		result = make(chan bool, 1)
	)

	c.OnNewTimer(time.Hour, timer).Once()
	assert.NoError(q.Add("a"))

	go func() {
		ok, err := q.OfferWait(context.Background(), "b", time.Hour)
		assert.NoError(err)
		result <- ok
	}()

	waitingProducers(t, q, 1)
	v, ok := q.Poll()
	assert.True(ok)
	assert.Equal("a", v)

	select {
	case ok := <-result:
		assert.True(ok)
	case <-time.After(5 * time.Second):
		assert.FailNow("OfferWait did not unblock after Poll")
	}

	assert.Equal([]string{"b"}, q.Slice())
	timer.AssertCalled(t, "Stop")
}

func testPollWaitTimeout(t *testing.T) {
	var (
		assert = assert.New(t)
		fired  = make(chan time.Time, 1)
		timer  = clocktest.NewMockTimer(fired)
		c      = new(clocktest.Mock)
		q      = mustNew(t, 1, WithClock[string](c))
	)

	c.OnNewTimer(time.Minute, timer).Once()
	fired <- time.Now()

	v, ok, err := q.PollWait(context.Background(), time.Minute)
	assert.Empty(v)
	assert.False(ok)
	assert.NoError(err)

	v, ok, err = q.PollWait(context.Background(), 0)
	assert.Empty(v)
	assert.False(ok)
	assert.NoError(err)

	c.AssertExpectations(t)
	timer.AssertCalled(t, "Stop")
}

func testPollWaitSucceeds(t *testing.T) {
	var (
		assert = assert.New(t)
		fired  = make(chan time.Time, 1)
		timer  = clocktest.NewMockTimer(fired)
		c      = new(clocktest.Mock)
		q      = mustNew(t, 1, WithClock[string](c))
		result = make(chan string, 1)
	)

	c.OnNewTimer(time.Hour, timer).Once()
	go func() {
		v, ok, err := q.PollWait(context.Background(), time.Hour)
		assert.True(ok)
		assert.NoError(err)
		result <- v
	}()

	waitingConsumers(t, q, 1)
	assert.NoError(q.Add("a"))

	select {
	case v := <-result:
		assert.Equal("a", v)
	case <-time.After(5 * time.Second):
		assert.FailNow("PollWait did not unblock after Add")
	}
}

func testPollWaitCancelled(t *testing.T) {
	var (
		assert      = assert.New(t)
		fired       = make(chan time.Time)
		timer       = clocktest.NewMockTimer(fired)
		c           = new(clocktest.Mock)
		q           = mustNew(t, 1, WithClock[string](c))
		ctx, cancel = context.WithCancel(context.Background())
		result      = make(chan error, 1)
	)

	c.OnNewTimer(time.Hour, timer).Once()
	go func() {
		_, ok, err := q.PollWait(ctx, time.Hour)
		assert.False(ok)
		result <- err
	}()

	waitingConsumers(t, q, 1)
	cancel()

	select {
	case err := <-result:
		assert.ErrorIs(err, ErrCancelled)
		assert.True(errors.Is(err, context.Canceled))
	case <-time.After(5 * time.Second):
		assert.FailNow("PollWait did not unblock after cancellation")
	}
}

func TestTimed(t *testing.T) {
	t.Run("OfferWaitTimeout", testOfferWaitTimeout)
	t.Run("OfferWaitNoTimeout", testOfferWaitNoTimeout)
	t.Run("OfferWaitSucceeds", testOfferWaitSucceeds)
	t.Run("PollWaitTimeout", testPollWaitTimeout)
	t.Run("PollWaitSucceeds", testPollWaitSucceeds)
	t.Run("PollWaitCancelled", testPollWaitCancelled)
}

func TestSystemClockTimeout(t *testing.T) {
	var (
		assert = assert.New(t)
		q      = mustNew[int](t, 1)
		start  = time.Now()
	)

	v, ok, err := q.PollWait(context.Background(), 20*time.Millisecond)
	assert.Zero(v)
	assert.False(ok)
	assert.NoError(err)
	assert.True(time.Since(start) >= 20*time.Millisecond)
}

// item is a sequenced element from a single producer
type item struct {
	producer int
	sequence int
}

func testConcurrentProducersConsumers(t *testing.T, capacity int) {
	const (
		producers   = 4
		consumers   = 4
		perProducer = 2000
	)

	var (
		assert = assert.New(t)
		q      = mustNew[item](t, capacity)

		producersDone sync.WaitGroup
		consumersDone sync.WaitGroup

		ctx, cancel = context.WithCancel(context.Background())
		lock        sync.Mutex
		received    = make(map[item]bool)
	)

	defer cancel()

	producersDone.Add(producers)
	for p := 0; p < producers; p++ {
		go func(p int) {
			defer producersDone.Done()
			for s := 0; s < perProducer; s++ {
				assert.NoError(q.Put(ctx, item{producer: p, sequence: s}))
			}
		}(p)
	}

	consumersDone.Add(consumers)
	for c := 0; c < consumers; c++ {
		go func() {
			defer consumersDone.Done()

			// each consumer sees any single producer's items in increasing order
			last := make(map[int]int)
			for {
				v, err := q.Take(ctx)
				if err != nil {
					assert.ErrorIs(err, ErrCancelled)
					return
				}

				if previous, ok := last[v.producer]; ok {
					assert.Greater(v.sequence, previous, "FIFO violated for producer %d", v.producer)
				}

				last[v.producer] = v.sequence
				lock.Lock()
				assert.False(received[v], "duplicate delivery of %v", v)
				received[v] = true
				lock.Unlock()
			}
		}()
	}

	producersDone.Wait()
	require.Eventually(t, q.IsEmpty, 10*time.Second, time.Millisecond)
	cancel()
	consumersDone.Wait()

	assert.Len(received, producers*perProducer)
	assertCapacityLaw(t, q)
	assert.Zero(q.notEmpty.len())
	assert.Zero(q.notFull.len())
}

func TestConcurrentProducersConsumers(t *testing.T) {
	for _, capacity := range []int{1, 3, 64} {
		t.Run(strconv.Itoa(capacity), func(t *testing.T) {
			testConcurrentProducersConsumers(t, capacity)
		})
	}
}

func BenchmarkPutTake(b *testing.B) {
	q, _ := New[int](64)
	ctx := context.Background()

	go func() {
		for i := 0; i < b.N; i++ {
			q.Put(ctx, i)
		}
	}()

	for i := 0; i < b.N; i++ {
		q.Take(ctx)
	}
}
