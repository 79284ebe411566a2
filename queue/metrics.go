package queue

import (
	"github.com/go-kit/kit/metrics/provider"
	"github.com/xmidt-org/collections/xmetrics"
)

// Metric names for queue instrumentation
const (
	SizeGauge           = "queue_size"
	InsertCounter       = "queue_inserts_total"
	RemovalCounter      = "queue_removals_total"
	RejectedCounter     = "queue_rejected_total"
	TimeoutCounter      = "queue_timeouts_total"
	CancellationCounter = "queue_cancellations_total"
)

// Metrics is the queue module function for xmetrics
func Metrics() []xmetrics.Metric {
	return []xmetrics.Metric{
		{
			Name: SizeGauge,
			Type: xmetrics.GaugeType,
			Help: "The number of elements currently held by the queue",
		},
		{
			Name: InsertCounter,
			Type: xmetrics.CounterType,
			Help: "The total number of elements inserted into the queue",
		},
		{
			Name: RemovalCounter,
			Type: xmetrics.CounterType,
			Help: "The total number of elements taken, polled, drained, or removed from the queue",
		},
		{
			Name: RejectedCounter,
			Type: xmetrics.CounterType,
			Help: "The total number of inserts refused because the queue was full",
		},
		{
			Name: TimeoutCounter,
			Type: xmetrics.CounterType,
			Help: "The total number of timed offers and polls whose timeout elapsed",
		},
		{
			Name: CancellationCounter,
			Type: xmetrics.CounterType,
			Help: "The total number of blocked operations abandoned due to context cancellation",
		},
	}
}

// Measures holds the queue metric objects for runtime consumption
type Measures struct {
	Size      xmetrics.Setter
	Inserts   xmetrics.Adder
	Removals  xmetrics.Adder
	Rejected  xmetrics.Adder
	Timeouts  xmetrics.Adder
	Cancelled xmetrics.Adder
}

// NewMeasures constructs a Measures given a go-kit metrics Provider
func NewMeasures(p provider.Provider) Measures {
	return Measures{
		Size:      p.NewGauge(SizeGauge),
		Inserts:   p.NewCounter(InsertCounter),
		Removals:  p.NewCounter(RemovalCounter),
		Rejected:  p.NewCounter(RejectedCounter),
		Timeouts:  p.NewCounter(TimeoutCounter),
		Cancelled: p.NewCounter(CancellationCounter),
	}
}
