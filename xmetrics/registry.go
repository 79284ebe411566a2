package xmetrics

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-kit/kit/metrics"
	gokitprometheus "github.com/go-kit/kit/metrics/prometheus"
	"github.com/go-kit/kit/metrics/provider"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/xmidt-org/collections/logging"
)

// PrometheusProvider is a Prometheus-specific version of go-kit's metrics.Provider.  Use this interface
// when interacting directly with Prometheus.
type PrometheusProvider interface {
	NewCounterVec(string) *prometheus.CounterVec
	NewGaugeVec(string) *prometheus.GaugeVec
	NewHistogramVec(string) *prometheus.HistogramVec
	NewSummaryVec(string) *prometheus.SummaryVec
}

// Registry is the core abstraction for this package.  It is a Prometheus registry and a go-kit metrics.Provider all in one.
//
// The Provider implementation works slightly differently than the go-kit implementation.  For any metric that is already defined
// the provider returns a new go-kit wrapper for that metric.  Additionally, new metrics (including ad hoc metrics) are cached
// and returned by subsequent calls to the Provider methods.
type Registry interface {
	PrometheusProvider
	provider.Provider
	prometheus.Gatherer
	prometheus.Registerer
}

// registry is the internal Registry implementation
type registry struct {
	*prometheus.Registry

	namespace string
	subsystem string

	lock  sync.Mutex
	cache map[string]prometheus.Collector
}

var _ Registry = (*registry)(nil)

// vec returns the cached collector with the given name, creating and registering an ad hoc
// collector of the given type if necessary.  A cached collector of any other type results in a panic.
func vec[C prometheus.Collector](r *registry, name, metricType string) C {
	r.lock.Lock()
	defer r.lock.Unlock()

	if existing, ok := r.cache[name]; ok {
		c, ok := existing.(C)
		if !ok {
			panic(fmt.Errorf("the metric %s is not a %s", name, metricType))
		}

		return c
	}

	created, err := NewCollector(Metric{
		Name:      name,
		Type:      metricType,
		Namespace: r.namespace,
		Subsystem: r.subsystem,
	})

	if err != nil {
		panic(err)
	}

	if err := r.Registry.Register(created); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			panic(err)
		}

		created = already.ExistingCollector
	}

	c, ok := created.(C)
	if !ok {
		panic(fmt.Errorf("the metric %s is not a %s", name, metricType))
	}

	r.cache[name] = c
	return c
}

func (r *registry) NewCounterVec(name string) *prometheus.CounterVec {
	return vec[*prometheus.CounterVec](r, name, CounterType)
}

func (r *registry) NewCounter(name string) metrics.Counter {
	return gokitprometheus.NewCounter(r.NewCounterVec(name))
}

func (r *registry) NewGaugeVec(name string) *prometheus.GaugeVec {
	return vec[*prometheus.GaugeVec](r, name, GaugeType)
}

func (r *registry) NewGauge(name string) metrics.Gauge {
	return gokitprometheus.NewGauge(r.NewGaugeVec(name))
}

func (r *registry) NewHistogramVec(name string) *prometheus.HistogramVec {
	return vec[*prometheus.HistogramVec](r, name, HistogramType)
}

func (r *registry) NewSummaryVec(name string) *prometheus.SummaryVec {
	return vec[*prometheus.SummaryVec](r, name, SummaryType)
}

// NewHistogram will return a Histogram for either a Summary or Histogram.  This is different
// behavior from metrics.Provider.
func (r *registry) NewHistogram(name string, _ int) metrics.Histogram {
	r.lock.Lock()
	existing, ok := r.cache[name]
	r.lock.Unlock()

	// we allow either a summary or a histogram to be wrapped as a go-kit Histogram
	if ok {
		switch vec := existing.(type) {
		case *prometheus.HistogramVec:
			return gokitprometheus.NewHistogram(vec)
		case *prometheus.SummaryVec:
			return gokitprometheus.NewSummary(vec)
		default:
			panic(fmt.Errorf("the metric %s is not a histogram or summary", name))
		}
	}

	return gokitprometheus.NewHistogram(r.NewHistogramVec(name))
}

func (r *registry) Stop() {
}

// NewRegistry creates a Registry, preregistering the metrics from the Options along with those produced
// by each module.  Modules may redefine a metric of the same type, but the Options' own metrics must be unique.
func NewRegistry(o *Options, modules ...Module) (Registry, error) {
	merger := NewMerger(o.namespace(), o.subsystem()).
		AddMetrics(false, o.Module()).
		AddModules(true, modules...)

	if err := merger.Err(); err != nil {
		return nil, err
	}

	r := &registry{
		Registry:  o.registry(),
		namespace: o.namespace(),
		subsystem: o.subsystem(),
		cache:     make(map[string]prometheus.Collector),
	}

	debug := logging.Debug(o.logger())
	for fqn, m := range merger.Merged() {
		c, err := NewCollector(m)
		if err != nil {
			return nil, fmt.Errorf("error while preregistering metric %s: %w", fqn, err)
		}

		if err := r.Registry.Register(c); err != nil {
			return nil, fmt.Errorf("error while preregistering metric %s: %w", fqn, err)
		}

		r.cache[m.Name] = c
		debug.Log(logging.MessageKey(), "registered metric", "name", fqn, "type", m.Type)
	}

	return r, nil
}

// MustNewRegistry is like NewRegistry, except that it panics on any error
func MustNewRegistry(o *Options, modules ...Module) Registry {
	r, err := NewRegistry(o, modules...)
	if err != nil {
		panic(err)
	}

	return r
}
