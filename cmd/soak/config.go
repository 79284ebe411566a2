// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/xmidt-org/collections/xviper"
)

const (
	applicationName = "soak"

	CapacityKey     = "capacity"
	ProducersKey    = "producers"
	ConsumersKey    = "consumers"
	ItemsKey        = "items"
	DurationKey     = "duration"
	OfferTimeoutKey = "offer-timeout"
	PollTimeoutKey  = "poll-timeout"
	ProgressKey     = "progress"
	ListenKey       = "listen"
	MaxConnsKey     = "max-connections"
	ZapKey          = "zap"

	DefaultCapacity     = 64
	DefaultProducers    = 4
	DefaultConsumers    = 4
	DefaultItems        = 10000
	DefaultDuration     = 30 * time.Second
	DefaultOfferTimeout = 10 * time.Millisecond
	DefaultPollTimeout  = 10 * time.Millisecond
	DefaultProgress     = 5 * time.Second
	DefaultListen       = ":9090"
)

var errInvalidConfig = errors.New("invalid soak configuration")

// Config holds the parameters of a single soak run
type Config struct {
	// Capacity is the bound of the work queue
	Capacity int `mapstructure:"capacity" json:"capacity"`

	// Producers is the number of goroutines inserting into the work queue.  Even numbered
	// producers use Put, and odd numbered producers use OfferWait.
	Producers int `mapstructure:"producers" json:"producers"`

	// Consumers is the number of goroutines removing from the work queue.  Even numbered
	// consumers use Take, and odd numbered consumers use PollWait.
	Consumers int `mapstructure:"consumers" json:"consumers"`

	// Items is the number of items each producer inserts
	Items int `mapstructure:"items" json:"items"`

	// Duration is the maximum time a run may take
	Duration time.Duration `mapstructure:"duration" json:"duration"`

	OfferTimeout time.Duration `mapstructure:"offer-timeout" json:"offerTimeout"`
	PollTimeout  time.Duration `mapstructure:"poll-timeout" json:"pollTimeout"`

	// Progress is the interval between progress log entries
	Progress time.Duration `mapstructure:"progress" json:"progress"`

	// Listen is the address for the metrics and summary endpoints.  If empty, no
	// HTTP server is started.
	Listen string `mapstructure:"listen" json:"listen"`

	// MaxConnections bounds the open HTTP connections.  Zero means no bound.
	MaxConnections int `mapstructure:"max-connections" json:"maxConnections"`

	// Zap switches logging to a zap production logger
	Zap bool `mapstructure:"zap" json:"zap"`
}

// expected is the total number of items a complete run consumes
func (c Config) expected() int64 {
	return int64(c.Producers) * int64(c.Items)
}

func (c Config) validate() error {
	switch {
	case c.Capacity < 1:
		return fmt.Errorf("%w: %s must be positive, was %d", errInvalidConfig, CapacityKey, c.Capacity)

	case c.Producers < 1:
		return fmt.Errorf("%w: %s must be positive, was %d", errInvalidConfig, ProducersKey, c.Producers)

	case c.Consumers < 1:
		return fmt.Errorf("%w: %s must be positive, was %d", errInvalidConfig, ConsumersKey, c.Consumers)

	case c.Items < 1:
		return fmt.Errorf("%w: %s must be positive, was %d", errInvalidConfig, ItemsKey, c.Items)

	case c.Duration <= 0:
		return fmt.Errorf("%w: %s must be positive, was %s", errInvalidConfig, DurationKey, c.Duration)

	case c.OfferTimeout <= 0:
		return fmt.Errorf("%w: %s must be positive, was %s", errInvalidConfig, OfferTimeoutKey, c.OfferTimeout)

	case c.PollTimeout <= 0:
		return fmt.Errorf("%w: %s must be positive, was %s", errInvalidConfig, PollTimeoutKey, c.PollTimeout)

	case c.Progress <= 0:
		return fmt.Errorf("%w: %s must be positive, was %s", errInvalidConfig, ProgressKey, c.Progress)

	case c.MaxConnections < 0 || c.MaxConnections > math.MaxInt32:
		return fmt.Errorf("%w: %s must be between 0 and %d, was %d", errInvalidConfig, MaxConnsKey, math.MaxInt32, c.MaxConnections)

	default:
		return nil
	}
}

// configureFlagSet defines the soak command line
func configureFlagSet(fs *pflag.FlagSet) {
	fs.StringP(xviper.DefaultFileFlag, "f", "", "the configuration file to use, overriding the standard search paths")
	fs.Int(CapacityKey, DefaultCapacity, "the capacity of the work queue")
	fs.Int(ProducersKey, DefaultProducers, "the number of producer goroutines")
	fs.Int(ConsumersKey, DefaultConsumers, "the number of consumer goroutines")
	fs.Int(ItemsKey, DefaultItems, "the number of items inserted by each producer")
	fs.Duration(DurationKey, DefaultDuration, "the maximum duration of the run")
	fs.Duration(OfferTimeoutKey, DefaultOfferTimeout, "the timeout for each OfferWait")
	fs.Duration(PollTimeoutKey, DefaultPollTimeout, "the timeout for each PollWait")
	fs.Duration(ProgressKey, DefaultProgress, "the interval between progress reports")
	fs.String(ListenKey, DefaultListen, "the address serving /metrics and /soak, or empty to disable HTTP")
	fs.Int(MaxConnsKey, 0, "the maximum number of open HTTP connections, or zero for no limit")
	fs.Bool(ZapKey, false, "use a zap production logger")
}

// newViper produces the Viper instance for a soak run from an already parsed flag set.
// Environment variables use the SOAK_ prefix, e.g. SOAK_OFFER_TIMEOUT.
func newViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v, err := xviper.New(
		xviper.StdOptions(applicationName, fs),
		xviper.BindConfigFile(fs, xviper.DefaultFileFlag),
	)

	if err == nil {
		err = xviper.ReadInConfig(v)
	}

	return v, err
}

// newConfig decodes and validates a Config
func newConfig(v *viper.Viper) (Config, error) {
	var c Config
	if err := xviper.Unmarshal(v, &c); err != nil {
		return c, err
	}

	return c, c.validate()
}
