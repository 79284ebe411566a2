package main

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xmidt-org/collections/logging"
)

func parseConfig(t *testing.T, arguments ...string) (Config, *logging.Options) {
	require := require.New(t)

	fs := pflag.NewFlagSet(applicationName, pflag.ContinueOnError)
	configureFlagSet(fs)
	require.NoError(fs.Parse(arguments))

	v, err := newViper(fs)
	require.NoError(err)

	c, err := newConfig(v)
	require.NoError(err)

	o, err := logging.FromViper(logging.Sub(v))
	require.NoError(err)
	return c, o
}

func testNewConfigDefaults(t *testing.T) {
	c, o := parseConfig(t)
	assert.Equal(t,
		Config{
			Capacity:     DefaultCapacity,
			Producers:    DefaultProducers,
			Consumers:    DefaultConsumers,
			Items:        DefaultItems,
			Duration:     DefaultDuration,
			OfferTimeout: DefaultOfferTimeout,
			PollTimeout:  DefaultPollTimeout,
			Progress:     DefaultProgress,
			Listen:       DefaultListen,
		},
		c,
	)

	assert.Equal(t, logging.Options{}, *o)
}

func testNewConfigFlags(t *testing.T) {
	var (
		assert = assert.New(t)
		c, _   = parseConfig(t,
			"--capacity", "8",
			"--producers", "2",
			"--offer-timeout", "25ms",
			"--duration", "1m",
			"--listen", "",
			"--max-connections", "16",
			"--zap",
		)
	)

	assert.Equal(8, c.Capacity)
	assert.Equal(2, c.Producers)
	assert.Equal(DefaultConsumers, c.Consumers)
	assert.Equal(25*time.Millisecond, c.OfferTimeout)
	assert.Equal(time.Minute, c.Duration)
	assert.Empty(c.Listen)
	assert.Equal(16, c.MaxConnections)
	assert.True(c.Zap)
}

func testNewConfigEnvironment(t *testing.T) {
	t.Setenv("SOAK_ITEMS", "12")
	t.Setenv("SOAK_POLL_TIMEOUT", "3ms")

	var (
		assert = assert.New(t)
		c, _   = parseConfig(t, "--items", "7")
	)

	// explicit flags take precedence over the environment
	assert.Equal(7, c.Items)
	assert.Equal(3*time.Millisecond, c.PollTimeout)
}

func testNewConfigFile(t *testing.T) {
	var (
		assert  = assert.New(t)
		require = require.New(t)
		file    = filepath.Join(t.TempDir(), "soak.yaml")
	)

	require.NoError(os.WriteFile(
		file,
		[]byte("capacity: 3\nduration: 2s\nlisten: \"127.0.0.1:0\"\nlog:\n  level: debug\n  json: true\n"),
		0600,
	))

	c, o := parseConfig(t, "--file", file, "--producers", "5")
	assert.Equal(3, c.Capacity)
	assert.Equal(5, c.Producers)
	assert.Equal(2*time.Second, c.Duration)
	assert.Equal("127.0.0.1:0", c.Listen)
	assert.Equal("debug", o.Level)
	assert.True(o.JSON)
}

func testNewConfigMissingFile(t *testing.T) {
	fs := pflag.NewFlagSet(applicationName, pflag.ContinueOnError)
	configureFlagSet(fs)
	require.NoError(t, fs.Parse([]string{"--file", filepath.Join(t.TempDir(), "missing.yaml")}))

	_, err := newViper(fs)
	assert.Error(t, err)
}

func TestNewConfig(t *testing.T) {
	t.Run("Defaults", testNewConfigDefaults)
	t.Run("Flags", testNewConfigFlags)
	t.Run("Environment", testNewConfigEnvironment)
	t.Run("File", testNewConfigFile)
	t.Run("MissingFile", testNewConfigMissingFile)
}

func TestConfigValidate(t *testing.T) {
	valid := Config{
		Capacity:     1,
		Producers:    1,
		Consumers:    1,
		Items:        1,
		Duration:     time.Second,
		OfferTimeout: time.Millisecond,
		PollTimeout:  time.Millisecond,
		Progress:     time.Second,
	}

	require.NoError(t, valid.validate())
	assert.Equal(t, int64(1), valid.expected())

	testData := map[string]func(*Config){
		"Capacity":     func(c *Config) { c.Capacity = 0 },
		"Producers":    func(c *Config) { c.Producers = -1 },
		"Consumers":    func(c *Config) { c.Consumers = 0 },
		"Items":        func(c *Config) { c.Items = 0 },
		"Duration":     func(c *Config) { c.Duration = 0 },
		"OfferTimeout": func(c *Config) { c.OfferTimeout = -time.Second },
		"PollTimeout":  func(c *Config) { c.PollTimeout = 0 },
		"Progress":     func(c *Config) { c.Progress = 0 },

		"NegativeMaxConnections": func(c *Config) { c.MaxConnections = -1 },
		"HugeMaxConnections":     func(c *Config) { c.MaxConnections = math.MaxInt32 + 1 },
	}

	for name, invalidate := range testData {
		t.Run(name, func(t *testing.T) {
			c := valid
			invalidate(&c)
			assert.ErrorIs(t, c.validate(), errInvalidConfig)
		})
	}
}
