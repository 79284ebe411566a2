package clock

import "time"

// Interface represents a clock with the same core functionality available as in the stdlib time package.
// Components that wait with a timeout accept an Interface so that tests can control when timeouts elapse.
type Interface interface {
	Now() time.Time
	Sleep(time.Duration)
	NewTicker(time.Duration) Ticker
	NewTimer(time.Duration) Timer
}

type systemClock struct{}

func (sc systemClock) Now() time.Time {
	return time.Now()
}

func (sc systemClock) Sleep(d time.Duration) {
	time.Sleep(d)
}

func (sc systemClock) NewTicker(d time.Duration) Ticker {
	return systemTicker{time.NewTicker(d)}
}

func (sc systemClock) NewTimer(d time.Duration) Timer {
	return systemTimer{time.NewTimer(d)}
}

// System returns a clock backed by the time package
func System() Interface {
	return systemClock{}
}

// Since returns the time elapsed since t, according to the given clock
func Since(c Interface, t time.Time) time.Duration {
	return c.Now().Sub(t)
}
