// Package conlimiter bounds the number of open connections accepted by an HTTP server.
package conlimiter

import (
	"math"
	"net"
	"net/http"
	"sync/atomic"

	"github.com/go-kit/kit/metrics/discard"
	"github.com/xmidt-org/collections/xmetrics"
)

// ConLimiter closes any new connection that would exceed its maximum number of
// open connections.  Connections are counted from the moment they are accepted,
// before any TLS handshake or request parsing.
type ConLimiter struct {
	max      int32
	current  atomic.Int32
	rejected xmetrics.Incrementer
}

// New creates a ConLimiter allowing at most limit open connections.  A limit beyond
// math.MaxInt32 is clamped to it, and a nonpositive limit rejects every connection.
// Each rejected connection increments the given counter, which may be nil.
func New(limit int, rejected xmetrics.Adder) *ConLimiter {
	if rejected == nil {
		rejected = discard.NewCounter()
	}

	return &ConLimiter{
		max:      int32(min(max(limit, 0), math.MaxInt32)),
		rejected: xmetrics.NewIncrementer(rejected),
	}
}

// Current returns the number of connections currently counted against the limit
func (l *ConLimiter) Current() int {
	return int(l.current.Load())
}

// Limit installs this limiter as the server's ConnState hook.  Any existing hook
// is still invoked for every state change.
func (l *ConLimiter) Limit(s *http.Server) {
	next := s.ConnState
	s.ConnState = func(c net.Conn, state http.ConnState) {
		switch state {
		case http.StateNew:
			if l.current.Add(1) > l.max {
				l.rejected.Inc()
				c.Close()
			}

		case http.StateHijacked, http.StateClosed:
			l.current.Add(-1)
		}

		if next != nil {
			next(c, state)
		}
	}
}
