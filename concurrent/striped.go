// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package concurrent

import (
	"hash/maphash"
	"math/bits"
	"sync"
	"sync/atomic"
)

// DefaultStripes is the number of stripes used when none is configured
const DefaultStripes = 32

// StripedOption is a configurable option for a Striped map
type StripedOption[K comparable, V comparable] func(*Striped[K, V])

// WithStripes sets the number of stripes, which is rounded up to a power of two.
// A nonpositive count restores DefaultStripes.
func WithStripes[K comparable, V comparable](n int) StripedOption[K, V] {
	return func(s *Striped[K, V]) {
		if n < 1 {
			n = DefaultStripes
		}

		s.stripes = make([]stripe[K, V], 1<<bits.Len(uint(n-1)))
	}
}

// WithEqual sets the value equality used by CompareAndDelete and CompareAndSwap.
// A nil function restores ==.
func WithEqual[K comparable, V comparable](f func(a, b V) bool) StripedOption[K, V] {
	return func(s *Striped[K, V]) {
		if f != nil {
			s.equal = f
		} else {
			s.equal = defaultEqual[V]
		}
	}
}

func defaultEqual[V comparable](a, b V) bool {
	return a == b
}

type stripe[K comparable, V comparable] struct {
	lock    sync.RWMutex
	entries map[K]V
}

// Striped is a Map partitioned into a fixed set of stripes, each guarded by its own lock.
// A key always hashes to the same stripe, and single key operations lock only that stripe.
// The size is adjusted while the stripe is locked, so Len never observes a removal
// before the insertion it undoes.
//
// Instances must be created with NewStriped.
type Striped[K comparable, V comparable] struct {
	seed    maphash.Seed
	stripes []stripe[K, V]
	size    atomic.Int64
	equal   func(a, b V) bool
}

var _ Map[string, string] = (*Striped[string, string])(nil)

// NewStriped creates an empty Striped map
func NewStriped[K comparable, V comparable](o ...StripedOption[K, V]) *Striped[K, V] {
	s := &Striped[K, V]{
		seed:  maphash.MakeSeed(),
		equal: defaultEqual[V],
	}

	WithStripes[K, V](DefaultStripes)(s)
	for _, f := range o {
		f(s)
	}

	for i := range s.stripes {
		s.stripes[i].entries = make(map[K]V)
	}

	return s
}

func (s *Striped[K, V]) stripeFor(key K) *stripe[K, V] {
	h := maphash.Comparable(s.seed, key)
	return &s.stripes[h&uint64(len(s.stripes)-1)]
}

// Stripes returns the number of stripes
func (s *Striped[K, V]) Stripes() int {
	return len(s.stripes)
}

func (s *Striped[K, V]) Get(key K) (v V, ok bool) {
	if isNil(key) {
		return
	}

	st := s.stripeFor(key)
	st.lock.RLock()
	v, ok = st.entries[key]
	st.lock.RUnlock()
	return
}

func (s *Striped[K, V]) Put(key K, value V) (previous V, loaded bool, err error) {
	if err = checkEntry(key, value); err != nil {
		return
	}

	st := s.stripeFor(key)
	st.lock.Lock()
	previous, loaded = st.entries[key]
	st.entries[key] = value
	if !loaded {
		s.size.Add(1)
	}

	st.lock.Unlock()

	return
}

func (s *Striped[K, V]) Delete(key K) (previous V, loaded bool) {
	if isNil(key) {
		return
	}

	st := s.stripeFor(key)
	st.lock.Lock()
	previous, loaded = st.entries[key]
	if loaded {
		delete(st.entries, key)
		s.size.Add(-1)
	}

	st.lock.Unlock()

	return
}

func (s *Striped[K, V]) PutIfAbsent(key K, value V) (previous V, loaded bool, err error) {
	if err = checkEntry(key, value); err != nil {
		return
	}

	st := s.stripeFor(key)
	st.lock.Lock()
	previous, loaded = st.entries[key]
	if !loaded {
		st.entries[key] = value
		s.size.Add(1)
	}

	st.lock.Unlock()

	return
}

func (s *Striped[K, V]) CompareAndDelete(key K, expected V) (bool, error) {
	if err := checkEntry(key, expected); err != nil {
		return false, err
	}

	st := s.stripeFor(key)
	st.lock.Lock()
	current, ok := st.entries[key]
	deleted := ok && s.equal(current, expected)
	if deleted {
		delete(st.entries, key)
		s.size.Add(-1)
	}

	st.lock.Unlock()

	return deleted, nil
}

func (s *Striped[K, V]) CompareAndSwap(key K, expected, update V) (bool, error) {
	if err := checkEntry(key, expected, update); err != nil {
		return false, err
	}

	st := s.stripeFor(key)
	st.lock.Lock()
	defer st.lock.Unlock()

	current, ok := st.entries[key]
	if !ok || !s.equal(current, expected) {
		return false, nil
	}

	st.entries[key] = update
	return true, nil
}

func (s *Striped[K, V]) Replace(key K, value V) (previous V, replaced bool, err error) {
	if err = checkEntry(key, value); err != nil {
		return
	}

	st := s.stripeFor(key)
	st.lock.Lock()
	defer st.lock.Unlock()

	if previous, replaced = st.entries[key]; replaced {
		st.entries[key] = value
	}

	return
}

func (s *Striped[K, V]) Len() int {
	return int(s.size.Load())
}

// Range visits each stripe in turn.  Each stripe is copied under its read lock, and
// f is invoked with no locks held.
func (s *Striped[K, V]) Range(f func(K, V) bool) {
	type entry struct {
		key   K
		value V
	}

	var buffer []entry
	for i := range s.stripes {
		st := &s.stripes[i]
		buffer = buffer[:0]

		st.lock.RLock()
		for k, v := range st.entries {
			buffer = append(buffer, entry{k, v})
		}

		st.lock.RUnlock()
		for _, e := range buffer {
			if !f(e.key, e.value) {
				return
			}
		}
	}
}
