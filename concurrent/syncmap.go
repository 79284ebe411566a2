// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package concurrent

import (
	"sync"
	"sync/atomic"
)

// SyncMap is a lock-free Map backed by sync.Map.  Conditional operations are the
// compare-and-swap primitives of sync.Map, so values are always compared with ==.
//
// The zero value is not usable.  Instances must be created with NewSyncMap.
type SyncMap[K comparable, V comparable] struct {
	entries sync.Map
	size    atomic.Int64
}

var _ Map[string, string] = (*SyncMap[string, string])(nil)

// NewSyncMap creates an empty SyncMap
func NewSyncMap[K comparable, V comparable]() *SyncMap[K, V] {
	return new(SyncMap[K, V])
}

func (m *SyncMap[K, V]) Get(key K) (v V, ok bool) {
	if isNil(key) {
		return
	}

	var raw any
	if raw, ok = m.entries.Load(key); ok {
		v = raw.(V)
	}

	return
}

func (m *SyncMap[K, V]) Put(key K, value V) (previous V, loaded bool, err error) {
	if err = checkEntry(key, value); err != nil {
		return
	}

	var raw any
	if raw, loaded = m.entries.Swap(key, value); loaded {
		previous = raw.(V)
	} else {
		m.size.Add(1)
	}

	return
}

func (m *SyncMap[K, V]) Delete(key K) (previous V, loaded bool) {
	if isNil(key) {
		return
	}

	var raw any
	if raw, loaded = m.entries.LoadAndDelete(key); loaded {
		previous = raw.(V)
		m.size.Add(-1)
	}

	return
}

func (m *SyncMap[K, V]) PutIfAbsent(key K, value V) (previous V, loaded bool, err error) {
	if err = checkEntry(key, value); err != nil {
		return
	}

	var raw any
	if raw, loaded = m.entries.LoadOrStore(key, value); loaded {
		previous = raw.(V)
	} else {
		m.size.Add(1)
	}

	return
}

func (m *SyncMap[K, V]) CompareAndDelete(key K, expected V) (bool, error) {
	if err := checkEntry(key, expected); err != nil {
		return false, err
	}

	deleted := m.entries.CompareAndDelete(key, expected)
	if deleted {
		m.size.Add(-1)
	}

	return deleted, nil
}

func (m *SyncMap[K, V]) CompareAndSwap(key K, expected, update V) (bool, error) {
	if err := checkEntry(key, expected, update); err != nil {
		return false, err
	}

	return m.entries.CompareAndSwap(key, expected, update), nil
}

// Replace loops until either key is observed absent or its observed value is swapped.
func (m *SyncMap[K, V]) Replace(key K, value V) (previous V, replaced bool, err error) {
	if err = checkEntry(key, value); err != nil {
		return
	}

	for {
		raw, ok := m.entries.Load(key)
		if !ok {
			return
		}

		if m.entries.CompareAndSwap(key, raw, value) {
			return raw.(V), true, nil
		}
	}
}

// Len is approximate while updates are in flight.  The count is adjusted after each
// sync.Map operation completes, so a removal can be counted before the insertion it
// undoes.  Len never reports a negative size.
func (m *SyncMap[K, V]) Len() int {
	return max(int(m.size.Load()), 0)
}

func (m *SyncMap[K, V]) Range(f func(K, V) bool) {
	m.entries.Range(func(k, v any) bool {
		return f(k.(K), v.(V))
	})
}
