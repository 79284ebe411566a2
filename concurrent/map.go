// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package concurrent

import (
	"errors"
	"reflect"
)

var (
	// ErrNilKey is returned when a nil key is supplied to a Map
	ErrNilKey = errors.New("nil keys are not permitted")

	// ErrNilValue is returned when a nil value, or a nil expected value, is supplied to a Map
	ErrNilValue = errors.New("nil values are not permitted")
)

// Map is a concurrent key/value mapping with atomic conditional updates.  Each conditional
// operation observes and mutates its entry as a single step with respect to every other
// operation on the same key, so two racing calls can never both succeed against what was
// logically a single value.
//
// Conditional operations report that they could not proceed through their boolean result.
// The only errors are ErrNilKey and ErrNilValue.
type Map[K comparable, V comparable] interface {
	// Get returns the value associated with key, if any.
	Get(key K) (V, bool)

	// Put associates value with key unconditionally, returning the value it replaced.
	Put(key K, value V) (previous V, loaded bool, err error)

	// Delete removes key unconditionally, returning the value it was associated with.
	Delete(key K) (previous V, loaded bool)

	// PutIfAbsent associates value with key only if key is absent.  If key was present,
	// the existing value is returned along with loaded == true and nothing is changed.
	PutIfAbsent(key K, value V) (previous V, loaded bool, err error)

	// CompareAndDelete removes key only if it is currently associated with expected.
	CompareAndDelete(key K, expected V) (bool, error)

	// CompareAndSwap associates update with key only if key is currently associated with expected.
	CompareAndSwap(key K, expected, update V) (bool, error)

	// Replace associates value with key only if key is present, returning the value it
	// replaced.  Replace never inserts.
	Replace(key K, value V) (previous V, replaced bool, err error)

	// Len returns the number of entries.  Under concurrent modification this is a
	// point-in-time approximation.
	Len() int

	// Range visits entries until f returns false.  Range does not correspond to a consistent
	// snapshot of the whole map, and f may modify the map.
	Range(f func(K, V) bool)
}

// isNil tests if v is a nil interface or a nil reference
func isNil(v any) bool {
	if v == nil {
		return true
	}

	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Pointer, reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.UnsafePointer:
		return rv.IsNil()
	default:
		return false
	}
}

func checkKey[K comparable](key K) error {
	if isNil(key) {
		return ErrNilKey
	}

	return nil
}

func checkEntry[K comparable, V comparable](key K, values ...V) error {
	if isNil(key) {
		return ErrNilKey
	}

	for _, v := range values {
		if isNil(v) {
			return ErrNilValue
		}
	}

	return nil
}
