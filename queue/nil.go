package queue

import "reflect"

// isNil tests if v is a nil interface or a nil reference.  Slices are not considered,
// as a nil slice is a perfectly good empty sequence.
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

// nillable tests if values of T can ever be nil.  Elements of any other type are never
// checked with isNil.
func nillable[T any]() bool {
	switch reflect.TypeFor[T]().Kind() {
	case reflect.Pointer, reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.UnsafePointer:
		return true
	default:
		return false
	}
}
