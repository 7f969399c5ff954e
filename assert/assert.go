// Package assert holds the small set of test assertions used across the repo.
// Every helper reports through t.Errorf so a test keeps running after a failure.
package assert

import (
	"errors"
	"reflect"
	"testing"
)

// Equal fails the test when expected and actual are not deeply equal
func Equal(t testing.TB, expected, actual any, msg string) {
	t.Helper()
	if !reflect.DeepEqual(expected, actual) {
		t.Errorf("%s: expected %#v, got %#v", msg, expected, actual)
	}
}

// NotEqual fails the test when expected and actual are deeply equal
func NotEqual(t testing.TB, expected, actual any, msg string) {
	t.Helper()
	if reflect.DeepEqual(expected, actual) {
		t.Errorf("%s: expected values to differ, both are %#v", msg, actual)
	}
}

func True(t testing.TB, cond bool, msg string) {
	t.Helper()
	if !cond {
		t.Errorf("%s: expected true", msg)
	}
}

func False(t testing.TB, cond bool, msg string) {
	t.Helper()
	if cond {
		t.Errorf("%s: expected false", msg)
	}
}

func NoError(t testing.TB, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Errorf("%s: unexpected error: %v", msg, err)
	}
}

func Error(t testing.TB, err error, msg string) {
	t.Helper()
	if err == nil {
		t.Errorf("%s: expected an error", msg)
	}
}

// ErrorIs fails the test unless errors.Is(err, target)
func ErrorIs(t testing.TB, err, target error, msg string) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Errorf("%s: expected error %v, got %v", msg, target, err)
	}
}

// Nil fails the test unless value is nil, including typed nils
func Nil(t testing.TB, value any, msg string) {
	t.Helper()
	if !isNil(value) {
		t.Errorf("%s: expected nil, got %#v", msg, value)
	}
}

func NotNil(t testing.TB, value any, msg string) {
	t.Helper()
	if isNil(value) {
		t.Errorf("%s: expected non-nil", msg)
	}
}

// Len fails the test unless collection has exactly expected elements.
// collection must be a slice, map, string, array or channel.
func Len(t testing.TB, expected int, collection any, msg string) {
	t.Helper()
	v := reflect.ValueOf(collection)
	switch v.Kind() {
	case reflect.Slice, reflect.Map, reflect.String, reflect.Array, reflect.Chan:
		if v.Len() != expected {
			t.Errorf("%s: expected length %d, got %d", msg, expected, v.Len())
		}
	default:
		t.Errorf("%s: cannot take length of %T", msg, collection)
	}
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return v.IsNil()
	}
	return false
}
