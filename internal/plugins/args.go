package plugins

import (
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// Args carries the named arguments of a command invocation.
type Args map[string]any

// Has reports whether key is present with a non-nil value.
func (a Args) Has(key string) bool {
	v, ok := a[key]
	return ok && v != nil
}

// String returns the value at key as a string, or def when absent or not coercible.
func (a Args) String(key, def string) string {
	if !a.Has(key) {
		return def
	}
	s, err := cast.ToStringE(a[key])
	if err != nil {
		return def
	}

	return s
}

// Bool returns the value at key as a bool, or def when absent or not coercible.
func (a Args) Bool(key string, def bool) bool {
	if !a.Has(key) {
		return def
	}
	b, err := cast.ToBoolE(a[key])
	if err != nil {
		return def
	}

	return b
}

// Int returns the value at key as an int, or def when absent or not coercible.
func (a Args) Int(key string, def int) int {
	if !a.Has(key) {
		return def
	}
	var (
		n   int
		err error
	)
	if s, ok := a[key].(string); ok {
		n, err = strconv.Atoi(strings.TrimSpace(s))
	} else {
		n, err = cast.ToIntE(a[key])
	}
	if err != nil {
		return def
	}

	return n
}

// Float returns the value at key as a float64, or def when absent or not coercible.
func (a Args) Float(key string, def float64) float64 {
	if !a.Has(key) {
		return def
	}
	f, err := cast.ToFloat64E(a[key])
	if err != nil {
		return def
	}

	return f
}

// Strings returns the value at key as a string slice. A single string becomes
// a one-element slice.
func (a Args) Strings(key string) []string {
	if !a.Has(key) {
		return nil
	}
	if s, ok := a[key].(string); ok {
		return []string{s}
	}
	out, err := cast.ToStringSliceE(a[key])
	if err != nil {
		return nil
	}

	return out
}
