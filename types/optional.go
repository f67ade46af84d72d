package types

import (
	"encoding/json"
	"strings"
)

// Optional records whether a JSON field was present, explicitly null,
// or carried a value.
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Null = true
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

// Get returns the value and whether a non-null value was supplied.
func (o Optional[T]) Get() (T, bool) {
	return o.Value, o.Set && !o.Null
}

// IsNull reports whether the field was present with an explicit null.
func (o Optional[T]) IsNull() bool {
	return o.Set && o.Null
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}
