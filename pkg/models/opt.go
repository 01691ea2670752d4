package models

import "encoding/json"

// Opt is a tri-state field for partial updates: unset (omitted from the
// payload), set to null, or set to a value.
type Opt[T any] struct {
	set   bool
	value *T
}

// Set returns an Opt carrying v.
func Set[T any](v T) Opt[T] {
	return Opt[T]{set: true, value: &v}
}

// Null returns an Opt that marshals to JSON null.
func Null[T any]() Opt[T] {
	return Opt[T]{set: true}
}

// SetPtr returns Set(*p), or Null when p is nil.
func SetPtr[T any](p *T) Opt[T] {
	if p == nil {
		return Null[T]()
	}
	return Set(*p)
}

// IsZero reports whether the field was left unset. encoding/json consults it
// for the omitzero tag option.
func (o Opt[T]) IsZero() bool { return !o.set }

// Get returns the value and whether it is non-null.
func (o Opt[T]) Get() (T, bool) {
	if o.value == nil {
		var zero T
		return zero, false
	}
	return *o.value, true
}

func (o Opt[T]) MarshalJSON() ([]byte, error) {
	if o.value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.value)
}

func (o *Opt[T]) UnmarshalJSON(data []byte) error {
	o.set = true
	if string(data) == "null" {
		o.value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.value = &v
	return nil
}
