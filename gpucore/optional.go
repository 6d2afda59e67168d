package gpucore

import "fmt"

// Optional holds a value that is either present or absent.
// The zero Optional is absent.
type Optional[T any] struct {
	value T
	ok    bool
}

// Some returns a present Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, ok: true}
}

// None returns an absent Optional.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.ok
}

// IsSome reports whether a value is present.
func (o Optional[T]) IsSome() bool { return o.ok }

// IsNone reports whether the value is absent.
func (o Optional[T]) IsNone() bool { return !o.ok }

// OrZero returns the value, or the zero value when absent.
func (o Optional[T]) OrZero() T { return o.value }

// MustGet returns the value or panics when absent.
func (o Optional[T]) MustGet() T {
	if !o.ok {
		panic("gpucore: value not present")
	}
	return o.value
}

// Take returns the current Optional and leaves o absent.
func (o *Optional[T]) Take() Optional[T] {
	v := *o
	*o = Optional[T]{}
	return v
}

func (o Optional[T]) String() string {
	if !o.ok {
		return "None"
	}
	return fmt.Sprintf("Some(%v)", o.value)
}
