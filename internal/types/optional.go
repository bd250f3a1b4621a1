package types

// Optional is the result of a lookup that may legitimately find nothing,
// such as an optional sub-element of a product tile.
type Optional[T any] struct {
	value T
	ok    bool
}

// Found wraps a located value.
func Found[T any](v T) Optional[T] {
	return Optional[T]{value: v, ok: true}
}

// NotFound returns the empty Optional.
func NotFound[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it was found.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.ok
}

// IsFound reports whether a value is present.
func (o Optional[T]) IsFound() bool {
	return o.ok
}

// Or returns the value, or fallback when nothing was found.
func (o Optional[T]) Or(fallback T) T {
	if o.ok {
		return o.value
	}
	return fallback
}
