// Package ptr builds pointers to literal values, for optional record fields.
package ptr

// To creates a pointer to the given value.
func To[T any](v T) *T {
	return &v
}

// Bool creates a pointer to the given bool value.
func Bool(b bool) *bool {
	return &b
}

// Deref returns *p, or fallback when p is nil.
func Deref[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}
