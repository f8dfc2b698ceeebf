package revalidate

import (
	"bytes"

	"github.com/always-cache/revalidate/body"
)

// hasChanged reports whether fresh differs from cached.
// Structured bodies are compared by their canonical serialization, so key
// order does not matter. A body that cannot be serialized always counts as changed.
func hasChanged(cached, fresh body.Body) bool {
	if cached.IsAbsent() && fresh.IsAbsent() {
		return false
	}
	if cached.Kind() != fresh.Kind() {
		return true
	}
	switch cached.Kind() {
	case body.KindText:
		return cached.Text() != fresh.Text()
	case body.KindStructured:
		a, err := cached.Canonical()
		if err != nil {
			return true
		}
		b, err := fresh.Canonical()
		if err != nil {
			return true
		}
		return !bytes.Equal(a, b)
	}
	return true
}
