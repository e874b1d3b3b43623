package store

import (
	"github.com/google/go-cmp/cmp"

	"github.com/textsense/recognizer/pkg/types"
)

// entityChanged reports whether any observable field changed between the
// previous and next revision of an entity with the same key. Value is
// compared with cmp.Equal rather than ==, since candidate values are
// plugin-owned data (maps, slices, structs) that Go's == cannot compare.
func entityChanged(prev, next types.Entity) bool {
	if prev.Span != next.Span {
		return true
	}
	if prev.Confidence != next.Confidence {
		return true
	}
	if prev.Status != next.Status {
		return true
	}
	return !cmp.Equal(prev.Value, next.Value)
}
