// Package buffer holds the current text, cursor, and revision counter for a
// single document, and computes the cursor-centered analysis window plugins
// see instead of the full text.
package buffer

import "sync"

// Window is a substring of the buffer together with the absolute offset of
// its first character.
type Window struct {
	Text   string
	Offset int
}

// Buffer is created by the recognizer, mutated only through Update, and
// reset on Destroy.
type Buffer struct {
	mu       sync.RWMutex
	text     string
	cursor   int
	revision uint64
}

// New returns an empty Buffer at revision 0.
func New() *Buffer {
	return &Buffer{}
}

// Update replaces the buffer's text if it differs from the current text,
// incrementing revision and setting the cursor (defaulting to len(text)).
// If text is unchanged but cursor differs, only the cursor is updated and
// revision is preserved. Returns whether the text changed.
func (b *Buffer) Update(text string, cursor *int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if text != b.text {
		b.text = text
		b.revision++
		if cursor != nil {
			b.cursor = clampInt(*cursor, 0, len(text))
		} else {
			b.cursor = len(text)
		}
		return true
	}

	if cursor != nil {
		b.cursor = clampInt(*cursor, 0, len(b.text))
	}
	return false
}

// GetWindow computes the cursor-centered slice of width min(windowSize,
// len(text)), clamped to the buffer's boundaries so the window never
// escapes [0, len(text)]. The slice spans windowSize/2 (rounded down) on
// each side of the cursor, so an odd windowSize yields one character less
// unless a boundary forces the short side to be extended.
func (b *Buffer) GetWindow(windowSize int) Window {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return windowFor(b.text, b.cursor, windowSize)
}

func windowFor(text string, cursor, windowSize int) Window {
	textLen := len(text)
	want := windowSize
	if want > textLen {
		want = textLen
	}
	if want <= 0 {
		return Window{Text: "", Offset: 0}
	}

	half := windowSize / 2
	start := cursor - half
	end := cursor + half
	if start < 0 {
		start = 0
	}
	if end > textLen {
		end = textLen
	}

	// Extend the short side so the window reaches its target width
	// whenever the opposite boundary has room to give.
	if end-start < want {
		deficit := want - (end - start)
		if start == 0 {
			end += deficit
			if end > textLen {
				end = textLen
			}
		} else if end == textLen {
			start -= deficit
			if start < 0 {
				start = 0
			}
		}
	}

	return Window{Text: text[start:end], Offset: start}
}

// Text returns the current buffer text.
func (b *Buffer) Text() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.text
}

// Cursor returns the current cursor position.
func (b *Buffer) Cursor() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cursor
}

// Revision returns the current revision counter.
func (b *Buffer) Revision() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.revision
}

// Reset zeroes all buffer state, including the revision counter.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.text = ""
	b.cursor = 0
	b.revision = 0
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
