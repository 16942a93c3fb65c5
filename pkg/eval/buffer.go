package eval

// DefaultBufferSize is the capacity of an output buffer when none is configured.
const DefaultBufferSize = 8192

// Buffer is a bounded output buffer. Writes past the capacity are dropped
// silently; Truncated reports whether that ever happened.
type Buffer struct {
	b         []byte
	max       int
	truncated bool
}

// NewBuffer returns an empty buffer holding at most max bytes.
func NewBuffer(max int) *Buffer {
	if max <= 0 {
		max = DefaultBufferSize
	}
	return &Buffer{b: make([]byte, 0, min(max, 256)), max: max}
}

// WriteByte appends c if there is room. It never returns an error.
func (b *Buffer) WriteByte(c byte) error {
	if len(b.b) >= b.max {
		b.truncated = true
		return nil
	}
	b.b = append(b.b, c)
	return nil
}

// WriteString appends as much of s as fits and returns the number of
// bytes written.
func (b *Buffer) WriteString(s string) (int, error) {
	room := b.max - len(b.b)
	if len(s) > room {
		s = s[:max(room, 0)]
		b.truncated = true
	}
	b.b = append(b.b, s...)
	return len(s), nil
}

// Write implements io.Writer with the same truncation rules as WriteString.
func (b *Buffer) Write(p []byte) (int, error) {
	return b.WriteString(string(p))
}

// Len returns the number of bytes held.
func (b *Buffer) Len() int { return len(b.b) }

// Cap returns the configured capacity.
func (b *Buffer) Cap() int { return b.max }

// Avail returns the number of bytes that can still be written.
func (b *Buffer) Avail() int { return b.max - len(b.b) }

// Truncated reports whether any write was cut short.
func (b *Buffer) Truncated() bool { return b.truncated }

// String returns the contents.
func (b *Buffer) String() string { return string(b.b) }

// Since returns the contents written at or after offset n.
func (b *Buffer) Since(n int) string {
	if n >= len(b.b) {
		return ""
	}
	return string(b.b[n:])
}

// Last returns the final byte, or 0 if the buffer is empty.
func (b *Buffer) Last() byte {
	if len(b.b) == 0 {
		return 0
	}
	return b.b[len(b.b)-1]
}

// Truncate discards everything past the first n bytes.
func (b *Buffer) Truncate(n int) {
	if n < 0 {
		n = 0
	}
	if n < len(b.b) {
		b.b = b.b[:n]
	}
}

// UpperAt upper-cases the ASCII letter at offset i, if any.
func (b *Buffer) UpperAt(i int) {
	if i >= 0 && i < len(b.b) {
		if c := b.b[i]; c >= 'a' && c <= 'z' {
			b.b[i] = c - 'a' + 'A'
		}
	}
}

// Reset empties the buffer and clears the truncation flag.
func (b *Buffer) Reset() {
	b.b = b.b[:0]
	b.truncated = false
}
