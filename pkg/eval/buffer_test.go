package eval

import "testing"

func TestBufferTruncates(t *testing.T) {
	b := NewBuffer(5)
	n, _ := b.WriteString("abc")
	if n != 3 {
		t.Fatalf("WriteString wrote %d, want 3", n)
	}
	n, _ = b.WriteString("defg")
	if n != 2 {
		t.Errorf("WriteString wrote %d, want 2", n)
	}
	b.WriteByte('h')
	if got := b.String(); got != "abcde" {
		t.Errorf("String() = %q, want %q", got, "abcde")
	}
	if !b.Truncated() {
		t.Error("Truncated() = false after overflow")
	}
	if b.Avail() != 0 {
		t.Errorf("Avail() = %d, want 0", b.Avail())
	}
	b.Reset()
	if b.Len() != 0 || b.Truncated() {
		t.Errorf("Reset left len=%d truncated=%v", b.Len(), b.Truncated())
	}
}

func TestBufferEditing(t *testing.T) {
	b := NewBuffer(0)
	if b.Cap() != DefaultBufferSize {
		t.Fatalf("Cap() = %d, want %d", b.Cap(), DefaultBufferSize)
	}
	b.WriteString("hello world")
	if got := b.Since(6); got != "world" {
		t.Errorf("Since(6) = %q", got)
	}
	if got := b.Since(50); got != "" {
		t.Errorf("Since(50) = %q", got)
	}
	b.UpperAt(6)
	b.UpperAt(5) // space, unchanged
	if got := b.String(); got != "hello World" {
		t.Errorf("UpperAt gave %q", got)
	}
	b.Truncate(5)
	if b.Last() != 'o' || b.String() != "hello" {
		t.Errorf("Truncate(5) gave %q", b.String())
	}
	b.Truncate(-1)
	if b.Last() != 0 {
		t.Errorf("Last() on empty = %q", b.Last())
	}
}
