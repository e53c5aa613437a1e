package kernel

import (
	"bytes"
	"strings"
)

// cursor walks a source buffer front to back, counting lines. All skipping
// is built on peek/advance/atEnd so bounds are checked in one place.
type cursor struct {
	name string
	buf  []byte
	pos  int
	line int
}

func newCursor(name string, buf []byte) *cursor {
	return &cursor{name: name, buf: buf, line: 1}
}

func (c *cursor) atEnd() bool { return c.pos >= len(c.buf) }

func (c *cursor) peek() byte { return c.buf[c.pos] }

// peekNext returns the byte after the current one, or 0 at the end.
func (c *cursor) peekNext() byte {
	if c.pos+1 >= len(c.buf) {
		return 0
	}
	return c.buf[c.pos+1]
}

func (c *cursor) advance() { c.pos++ }

func (c *cursor) hasPrefix(s string) bool {
	return bytes.HasPrefix(c.buf[c.pos:], []byte(s))
}

// skip advances while match holds for the current byte. It reports false if
// the end of the buffer was reached.
func (c *cursor) skip(match func(byte) bool) bool {
	for !c.atEnd() {
		if !match(c.peek()) {
			return true
		}
		c.advance()
	}
	return false
}

// skipWhile advances past a run of bytes from set. Reaching the end of the
// buffer without matching a single byte is an overrun; a run that ends the
// buffer is not.
func (c *cursor) skipWhile(set string) error {
	start := c.pos
	if !c.skip(func(b byte) bool { return strings.IndexByte(set, b) >= 0 }) && c.pos == start {
		return c.overrun()
	}
	return nil
}

// skipUntil advances to the first byte from set.
func (c *cursor) skipUntil(set string) error {
	if !c.skip(func(b byte) bool { return strings.IndexByte(set, b) < 0 }) {
		return c.overrun()
	}
	return nil
}

func (c *cursor) overrun() error {
	return &Error{Kind: KindScanOverrun, File: c.name, Line: c.line}
}

// skipLineComment leaves the cursor on the terminating newline so the caller
// counts it. A comment running to the end of the buffer simply ends the scan.
func (c *cursor) skipLineComment() {
	c.pos += 2
	_ = c.skipUntil("\n")
}

// skipBlockComment consumes "/* ... */", counting the newlines inside.
func (c *cursor) skipBlockComment() error {
	c.pos += 2
	for {
		if err := c.skipUntil("*\n"); err != nil {
			return err
		}
		if c.peek() == '\n' {
			c.line++
			c.advance()
			continue
		}
		c.advance()
		if !c.atEnd() && c.peek() == '/' {
			c.advance()
			return nil
		}
	}
}
