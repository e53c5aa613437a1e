package kernel

import (
	"bytes"
	"fmt"
)

// MaxIncludes is the default limit of local includes per kernel file.
const MaxIncludes = 8

const horizontalSpace = " \t"

// Directive is one local include found in a source buffer. Start and End
// delimit the directive text, from '#' through the closing quote, as the
// half-open byte range [Start, End) of the scanned buffer.
type Directive struct {
	Start  int
	End    int
	Line   int
	Target string
}

// Extract scans data for `#include "file"` directives outside comments and
// returns them in source order. Angle-bracket includes are left alone. More
// than max directives fail with ErrTooManyIncludes; max <= 0 means MaxIncludes.
func Extract(name string, data []byte, max int) ([]Directive, error) {
	if max <= 0 {
		max = MaxIncludes
	}

	var directives []Directive
	c := newCursor(name, data)
	for !c.atEnd() {
		switch b := c.peek(); {
		case b == '\n':
			c.line++
			c.advance()
		case b == '/' && c.peekNext() == '/':
			c.skipLineComment()
		case b == '/' && c.peekNext() == '*':
			if err := c.skipBlockComment(); err != nil {
				return nil, err
			}
		case b == '#':
			d, ok, err := c.directive()
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			if len(directives) == max {
				return nil, &Error{
					Kind: KindTooManyIncludes,
					File: name,
					Line: d.Line,
					Err:  fmt.Errorf("limit is %d", max),
				}
			}
			logger().Debug("include directive", "file", name, "line", d.Line, "target", d.Target)
			directives = append(directives, d)
		default:
			c.advance()
		}
	}
	return directives, nil
}

// directive parses `# include "target"` at the cursor, which sits on '#'.
// ok is false for any other directive; the cursor is then left on the first
// byte that did not fit the grammar.
func (c *cursor) directive() (Directive, bool, error) {
	start, line := c.pos, c.line

	c.advance()
	if err := c.skipWhile(horizontalSpace); err != nil {
		return Directive{}, false, err
	}
	if !c.hasPrefix("include") {
		return Directive{}, false, nil
	}
	c.pos += len("include")
	if err := c.skipWhile(horizontalSpace); err != nil {
		return Directive{}, false, err
	}
	if c.atEnd() || c.peek() != '"' {
		return Directive{}, false, nil
	}
	c.advance()

	nameStart := c.pos
	if err := c.skipUntil(`"`); err != nil {
		return Directive{}, false, &Error{Kind: KindUnterminatedInclude, File: c.name, Line: line}
	}
	target := c.buf[nameStart:c.pos]
	c.line += bytes.Count(target, []byte{'\n'})
	c.advance()

	return Directive{Start: start, End: c.pos, Line: line, Target: string(target)}, true, nil
}
