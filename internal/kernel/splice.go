package kernel

import (
	"fmt"
	"strconv"
)

// Marker renders the line marker placed after an included file's content:
// `# <line+1> "<kernelName>"`, so the text following the directive is
// attributed to the line after it in the kernel file.
func Marker(line int, kernelName string) string {
	return "# " + strconv.Itoa(line+1) + ` "` + kernelName + `"`
}

// SplicedLen is the length of the buffer Splice produces.
func SplicedLen(srcLen int, directives []Directive, contents [][]byte, kernelName string) int {
	n := srcLen
	for i, d := range directives {
		n += len(contents[i]) + len(Marker(d.Line, kernelName)) - (d.End - d.Start)
	}
	return n
}

// Splice replaces each directive's byte range in src with the matching entry
// of contents followed by its line marker. directives must be in ascending,
// non-overlapping order, as Extract returns them. The result has spare
// capacity for one trailing byte.
func Splice(src []byte, directives []Directive, contents [][]byte, kernelName string) ([]byte, error) {
	if len(contents) != len(directives) {
		return nil, fmt.Errorf("splice: %d directives but %d contents", len(directives), len(contents))
	}

	prev := 0
	for _, d := range directives {
		if d.Start < prev || d.End < d.Start || d.End > len(src) {
			return nil, fmt.Errorf("splice: directive %q at [%d,%d) out of order or out of range", d.Target, d.Start, d.End)
		}
		prev = d.End
	}

	total := SplicedLen(len(src), directives, contents, kernelName)
	out := make([]byte, 0, total+1)

	prev = 0
	for i, d := range directives {
		out = append(out, src[prev:d.Start]...)
		out = append(out, contents[i]...)
		out = append(out, Marker(d.Line, kernelName)...)
		prev = d.End
	}
	out = append(out, src[prev:]...)

	logger().Debug("spliced", "kernel", kernelName, "includes", len(directives), "bytes", len(out))
	return out, nil
}
