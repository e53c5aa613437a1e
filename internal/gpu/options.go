package gpu

import (
	"path/filepath"
	"strings"
)

// DefaultBuildOptions makes argument names and qualifiers queryable.
const DefaultBuildOptions = "-cl-kernel-arg-info"

// BuildOptions appends an -I option for every search path directory to base,
// so includes the loader leaves in place (angle brackets, nested includes)
// resolve against the same directories. Duplicates are dropped, order is kept.
func BuildOptions(base string, searchPath []string) string {
	fields := strings.Fields(base)
	seen := make(map[string]bool)
	for i := 0; i+1 < len(fields); i++ {
		if fields[i] == "-I" {
			seen[filepath.Clean(fields[i+1])] = true
		}
	}

	for _, dir := range searchPath {
		if dir == "" {
			continue
		}
		clean := filepath.Clean(dir)
		if seen[clean] {
			continue
		}
		seen[clean] = true

		if strings.ContainsAny(clean, " \t") {
			clean = `"` + clean + `"`
		}
		fields = append(fields, "-I", clean)
	}
	return strings.Join(fields, " ")
}
