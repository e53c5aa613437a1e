package kernel

import (
	"path/filepath"
	"strings"
)

// EnvKernelPath names the environment variable holding extra search
// directories, separated by colons.
const EnvKernelPath = "OPENCL_KERNEL_PATH"

// DefaultRoot is the built-in source root. Release builds set it with
// -ldflags "-X github.com/cwbudde/clkernel/internal/kernel.DefaultRoot=...".
var DefaultRoot = "."

// BuildSearchPath returns the ordered directories searched for kernel and
// include files: root, root/src, root/include, then every directory of
// envValue (colon separated) and finally extra, each in the order given.
// Empty entries are skipped. Nothing is checked for existence here.
func BuildSearchPath(root, envValue string, extra ...string) []string {
	if root == "" {
		root = DefaultRoot
	}

	paths := make([]string, 0, 3+strings.Count(envValue, ":")+1+len(extra))
	paths = append(paths,
		root,
		filepath.Join(root, "src"),
		filepath.Join(root, "include"),
	)

	for _, dir := range SplitPathList(envValue) {
		paths = append(paths, dir)
	}
	for _, dir := range extra {
		if dir != "" {
			paths = append(paths, dir)
		}
	}
	return paths
}

// SplitPathList splits a colon separated directory list, dropping empty entries.
func SplitPathList(list string) []string {
	if list == "" {
		return nil
	}
	var dirs []string
	for _, dir := range strings.Split(list, ":") {
		if dir != "" {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}
