package kernel

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// located is a file found on the search path together with the size
// reported by stat at the time it was found.
type located struct {
	name string
	path string
	size int64
}

// Locate returns the path of the first directory in paths that holds a file
// called name. The first stat hit is authoritative: if it is not a regular
// file or not readable by its owner the search stops with an error instead of
// moving on to later directories.
func Locate(paths []string, name string) (string, error) {
	loc, err := locate(paths, name)
	if err != nil {
		return "", err
	}
	return loc.path, nil
}

func locate(paths []string, name string) (located, error) {
	for _, dir := range paths {
		candidate := filepath.Join(dir, name)
		info, err := os.Stat(candidate)
		if err != nil {
			continue
		}

		if !info.Mode().IsRegular() {
			return located{}, &Error{
				Kind:       KindNotRegularFile,
				File:       candidate,
				SearchPath: paths,
			}
		}
		if info.Mode().Perm()&0o400 == 0 {
			return located{}, &Error{
				Kind:       KindPermissionDenied,
				File:       candidate,
				SearchPath: paths,
				Err:        fs.ErrPermission,
			}
		}

		logger().Debug("located file", "name", name, "path", candidate, "size", info.Size())
		return located{name: name, path: candidate, size: info.Size()}, nil
	}

	return located{}, &Error{
		Kind:       KindFileNotFound,
		File:       name,
		SearchPath: paths,
		Err:        fs.ErrNotExist,
	}
}

// openError maps a failed open of a located file onto the loader's error kinds.
func openError(loc located, paths []string, err error) error {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return &Error{Kind: KindPermissionDenied, File: loc.path, SearchPath: paths, Err: err}
	case errors.Is(err, fs.ErrNotExist):
		// removed between stat and open
		return &Error{Kind: KindFileNotFound, File: loc.name, SearchPath: paths, Err: err}
	default:
		return fmt.Errorf("open %s: %w", loc.path, err)
	}
}
