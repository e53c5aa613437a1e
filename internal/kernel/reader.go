package kernel

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// loadedFile is the complete content of one file. data always carries a
// trailing NUL that is not counted in Len.
type loadedFile struct {
	name string
	path string
	data []byte
}

func (f *loadedFile) Len() int { return len(f.data) - 1 }

func (f *loadedFile) content() []byte { return f.data[:f.Len():f.Len()] }

// readFile opens a located file, drains it and closes it before returning.
func readFile(loc located, paths []string) (*loadedFile, error) {
	fh, err := os.Open(loc.path)
	if err != nil {
		return nil, openError(loc, paths, err)
	}
	defer fh.Close()

	data, err := readRaw(fh, loc.size)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", loc.path, err)
	}
	if n := len(data) - 1; int64(n) != loc.size {
		// The file shrank between stat and read. The bytes that did arrive are
		// used as-is; kernel sources are not expected to change during a load.
		logger().Warn("short read", "path", loc.path, "expected", loc.size, "read", n)
	}

	logger().Debug("read file", "path", loc.path, "bytes", len(data)-1)
	return &loadedFile{name: loc.name, path: loc.path, data: data}, nil
}

// readRaw reads up to size bytes from r into a fresh buffer and appends a NUL.
// Short reads are retried until size bytes have arrived or a read returns no
// data. Bytes beyond size are never read.
func readRaw(r io.Reader, size int64) ([]byte, error) {
	if size < 0 {
		size = 0
	}
	buf := make([]byte, size+1)

	var n int64
	for n < size {
		got, err := r.Read(buf[n:size])
		n += int64(got)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if got == 0 {
			break
		}
	}

	buf[n] = 0
	return buf[:n+1], nil
}
