// Package kernel loads OpenCL kernel sources from a search path and inlines
// their local `#include "file"` directives.
//
// Only one level of inclusion is resolved: directives inside included files
// are passed through untouched, as are angle-bracket includes, which are left
// to the device compiler.
package kernel

import (
	"bytes"
	"errors"
	"os"
)

// Options configures a Loader. The zero value searches DefaultRoot and the
// directories from OPENCL_KERNEL_PATH.
type Options struct {
	// Root is the built-in source root; empty means DefaultRoot.
	Root string
	// Dirs are searched after the directories from OPENCL_KERNEL_PATH.
	Dirs []string
	// MaxIncludes caps the local includes per kernel; 0 means MaxIncludes.
	MaxIncludes int
	// Getenv replaces os.Getenv, mainly for tests.
	Getenv func(string) string
}

// Include is a directive together with the file it resolved to.
type Include struct {
	Directive
	Path string
	Size int
}

// Source is a fully spliced kernel source. It owns its buffer; nothing is
// cached between loads.
type Source struct {
	Name       string
	Path       string
	SearchPath []string
	Includes   []Include

	data []byte // content plus trailing NUL
}

// Bytes returns the content without the NUL terminator.
func (s *Source) Bytes() []byte { return s.data[:s.Len():s.Len()] }

// Terminated returns the content followed by a single NUL byte, ready to be
// handed to a C API.
func (s *Source) Terminated() []byte { return s.data }

func (s *Source) Len() int { return len(s.data) - 1 }

func (s *Source) String() string { return string(s.Bytes()) }

// Loader resolves kernel files. It holds no mutable state, so one Loader may
// serve concurrent loads.
type Loader struct {
	opts Options
}

func NewLoader(opts Options) *Loader {
	if opts.MaxIncludes <= 0 {
		opts.MaxIncludes = MaxIncludes
	}
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}
	return &Loader{opts: opts}
}

// Load reads name with the default options.
func Load(name string) (*Source, error) {
	return NewLoader(Options{}).Load(name)
}

// SearchPath builds the search path, reading OPENCL_KERNEL_PATH afresh.
func (l *Loader) SearchPath() []string {
	return BuildSearchPath(l.opts.Root, l.opts.Getenv(EnvKernelPath), l.opts.Dirs...)
}

// Load locates and reads name, then replaces each local include with the
// included file's content followed by a line marker. Any failure aborts the
// whole load and no partial source is returned.
func (l *Loader) Load(name string) (*Source, error) {
	paths := l.SearchPath()
	top, directives, err := l.scan(paths, name)
	if err != nil {
		return nil, err
	}

	src := &Source{Name: name, Path: top.path, SearchPath: paths}
	if len(directives) == 0 {
		src.data = top.data
		return src, nil
	}

	includes := make([]Include, 0, len(directives))
	contents := make([][]byte, 0, len(directives))
	for _, d := range directives {
		inc, err := l.readInclude(paths, name, d)
		if err != nil {
			return nil, err
		}
		if n := inc.Len(); n > 0 && inc.data[n-1] != '\n' {
			logger().Warn("included file does not end with a newline", "path", inc.path, "kernel", name, "line", d.Line)
		}
		includes = append(includes, Include{Directive: d, Path: inc.path, Size: inc.Len()})
		contents = append(contents, inc.content())
	}

	spliced, err := Splice(top.content(), directives, contents, name)
	if err != nil {
		return nil, err
	}
	src.Includes = includes
	src.data = append(spliced, 0)
	return src, nil
}

// Directives locates and scans name without reading any included file. It
// returns the path name resolved to and the local include directives found,
// so they can be listed even when a target is missing.
func (l *Loader) Directives(name string) (string, []Directive, error) {
	top, directives, err := l.scan(l.SearchPath(), name)
	if err != nil {
		return "", nil, err
	}
	return top.path, directives, nil
}

func (l *Loader) scan(paths []string, name string) (*loadedFile, []Directive, error) {
	logger().Debug("search path", "name", name, "paths", paths)

	loc, err := locate(paths, name)
	if err != nil {
		return nil, nil, err
	}
	top, err := readFile(loc, paths)
	if err != nil {
		return nil, nil, err
	}

	directives, err := Extract(name, top.content(), l.opts.MaxIncludes)
	if err != nil {
		return nil, nil, withPath(err, paths)
	}
	return top, directives, nil
}

func (l *Loader) readInclude(paths []string, kernelName string, d Directive) (*loadedFile, error) {
	loc, err := locate(paths, d.Target)
	if err == nil {
		var f *loadedFile
		if f, err = readFile(loc, paths); err == nil {
			return f, nil
		}
	}

	var kerr *Error
	if errors.As(err, &kerr) {
		kerr.From = kernelName
		kerr.Line = d.Line
	}
	return nil, err
}

// Lines counts the newlines in the spliced content.
func (s *Source) Lines() int {
	return bytes.Count(s.Bytes(), []byte{'\n'})
}
