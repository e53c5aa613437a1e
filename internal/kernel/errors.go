package kernel

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a load failure.
type Kind int

const (
	KindFileNotFound Kind = iota + 1
	KindNotRegularFile
	KindPermissionDenied
	KindTooManyIncludes
	KindUnterminatedInclude
	KindScanOverrun
)

// Sentinel errors for use with errors.Is.
var (
	ErrFileNotFound        = errors.New("file not found")
	ErrNotRegularFile      = errors.New("not a regular file")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrTooManyIncludes     = errors.New("too many includes")
	ErrUnterminatedInclude = errors.New("unterminated include")
	ErrScanOverrun         = errors.New("scan ran past end of buffer")
)

func (k Kind) sentinel() error {
	switch k {
	case KindFileNotFound:
		return ErrFileNotFound
	case KindNotRegularFile:
		return ErrNotRegularFile
	case KindPermissionDenied:
		return ErrPermissionDenied
	case KindTooManyIncludes:
		return ErrTooManyIncludes
	case KindUnterminatedInclude:
		return ErrUnterminatedInclude
	case KindScanOverrun:
		return ErrScanOverrun
	default:
		return nil
	}
}

func (k Kind) String() string {
	if s := k.sentinel(); s != nil {
		return s.Error()
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is returned by every failing load. It names the file being processed,
// the search path that was tried and, for grammar errors, the line at which
// scanning stopped. For a failed include, From and Line give the location of
// the directive.
type Error struct {
	Kind       Kind
	File       string
	From       string
	Line       int
	SearchPath []string
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.From != "" {
		fmt.Fprintf(&b, "%s:%d: include %q: ", e.From, e.Line, e.File)
	} else {
		b.WriteString(e.File)
		if e.Line > 0 {
			fmt.Fprintf(&b, ":%d", e.Line)
		}
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	switch e.Kind {
	case KindFileNotFound:
		fmt.Fprintf(&b, " (searched %s; set %s to add directories)",
			strings.Join(e.SearchPath, ":"), EnvKernelPath)
	case KindNotRegularFile, KindPermissionDenied:
		if len(e.SearchPath) > 0 {
			fmt.Fprintf(&b, " (searched %s)", strings.Join(e.SearchPath, ":"))
		}
	}
	return b.String()
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// withPath attaches the search path to a kernel error if it has none yet.
func withPath(err error, paths []string) error {
	var kerr *Error
	if errors.As(err, &kerr) && kerr.SearchPath == nil {
		kerr.SearchPath = paths
	}
	return err
}
