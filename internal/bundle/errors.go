package bundle

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure returned by Save wraps exactly one of them and
// none is retried: a bundle is either produced completely or not at all.
var (
	// ErrOpenFile means an output or input file could not be opened.
	ErrOpenFile = errors.New("cannot open file")
	// ErrWrite means a seek or write failed on an open file.
	ErrWrite = errors.New("write failed")
	// ErrInvariant means the pipeline ran out of order or the layout is
	// inconsistent. It indicates a bug, not bad input.
	ErrInvariant = errors.New("bundle invariant violated")
	// ErrExternalCompiler means the external AOT compiler exited unsuccessfully.
	ErrExternalCompiler = errors.New("external compiler failed")
	// ErrAllocation means the allocator could not lay out the function.
	ErrAllocation = errors.New("memory allocation failed")
)

// Error records a failed pipeline step together with the file or command
// line involved.
type Error struct {
	Op   string // Pipeline step (e.g., "write weights")
	Path string // File path or command line, if any
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// fail builds an *Error of the given kind. cause may be nil.
func fail(op, path string, kind, cause error) error {
	err := kind
	if cause != nil {
		err = fmt.Errorf("%w: %w", kind, cause)
	}
	return &Error{Op: op, Path: path, Err: err}
}

// failf builds an *Error of the given kind with a formatted detail.
func failf(op string, kind error, format string, args ...any) error {
	return &Error{Op: op, Err: fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))}
}

// invariantf reports a broken invariant.
func invariantf(op, format string, args ...any) error {
	return failf(op, ErrInvariant, format, args...)
}
