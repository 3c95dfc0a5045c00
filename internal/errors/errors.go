// Package errors defines the error taxonomy used across the pageforge core.
//
// Errors fall into five categories with different propagation policies:
// traversal errors abort a whole run, watch errors abort only the watch
// session, and dependency-read, render, and write errors are recovered at
// file granularity so one bad template never stops the rest of the tree.
// All types wrap their cause and work with errors.Is / errors.As.
package errors

import (
	"errors"
	"fmt"
)

// TraversalError reports a directory-listing failure during tree walking.
// It is fatal: the enclosing run aborts and the error propagates to the
// caller.
type TraversalError struct {
	Dir string
	Err error
}

func (e *TraversalError) Error() string {
	return fmt.Sprintf("traversal failed in %s: %v", e.Dir, e.Err)
}

func (e *TraversalError) Unwrap() error { return e.Err }

// NewTraversalError wraps a directory-listing failure.
func NewTraversalError(dir string, err error) *TraversalError {
	return &TraversalError{Dir: dir, Err: err}
}

// DependencyReadError reports a dependency file that vanished or became
// unreadable between discovery and scan. It is advisory: the resolver
// treats the file as having no dependencies and the run continues.
type DependencyReadError struct {
	Path string
	Err  error
}

func (e *DependencyReadError) Error() string {
	return fmt.Sprintf("cannot read dependency %s: %v", e.Path, e.Err)
}

func (e *DependencyReadError) Unwrap() error { return e.Err }

// NewDependencyReadError wraps a dependency read failure.
func NewDependencyReadError(path string, err error) *DependencyReadError {
	return &DependencyReadError{Path: path, Err: err}
}

// RenderError reports a templating-engine failure for one template. The
// pipeline recovers per file: the failure is logged and, unless error
// output is suppressed, the destination receives a diagnostic page.
type RenderError struct {
	Name string // template name relative to the root
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("cannot render %s: %v", e.Name, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// NewRenderError wraps a templating failure for the named template.
func NewRenderError(name string, err error) *RenderError {
	return &RenderError{Name: name, Err: err}
}

// IsRenderError reports whether err is (or wraps) a RenderError. The
// pipeline uses this to distinguish engine failures, which produce a
// diagnostic page, from infrastructure failures, which do not.
func IsRenderError(err error) bool {
	var re *RenderError
	return errors.As(err, &re)
}

// WriteError reports a destination write failure. Non-fatal overall: the
// destination is left unwritten and the run continues with the next file.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("cannot write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// NewWriteError wraps a destination write failure.
func NewWriteError(path string, err error) *WriteError {
	return &WriteError{Path: path, Err: err}
}

// WatchError reports a failure of the filesystem-notification subsystem.
// Fatal to the watch session only; a previously completed render pass
// remains valid.
type WatchError struct {
	Path string
	Err  error
}

func (e *WatchError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("watch subsystem: %v", e.Err)
	}
	return fmt.Sprintf("watch subsystem on %s: %v", e.Path, e.Err)
}

func (e *WatchError) Unwrap() error { return e.Err }

// NewWatchError wraps a notification-subsystem failure.
func NewWatchError(path string, err error) *WatchError {
	return &WatchError{Path: path, Err: err}
}
