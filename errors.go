// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package sqlitedb

import (
	"github.com/cockroachdb/errors"
)

// Error kinds. Every error returned by this package matches one of these
// with errors.Is and still unwraps to the error that caused it.
var (
	// ErrConfig reports a setting that could not be read or parsed, or a
	// resolved configuration that is not usable.
	ErrConfig = errors.New("sqlitedb: configuration error")

	// ErrInitialize reports a connection URL that cannot be turned into
	// connect options.
	ErrInitialize = errors.New("sqlitedb: initialize error")

	// ErrAcquire reports a failure to lease a connection from the pool:
	// timeout, connect failure, or a closed pool.
	ErrAcquire = errors.New("sqlitedb: acquire error")

	// ErrFetch reports a query execution or row decoding failure.
	ErrFetch = errors.New("sqlitedb: fetch error")

	// ErrStreamExhausted reports a second request for the rows of a Stream.
	ErrStreamExhausted = errors.New("sqlitedb: stream exhausted")

	// ErrQueryConsumed reports use of a Query after it was bound over or
	// handed to an execution call.
	ErrQueryConsumed = errors.New("sqlitedb: query already consumed")
)

// Error pairs an error kind with the error that caused it.
type Error struct {
	kind error
	err  error
}

func (e *Error) Error() string { return e.err.Error() }

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error { return []error{e.kind, e.err} }

// Kind returns the sentinel this error is classified under.
func (e *Error) Kind() error { return e.kind }

// wrapf annotates cause with a message and a stack, and classifies it as kind.
func wrapf(kind, cause error, format string, args ...any) error {
	return &Error{kind: kind, err: errors.Wrapf(cause, format, args...)}
}

// newf creates a classified error that has no underlying cause.
func newf(kind error, format string, args ...any) error {
	return &Error{kind: kind, err: errors.Newf(format, args...)}
}
