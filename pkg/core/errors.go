package core

import "errors"

var (
	// ErrUsage reports a malformed invocation. Nothing has been read or
	// written when it is returned.
	ErrUsage = errors.New("usage error")

	// ErrIO covers unreadable or missing input and already populated output.
	ErrIO = errors.New("io error")

	// ErrConfiguration means the execution context could not be established,
	// e.g. a remote location without credentials.
	ErrConfiguration = errors.New("configuration error")

	// ErrDecode marks input or result content that could not be decoded.
	ErrDecode = errors.New("decode error")
)
