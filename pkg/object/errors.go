package object

import "errors"

var (
	// ErrNotFound is returned when no object exists for a hash.
	ErrNotFound = errors.New("object not found")
	// ErrCorrupt is returned when stored bytes fail to decompress or the
	// envelope does not parse.
	ErrCorrupt = errors.New("corrupt object")
	// ErrTypeMismatch is returned by the typed readers when the stored kind
	// differs from the requested one.
	ErrTypeMismatch = errors.New("object type mismatch")
	// ErrIO wraps underlying filesystem failures.
	ErrIO = errors.New("object store i/o failure")
)
