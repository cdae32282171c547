package objfile

import "errors"

var (
	// ErrVersionOutOfBounds is returned by NewVersion when n exceeds MaxVersion.
	ErrVersionOutOfBounds = errors.New("objfile: version out of bounds")

	// ErrVersionParse is returned by ParseVersion on malformed version bytes.
	ErrVersionParse = errors.New("objfile: cannot parse version")

	// ErrInvalidOutputType is returned when an output-type discriminant is
	// not 0 (binary executable) or 1 (library).
	ErrInvalidOutputType = errors.New("objfile: invalid output type")

	// ErrWrite is returned when the output sink refuses bytes.
	ErrWrite = errors.New("objfile: write failed")
)
