package documents

import "errors"

var (
	ErrNotFound     = errors.New("document not found")
	ErrInvalidInput = errors.New("invalid input")
	// ErrNoArchive is returned when a document's original upload is not stored.
	ErrNoArchive = errors.New("original file not archived")
)
