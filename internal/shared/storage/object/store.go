package object

import (
	"context"
	"errors"
	"io"
	"path"

	"legaldoc-backend/internal/shared/util"
)

// ErrNotFound is returned by Open when no object exists at the key.
var ErrNotFound = errors.New("object not found")

// ObjectStore defines the contract for archiving and retrieving uploaded originals.
type ObjectStore interface {
	Save(ctx context.Context, storageKey, contentType string, r io.Reader) (sizeBytes int64, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	// Delete removes the object. Deleting a missing key is not an error.
	Delete(ctx context.Context, storageKey string) error
}

// DocumentKey builds the storage key for a document's original upload.
func DocumentKey(documentID, fileName string) (string, error) {
	name, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", err
	}
	return path.Join("documents", documentID, name), nil
}
