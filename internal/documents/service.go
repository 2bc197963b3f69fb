package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"legaldoc-backend/internal/extract"
	"legaldoc-backend/internal/shared/metrics"
	"legaldoc-backend/internal/shared/storage/object"
	"legaldoc-backend/internal/shared/telemetry"
	"legaldoc-backend/internal/shared/util"
)

// Service contains business logic for documents.
type Service struct {
	Repo Repo
	// Store archives the original upload. Nil disables archiving.
	Store object.ObjectStore
	Now   func() time.Time
}

// Upload extracts the text of raw, archives the original bytes and records the document.
// Nothing is persisted when extraction or archiving fails.
func (s *Service) Upload(ctx context.Context, fileName, mimeType string, raw []byte) (Document, error) {
	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		return Document{}, fmt.Errorf("%w: file name is required", ErrInvalidInput)
	}

	extraction, err := extract.Extract(ctx, raw, mimeType)
	if err != nil {
		metrics.IncExtractionFailed(extractionFailureKind(err))
		telemetry.Warn("documents.extract_failed", map[string]any{
			"file_name": fileName,
			"mime_type": mimeType,
			"size":      len(raw),
			"error":     err.Error(),
		})
		return Document{}, err
	}

	doc := Document{
		ID:           uuid.NewString(),
		OriginalName: fileName,
		FileType:     extraction.FileType,
		Content:      extraction.Text,
		UploadedAt:   s.now(),
	}

	if s.Store != nil {
		key, err := object.DocumentKey(doc.ID, fileName)
		if err != nil {
			return Document{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		if _, err := s.Store.Save(ctx, key, mimeType, bytes.NewReader(raw)); err != nil {
			return Document{}, fmt.Errorf("archive original: %w", err)
		}
		doc.StorageKey = key
	}

	if err := s.Repo.Create(ctx, doc); err != nil {
		s.discardArchive(doc)
		return Document{}, err
	}

	metrics.IncDocumentUploaded()
	telemetry.Info("documents.uploaded", map[string]any{
		"document_id":    doc.ID,
		"file_type":      string(doc.FileType),
		"size":           len(raw),
		"content_length": len(doc.Content),
		"sha256":         util.ContentDigest(raw),
	})
	return doc, nil
}

// Get returns a document by ID.
func (s *Service) Get(ctx context.Context, id string) (Document, error) {
	if strings.TrimSpace(id) == "" {
		return Document{}, ErrInvalidInput
	}
	return s.Repo.FindByID(ctx, id)
}

// List returns a page of documents newest first together with the total count.
func (s *Service) List(ctx context.Context, page, limit int) ([]Document, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	docs, err := s.Repo.List(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.Repo.Count(ctx, PredicateAll)
	if err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

// OpenOriginal returns the document and a reader over its archived upload.
// Callers must close the reader.
func (s *Service) OpenOriginal(ctx context.Context, id string) (Document, io.ReadCloser, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return Document{}, nil, err
	}
	if s.Store == nil || doc.StorageKey == "" {
		return Document{}, nil, ErrNoArchive
	}
	rc, err := s.Store.Open(ctx, doc.StorageKey)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return Document{}, nil, ErrNoArchive
		}
		return Document{}, nil, fmt.Errorf("open archive: %w", err)
	}
	return doc, rc, nil
}

// Delete removes a document and its archived original.
func (s *Service) Delete(ctx context.Context, id string) error {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	s.discardArchive(doc)
	metrics.IncDocumentDeleted()
	telemetry.Info("documents.deleted", map[string]any{"document_id": id})
	return nil
}

func (s *Service) discardArchive(doc Document) {
	if s.Store == nil || doc.StorageKey == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Store.Delete(ctx, doc.StorageKey); err != nil {
		telemetry.Warn("documents.archive_delete_failed", map[string]any{
			"document_id": doc.ID,
			"storage_key": doc.StorageKey,
			"error":       err.Error(),
		})
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func extractionFailureKind(err error) string {
	switch {
	case errors.Is(err, extract.ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(err, extract.ErrEmptyExtraction):
		return "empty"
	case errors.Is(err, extract.ErrExtractionFailed):
		return "parse"
	default:
		return "other"
	}
}
