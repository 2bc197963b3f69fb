package documents

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"legaldoc-backend/internal/extract"
	"legaldoc-backend/internal/shared/server/respond"
)

const (
	defaultMaxUploadBytes = 10 << 20 // 10MB
	defaultPageSize       = 10
	maxPageSize           = 100
	uploadField           = "document"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc            *Service
	MaxUploadBytes int64
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &Handler{Svc: svc, MaxUploadBytes: maxUploadBytes}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents/upload", h.upload)
	rg.GET("/documents", h.list)
	rg.GET("/documents/:id", h.get)
	rg.GET("/documents/:id/original", h.original)
	rg.DELETE("/documents/:id", h.delete)
}

func (h *Handler) upload(c *gin.Context) {
	// Multipart overhead gets a small allowance on top of the file limit.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes+1<<20)

	fileHeader, err := c.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", fmt.Sprintf("file exceeds %d bytes", h.MaxUploadBytes), nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "No file uploaded", nil)
		return
	}
	if fileHeader.Size > h.MaxUploadBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", fmt.Sprintf("file exceeds %d bytes", h.MaxUploadBytes), nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(io.LimitReader(file, h.MaxUploadBytes+1))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	if int64(len(raw)) > h.MaxUploadBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", fmt.Sprintf("file exceeds %d bytes", h.MaxUploadBytes), nil)
		return
	}

	mimeType := resolveMimeType(fileHeader.Header.Get("Content-Type"), fileHeader.Filename)
	doc, err := h.Svc.Upload(c.Request.Context(), fileHeader.Filename, mimeType, raw)
	if err != nil {
		switch {
		case errors.Is(err, extract.ErrUnsupportedFormat):
			respond.Error(c, http.StatusBadRequest, "unsupported_format",
				"Invalid file type. Only PDF, DOCX, and TXT files are allowed.",
				gin.H{"supportedTypes": extract.SupportedMimeTypes()})
		case errors.Is(err, extract.ErrEmptyExtraction):
			respond.Error(c, http.StatusBadRequest, "empty_document", "Could not extract text from document", nil)
		case errors.Is(err, extract.ErrExtractionFailed):
			respond.Error(c, http.StatusBadRequest, "extraction_failed", "Could not extract text from document", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to upload document", nil)
		}
		return
	}

	respond.Created(c, toUploadResponse(doc))
}

func (h *Handler) list(c *gin.Context) {
	page := queryInt(c, "page", 1)
	if page < 1 {
		page = 1
	}
	limit := queryInt(c, "limit", defaultPageSize)
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	docs, total, err := h.Svc.List(c.Request.Context(), page, limit)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list documents", nil)
		return
	}

	items := make([]SummaryResponse, 0, len(docs))
	for _, doc := range docs {
		items = append(items, toSummary(doc))
	}
	respond.OK(c, ListResponse{
		Documents: items,
		Pagination: Pagination{
			Current: page,
			Pages:   pageCount(total, limit),
			Total:   total,
		},
	})
}

func (h *Handler) get(c *gin.Context) {
	doc, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeLookupError(c, err, "failed to fetch document")
		return
	}
	respond.OK(c, toResponse(doc))
}

func (h *Handler) original(c *gin.Context) {
	doc, rc, err := h.Svc.OpenOriginal(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNoArchive) {
			respond.Error(c, http.StatusNotFound, "not_found", "Original file is not available", nil)
			return
		}
		writeLookupError(c, err, "failed to open original file")
		return
	}
	defer rc.Close()

	contentType, ok := extract.MimeForFileType(doc.FileType)
	if !ok {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, -1, contentType, rc, map[string]string{
		"Content-Disposition": mime.FormatMediaType("attachment", map[string]string{"filename": doc.OriginalName}),
	})
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeLookupError(c, err, "failed to delete document")
		return
	}
	respond.OK(c, gin.H{"message": "Document deleted successfully"})
}

func writeLookupError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "Document not found", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}

func queryInt(c *gin.Context, key string, fallback int) int {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

// resolveMimeType returns the part's declared type. Only when the client sent
// no type or the generic application/octet-stream is the file extension used
// to pick a supported type; any other declared type is passed through as is.
func resolveMimeType(declared, fileName string) string {
	base, _, _ := strings.Cut(declared, ";")
	switch strings.ToLower(strings.TrimSpace(base)) {
	case "", "application/octet-stream":
	default:
		return declared
	}
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return extract.MimePDF
	case ".docx":
		return extract.MimeDOCX
	case ".txt":
		return extract.MimeTXT
	}
	return declared
}
