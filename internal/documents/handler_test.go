package documents

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gin-gonic/gin"

	"legaldoc-backend/internal/extract"
	"legaldoc-backend/internal/shared/storage/object/local"
)

func newTestRouter(t *testing.T, maxUpload int64) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := &Service{Repo: NewMemoryRepo(), Store: local.New(t.TempDir())}
	r := gin.New()
	NewHandler(svc, maxUpload).RegisterRoutes(r.Group("/api/v1"))
	return r, svc
}

func multipartUpload(t *testing.T, field, fileName, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+fileName+`"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func doUpload(t *testing.T, router *gin.Engine, fileName, contentType string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartUpload(t, "document", fileName, contentType, data)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/upload", body)
	req.Header.Set("Content-Type", ct)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestUploadListGetDelete(t *testing.T) {
	router, svc := newTestRouter(t, 0)

	resp := doUpload(t, router, "nda.txt", "text/plain", []byte("The receiving party shall not disclose."))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var created UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode upload: %v", err)
	}
	if created.DocumentID == "" || created.FileType != "txt" || created.FileName != "nda.txt" {
		t.Fatalf("unexpected upload response: %+v", created)
	}
	if created.ContentLength != len("The receiving party shall not disclose.") {
		t.Fatalf("unexpected content length %d", created.ContentLength)
	}

	stored, err := svc.Repo.FindByID(context.Background(), created.DocumentID)
	if err != nil {
		t.Fatalf("find stored: %v", err)
	}
	if stored.StorageKey == "" {
		t.Fatalf("expected original to be archived")
	}
	if stored.State() != StateUnanalyzed {
		t.Fatalf("new documents must start unanalyzed")
	}

	listResp := httptest.NewRecorder()
	router.ServeHTTP(listResp, httptest.NewRequest(http.MethodGet, "/api/v1/documents?page=1&limit=5", nil))
	if listResp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", listResp.Code)
	}
	var listed ListResponse
	if err := json.NewDecoder(listResp.Body).Decode(&listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed.Documents) != 1 || listed.Pagination.Total != 1 || listed.Pagination.Pages != 1 {
		t.Fatalf("unexpected listing: %+v", listed)
	}
	if bytes.Contains(listResp.Body.Bytes(), []byte(`"content"`)) {
		t.Fatalf("listing must not include content")
	}

	getResp := httptest.NewRecorder()
	router.ServeHTTP(getResp, httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+created.DocumentID, nil))
	if getResp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", getResp.Code)
	}
	var got DocumentResponse
	if err := json.NewDecoder(getResp.Body).Decode(&got); err != nil {
		t.Fatalf("decode get: %v", err)
	}
	if got.Content != "The receiving party shall not disclose." || got.IsAnalyzed {
		t.Fatalf("unexpected document: %+v", got)
	}

	delResp := httptest.NewRecorder()
	router.ServeHTTP(delResp, httptest.NewRequest(http.MethodDelete, "/api/v1/documents/"+created.DocumentID, nil))
	if delResp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", delResp.Code)
	}
	if _, err := svc.Store.Open(context.Background(), stored.StorageKey); err == nil {
		t.Fatalf("expected archived original to be removed")
	}

	missing := httptest.NewRecorder()
	router.ServeHTTP(missing, httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+created.DocumentID, nil))
	if missing.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", missing.Code)
	}
}

func TestUploadRejectsUnsupportedFormat(t *testing.T) {
	router, svc := newTestRouter(t, 0)

	resp := doUpload(t, router, "photo.png", "image/png", []byte{0x89, 'P', 'N', 'G'})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if !bytes.Contains(resp.Body.Bytes(), []byte(`"unsupported_format"`)) {
		t.Fatalf("unexpected body: %s", resp.Body.String())
	}
	if n, _ := svc.Repo.Count(context.Background(), PredicateAll); n != 0 {
		t.Fatalf("nothing should be persisted, found %d documents", n)
	}
}

func TestUploadRejectsEmptyDocument(t *testing.T) {
	router, svc := newTestRouter(t, 0)

	resp := doUpload(t, router, "blank.txt", "text/plain", []byte("  \n\t "))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if !bytes.Contains(resp.Body.Bytes(), []byte(`"empty_document"`)) {
		t.Fatalf("unexpected body: %s", resp.Body.String())
	}
	if n, _ := svc.Repo.Count(context.Background(), PredicateAll); n != 0 {
		t.Fatalf("nothing should be persisted, found %d documents", n)
	}
}

func TestUploadFallsBackToExtension(t *testing.T) {
	router, _ := newTestRouter(t, 0)

	resp := doUpload(t, router, "terms.txt", "application/octet-stream", []byte("Fees are non-refundable."))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestUploadKeepsDeclaredUnsupportedType(t *testing.T) {
	router, svc := newTestRouter(t, 0)

	resp := doUpload(t, router, "scan.pdf", "image/png", []byte("not really a pdf"))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", resp.Code, resp.Body.String())
	}
	if !bytes.Contains(resp.Body.Bytes(), []byte(`"unsupported_format"`)) {
		t.Fatalf("unexpected body: %s", resp.Body.String())
	}
	if n, _ := svc.Repo.Count(context.Background(), PredicateAll); n != 0 {
		t.Fatalf("nothing should be persisted, found %d documents", n)
	}
}

func TestResolveMimeType(t *testing.T) {
	cases := []struct{ declared, name, want string }{
		{"text/plain", "notes.pdf", "text/plain"},
		{"application/octet-stream", "deal.docx", extract.MimeDOCX},
		{"application/octet-stream; charset=binary", "deal.pdf", extract.MimePDF},
		{"", "terms.txt", extract.MimeTXT},
		{"image/png", "scan.pdf", "image/png"},
		{"application/octet-stream", "archive.zip", "application/octet-stream"},
	}
	for _, tc := range cases {
		if got := resolveMimeType(tc.declared, tc.name); got != tc.want {
			t.Fatalf("resolveMimeType(%q, %q) = %q, want %q", tc.declared, tc.name, got, tc.want)
		}
	}
}

func TestDownloadOriginal(t *testing.T) {
	router, _ := newTestRouter(t, 0)
	raw := []byte("Either party may terminate on 30 days notice.")

	resp := doUpload(t, router, "msa terms.txt", "text/plain", raw)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var created UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode upload: %v", err)
	}

	dl := httptest.NewRecorder()
	router.ServeHTTP(dl, httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+created.DocumentID+"/original", nil))
	if dl.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", dl.Code, dl.Body.String())
	}
	if !bytes.Equal(dl.Body.Bytes(), raw) {
		t.Fatalf("unexpected body %q", dl.Body.String())
	}
	if got := dl.Header().Get("Content-Type"); got != extract.MimeTXT {
		t.Fatalf("unexpected content type %q", got)
	}
	if got := dl.Header().Get("Content-Disposition"); got != `attachment; filename="msa terms.txt"` {
		t.Fatalf("unexpected content disposition %q", got)
	}

	missing := httptest.NewRecorder()
	router.ServeHTTP(missing, httptest.NewRequest(http.MethodGet, "/api/v1/documents/nope/original", nil))
	if missing.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown document, got %d", missing.Code)
	}
}

func TestDownloadOriginalWithoutArchive(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &Service{Repo: NewMemoryRepo()}
	router := gin.New()
	NewHandler(svc, 0).RegisterRoutes(router.Group("/api/v1"))

	doc, err := svc.Upload(context.Background(), "nda.txt", "text/plain", []byte("Confidential."))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+doc.ID+"/original", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	if _, _, err := svc.OpenOriginal(context.Background(), doc.ID); !errors.Is(err, ErrNoArchive) {
		t.Fatalf("expected ErrNoArchive, got %v", err)
	}
}

func TestUploadTooLarge(t *testing.T) {
	router, _ := newTestRouter(t, 8)

	resp := doUpload(t, router, "long.txt", "text/plain", []byte("this body is longer than eight bytes"))
	if resp.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", resp.Code)
	}
}

func TestUploadMissingFile(t *testing.T) {
	router, _ := newTestRouter(t, 0)

	body, ct := multipartUpload(t, "file", "nda.txt", "text/plain", []byte("wrong field"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/upload", body)
	req.Header.Set("Content-Type", ct)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestPageCount(t *testing.T) {
	cases := []struct{ total, limit, want int }{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
	}
	for _, tc := range cases {
		if got := pageCount(tc.total, tc.limit); got != tc.want {
			t.Fatalf("pageCount(%d, %d) = %d, want %d", tc.total, tc.limit, got, tc.want)
		}
	}
}
