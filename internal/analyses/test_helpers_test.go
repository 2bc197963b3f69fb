package analyses

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"legaldoc-backend/internal/documents"
	"legaldoc-backend/internal/extract"
	"legaldoc-backend/internal/shared/telemetry"
)

func quietLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	telemetry.SetOutput(&lockedWriter{w: buf})
	t.Cleanup(func() { telemetry.SetOutput(nil) })
	return buf
}

type lockedWriter struct {
	mu sync.Mutex
	w  *bytes.Buffer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// fakeEngine returns scripted responses and counts invocations.
type fakeEngine struct {
	calls     atomic.Int32
	responses []string
	err       error
	delay     time.Duration
	block     chan struct{}
	prompts   chan string
}

func (f *fakeEngine) Generate(ctx context.Context, prompt string) (string, error) {
	n := int(f.calls.Add(1))
	if f.prompts != nil {
		f.prompts <- prompt
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return `{"riskScore": 50}`, nil
	}
	if n > len(f.responses) {
		n = len(f.responses)
	}
	return f.responses[n-1], nil
}

func seedDocument(t *testing.T, repo documents.Repo, id, content string) documents.Document {
	t.Helper()
	doc := documents.Document{
		ID:           id,
		OriginalName: id + ".txt",
		FileType:     extract.FileTypeTXT,
		Content:      content,
		UploadedAt:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := repo.Create(context.Background(), doc); err != nil {
		t.Fatalf("seed document: %v", err)
	}
	return doc
}
