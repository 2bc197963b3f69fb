package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

// buildPDF writes a minimal single-font PDF with one page per entry in pages.
func buildPDF(t *testing.T, pages ...string) []byte {
	t.Helper()

	var objects []string
	pageCount := len(pages)
	// 1: catalog, 2: pages, 3: font, then (page, content) pairs.
	kids := make([]string, 0, pageCount)
	for i := 0; i < pageCount; i++ {
		kids = append(kids, fmt.Sprintf("%d 0 R", 4+i*2))
	}
	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), pageCount),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	)
	for i, text := range pages {
		contentObj := 5 + i*2
		objects = append(objects, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>",
			contentObj,
		))
		stream := ""
		if text != "" {
			stream = fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", text)
		}
		objects = append(objects, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func buildDOCX(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	doc := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body +
		`</w:body></w:document>`
	if _, err := w.Write([]byte(doc)); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestExtractPDF(t *testing.T) {
	data := buildPDF(t, "Termination clause", "Arbitration")
	got, err := Extract(context.Background(), data, MimePDF)
	if err != nil {
		t.Fatalf("extract pdf: %v", err)
	}
	if got.FileType != FileTypePDF {
		t.Fatalf("expected pdf file type, got %s", got.FileType)
	}
	first := strings.Index(got.Text, "Termination")
	second := strings.Index(got.Text, "Arbitration")
	if first < 0 || second < 0 {
		t.Fatalf("expected text from both pages, got %q", got.Text)
	}
	if first > second {
		t.Fatalf("expected page order to be preserved, got %q", got.Text)
	}
}

func TestExtractPDFWithoutText(t *testing.T) {
	_, err := Extract(context.Background(), buildPDF(t, ""), MimePDF)
	if !errors.Is(err, ErrEmptyExtraction) {
		t.Fatalf("expected ErrEmptyExtraction, got %v", err)
	}
}

func TestExtractCorruptPDF(t *testing.T) {
	_, err := Extract(context.Background(), []byte("%PDF-1.4\nthis is not a pdf"), MimePDF)
	if !errors.Is(err, ErrExtractionFailed) {
		t.Fatalf("expected ErrExtractionFailed, got %v", err)
	}
}

func TestExtractDOCX(t *testing.T) {
	data := buildDOCX(t,
		`<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:rPr><w:b/></w:rPr><w:t>Lease</w:t></w:r><w:r><w:t xml:space="preserve"> Agreement</w:t></w:r></w:p>`+
			`<w:p><w:r><w:t>Tenant pays all fees.</w:t></w:r></w:p>`)

	got, err := Extract(context.Background(), data, MimeDOCX)
	if err != nil {
		t.Fatalf("extract docx: %v", err)
	}
	want := "Lease Agreement\nTenant pays all fees."
	if got.Text != want {
		t.Fatalf("unexpected docx text: %q, want %q", got.Text, want)
	}
	if got.FileType != FileTypeDOCX {
		t.Fatalf("expected docx file type, got %s", got.FileType)
	}
}

func TestExtractDOCXWithoutDocumentPart(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("notes.txt")
	_, _ = w.Write([]byte("hello"))
	_ = zw.Close()

	_, err := Extract(context.Background(), buf.Bytes(), MimeDOCX)
	if !errors.Is(err, ErrExtractionFailed) {
		t.Fatalf("expected ErrExtractionFailed, got %v", err)
	}
}

func TestExtractDOCXWhitespaceOnly(t *testing.T) {
	data := buildDOCX(t, `<w:p><w:r><w:t xml:space="preserve">   </w:t></w:r></w:p>`)
	_, err := Extract(context.Background(), data, MimeDOCX)
	if !errors.Is(err, ErrEmptyExtraction) {
		t.Fatalf("expected ErrEmptyExtraction, got %v", err)
	}
}

func TestExtractTXT(t *testing.T) {
	got, err := Extract(context.Background(), []byte("\xef\xbb\xbfThe tenant shall pay."), "text/plain; charset=utf-8")
	if err != nil {
		t.Fatalf("extract txt: %v", err)
	}
	if got.Text != "The tenant shall pay." {
		t.Fatalf("unexpected txt text: %q", got.Text)
	}
	if got.FileType != FileTypeTXT {
		t.Fatalf("expected txt file type, got %s", got.FileType)
	}
}

func TestExtractEmptyInputs(t *testing.T) {
	for _, mime := range SupportedMimeTypes() {
		for _, data := range [][]byte{nil, []byte(" \n\t ")} {
			if mime != MimeTXT && len(data) > 0 {
				continue
			}
			_, err := Extract(context.Background(), data, mime)
			if !errors.Is(err, ErrEmptyExtraction) {
				t.Fatalf("mime %s data %q: expected ErrEmptyExtraction, got %v", mime, data, err)
			}
		}
	}
}

func TestExtractUnsupportedFormat(t *testing.T) {
	for _, mime := range []string{"application/zip", "image/png", "application/msword", ""} {
		// Valid text bytes prove that nothing is parsed for unsupported types.
		_, err := Extract(context.Background(), []byte("plain words"), mime)
		if !errors.Is(err, ErrUnsupportedFormat) {
			t.Fatalf("mime %q: expected ErrUnsupportedFormat, got %v", mime, err)
		}
	}
}

func TestFileTypeForMime(t *testing.T) {
	ft, ok := FileTypeForMime("Application/PDF")
	if !ok || ft != FileTypePDF {
		t.Fatalf("expected pdf, got %q ok=%v", ft, ok)
	}
	if _, ok := FileTypeForMime("text/html"); ok {
		t.Fatalf("expected text/html to be unsupported")
	}
}
