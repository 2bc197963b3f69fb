// Package extract turns uploaded document bytes into normalized plain text.
package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeTXT  = "text/plain"
)

// FileType is the normalized format of an extracted document.
type FileType string

const (
	FileTypePDF  FileType = "pdf"
	FileTypeDOCX FileType = "docx"
	FileTypeTXT  FileType = "txt"
)

var (
	// ErrUnsupportedFormat is returned for declared types outside pdf/docx/txt.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrEmptyExtraction is returned when no text survives trimming.
	ErrEmptyExtraction = errors.New("could not extract text from the document")
	// ErrExtractionFailed wraps faults raised by the format parsers.
	ErrExtractionFailed = errors.New("extraction failed")
)

// Extraction is the result of a successful extraction.
type Extraction struct {
	Text     string
	FileType FileType
}

var mimeToType = map[string]FileType{
	MimePDF:  FileTypePDF,
	MimeDOCX: FileTypeDOCX,
	MimeTXT:  FileTypeTXT,
}

// SupportedMimeTypes lists the declared types Extract accepts.
func SupportedMimeTypes() []string {
	return []string{MimePDF, MimeDOCX, MimeTXT}
}

// FileTypeForMime maps a declared MIME type to its FileType.
func FileTypeForMime(mimeType string) (FileType, bool) {
	ft, ok := mimeToType[normalizeMimeType(mimeType)]
	return ft, ok
}

// MimeForFileType returns the canonical MIME type of ft.
func MimeForFileType(ft FileType) (string, bool) {
	for mimeType, t := range mimeToType {
		if t == ft {
			return mimeType, true
		}
	}
	return "", false
}

// Extract dispatches on the declared MIME type and returns the document text.
// Bytes are never inspected for unsupported types.
func Extract(ctx context.Context, data []byte, mimeType string) (Extraction, error) {
	if err := ctx.Err(); err != nil {
		return Extraction{}, err
	}
	fileType, ok := FileTypeForMime(mimeType)
	if !ok {
		return Extraction{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, normalizeMimeType(mimeType))
	}

	var (
		text string
		err  error
	)
	switch fileType {
	case FileTypePDF:
		text, err = extractPDF(data)
	case FileTypeDOCX:
		text, err = extractDOCX(data)
	case FileTypeTXT:
		text = decodeText(data)
	}
	if err != nil {
		return Extraction{}, fmt.Errorf("%w: %s: %w", ErrExtractionFailed, fileType, err)
	}
	if strings.TrimSpace(text) == "" {
		return Extraction{}, fmt.Errorf("%w (%s)", ErrEmptyExtraction, fileType)
	}
	return Extraction{Text: text, FileType: fileType}, nil
}

func extractPDF(data []byte) (text string, err error) {
	if len(data) == 0 {
		return "", nil
	}
	// The pdf reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parser panic: %v", r)
		}
	}()
	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var docFile *zip.File
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", errors.New("word/document.xml not found")
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	return paragraphText(rc)
}

// paragraphText keeps only w:t runs, with tabs and breaks, one line per paragraph.
func paragraphText(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)
	var (
		buf    strings.Builder
		inText bool
	)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				buf.WriteString("\t")
			case "br", "cr":
				buf.WriteString("\n")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				buf.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				buf.Write(t)
			}
		}
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

func decodeText(data []byte) string {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), "�")
}

func normalizeMimeType(mimeType string) string {
	clean, _, _ := strings.Cut(mimeType, ";")
	return strings.ToLower(strings.TrimSpace(clean))
}
