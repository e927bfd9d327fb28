package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"docuchat/internal/models"
)

// ErrUnsupportedFormat is returned when neither the MIME type nor the file
// extension resolves to a known format. Dispatch never guesses.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// ExtractionError reports a failed extraction with a human-readable cause
// (corrupt file, password-protected, empty archive, ...).
type ExtractionError struct {
	Format Format
	Cause  string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s extraction failed: %s: %v", e.Format, e.Cause, e.Err)
	}
	return fmt.Sprintf("%s extraction failed: %s", e.Format, e.Cause)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func extractionErr(format Format, cause string, err error) *ExtractionError {
	return &ExtractionError{Format: format, Cause: cause, Err: err}
}

// Format is the closed set of document kinds the pipeline handles locally.
type Format string

const (
	FormatPDF      Format = "pdf"
	FormatDOCX     Format = "docx"
	FormatPPTX     Format = "pptx"
	FormatXLSX     Format = "xlsx"
	FormatODS      Format = "ods"
	FormatEmail    Format = "email"
	FormatImage    Format = "image"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

// Result is canonical extracted text plus structural hints.
type Result struct {
	Text     string
	Metadata models.ContentMetadata
}

// ToolProvider is the external capability used for OCR and for content the
// local extractors cannot read. Calls must be idempotent and side-effect-free.
type ToolProvider interface {
	Extract(ctx context.Context, data []byte, mimeType string) (string, error)
}

var mimeFormats = map[string]Format{
	"application/pdf": FormatPDF,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   FormatDOCX,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": FormatPPTX,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         FormatXLSX,
	"application/vnd.oasis.opendocument.spreadsheet":                            FormatODS,
	"message/rfc822":             FormatEmail,
	"application/vnd.ms-outlook": FormatEmail,
	"text/markdown":              FormatMarkdown,
}

var extFormats = map[string]Format{
	".pdf":      FormatPDF,
	".docx":     FormatDOCX,
	".pptx":     FormatPPTX,
	".xlsx":     FormatXLSX,
	".ods":      FormatODS,
	".eml":      FormatEmail,
	".msg":      FormatEmail,
	".md":       FormatMarkdown,
	".markdown": FormatMarkdown,
	".txt":      FormatText,
	".csv":      FormatText,
	".log":      FormatText,
	".jpg":      FormatImage,
	".jpeg":     FormatImage,
	".png":      FormatImage,
	".gif":      FormatImage,
	".tiff":     FormatImage,
}

// NormalizeMIME strips parameters and lowercases the media type.
func NormalizeMIME(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

// DetectFormat resolves exactly one format for a document: normalized MIME
// type first, file-extension heuristics second. Unresolved input fails with
// ErrUnsupportedFormat rather than guessing.
func DetectFormat(mimeType, fileName string) (Format, error) {
	mt := NormalizeMIME(mimeType)
	if f, ok := mimeFormats[mt]; ok {
		return f, nil
	}
	if strings.HasPrefix(mt, "image/") {
		return FormatImage, nil
	}
	if strings.HasPrefix(mt, "text/") {
		return FormatText, nil
	}
	if f, ok := extFormats[strings.ToLower(filepath.Ext(fileName))]; ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: mime %q, file %q", ErrUnsupportedFormat, mimeType, fileName)
}

// Dispatcher routes a document to the one extractor for its format. The tool
// provider may be nil; extractors that need it degrade as documented.
type Dispatcher struct {
	tools ToolProvider
}

func NewDispatcher(tools ToolProvider) *Dispatcher {
	return &Dispatcher{tools: tools}
}

// Extract converts raw bytes into canonical text. An extractor failure is
// surfaced verbatim; the dispatcher never retries with a different extractor.
func (d *Dispatcher) Extract(ctx context.Context, fileName, mimeType string, data []byte) (Result, error) {
	format, err := DetectFormat(mimeType, fileName)
	if err != nil {
		return Result{}, err
	}

	var res Result
	switch format {
	case FormatPDF:
		res, err = d.extractPDF(ctx, data)
	case FormatDOCX:
		res, err = extractDOCX(data)
	case FormatPPTX:
		res, err = extractPPTX(data)
	case FormatXLSX:
		res, err = extractXLSX(data)
	case FormatODS:
		res, err = extractODS(data)
	case FormatEmail:
		res, err = extractEmail(data)
	case FormatImage:
		res, err = d.extractImage(ctx, data, NormalizeMIME(mimeType))
	case FormatMarkdown:
		res, err = extractMarkdown(data)
	case FormatText:
		res, err = extractText(data)
	default:
		return Result{}, fmt.Errorf("%w: mime %q, file %q", ErrUnsupportedFormat, mimeType, fileName)
	}
	if err != nil {
		return Result{}, err
	}

	res.Text = strings.TrimSpace(res.Text)
	if res.Text == "" {
		res.Metadata.EmptyContent = true
	}
	return res, nil
}
