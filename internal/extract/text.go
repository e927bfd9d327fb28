package extract

import (
	"bytes"
	"context"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// extractText decodes plain text best-effort: invalid byte sequences are
// replaced and flagged in the metadata rather than failing the ingestion.
func extractText(data []byte) (Result, error) {
	var res Result
	if utf8.Valid(data) {
		res.Text = string(data)
		return res, nil
	}

	res.Metadata.HadDecodingErrors = true
	res.Text = strings.ToValidUTF8(string(data), string(utf8.RuneError))
	return res, nil
}

// extractMarkdown renders the document and strips the markup, leaving the
// readable text.
func extractMarkdown(data []byte) (Result, error) {
	res, err := extractText(data)
	if err != nil {
		return Result{}, err
	}

	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var buf bytes.Buffer
	if err := md.Convert([]byte(res.Text), &buf); err != nil {
		return Result{}, extractionErr(FormatMarkdown, "render failed", err)
	}
	res.Text = stripTags(buf.String())
	return res, nil
}

// extractImage delegates to the OCR capability. A missing provider or empty
// OCR output yields empty content with a metadata flag, not a failure.
func (d *Dispatcher) extractImage(ctx context.Context, data []byte, mimeType string) (Result, error) {
	var res Result
	if d.tools == nil {
		res.Metadata.OCRUnavailable = true
		return res, nil
	}

	text, err := d.tools.Extract(ctx, data, mimeType)
	if err != nil {
		log.Warn().Err(err).Str("mime_type", mimeType).Msg("ocr extraction failed")
		res.Metadata.OCRUnavailable = true
		return res, nil
	}
	res.Text = text
	return res, nil
}
