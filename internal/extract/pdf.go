package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"
)

// extractPDF pulls text per page. Pages without extractable text (scanned
// images) are recorded in PagesNeedingOCR and, when a tool provider is
// configured, handed to it for OCR instead of being dropped silently.
func (d *Dispatcher) extractPDF(ctx context.Context, data []byte) (Result, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{}, extractionErr(FormatPDF, "unreadable pdf", err)
	}

	var res Result
	var pages []string
	numPages := reader.NumPage()
	res.Metadata.PageCount = numPages

	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			res.Metadata.PagesNeedingOCR = append(res.Metadata.PagesNeedingOCR, i)
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return Result{}, extractionErr(FormatPDF, fmt.Sprintf("page %d", i), err)
		}
		if strings.TrimSpace(pageText) == "" {
			res.Metadata.PagesNeedingOCR = append(res.Metadata.PagesNeedingOCR, i)
			continue
		}
		pages = append(pages, fmt.Sprintf("Page %d:\n%s", i, strings.TrimSpace(pageText)))
	}

	if len(res.Metadata.PagesNeedingOCR) > 0 && d.tools != nil {
		ocrText, err := d.tools.Extract(ctx, data, "application/pdf")
		if err != nil {
			log.Warn().Err(err).Ints("pages", res.Metadata.PagesNeedingOCR).
				Msg("ocr fallback for pdf failed")
		} else if strings.TrimSpace(ocrText) != "" {
			pages = append(pages, "OCR:\n"+strings.TrimSpace(ocrText))
		}
	}

	res.Text = strings.Join(pages, "\n\n")
	return res, nil
}
