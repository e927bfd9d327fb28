package extract

import (
	"bytes"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

// extractDOCX pulls paragraph text from a Word document.
func extractDOCX(data []byte) (Result, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{}, extractionErr(FormatDOCX, "unreadable docx", err)
	}
	defer r.Close()

	content := r.Editable().GetContent()
	content = strings.ReplaceAll(content, "</w:p>", "\n")
	content = stripTags(content)

	var res Result
	var paragraphs []string
	for _, p := range strings.Split(content, "\n") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		paragraphs = append(paragraphs, p)
	}
	res.Metadata.ParagraphCount = len(paragraphs)
	res.Text = strings.Join(paragraphs, "\n")
	return res, nil
}
