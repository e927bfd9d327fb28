package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var slideNameRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// extractPPTX walks the slide parts of the archive and concatenates the
// visible text runs per slide, in slide-number order.
func extractPPTX(data []byte) (Result, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{}, extractionErr(FormatPPTX, "unreadable pptx archive", err)
	}

	type slide struct {
		num  int
		text string
	}
	var slides []slide
	for _, file := range zr.File {
		m := slideNameRe.FindStringSubmatch(file.Name)
		if m == nil {
			continue
		}
		num, _ := strconv.Atoi(m[1])
		rc, err := file.Open()
		if err != nil {
			continue
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}
		text := extractTextRuns(string(raw))
		if strings.TrimSpace(text) != "" {
			slides = append(slides, slide{num: num, text: strings.TrimSpace(text)})
		}
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	var res Result
	res.Metadata.SlideCount = len(slides)
	parts := make([]string, 0, len(slides))
	for _, s := range slides {
		parts = append(parts, fmt.Sprintf("Slide %d:\n%s", s.num, s.text))
	}
	res.Text = strings.Join(parts, "\n\n")
	return res, nil
}

// extractTextRuns collects the contents of <a:t> runs from slide XML.
func extractTextRuns(xmlContent string) string {
	var text strings.Builder
	parts := strings.Split(xmlContent, "<a:t>")
	for i, part := range parts {
		if i == 0 {
			continue
		}
		if endIdx := strings.Index(part, "</a:t>"); endIdx >= 0 {
			text.WriteString(part[:endIdx] + " ")
		}
	}
	return text.String()
}
