package extract

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"
)

// extractEmail pulls subject, sender and body text from an RFC 822 message.
// Attachments are counted in the metadata but never recursed into; an
// attachment the pipeline cannot read is not an error.
func extractEmail(data []byte) (Result, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(data))
	if err != nil {
		return Result{}, extractionErr(FormatEmail, "unreadable message", err)
	}

	var res Result
	res.Metadata.Subject = decodeHeader(msg.Header.Get("Subject"))
	res.Metadata.Sender = decodeHeader(msg.Header.Get("From"))
	res.Metadata.Recipient = decodeHeader(msg.Header.Get("To"))

	body, attachments := extractMessageBody(msg)
	res.Metadata.AttachmentCount = attachments

	var content strings.Builder
	if res.Metadata.Sender != "" {
		content.WriteString("From: " + res.Metadata.Sender + "\n")
	}
	if res.Metadata.Recipient != "" {
		content.WriteString("To: " + res.Metadata.Recipient + "\n")
	}
	if d := msg.Header.Get("Date"); d != "" {
		content.WriteString("Date: " + d + "\n")
	}
	if res.Metadata.Subject != "" {
		content.WriteString("Subject: " + res.Metadata.Subject + "\n")
	}
	content.WriteString("\n")
	content.WriteString(body)

	res.Text = content.String()
	return res, nil
}

// decodeHeader decodes RFC 2047 encoded headers, returning the original on
// decode failure.
func decodeHeader(header string) string {
	if header == "" {
		return ""
	}
	dec := new(mime.WordDecoder)
	decoded, err := dec.DecodeHeader(header)
	if err != nil {
		return header
	}
	return decoded
}

// extractMessageBody returns the text body and the attachment count.
func extractMessageBody(msg *mail.Message) (string, int) {
	contentType := msg.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		raw, _ := io.ReadAll(msg.Body)
		return string(raw), 0
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		return extractMultipart(msg.Body, params["boundary"])
	}

	raw, err := io.ReadAll(msg.Body)
	if err != nil {
		return "", 0
	}
	if mediaType == "text/html" {
		return stripTags(string(raw)), 0
	}
	return string(raw), 0
}

func extractMultipart(r io.Reader, boundary string) (string, int) {
	if boundary == "" {
		return "", 0
	}

	mr := multipart.NewReader(r, boundary)
	var textParts, htmlParts []string
	attachments := 0

	for {
		part, err := mr.NextPart()
		if err != nil {
			break
		}

		if disp, _, dispErr := mime.ParseMediaType(part.Header.Get("Content-Disposition")); dispErr == nil && disp == "attachment" {
			attachments++
			part.Close()
			continue
		}

		mediaType, params, parseErr := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if parseErr != nil {
			mediaType = "application/octet-stream"
		}

		content, readErr := io.ReadAll(part)
		part.Close()
		if readErr != nil {
			continue
		}

		switch {
		case mediaType == "text/plain":
			textParts = append(textParts, string(content))
		case mediaType == "text/html":
			htmlParts = append(htmlParts, stripTags(string(content)))
		case strings.HasPrefix(mediaType, "multipart/"):
			nested, nestedAttachments := extractMultipart(bytes.NewReader(content), params["boundary"])
			attachments += nestedAttachments
			if nested != "" {
				textParts = append(textParts, nested)
			}
		}
	}

	// Prefer plain text over the HTML alternative.
	if len(textParts) > 0 {
		return strings.Join(textParts, "\n"), attachments
	}
	return strings.Join(htmlParts, "\n"), attachments
}

// stripTags removes markup tags for basic text extraction.
func stripTags(markup string) string {
	var result strings.Builder
	inTag := false
	for _, r := range markup {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			result.WriteRune(r)
		}
	}

	lines := strings.Split(result.String(), "\n")
	var cleaned []string
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
