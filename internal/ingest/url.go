package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"docuchat/internal/models"
)

var ErrInvalidURL = errors.New("invalid url")

const downloadTimeout = 30 * time.Second

// UploadURL downloads a remote document and runs it through the same upload
// path as a direct file upload.
func (s *Service) UploadURL(ctx context.Context, rawURL string) (models.Document, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return models.Document{}, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return models.Document{}, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return models.Document{}, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Document{}, fmt.Errorf("download failed: status %d", resp.StatusCode)
	}

	limit := int64(s.cfg.MaxFileSizeMB<<20) + 1
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return models.Document{}, fmt.Errorf("download failed: %w", err)
	}

	fileName := fileNameFromResponse(resp, u)
	return s.Upload(ctx, fileName, resp.Header.Get("Content-Type"), data)
}

// fileNameFromResponse prefers the Content-Disposition filename, then the
// URL path, then a host-derived fallback.
func fileNameFromResponse(resp *http.Response, u *url.URL) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if name := strings.TrimSpace(params["filename"]); name != "" {
				return path.Base(name)
			}
		}
	}
	if name := path.Base(u.Path); name != "" && name != "/" && name != "." {
		return name
	}
	return u.Host + ".html"
}
