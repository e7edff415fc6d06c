package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/chainwatch/internal/common"
	"github.com/Veraticus/chainwatch/internal/model"
	"github.com/Veraticus/chainwatch/internal/service"
)

// MaxUploadSize is the largest file the server accepts.
const MaxUploadSize int64 = 10 << 20

// UploadField is the multipart form field carrying the file.
const UploadField = "file"

// ValidateUpload checks a file before any request is made.
func ValidateUpload(path string) (os.FileInfo, error) {
	if !strings.EqualFold(filepath.Ext(path), ".csv") {
		return nil, fmt.Errorf("%w: only CSV files are allowed: %s", common.ErrUploadInvalid, filepath.Base(path))
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrUploadInvalid, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", common.ErrUploadInvalid, path)
	}
	if info.Size() > MaxUploadSize {
		return nil, fmt.Errorf("%w: file size %d exceeds the 10MB limit", common.ErrUploadInvalid, info.Size())
	}
	return info, nil
}

// Upload sends a CSV file for offline analysis. A redirect to a results
// page is success; a form page in response is a rejection.
func (c *Client) Upload(ctx context.Context, path string, progress service.ProgressFunc) (*model.UploadResult, error) {
	info, err := ValidateUpload(path)
	if err != nil {
		return nil, err
	}

	body, contentType, err := multipartBody(path, info.Name())
	if err != nil {
		return nil, err
	}

	total := int64(body.Len())
	var reader io.Reader = body
	if progress != nil {
		reader = &progressReader{r: body, total: total, fn: progress}
	}

	req, err := c.newRequest(ctx, http.MethodPost, PathUpload, reader)
	if err != nil {
		return nil, err
	}
	req.ContentLength = total
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "text/html,application/json")

	hc := *c.httpClient
	hc.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, transportError(ctx, http.MethodPost, PathUpload, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, transportError(ctx, http.MethodPost, PathUpload, err)
	}

	c.logger.Debug("upload finished",
		"file", info.Name(),
		"bytes", total,
		"status", resp.StatusCode)

	switch {
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		location := resp.Header.Get("Location")
		if c.isUploadForm(location) {
			return nil, &UploadRejectedError{Status: resp.StatusCode, Location: location}
		}
		return &model.UploadResult{
			Location: location,
			FileName: info.Name(),
			Size:     info.Size(),
		}, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil, &UploadRejectedError{Status: resp.StatusCode, HTML: string(raw)}
	default:
		return nil, decodeResponse(http.MethodPost, PathUpload, resp.StatusCode, raw, nil)
	}
}

// isUploadForm reports whether a redirect points back at the upload form.
func (c *Client) isUploadForm(location string) bool {
	if location == "" {
		return true
	}
	u, err := url.Parse(location)
	if err != nil {
		return false
	}
	return strings.TrimRight(u.Path, "/") == PathUpload
}

func multipartBody(path, name string) (*bytes.Buffer, string, error) {
	f, err := os.Open(path) //nolint:gosec // user-selected upload
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", common.ErrUploadInvalid, err)
	}
	defer func() { _ = f.Close() }()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(UploadField, name)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

type progressReader struct {
	r     io.Reader
	fn    service.ProgressFunc
	sent  int64
	total int64
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		p.fn(p.sent, p.total)
	}
	return n, err
}
