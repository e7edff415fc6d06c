package api

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/Veraticus/chainwatch/internal/common"
)

// APIError is a failure reported by the analysis service, either as a
// non-2xx status or as success:false in the response envelope.
type APIError struct {
	Method  string
	Path    string
	Message string
	Status  int
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("%s %s: %s (status %d)", e.Method, e.Path, msg, e.Status)
}

// Unwrap classifies the failure. Server errors are worth retrying,
// everything else is a definitive answer.
func (e *APIError) Unwrap() error {
	if e.Status >= http.StatusInternalServerError {
		return common.ErrUnavailable
	}
	return common.ErrAPIFailure
}

// UploadRejectedError is returned when the server refuses an uploaded file.
// HTML holds the rendered form fragment, Location the redirect back to it.
type UploadRejectedError struct {
	HTML     string
	Location string
	Status   int
}

func (e *UploadRejectedError) Error() string {
	if msg := e.Message(); msg != "" {
		return "upload rejected: " + msg
	}
	return "upload rejected by server"
}

func (e *UploadRejectedError) Unwrap() error {
	return common.ErrUploadInvalid
}

var (
	flashPattern = regexp.MustCompile(`(?is)<div[^>]*class="[^"]*alert[^"]*"[^>]*>(.*?)</div>`)
	tagPattern   = regexp.MustCompile(`(?s)<[^>]+>`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// Message extracts the flash message from the rejected page, if any.
func (e *UploadRejectedError) Message() string {
	m := flashPattern.FindStringSubmatch(e.HTML)
	if m == nil {
		return ""
	}
	text := tagPattern.ReplaceAllString(m[1], " ")
	text = strings.ReplaceAll(text, "&times;", "")
	return strings.TrimSpace(spacePattern.ReplaceAllString(text, " "))
}
