package playback

import (
	"fmt"
	"io"
	"sync"
)

// FormatStep renders a step as a single plain line.
func FormatStep(step Step) string {
	return fmt.Sprintf("[tx %d] %-18s %s", step.Index+1, step.Stage, step.Text)
}

// TextSurface writes one line per rendered stage.
type TextSurface struct {
	w      io.Writer
	format func(Step) string
	mu     sync.Mutex
}

// NewTextSurface writes to w using format, or FormatStep when format is nil.
func NewTextSurface(w io.Writer, format func(Step) string) *TextSurface {
	if format == nil {
		format = FormatStep
	}
	return &TextSurface{w: w, format: format}
}

// Clear is a no-op for append-only output.
func (s *TextSurface) Clear() {}

// Render writes the step.
func (s *TextSurface) Render(step Step) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = fmt.Fprintln(s.w, s.format(step))
}
