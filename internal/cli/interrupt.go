package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// InterruptHandler turns the first interrupt into a cooperative stop with a
// friendly message. A second interrupt is left to the default handler.
type InterruptHandler struct {
	writer      io.Writer
	cancelFunc  context.CancelFunc
	onInterrupt func()
	what        string
	interrupted bool
	mu          sync.Mutex
}

// NewInterruptHandler creates a handler that reports on writer. what names the
// activity being stopped, e.g. "Simulation playback".
func NewInterruptHandler(writer io.Writer, what string) *InterruptHandler {
	if writer == nil {
		writer = os.Stdout
	}
	if what == "" {
		what = "Operation"
	}
	return &InterruptHandler{
		writer: writer,
		what:   what,
	}
}

// HandleInterrupts sets up signal handling and returns a context that is
// canceled on the first interrupt. onInterrupt, when non-nil, runs before the
// context is canceled.
func (h *InterruptHandler) HandleInterrupts(ctx context.Context, onInterrupt func()) context.Context {
	ctx, cancel := context.WithCancel(ctx)
	h.mu.Lock()
	h.cancelFunc = cancel
	h.onInterrupt = onInterrupt
	h.mu.Unlock()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case <-sigChan:
			h.Trigger()
		case <-ctx.Done():
		}
	}()

	return ctx
}

// Trigger performs the interrupt sequence once. Later calls are no-ops.
func (h *InterruptHandler) Trigger() {
	h.mu.Lock()
	if h.interrupted {
		h.mu.Unlock()
		return
	}
	h.interrupted = true
	hook, cancel := h.onInterrupt, h.cancelFunc
	h.showInterruptMessage()
	h.mu.Unlock()

	if hook != nil {
		hook()
	}
	if cancel != nil {
		cancel()
	}
}

func (h *InterruptHandler) showInterruptMessage() {
	msg := "\n\n" + FormatWarning(h.what+" interrupted!") +
		"\n" + FormatInfo("Results already received are kept. Run the command again to start over.") + "\n"

	if _, err := fmt.Fprint(h.writer, msg); err != nil {
		// Best effort - we're shutting down anyway
		fmt.Fprintf(os.Stderr, "Failed to write interrupt message: %v\n", err)
	}
}

// WasInterrupted returns true if the process was interrupted.
func (h *InterruptHandler) WasInterrupted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.interrupted
}
