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

// ExitInterrupted is the process exit code after an interrupt.
const ExitInterrupted = 130

// InterruptHandler turns SIGINT/SIGTERM into context cancellation and tells
// the operator what happened to their work.
type InterruptHandler struct {
	writer      io.Writer
	cancelFunc  context.CancelFunc
	hint        string
	interrupted bool
	mu          sync.Mutex
}

// NewInterruptHandler creates a new interrupt handler.
func NewInterruptHandler(writer io.Writer) *InterruptHandler {
	if writer == nil {
		writer = os.Stderr
	}
	return &InterruptHandler{
		writer: writer,
	}
}

// HandleInterrupts returns a context canceled on the first interrupt signal.
// hint is printed with the interrupt message when non-empty.
func (h *InterruptHandler) HandleInterrupts(ctx context.Context, hint string) context.Context {
	ctx, cancel := context.WithCancel(ctx)
	h.mu.Lock()
	h.cancelFunc = cancel
	h.hint = hint
	h.mu.Unlock()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case <-sigChan:
			h.Interrupt()
		case <-ctx.Done():
		}
	}()

	return ctx
}

// Interrupt behaves as if a signal arrived.
func (h *InterruptHandler) Interrupt() {
	h.mu.Lock()
	first := !h.interrupted
	h.interrupted = true
	cancel := h.cancelFunc
	if first {
		h.showInterruptMessage()
	}
	h.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (h *InterruptHandler) showInterruptMessage() {
	msg := "\n\n" + FormatWarning("Review interrupted!")
	if h.hint != "" {
		msg += "\n" + FormatInfo(h.hint)
	}
	msg += "\n"

	if _, err := fmt.Fprint(h.writer, msg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write interrupt message: %v\n", err)
	}
}

// WasInterrupted returns true if the process was interrupted.
func (h *InterruptHandler) WasInterrupted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.interrupted
}
