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

// InterruptHandler cancels a run on SIGINT or SIGTERM and tells the user
// what was kept.
type InterruptHandler struct {
	writer      io.Writer
	cancel      context.CancelFunc
	signals     chan os.Signal
	stop        chan struct{}
	stopOnce    sync.Once
	keptResults bool
	interrupted bool
	mu          sync.Mutex
}

// NewInterruptHandler writes its message to writer, or stdout when nil.
func NewInterruptHandler(writer io.Writer) *InterruptHandler {
	if writer == nil {
		writer = os.Stdout
	}
	return &InterruptHandler{
		writer:  writer,
		signals: make(chan os.Signal, 1),
		stop:    make(chan struct{}),
	}
}

// HandleInterrupts returns a context canceled on the first interrupt.
// keptResults controls whether the message says completed matches were kept.
// Call Stop when the guarded work is finished.
func (h *InterruptHandler) HandleInterrupts(ctx context.Context, keptResults bool) context.Context {
	ctx, cancel := context.WithCancel(ctx)
	h.mu.Lock()
	h.cancel = cancel
	h.keptResults = keptResults
	h.mu.Unlock()

	signal.Notify(h.signals, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-h.signals:
			h.interrupt()
		case <-h.stop:
		}
	}()

	return ctx
}

// Stop releases signal handling and the context.
func (h *InterruptHandler) Stop() {
	h.stopOnce.Do(func() {
		signal.Stop(h.signals)
		close(h.stop)
		h.mu.Lock()
		if h.cancel != nil {
			h.cancel()
		}
		h.mu.Unlock()
	})
}

func (h *InterruptHandler) interrupt() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.interrupted {
		return
	}
	h.interrupted = true
	h.showInterruptMessage()
	if h.cancel != nil {
		h.cancel()
	}
}

func (h *InterruptHandler) showInterruptMessage() {
	msg := "\n\n" + FormatWarning("Matching interrupted!")
	if h.keptResults {
		msg += "\n" + FormatInfo("Rule matches are kept; unfinished transactions stay unmatched.")
	}
	msg += "\n"

	if _, err := fmt.Fprint(h.writer, msg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write interrupt message: %v\n", err)
	}
}

// WasInterrupted reports whether a signal arrived.
func (h *InterruptHandler) WasInterrupted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.interrupted
}
