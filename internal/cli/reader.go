package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
)

// ErrInputCancelled is returned when a read is abandoned because its context ended.
var ErrInputCancelled = errors.New("input canceled")

// LineReader reads answers from a terminal without blocking past context cancellation.
// A read abandoned by cancellation keeps its goroutine until the underlying
// reader returns; the next read waits for it.
type LineReader struct {
	reader *bufio.Reader
	mu     sync.Mutex
}

// NewLineReader wraps r. A nil reader is a programming error.
func NewLineReader(r io.Reader) *LineReader {
	if r == nil {
		panic("cli: nil reader")
	}
	return &LineReader{reader: bufio.NewReader(r)}
}

// ReadLine returns the next line with surrounding whitespace removed.
// A final line without a newline is returned with a nil error.
func (r *LineReader) ReadLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", ErrInputCancelled
	}

	type result struct {
		err  error
		line string
	}
	done := make(chan result, 1)

	go func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		line, err := r.reader.ReadString('\n')
		if errors.Is(err, io.EOF) && line != "" {
			err = nil
		}
		done <- result{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ErrInputCancelled
	case res := <-done:
		if res.err != nil {
			return "", res.err
		}
		return strings.TrimSpace(res.line), nil
	}
}
