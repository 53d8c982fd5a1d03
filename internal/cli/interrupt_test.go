package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInterruptHandler(t *testing.T) {
	assert.NotNil(t, NewInterruptHandler(nil).writer)

	var buf bytes.Buffer
	handler := NewInterruptHandler(&buf)
	assert.Same(t, &buf, handler.writer)
	assert.False(t, handler.WasInterrupted())
}

func TestInterruptHandler_Interrupt(t *testing.T) {
	var output bytes.Buffer
	handler := NewInterruptHandler(&output)
	ctx := handler.HandleInterrupts(context.Background(), true)
	defer handler.Stop()

	handler.interrupt()
	handler.interrupt()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context was not canceled")
	}

	assert.True(t, handler.WasInterrupted())
	out := output.String()
	assert.Equal(t, 1, strings.Count(out, "Matching interrupted!"))
	assert.Contains(t, out, "Rule matches are kept")
}

func TestInterruptHandler_Stop(t *testing.T) {
	var output bytes.Buffer
	handler := NewInterruptHandler(&output)
	ctx := handler.HandleInterrupts(context.Background(), false)

	handler.Stop()
	handler.Stop()

	require.Error(t, ctx.Err())
	assert.False(t, handler.WasInterrupted())
	assert.Empty(t, output.String())
}

func TestShowInterruptMessage(t *testing.T) {
	tests := []struct {
		name        string
		keptResults bool
		expected    []string
		notExpected []string
	}{
		{
			name:        "with kept results",
			keptResults: true,
			expected:    []string{"Matching interrupted!", "Rule matches are kept"},
		},
		{
			name:        "without kept results",
			expected:    []string{"Matching interrupted!"},
			notExpected: []string{"Rule matches are kept"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var output bytes.Buffer
			handler := &InterruptHandler{writer: &output, keptResults: tt.keptResults}

			handler.showInterruptMessage()

			for _, s := range tt.expected {
				assert.Contains(t, output.String(), s)
			}
			for _, s := range tt.notExpected {
				assert.NotContains(t, output.String(), s)
			}
		})
	}
}
