package llm

import (
	"context"
	"strings"
	"sync"
)

// MockCall records a single Generate call.
type MockCall struct {
	Prompt string
}

// MockClient is a scripted Client for tests. Replies are chosen by the first
// registered description found in the prompt; unknown prompts get Default.
type MockClient struct {
	replies map[string]string
	errs    map[string]error
	Default string
	order   []string
	calls   []MockCall
	mu      sync.Mutex
}

// NewMockClient creates an empty mock client.
func NewMockClient() *MockClient {
	return &MockClient{
		replies: make(map[string]string),
		errs:    make(map[string]error),
	}
}

// Reply makes prompts mentioning description return reply.
func (m *MockClient) Reply(description, reply string) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.register(description)
	m.replies[description] = reply
	return m
}

// Fail makes prompts mentioning description return err.
func (m *MockClient) Fail(description string, err error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.register(description)
	m.errs[description] = err
	return m
}

func (m *MockClient) register(description string) {
	if _, ok := m.replies[description]; ok {
		return
	}
	if _, ok := m.errs[description]; ok {
		return
	}
	m.order = append(m.order, description)
}

// Generate returns the scripted reply for prompt.
func (m *MockClient) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, MockCall{Prompt: prompt})
	if err := ctx.Err(); err != nil {
		return "", err
	}

	for _, description := range m.order {
		if !strings.Contains(prompt, "Description: "+description+"\n") {
			continue
		}
		if err, ok := m.errs[description]; ok {
			return "", err
		}
		return m.replies[description], nil
	}
	return m.Default, nil
}

// Calls returns a copy of the recorded calls.
func (m *MockClient) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := make([]MockCall, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// CallCount returns the number of Generate calls.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
