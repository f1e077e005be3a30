package sms

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

type MockCall struct {
	To   string
	Body string
}

// MockClient records sends. Failures are scripted per call through FailTimes or
// per recipient through FailFor.
type MockClient struct {
	mu    sync.Mutex
	Calls []MockCall

	FailTimes int
	FailFor   map[string]bool
}

func NewMockClient() *MockClient {
	return &MockClient{FailFor: map[string]bool{}}
}

func (m *MockClient) Send(ctx context.Context, to, body string) (*SendResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, MockCall{To: to, Body: body})
	if m.FailTimes > 0 {
		m.FailTimes--
		return nil, errors.New("mock sms send failure")
	}
	if m.FailFor[to] {
		return nil, fmt.Errorf("mock sms rejected %s", to)
	}
	return &SendResult{MessageID: fmt.Sprintf("mock-%d", len(m.Calls)), Provider: "mock"}, nil
}

// Sent returns a snapshot of recorded calls.
func (m *MockClient) Sent() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.Calls))
	copy(out, m.Calls)
	return out
}
