package pipeline

import (
	"context"
	"sync"
	"time"
)

// fakeGateway routes every call through a handler and records the prompts.
type fakeGateway struct {
	mu      sync.Mutex
	prompts []string
	handler func(prompt string) (string, error)
}

func (f *fakeGateway) Call(_ context.Context, prompt string, _ float32, _ int32) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	return f.handler(prompt)
}

func (f *fakeGateway) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

// noDelay is a pacer that returns immediately, so verification tests run
// without the production pacing.
func noDelay(context.Context, time.Duration) error { return nil }

func intPtr(v int) *int { return &v }

func testVerifier(gateway gatewayCaller) *Verifier {
	return NewVerifier(gateway, nil, &VerifierConfig{Pacer: noDelay})
}
