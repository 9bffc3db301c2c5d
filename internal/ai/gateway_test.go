package ai

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

type fakeBackend struct {
	id    string
	text  string
	err   error
	calls int
}

func (f *fakeBackend) ID() string { return f.id }

func (f *fakeBackend) Generate(_ context.Context, _ string, _ float32, _ int32) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func testConfig() *GatewayConfig {
	return &GatewayConfig{
		CallTimeout:      time.Second,
		BaseRetryDelay:   time.Nanosecond,
		RateLimitRetries: 2,
	}
}

func TestGatewayFallsBackPastRateLimitedBackend(t *testing.T) {
	throttled := &fakeBackend{id: "model-a", err: &StatusError{Code: http.StatusTooManyRequests}}
	healthy := &fakeBackend{id: "model-b", text: "ok"}

	gw := NewGateway(testConfig(), nil, throttled, healthy)

	text, err := gw.Call(context.Background(), "prompt", 0.1, 1024)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if text != "ok" {
		t.Fatalf("unexpected response: %q", text)
	}

	// Initial attempt plus the bounded backoff retries, nothing more.
	if throttled.calls != 3 {
		t.Fatalf("expected 3 attempts on throttled backend, got %d", throttled.calls)
	}
	if healthy.calls != 1 {
		t.Fatalf("expected 1 attempt on healthy backend, got %d", healthy.calls)
	}
}

func TestGatewayMovesOnAfterServerError(t *testing.T) {
	broken := &fakeBackend{id: "model-a", err: &StatusError{Code: http.StatusInternalServerError}}
	healthy := &fakeBackend{id: "model-b", text: "second"}

	gw := NewGateway(testConfig(), nil, broken, healthy)

	text, err := gw.Call(context.Background(), "prompt", 0.1, 1024)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if text != "second" {
		t.Fatalf("unexpected response: %q", text)
	}
	if broken.calls != 1 {
		t.Fatalf("server errors should not be retried in place, got %d calls", broken.calls)
	}
}

func TestGatewayStopsOnBadRequest(t *testing.T) {
	bad := &fakeBackend{id: "model-a", err: &StatusError{Code: http.StatusBadRequest, Body: "invalid prompt"}}
	never := &fakeBackend{id: "model-b", text: "unused"}

	gw := NewGateway(testConfig(), nil, bad, never)

	_, err := gw.Call(context.Background(), "prompt", 0.1, 1024)
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrBackendsExhausted) {
		t.Fatal("bad request must not be reported as exhaustion")
	}
	if never.calls != 0 {
		t.Fatalf("expected no calls to the second backend, got %d", never.calls)
	}
}

func TestGatewaySurfacesLastErrorWhenExhausted(t *testing.T) {
	first := &fakeBackend{id: "model-a", err: &StatusError{Code: http.StatusServiceUnavailable}}
	second := &fakeBackend{id: "model-b", err: &StatusError{Code: http.StatusNotFound, Body: "model missing"}}

	gw := NewGateway(testConfig(), nil, first, second)

	_, err := gw.Call(context.Background(), "prompt", 0.1, 1024)
	if !errors.Is(err, ErrBackendsExhausted) {
		t.Fatalf("expected exhaustion error, got %v", err)
	}

	var status *StatusError
	if !errors.As(err, &status) || status.Code != http.StatusNotFound {
		t.Fatalf("expected last-seen error to be surfaced, got %v", err)
	}
}

func TestGatewayNoBackendsConfigured(t *testing.T) {
	gw := NewGateway(testConfig(), nil)

	_, err := gw.Call(context.Background(), "prompt", 0.1, 1024)
	if !errors.Is(err, ErrBackendsExhausted) {
		t.Fatalf("expected exhaustion error, got %v", err)
	}
}
