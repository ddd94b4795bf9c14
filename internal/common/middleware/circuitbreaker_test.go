package middleware

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCircuitBreakerOpensAfterMaxFailures(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, time.Minute)
	ctx := context.Background()
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		if err := cb.Call(ctx, func() error { return boom }); !errors.Is(err, boom) {
			t.Fatalf("call %d: expected boom, got %v", i, err)
		}
	}
	if cb.GetState() != StateOpen {
		t.Fatalf("expected open state after max failures")
	}

	// 熔断期间快速失败，不执行 fn
	called := false
	err := cb.Call(ctx, func() error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if called {
		t.Fatalf("fn must not run while circuit is open")
	}
}

func TestCircuitBreakerRecoversViaHalfOpen(t *testing.T) {
	cb := NewCircuitBreaker("test", 1, 10*time.Millisecond)
	ctx := context.Background()

	if err := cb.Call(ctx, func() error { return errors.New("boom") }); err == nil {
		t.Fatalf("expected failure")
	}
	if cb.GetState() != StateOpen {
		t.Fatalf("expected open state")
	}

	time.Sleep(20 * time.Millisecond)

	if err := cb.Call(ctx, func() error { return nil }); err != nil {
		t.Fatalf("expected half-open probe to pass: %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Fatalf("expected closed state after successful probe")
	}
}

func TestCircuitBreakerSuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker("test", 2, time.Minute)
	ctx := context.Background()

	_ = cb.Call(ctx, func() error { return errors.New("boom") })
	_ = cb.Call(ctx, func() error { return nil })
	_ = cb.Call(ctx, func() error { return errors.New("boom") })

	if cb.GetState() != StateClosed {
		t.Fatalf("interleaved success must keep the circuit closed")
	}
}
