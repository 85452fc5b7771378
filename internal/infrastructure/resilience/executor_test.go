package resilience

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

type fakeNetError struct{}

func (fakeNetError) Error() string   { return "connection refused" }
func (fakeNetError) Timeout() bool   { return false }
func (fakeNetError) Temporary() bool { return true }

var _ net.Error = fakeNetError{}

func TestExecuteRetriesTransientExactlyOnce(t *testing.T) {
	e := NewExecutor(Config{RetryBackoff: time.Millisecond})

	calls := 0
	err := e.Execute(context.Background(), "embed", func(context.Context) error {
		calls++
		return fakeNetError{}
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if calls != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", calls)
	}
}

func TestExecuteDoesNotRetryPermanentErrors(t *testing.T) {
	e := NewExecutor(Config{RetryBackoff: time.Millisecond})

	calls := 0
	err := e.Execute(context.Background(), "generate", func(context.Context) error {
		calls++
		return errors.New("bad request")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected 1 attempt, got %d", calls)
	}
}

func TestExecuteSucceedsOnRetry(t *testing.T) {
	e := NewExecutor(Config{RetryBackoff: time.Millisecond})

	calls := 0
	err := e.Execute(context.Background(), "embed", func(context.Context) error {
		calls++
		if calls == 1 {
			return &HTTPStatusError{Operation: "embed", StatusCode: 503, Status: "503 Service Unavailable"}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
}

func TestExecuteHonorsCancellation(t *testing.T) {
	e := NewExecutor(Config{RetryBackoff: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- e.Execute(ctx, "embed", func(context.Context) error {
			calls++
			return fakeNetError{}
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("expected error")
		}
	case <-time.After(time.Second):
		t.Fatalf("Execute did not return after cancellation")
	}
	if calls != 1 {
		t.Fatalf("expected cancellation to skip the retry, got %d attempts", calls)
	}
}

func TestIsTransientClassification(t *testing.T) {
	if IsTransient(context.Canceled) {
		t.Fatalf("cancellation must not be transient")
	}
	if !IsTransient(fakeNetError{}) {
		t.Fatalf("net.Error must be transient")
	}
	if IsTransient(&HTTPStatusError{StatusCode: 400, Status: "400"}) {
		t.Fatalf("4xx must not be transient")
	}
	if !IsTransient(&HTTPStatusError{StatusCode: 502, Status: "502"}) {
		t.Fatalf("502 must be transient")
	}
}
