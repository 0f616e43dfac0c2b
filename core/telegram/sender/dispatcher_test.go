package sender

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestDispatcherRetriesTransientErrors(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 2, RetryBackoff: time.Millisecond})
	var calls atomic.Int32
	err := d.Enqueue(context.Background(), "notify", "sendMessage", func() error {
		if calls.Add(1) < 3 {
			return timeoutErr{}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	d.Close()
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
	if d.SentCount() != 1 || d.ErrorCount() != 0 {
		t.Fatalf("sent=%d errors=%d", d.SentCount(), d.ErrorCount())
	}
}

func TestDispatcherDoesNotRetryPermanentErrors(t *testing.T) {
	d := NewDispatcher(Options{Workers: 2, MaxRetries: 3, RetryBackoff: time.Millisecond})
	var calls atomic.Int32
	_ = d.Enqueue(context.Background(), "notify", "sendMessage", func() error {
		calls.Add(1)
		return errors.New("telegram: bot was blocked by the user (403)")
	})
	d.Close()
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
	if d.ErrorCount() != 1 {
		t.Fatalf("errors = %d, want 1", d.ErrorCount())
	}
}

func TestDispatcherClosedAndFull(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, QueueSize: 1})
	release := make(chan struct{})
	started := make(chan struct{})
	block := func() error {
		close(started)
		<-release
		return nil
	}
	if err := d.Enqueue(context.Background(), "a", "", block); err != nil {
		t.Fatalf("first Enqueue: %v", err)
	}
	<-started
	noop := func() error { return nil }
	if err := d.Enqueue(context.Background(), "b", "", noop); err != nil {
		t.Fatalf("second Enqueue: %v", err)
	}
	if err := d.Enqueue(context.Background(), "c", "", noop); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("third Enqueue err = %v, want ErrQueueFull", err)
	}
	close(release)
	d.Close()
	if err := d.Enqueue(context.Background(), "d", "", noop); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("after Close err = %v, want ErrQueueClosed", err)
	}
	if d.SentCount() != 2 {
		t.Fatalf("sent = %d, want 2", d.SentCount())
	}
}

func TestSanitizeErrorMessage(t *testing.T) {
	err := errors.New(`Post "https://api.telegram.org/bot123456:AAbb-cc_DD/sendMessage": timeout`)
	got := sanitizeErrorMessage(err)
	if got != `Post "https://api.telegram.org/bot<redacted>/sendMessage": timeout` {
		t.Fatalf("sanitized = %s", got)
	}
}
