package rcmp

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFuture_SettleOnce(t *testing.T) {
	f := NewFuture()
	if f.Settled() {
		t.Fatal("new future should be pending")
	}
	if f.Err() != nil {
		t.Error("pending future should report nil error")
	}

	first := errors.New("first")
	if !f.Settle(first) {
		t.Error("first Settle should report true")
	}
	if f.Settle(errors.New("second")) {
		t.Error("second Settle should report false")
	}
	if f.Err() != first {
		t.Errorf("Err() = %v, want %v", f.Err(), first)
	}
}

func TestFuture_Wait(t *testing.T) {
	f := NewFuture()
	go func() {
		time.Sleep(10 * time.Millisecond)
		f.Settle(nil)
	}()

	if err := f.Wait(context.Background()); err != nil {
		t.Errorf("Wait() error = %v", err)
	}
}

func TestFuture_WaitContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := NewFuture()
	if err := f.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() error = %v, want context.Canceled", err)
	}
	if f.Settled() {
		t.Error("abandoning a wait must not settle the future")
	}
}

func TestResolvedRejected(t *testing.T) {
	if err := Resolved().Wait(context.Background()); err != nil {
		t.Errorf("Resolved().Wait() = %v", err)
	}

	boom := errors.New("boom")
	if err := Rejected(boom).Wait(context.Background()); err != boom {
		t.Errorf("Rejected().Wait() = %v, want %v", err, boom)
	}
}
