// Copyright 2026 Twitter, Inc.
// Licensed under the Apache License, Version 2.0.

package zkcancel

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"
)

func TestOnSignalsCancelsOnSignal(t *testing.T) {
	ctx, stop := OnSignals(context.Background(), syscall.SIGUSR1)
	defer stop()

	p, err := os.FindProcess(os.Getpid())
	if err != nil {
		t.Fatalf("FindProcess: %v", err)
	}
	if err := p.Signal(syscall.SIGUSR1); err != nil {
		t.Fatalf("Signal: %v", err)
	}

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context was not cancelled after the signal")
	}
}

func TestOnSignalsStopReleasesWithoutCancelling(t *testing.T) {
	ctx, stop := OnSignals(context.Background(), syscall.SIGUSR2)
	stop()

	select {
	case <-ctx.Done():
		t.Fatal("context cancelled by stop(), want only a released subscription")
	case <-time.After(50 * time.Millisecond):
	}
}
