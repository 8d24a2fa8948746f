// Copyright 2026 Twitter, Inc.
// Licensed under the Apache License, Version 2.0.

// Package zkcancel implements a single "wants_stop" condition, signalled
// by the OS signals the caller lists (the CLI tools pass SIGINT), that
// the capture loop checks between frames rather than being interrupted
// mid-packet.
package zkcancel

import (
	"context"
	"os"
	"os/signal"
)

// OnSignals returns a context that is cancelled the first time one of
// sigs is received, and a stop func to release the underlying signal
// subscription early (e.g. in tests).
func OnSignals(ctx context.Context, sigs ...os.Signal) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)
	done := make(chan struct{})
	go func() {
		select {
		case <-ch:
			cancel()
		case <-done:
		}
	}()
	stop := func() {
		signal.Stop(ch)
		close(done)
	}
	return ctx, stop
}
