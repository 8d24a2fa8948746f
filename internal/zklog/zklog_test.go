// Copyright 2026 Twitter, Inc.
// Licensed under the Apache License, Version 2.0.

package zklog

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Warning, &buf)
	l.Infof("should not appear")
	if buf.Len() != 0 {
		t.Fatalf("buf = %q, want empty: Info below Warning threshold should be dropped", buf.String())
	}
	l.Warningf("should appear: %d", 42)
	if !strings.Contains(buf.String(), "should appear: 42") {
		t.Errorf("buf = %q, want it to contain the Warning message", buf.String())
	}
	if !strings.Contains(buf.String(), "[WARN]") {
		t.Errorf("buf = %q, want a [WARN] level tag", buf.String())
	}
}

func TestFromContextReturnsAttachedLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Trace, &buf)
	ctx := NewContext(context.Background(), l)

	Infof(ctx, "hello %s", "world")
	if !strings.Contains(buf.String(), "hello world") {
		t.Errorf("buf = %q, want it to contain the logged message", buf.String())
	}
}

func TestFromContextDefaultsWithoutAttachedLogger(t *testing.T) {
	l := FromContext(context.Background())
	if l == nil {
		t.Fatal("FromContext returned nil without an attached logger")
	}
}
