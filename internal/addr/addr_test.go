// Copyright 2026 Twitter, Inc.
// Licensed under the Apache License, Version 2.0.

package addr

import (
	"net"
	"testing"
)

func TestNewLowercasesIPv6(t *testing.T) {
	e := New(net.ParseIP("::1"), 2181)
	if e != "::1:2181" {
		t.Errorf("New = %q, want \"::1:2181\"", e)
	}
}

func TestParseRoundTrip(t *testing.T) {
	e, err := Parse("10.0.0.1:2181")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if e.Host() != "10.0.0.1" || e.Port() != 2181 {
		t.Errorf("Host/Port = %q/%d, want 10.0.0.1/2181", e.Host(), e.Port())
	}
}

func TestParseRejectsNonIP(t *testing.T) {
	if _, err := Parse("not-an-ip:2181"); err == nil {
		t.Fatal("Parse succeeded on a non-IP host, want error")
	}
}

func TestParseRejectsMissingPort(t *testing.T) {
	if _, err := Parse("10.0.0.1"); err == nil {
		t.Fatal("Parse succeeded without a port, want error")
	}
}

func TestPortInvalidReturnsNegativeOne(t *testing.T) {
	e := Endpoint("garbage")
	if e.Port() != -1 {
		t.Errorf("Port = %d, want -1 for an unparsable endpoint", e.Port())
	}
}

func TestWithPort(t *testing.T) {
	e := Endpoint("10.0.0.1:2181")
	if got := e.WithPort(3888); got != "10.0.0.1:3888" {
		t.Errorf("WithPort = %q, want 10.0.0.1:3888", got)
	}
}

func TestZeroValueComparesUnequal(t *testing.T) {
	var zero Endpoint
	other, _ := Parse("127.0.0.1:1")
	if zero == other {
		t.Error("zero Endpoint compares equal to a real endpoint")
	}
}
