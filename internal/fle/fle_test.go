// Copyright 2026 Twitter, Inc.
// Licensed under the Apache License, Version 2.0.

package fle

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/twitter/zktraffic/internal/addr"
	"github.com/twitter/zktraffic/internal/wire"
)

func TestDecodeInitialHandshake(t *testing.T) {
	electionAddr := "127.0.0.1:3888"
	payload := wire.NewWriter().
		Int64(initialSentinel).
		Int64(6).
		String(electionAddr).
		Bytes()

	client := addr.Endpoint("127.0.0.1:32000")
	server := addr.Endpoint("127.0.0.1:3888")
	ts := time.Unix(0, 0)

	got, err := Decode(payload, client, server, ts)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	want := Initial{
		ServerID:     6,
		ElectionAddr: electionAddr,
		Client:       client,
		Server:       server,
		Timestamp:    ts,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Decode mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeInitialWrongLengthFails(t *testing.T) {
	payload := wire.NewWriter().
		Int64(initialSentinel).
		Int64(6).
		Int32(int32(len("127.0.0.1:3888"))).
		Raw([]byte("127.0.0.1:3888")).
		Raw([]byte("extra")).
		Bytes()

	if _, err := Decode(payload, "c", "s", time.Unix(0, 0)); err != ErrBadInitial {
		t.Fatalf("Decode error = %v, want ErrBadInitial", err)
	}
}

func TestDecodeShortNotification(t *testing.T) {
	payload := wire.NewWriter().
		Int32(int32(Following)).
		Int64(3).
		Int64(0x2000).
		Int64(10).
		Bytes()

	client := addr.Endpoint("127.0.0.1:2888")
	server := addr.Endpoint("127.0.0.1:2889")
	ts := time.Unix(0, 0)

	got, err := Decode(payload, client, server, ts)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	want := Notification{
		State:         Following,
		Leader:        3,
		Zxid:          0x2000,
		ElectionEpoch: 10,
		PeerEpoch:     -1,
		Version:       0,
		Client:        client,
		Server:        server,
		Timestamp:     ts,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Decode mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeNotificationWithPeerEpoch(t *testing.T) {
	payload := wire.NewWriter().
		Int32(int32(Leading)).
		Int64(5).
		Int64(0x3000).
		Int64(11).
		Int64(4).
		Bytes()

	got, err := Decode(payload, "c", "s", time.Unix(0, 0))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	n, ok := got.(Notification)
	if !ok {
		t.Fatalf("Decode returned %T, want Notification", got)
	}
	if n.PeerEpoch != 4 {
		t.Errorf("PeerEpoch = %d, want 4", n.PeerEpoch)
	}
	if n.Version != 0 {
		t.Errorf("Version = %d, want 0", n.Version)
	}
}

func TestDecodeNotificationWithConfig(t *testing.T) {
	config := "server.1=host1:2888:3888:participant;0.0.0.0:2181"
	payload := wire.NewWriter().
		Int32(int32(Looking)).
		Int64(2).
		Int64(0x4000).
		Int64(12).
		Int64(9).
		Int32(2).
		String(config).
		Bytes()

	got, err := Decode(payload, "c", "s", time.Unix(0, 0))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	n, ok := got.(Notification)
	if !ok {
		t.Fatalf("Decode returned %T, want Notification", got)
	}
	if n.Config != config {
		t.Errorf("Config = %q, want %q", n.Config, config)
	}
	if n.Version != 2 {
		t.Errorf("Version = %d, want 2", n.Version)
	}
}

func TestDecodeNotificationOldVersionSkipsConfig(t *testing.T) {
	payload := wire.NewWriter().
		Int32(int32(Looking)).
		Int64(2).
		Int64(0x4000).
		Int64(12).
		Int64(9).
		Int32(1).
		String("unused-when-version-below-2").
		Bytes()

	got, err := Decode(payload, "c", "s", time.Unix(0, 0))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	n := got.(Notification)
	if n.Config != "" {
		t.Errorf("Config = %q, want empty for version < 2", n.Config)
	}
}

func TestDecodeInvalidStateFails(t *testing.T) {
	payload := wire.NewWriter().
		Int32(99).
		Int64(3).
		Int64(0x2000).
		Int64(10).
		Bytes()

	if _, err := Decode(payload, "c", "s", time.Unix(0, 0)); err != ErrBadState {
		t.Fatalf("Decode error = %v, want ErrBadState", err)
	}
}

func TestDecodeTooShortFails(t *testing.T) {
	if _, err := Decode([]byte{1, 2, 3}, "c", "s", time.Unix(0, 0)); err != ErrShortPacket {
		t.Fatalf("Decode error = %v, want ErrShortPacket", err)
	}
}
