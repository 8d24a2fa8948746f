// Copyright 2026 Twitter, Inc.
// Licensed under the Apache License, Version 2.0.

package correlate

import (
	"testing"
	"time"

	"github.com/twitter/zktraffic/internal/event"
	"github.com/twitter/zktraffic/internal/zkclient"
	"github.com/twitter/zktraffic/internal/zkserver"
)

const client = "127.0.0.1:51000"

func TestRequestReplyPairing(t *testing.T) {
	q := event.NewQueue("test", 0)
	c := New(q, 0)

	req1 := &zkclient.Exists{Header: zkclient.Header{Xid: 7, Timestamp: time.Unix(1, 0)}}
	req2 := &zkclient.Exists{Header: zkclient.Header{Xid: 15, Timestamp: time.Unix(2, 0)}}
	c.Request(client, req1)
	c.Request(client, req2)

	c.Reply(client, &zkserver.Reply{ReplyHeader: zkserver.ReplyHeader{Xid: 7, Timestamp: time.Unix(1, 500_000_000)}})
	c.Reply(client, &zkserver.Reply{ReplyHeader: zkserver.ReplyHeader{Xid: 15, Timestamp: time.Unix(2, 200_000_000)}})

	if q.Len() != 2 {
		t.Fatalf("queue length = %d, want 2", q.Len())
	}
	first, _ := q.Pop()
	pair, ok := first.(event.Pair)
	if !ok {
		t.Fatalf("first event = %T, want event.Pair", first)
	}
	if pair.Request.Head().Xid != 7 {
		t.Errorf("pair xid = %d, want 7", pair.Request.Head().Xid)
	}
	if pair.Latency() != 500*time.Millisecond {
		t.Errorf("pair latency = %v, want 500ms", pair.Latency())
	}
}

func TestReplyWithNoRequestIsDropped(t *testing.T) {
	q := event.NewQueue("test", 0)
	c := New(q, 0)
	c.Reply(client, &zkserver.Reply{ReplyHeader: zkserver.ReplyHeader{Xid: 99}})
	if q.Len() != 0 {
		t.Errorf("queue length = %d, want 0", q.Len())
	}
}

func TestCloseForwardedImmediately(t *testing.T) {
	q := event.NewQueue("test", 0)
	c := New(q, 0)
	closeReq := &zkclient.Close{Header: zkclient.Header{Xid: 1}}
	c.Request(client, closeReq)

	if q.Len() != 1 {
		t.Fatalf("queue length = %d, want 1", q.Len())
	}
	if _, ok := q.Pop(); !ok {
		t.Fatal("Pop: queue unexpectedly empty")
	}
}

func TestWatchEventForwardedUnpaired(t *testing.T) {
	q := event.NewQueue("test", 0)
	c := New(q, 0)
	c.Watch(&zkserver.WatchEvent{Xid: -1, Path: "/foo"})
	if q.Len() != 1 {
		t.Fatalf("queue length = %d, want 1", q.Len())
	}
}

func TestLoopbackRetransmitDedupedToSingleReply(t *testing.T) {
	q := event.NewQueue("test", 0)
	c := New(q, 0)
	req := &zkclient.Ping{Header: zkclient.Header{Xid: -2}}
	c.Request(client, req)
	c.Request(client, req) // loopback retransmit of the same xid

	c.Reply(client, &zkserver.Reply{ReplyHeader: zkserver.ReplyHeader{Xid: -2}})
	// A second, duplicate reply for the same xid finds nothing pending.
	c.Reply(client, &zkserver.Reply{ReplyHeader: zkserver.ReplyHeader{Xid: -2}})

	if q.Len() != 1 {
		t.Fatalf("queue length = %d, want 1 (duplicates collapsed)", q.Len())
	}
}

func TestSetAuthGetsSyntheticPathAndAuthField(t *testing.T) {
	q := event.NewQueue("test", 0)
	c := New(q, 0)

	req := &zkclient.SetAuth{Header: zkclient.Header{Xid: 4, Timestamp: time.Unix(1, 0)}, Scheme: "digest", Credential: "user:pass"}
	c.Request(client, req)
	c.Reply(client, &zkserver.Reply{ReplyHeader: zkserver.ReplyHeader{Xid: 4, Timestamp: time.Unix(1, 0)}})

	if req.Path != "/user:pass" {
		t.Errorf("Path = %q, want /user:pass", req.Path)
	}
	if req.Auth != "digest" {
		t.Errorf("Auth = %q, want digest", req.Auth)
	}

	pair, ok := mustPop(t, q).(event.Pair)
	if !ok {
		t.Fatalf("event = %T, want event.Pair", pair)
	}
	if pair.Request.Head().Auth != "digest" {
		t.Errorf("paired request Auth = %q, want digest", pair.Request.Head().Auth)
	}
}

func mustPop(t *testing.T, q *event.Queue) event.Event {
	t.Helper()
	e, ok := q.Pop()
	if !ok {
		t.Fatal("Pop: queue unexpectedly empty")
	}
	return e
}

func TestPendingCapEvictsOldestXid(t *testing.T) {
	q := event.NewQueue("test", 0)
	c := New(q, 1)

	c.Request(client, &zkclient.Exists{Header: zkclient.Header{Xid: 1}})
	c.Request(client, &zkclient.Exists{Header: zkclient.Header{Xid: 2}})

	// xid 1 was evicted to make room for xid 2.
	c.Reply(client, &zkserver.Reply{ReplyHeader: zkserver.ReplyHeader{Xid: 1}})
	if q.Len() != 0 {
		t.Fatalf("queue length = %d, want 0 (xid 1 evicted)", q.Len())
	}
	c.Reply(client, &zkserver.Reply{ReplyHeader: zkserver.ReplyHeader{Xid: 2}})
	if q.Len() != 1 {
		t.Fatalf("queue length = %d, want 1", q.Len())
	}
}
