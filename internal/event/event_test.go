// Copyright 2026 Twitter, Inc.
// Licensed under the Apache License, Version 2.0.

package event

import (
	"testing"
	"time"

	"github.com/twitter/zktraffic/internal/zkclient"
	"github.com/twitter/zktraffic/internal/zkserver"
)

func TestPairLatency(t *testing.T) {
	reqTime := time.Unix(100, 0)
	replyTime := time.Unix(100, 500_000_000)
	p := Pair{
		Request: &zkclient.Ping{Header: zkclient.Header{Timestamp: reqTime}},
		Reply:   &zkserver.Reply{ReplyHeader: zkserver.ReplyHeader{Timestamp: replyTime}},
	}
	if got, want := p.Latency(), 500*time.Millisecond; got != want {
		t.Errorf("Latency() = %v, want %v", got, want)
	}
}

func TestQueueFIFOOrder(t *testing.T) {
	q := NewQueue("test", 0)
	q.Push(Overflow{Queue: "a", Count: 1})
	q.Push(Overflow{Queue: "b", Count: 2})

	first, ok := q.Pop()
	if !ok {
		t.Fatal("Pop: queue unexpectedly empty")
	}
	if first.(Overflow).Queue != "a" {
		t.Errorf("first popped = %+v, want Queue a", first)
	}
}

func TestQueueOverflowDropsOldest(t *testing.T) {
	q := NewQueue("test", 2)
	q.Push(Overflow{Queue: "a"})
	q.Push(Overflow{Queue: "b"})
	q.Push(Overflow{Queue: "c"})

	if q.Overflows() != 1 {
		t.Errorf("Overflows() = %d, want 1", q.Overflows())
	}
	if q.Len() != 2 {
		t.Errorf("Len() = %d, want 2", q.Len())
	}
	first, _ := q.Pop()
	if first.(Overflow).Queue != "b" {
		t.Errorf("first popped = %+v, want Queue b (a was dropped)", first)
	}
}

func TestDrainToReportsOverflowOnce(t *testing.T) {
	q := NewQueue("test", 1)
	q.Push(Overflow{Queue: "a"})
	q.Push(Overflow{Queue: "b"})

	var got []Event
	q.DrainTo(HandlerFunc(func(e Event) { got = append(got, e) }))

	if len(got) != 2 {
		t.Fatalf("got %d events, want 2 (1 item + 1 overflow report)", len(got))
	}
	if _, ok := got[len(got)-1].(Overflow); !ok {
		t.Errorf("last event = %T, want Overflow", got[len(got)-1])
	}

	var got2 []Event
	q.DrainTo(HandlerFunc(func(e Event) { got2 = append(got2, e) }))
	if len(got2) != 0 {
		t.Errorf("second DrainTo got %d events, want 0", len(got2))
	}
}
