// Copyright 2026 Twitter, Inc.
// Licensed under the Apache License, Version 2.0.

// Package event defines the typed event stream produced by the
// decoders and correlator, and the bounded single-producer/
// single-consumer queue each downstream consumer owns.
package event

import (
	"time"

	"github.com/twitter/zktraffic/internal/fle"
	"github.com/twitter/zktraffic/internal/zab"
	"github.com/twitter/zktraffic/internal/zkclient"
	"github.com/twitter/zktraffic/internal/zkserver"
)

// DefaultQueueCap is the default bound on a consumer queue, applied to
// each Queue independently.
const DefaultQueueCap = 10000

// Pair is a correlated client request and its server reply.
type Pair struct {
	Request zkclient.Request
	Reply   *zkserver.Reply
}

// Latency is the wall-clock delay between the request and the reply
// that answers it.
func (p Pair) Latency() time.Duration {
	return p.Reply.Timestamp.Sub(p.Request.Head().Timestamp)
}

// Overflow is reported when a bounded queue drops its oldest item to
// admit a new one.
type Overflow struct {
	Queue string
	Count uint64
}

// Event is implemented by every value a Handler may receive: Pair,
// CloseEvent (a Close is unanswered by design), WatchEvent, FLEEvent,
// ZABEvent, and Overflow.
type Event interface {
	isEvent()
}

func (Pair) isEvent()                 {}
func (Overflow) isEvent()             {}

// CloseEvent wraps a terminal Close request, which never receives a
// reply and so is forwarded without pairing.
type CloseEvent struct{ *zkclient.Close }

// WatchEvent wraps an asynchronous watch notification, which is never
// a reply to a specific request.
type WatchEvent struct{ *zkserver.WatchEvent }

// FLEEvent wraps a decoded fast-leader-election message.
type FLEEvent struct{ fle.Message }

// ZABEvent wraps a decoded ZAB quorum packet.
type ZABEvent struct{ zab.Packet }

func (CloseEvent) isEvent() {}
func (WatchEvent) isEvent() {}
func (FLEEvent) isEvent()   {}
func (ZABEvent) isEvent()   {}

// Close wraps a terminal Close request as an Event.
func Close(c *zkclient.Close) Event { return CloseEvent{c} }

// Watch wraps an asynchronous WatchEvent as an Event.
func Watch(w *zkserver.WatchEvent) Event { return WatchEvent{w} }

// FLE wraps a decoded FLE message as an Event.
func FLE(m fle.Message) Event { return FLEEvent{m} }

// ZAB wraps a decoded ZAB packet as an Event.
func ZAB(p zab.Packet) Event { return ZABEvent{p} }

// Handler consumes the typed event stream. Implementations must not
// block for long, since the capture thread enqueues synchronously.
type Handler interface {
	Handle(Event)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(Event)

func (f HandlerFunc) Handle(e Event) { f(e) }

// Queue is a bounded FIFO of Events. On overflow the oldest event is
// dropped and an overflow counter is incremented; DrainTo reports it
// once as an Overflow event the next time it is called.
type Queue struct {
	cap      int
	name     string
	items    []Event
	head     int
	overflow uint64
}

// NewQueue returns a Queue named name (used in Overflow.Queue) with the
// given capacity. A cap <= 0 uses DefaultQueueCap.
func NewQueue(name string, cap int) *Queue {
	if cap <= 0 {
		cap = DefaultQueueCap
	}
	return &Queue{name: name, cap: cap}
}

// Push appends e, dropping the oldest queued event if the queue is at
// capacity.
func (q *Queue) Push(e Event) {
	if len(q.items)-q.head >= q.cap {
		q.head++
		q.overflow++
	}
	q.items = append(q.items, e)
	if q.head > 1024 && q.head*2 > len(q.items) {
		q.items = append([]Event(nil), q.items[q.head:]...)
		q.head = 0
	}
}

// Pop removes and returns the oldest queued event, or (nil, false) if
// the queue is empty.
func (q *Queue) Pop() (Event, bool) {
	if q.head >= len(q.items) {
		return nil, false
	}
	e := q.items[q.head]
	q.items[q.head] = nil
	q.head++
	return e, true
}

// Len returns the number of events currently queued.
func (q *Queue) Len() int { return len(q.items) - q.head }

// Overflows returns the number of events dropped so far.
func (q *Queue) Overflows() uint64 { return q.overflow }

// DrainTo pops every queued event (and a trailing Overflow event, if
// any were dropped since the last DrainTo) into h.
func (q *Queue) DrainTo(h Handler) {
	for {
		e, ok := q.Pop()
		if !ok {
			break
		}
		h.Handle(e)
	}
	if q.overflow > 0 {
		h.Handle(Overflow{Queue: q.name, Count: q.overflow})
		q.overflow = 0
	}
}
