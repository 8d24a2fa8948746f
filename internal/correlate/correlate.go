// Copyright 2026 Twitter, Inc.
// Licensed under the Apache License, Version 2.0.

// Package correlate pairs ZK client requests with their server replies
// by (client endpoint, xid), forwarding unanswerable or asynchronous
// messages straight through to the handler.
package correlate

import (
	"container/list"

	"github.com/twitter/zktraffic/internal/addr"
	"github.com/twitter/zktraffic/internal/event"
	"github.com/twitter/zktraffic/internal/zkclient"
	"github.com/twitter/zktraffic/internal/zkserver"
)

// DefaultPendingCap bounds the number of outstanding requests kept per
// client before the oldest is evicted.
const DefaultPendingCap = 10000

type perClient struct {
	pending map[int32]*list.List // xid -> FIFO of *zkclient.Request, for loopback retransmits
	order   *list.List           // of int32 xid, oldest first, for cap eviction
}

// Correlator holds one perClient queue set per client endpoint.
type Correlator struct {
	cap     int
	clients map[addr.Endpoint]*perClient
	queue   *event.Queue
}

// New returns a Correlator that pushes paired and passthrough events to
// queue. A cap <= 0 uses DefaultPendingCap.
func New(queue *event.Queue, cap int) *Correlator {
	if cap <= 0 {
		cap = DefaultPendingCap
	}
	return &Correlator{cap: cap, clients: make(map[addr.Endpoint]*perClient), queue: queue}
}

func (c *Correlator) clientState(client addr.Endpoint) *perClient {
	pc, ok := c.clients[client]
	if !ok {
		pc = &perClient{pending: make(map[int32]*list.List), order: list.New()}
		c.clients[client] = pc
	}
	return pc
}

// Request records req as in-flight. Close requests have no reply and
// are forwarded immediately rather than queued.
func (c *Correlator) Request(client addr.Endpoint, req zkclient.Request) {
	if closeReq, ok := req.(*zkclient.Close); ok {
		c.queue.Push(event.Close(closeReq))
		return
	}
	if setAuth, ok := req.(*zkclient.SetAuth); ok {
		// Piggy-back the credential as a synthetic path and the scheme as
		// Auth so per-path and per-auth stats can aggregate SetAuth the
		// same way they aggregate every other request.
		setAuth.Path = "/" + setAuth.Credential
		setAuth.Auth = setAuth.Scheme
	}

	pc := c.clientState(client)
	xid := req.Head().Xid
	retransmits, ok := pc.pending[xid]
	if !ok {
		retransmits = list.New()
		pc.pending[xid] = retransmits
		pc.order.PushBack(xid)
		if pc.order.Len() > c.cap {
			evicted := pc.order.Remove(pc.order.Front()).(int32)
			delete(pc.pending, evicted)
		}
	}
	retransmits.PushBack(req)
}

// Reply matches reply against the oldest pending request for its xid
// and forwards the pair. A reply with no matching request is dropped: a
// late capture start is the typical cause.
func (c *Correlator) Reply(client addr.Endpoint, reply *zkserver.Reply) {
	pc, ok := c.clients[client]
	if !ok {
		return
	}
	retransmits, ok := pc.pending[reply.Xid]
	if !ok || retransmits.Len() == 0 {
		return
	}

	front := retransmits.Remove(retransmits.Front()).(zkclient.Request)
	// Loopback captures can deliver the same request more than once;
	// once one copy is paired, drop the rest so they don't starve later
	// xids of a match.
	for retransmits.Len() > 0 {
		retransmits.Remove(retransmits.Front())
	}
	delete(pc.pending, reply.Xid)

	c.queue.Push(event.Pair{Request: front, Reply: reply})
}

// Watch forwards an asynchronous WatchEvent; it is never paired with a
// request.
func (c *Correlator) Watch(w *zkserver.WatchEvent) {
	c.queue.Push(event.Watch(w))
}
