// Copyright 2026 Twitter, Inc.
// Licensed under the Apache License, Version 2.0.

// Package omni implements the multi-protocol dispatcher: it infers
// ensemble topology from observed election traffic and routes
// subsequent packets from each (ip, port) endpoint to the decoder that
// speaks that endpoint's protocol.
package omni

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/twitter/zktraffic/internal/addr"
	"github.com/twitter/zktraffic/internal/correlate"
	"github.com/twitter/zktraffic/internal/event"
	"github.com/twitter/zktraffic/internal/fle"
	"github.com/twitter/zktraffic/internal/frame"
	"github.com/twitter/zktraffic/internal/quorum"
	"github.com/twitter/zktraffic/internal/zab"
	"github.com/twitter/zktraffic/internal/zkclient"
	"github.com/twitter/zktraffic/internal/zkserver"
	"github.com/twitter/zktraffic/internal/zksession"
)

// Kind identifies which decoder an endpoint speaks.
type Kind int

const (
	KindFLE Kind = iota
	KindZAB
	KindZK
)

func (k Kind) String() string {
	switch k {
	case KindFLE:
		return "fle"
	case KindZAB:
		return "zab"
	case KindZK:
		return "zk"
	default:
		return "unknown"
	}
}

// ConflictError is Fatal: the dispatcher saw a registration attempt for
// an endpoint that already has a different Kind.
type ConflictError struct {
	Endpoint addr.Endpoint
	Existing Kind
	Attempt  Kind
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("omni: endpoint %s already registered as %s, cannot register as %s", e.Endpoint, e.Existing, e.Attempt)
}

type flowKey struct {
	src addr.Endpoint
	dst addr.Endpoint
}

// Dispatcher owns the endpoint->kind map and the per-flow TCP dedup
// state; it is touched only from the single capture thread.
type Dispatcher struct {
	sniffers map[addr.Endpoint]Kind
	sessions map[addr.Endpoint]*zksession.Session
	lastSeq  map[flowKey]uint32
	queue    *event.Queue
	pairs    *correlate.Correlator
}

// New returns an empty Dispatcher pushing decoded events to queue.
func New(queue *event.Queue) *Dispatcher {
	return &Dispatcher{
		sniffers: make(map[addr.Endpoint]Kind),
		sessions: make(map[addr.Endpoint]*zksession.Session),
		lastSeq:  make(map[flowKey]uint32),
		queue:    queue,
		pairs:    correlate.New(queue, 0),
	}
}

// Register assigns kind to ep. It returns *ConflictError if ep already
// has a different kind; registering the same kind twice is a no-op.
func (d *Dispatcher) Register(ep addr.Endpoint, kind Kind) error {
	if existing, ok := d.sniffers[ep]; ok {
		if existing != kind {
			return &ConflictError{Endpoint: ep, Existing: existing, Attempt: kind}
		}
		return nil
	}
	d.sniffers[ep] = kind
	return nil
}

// KindOf reports the registered kind of ep, if any.
func (d *Dispatcher) KindOf(ep addr.Endpoint) (Kind, bool) {
	k, ok := d.sniffers[ep]
	return k, ok
}

// Feed processes one TCP frame: it deduplicates by sequence number,
// clears dedup state on RST, and dispatches the payload to the decoder
// registered for either endpoint, discovering new endpoints along the
// way via the FLE.Initial probe and notification-embedded configs.
func (d *Dispatcher) Feed(f frame.Frame, ts time.Time) error {
	key := flowKey{src: f.Src, dst: f.Dst}

	if f.RST {
		delete(d.lastSeq, key)
		return nil
	}

	if last, ok := d.lastSeq[key]; ok && f.Seq <= last {
		return nil // duplicate delivery, typical of loopback captures
	}
	d.lastSeq[key] = f.Seq

	if len(f.Payload) == 0 {
		return nil
	}

	if kind, ok := d.KindOf(f.Src); ok {
		return d.dispatch(kind, f, ts)
	}
	if kind, ok := d.KindOf(f.Dst); ok {
		return d.dispatch(kind, f, ts)
	}

	return d.probe(f, ts)
}

func (d *Dispatcher) dispatch(kind Kind, f frame.Frame, ts time.Time) error {
	switch kind {
	case KindFLE:
		msg, err := fle.Decode(f.Payload, f.Src, f.Dst, ts)
		if err != nil {
			return nil // BadPacket: not of interest, silently dropped
		}
		d.queue.Push(event.FLE(msg))
		if n, ok := msg.(fle.Notification); ok && n.Config != "" {
			return d.registerFromConfig(n.Config)
		}
		return nil
	case KindZAB:
		pkt, err := zab.Decode(f.Payload, f.Src, f.Dst, ts)
		if err != nil {
			return nil
		}
		d.queue.Push(event.ZAB(pkt))
		return nil
	case KindZK:
		return d.dispatchZK(f, ts)
	default:
		return nil
	}
}

func (d *Dispatcher) dispatchZK(f frame.Frame, ts time.Time) error {
	// The client endpoint is whichever side is not the registered ZK
	// server port.
	client := f.Src
	if _, ok := d.KindOf(f.Src); ok {
		client = f.Dst
	}
	sess, ok := d.sessions[client]
	if !ok {
		sess = zksession.NewSession(0)
		d.sessions[client] = sess
	}

	// The registered server endpoint tells us which direction this frame
	// travels: into it is a request, out of it is a reply.
	if _, ok := d.KindOf(f.Dst); ok {
		req, err := zkclient.Decode(f.Payload, client, ts)
		if err != nil {
			return nil
		}
		sess.Remember(req.Head().Xid, req.Head().Opcode)
		d.pairs.Request(client, req)
		return nil
	}

	reply, err := zkserver.Decode(f.Payload, client, ts, sess)
	if err != nil {
		return nil
	}
	switch r := reply.(type) {
	case *zkserver.WatchEvent:
		d.pairs.Watch(r)
	case *zkserver.Reply:
		d.pairs.Reply(client, r)
	}
	return nil
}

// probe attempts an FLE.Initial decode of an unrecognized flow; a
// successful decode registers the destination as kind=fle.
func (d *Dispatcher) probe(f frame.Frame, ts time.Time) error {
	msg, err := fle.Decode(f.Payload, f.Src, f.Dst, ts)
	if err != nil {
		return nil
	}
	initial, ok := msg.(fle.Initial)
	if !ok {
		return nil
	}
	if err := d.Register(f.Dst, KindFLE); err != nil {
		return err
	}
	d.queue.Push(event.FLE(initial))
	return nil
}

// registerFromConfig parses a quorum config trailer and registers the
// fle/zab/zk endpoints of every Server entry it names.
func (d *Dispatcher) registerFromConfig(config string) error {
	entries, err := quorum.Parse(config)
	if err != nil {
		return nil // malformed config trailer is BadConfig, not fatal to the run
	}
	for _, e := range entries {
		s, ok := e.(quorum.Server)
		if !ok {
			continue
		}
		fleEp := endpointFor(s.Host, s.FlePort)
		zabEp := endpointFor(s.Host, s.ZabPort)
		if err := d.Register(fleEp, KindFLE); err != nil {
			return err
		}
		if err := d.Register(zabEp, KindZAB); err != nil {
			return err
		}
		if s.ClientPort != 0 {
			zkHost := s.ResolveClientHost(s.Host)
			zkEp := endpointFor(zkHost, s.ClientPort)
			if err := d.Register(zkEp, KindZK); err != nil {
				return err
			}
		}
	}
	return nil
}

// endpointFor builds a canonical Endpoint from a quorum-config host,
// which is usually a dotted IP literal but is not guaranteed to be one;
// a host that fails to parse as an IP is kept verbatim, lowercased, so
// it still participates in exact-match registration and lookup.
func endpointFor(host string, port int) addr.Endpoint {
	if ip := net.ParseIP(host); ip != nil {
		return addr.New(ip, port)
	}
	return addr.Endpoint(strings.ToLower(host) + ":" + strconv.Itoa(port))
}
