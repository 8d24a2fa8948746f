// Copyright 2026 Twitter, Inc.
// Licensed under the Apache License, Version 2.0.

// Package printer implements the minimal stdout consumer used by the
// per-protocol dump tools: one line per event, built with plain
// fmt.Fprintf rather than a structured log record, since this output
// is meant to be read by a human at a terminal.
package printer

import (
	"fmt"
	"io"

	"github.com/twitter/zktraffic/internal/event"
	"github.com/twitter/zktraffic/internal/fle"
	"github.com/twitter/zktraffic/internal/zab"
	"github.com/twitter/zktraffic/internal/zkclient"
	"github.com/twitter/zktraffic/internal/zkserver"
)

// Printer writes a one-line rendering of every Event to w.
type Printer struct {
	w io.Writer
}

// New returns a Printer writing to w.
func New(w io.Writer) *Printer { return &Printer{w: w} }

// Handle implements event.Handler.
func (p *Printer) Handle(e event.Event) {
	switch v := e.(type) {
	case event.Pair:
		p.printPair(v)
	case event.Overflow:
		fmt.Fprintf(p.w, "OVERFLOW queue=%s dropped=%d\n", v.Queue, v.Count)
	case event.CloseEvent:
		Line(p.w, v.Close)
	case event.WatchEvent:
		Line(p.w, v.WatchEvent)
	case event.FLEEvent:
		Line(p.w, v.Message)
	case event.ZABEvent:
		Line(p.w, v.Packet)
	default:
		fmt.Fprintf(p.w, "%+v\n", e)
	}
}

func (p *Printer) printPair(pair event.Pair) {
	req := pair.Request
	h := req.Head()
	if pair.Reply == nil {
		fmt.Fprintf(p.w, "%s client=%s xid=%d op=%s path=%q\n",
			h.Timestamp.Format("15:04:05.000"), h.Client, h.Xid, h.Opcode, h.Path)
		return
	}
	fmt.Fprintf(p.w, "%s client=%s xid=%d op=%s path=%q err=%d latency=%s\n",
		h.Timestamp.Format("15:04:05.000"), h.Client, h.Xid, h.Opcode, h.Path,
		pair.Reply.Err, pair.Latency())
}

// Line renders req/reply/etc. independent of the event package, for
// callers (the single-protocol dump tools) that talk to the decoders
// directly instead of through a Queue.
func Line(w io.Writer, v interface{}) {
	switch m := v.(type) {
	case zkclient.Request:
		h := m.Head()
		fmt.Fprintf(w, "%s client=%s xid=%d op=%s path=%q\n",
			h.Timestamp.Format("15:04:05.000"), h.Client, h.Xid, h.Opcode, h.Path)
	case *zkserver.Reply:
		fmt.Fprintf(w, "%s client=%s xid=%d zxid=%#x err=%d op=%s\n",
			m.Timestamp.Format("15:04:05.000"), m.Client, m.Xid, m.Zxid, m.Err, m.Opcode)
	case *zkserver.WatchEvent:
		fmt.Fprintf(w, "%s client=%s watch type=%d state=%d path=%q\n",
			m.Timestamp.Format("15:04:05.000"), m.Client, m.EventType, m.State, m.Path)
	case fle.Initial:
		fmt.Fprintf(w, "%s %s->%s INITIAL server_id=%d election_addr=%s\n",
			m.Timestamp.Format("15:04:05.000"), m.Client, m.Server, m.ServerID, m.ElectionAddr)
	case fle.Notification:
		fmt.Fprintf(w, "%s %s->%s NOTIFICATION state=%d leader=%d zxid=%#x epoch=%d\n",
			m.Timestamp.Format("15:04:05.000"), m.Client, m.Server, m.State, m.Leader, m.Zxid, m.ElectionEpoch)
	case zab.Packet:
		h := m.Head()
		fmt.Fprintf(w, "%s %s->%s %s zxid=%#x\n",
			h.Timestamp.Format("15:04:05.000"), h.From, h.To, h.Type, h.Zxid)
	default:
		fmt.Fprintf(w, "%+v\n", v)
	}
}
