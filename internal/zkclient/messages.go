// Copyright 2026 Twitter, Inc.
// Licensed under the Apache License, Version 2.0.

// Package zkclient decodes the ZK client->server wire protocol into a
// closed set of typed request variants. Variants are distinct concrete
// types implementing Request rather than a single struct with optional
// fields, so a type switch at the consumer is exhaustive and the
// compiler flags a missed case when a new variant is added — a closed
// sum type, in place of an opcode-to-constructor registry.
package zkclient

import (
	"time"

	"github.com/twitter/zktraffic/internal/addr"
	"github.com/twitter/zktraffic/internal/zkproto"
)

// Header carries the fields common to every request variant.
type Header struct {
	Size      int32
	Xid       int32
	Opcode    zkproto.Opcode
	Path      string
	Client    addr.Endpoint
	Watch     bool
	Timestamp time.Time
	// Auth is populated by the correlator on a SetAuth request's own
	// Header, copied from its Scheme field; it is not part of the wire
	// payload itself.
	Auth string
}

// Request is implemented by every decoded ZK client message.
type Request interface {
	Head() *Header
}

func (h *Header) Head() *Header { return h }

// Connect is the initial session-establishment request. It never carries
// an xid on the wire; Header.Xid is left at zero.
type Connect struct {
	Header
	ProtocolVersion int32
	LastZxidSeen    int64
	TimeoutMs       int32
	SessionID       int64
	Password        []byte
	ReadOnly        bool
}

// Ping is a periodic session keep-alive; it carries XidPing.
type Ping struct{ Header }

// SetAuth adds a credential to the session. Header.Path is left empty
// by the decoder itself (OpAuth carries no path field on the wire); the
// correlator stamps it with the synthetic path "/<credential>" and
// copies Scheme into Header.Auth so that statistics can be aggregated
// per-auth the same way they aggregate every other request.
type SetAuth struct {
	Header
	AuthType   int32
	Scheme     string
	Credential string
}

// Close terminates the session; it has no reply.
type Close struct{ Header }

// Create / Create2 share a wire layout; V2 distinguishes the two so a
// single decoder path can serve both without duplicating the trailer
// parser. Create2 differs only in its reply (an added Stat).
type Create struct {
	Header
	V2        bool
	Data      []byte
	Acls      []zkproto.ACL
	Ephemeral bool
	Sequence  bool
}

// Delete removes a node at Path if its version matches (or Version is
// -1 to skip the check).
type Delete struct {
	Header
	Version int32
}

// Exists checks for a node's existence, optionally setting a watch.
type Exists struct{ Header }

// GetData reads a node's data, optionally setting a watch.
type GetData struct{ Header }

// SetData overwrites a node's data if its version matches.
type SetData struct {
	Header
	Data    []byte
	Version int32
}

// GetChildren lists a node's children, optionally setting a watch.
type GetChildren struct{ Header }

// GetChildren2 is GetChildren with a Stat returned alongside the list.
type GetChildren2 struct{ Header }

// Sync asks the leader to flush up to this point before the next read.
type Sync struct{ Header }

// GetAcl reads a node's ACL list.
type GetAcl struct{ Header }

// SetAcl overwrites a node's ACL list if its version matches.
type SetAcl struct {
	Header
	Acls    []zkproto.ACL
	Version int32
}

// Check asserts a node's version without reading or writing data.
type Check struct {
	Header
	Version int32
}

// SetWatches re-registers watches after a session reconnect, carrying
// three independently bounded path lists.
type SetWatches struct {
	Header
	RelativeZxid int64
	DataWatches  []string
	ExistWatches []string
	ChildWatches []string
}

// Multi carries only the first sub-operation header; sub-operations
// beyond that are out of scope.
type Multi struct {
	Header
	FirstOpcode zkproto.Opcode
	Done        bool
	Err         int32
}

// Reconfig requests a membership change.
type Reconfig struct {
	Header
	JoiningServers string
	LeavingServers string
	NewMembers     string
	CurConfigID    int64
}

var (
	_ Request = (*Connect)(nil)
	_ Request = (*Ping)(nil)
	_ Request = (*SetAuth)(nil)
	_ Request = (*Close)(nil)
	_ Request = (*Create)(nil)
	_ Request = (*Delete)(nil)
	_ Request = (*Exists)(nil)
	_ Request = (*GetData)(nil)
	_ Request = (*SetData)(nil)
	_ Request = (*GetChildren)(nil)
	_ Request = (*GetChildren2)(nil)
	_ Request = (*Sync)(nil)
	_ Request = (*GetAcl)(nil)
	_ Request = (*SetAcl)(nil)
	_ Request = (*Check)(nil)
	_ Request = (*SetWatches)(nil)
	_ Request = (*Multi)(nil)
	_ Request = (*Reconfig)(nil)
)
