// Copyright 2026 Twitter, Inc.
// Licensed under the Apache License, Version 2.0.

// Package zkserver decodes ZK server->client messages: replies to a
// previously observed request (disambiguated via the xid->opcode memory
// kept by internal/zksession) and asynchronous watch events.
package zkserver

import (
	"time"

	"github.com/twitter/zktraffic/internal/addr"
	"github.com/twitter/zktraffic/internal/zkproto"
)

// ReplyHeader carries the fields present on every reply, decoded or not.
type ReplyHeader struct {
	Xid       int32
	Zxid      int64
	Err       int32
	Opcode    zkproto.Opcode // remembered opcode, OpError if unknown
	Client    addr.Endpoint
	Timestamp time.Time
}

// Reply is a server response to a client request. Body is nil when the
// session layer had no memory of the request's opcode (the reply is
// then header-only) or when the opcode's body parser declined to
// decode (e.g. Ping/Auth/Close carry no body).
type Reply struct {
	ReplyHeader
	Body interface{}
}

// WatchEvent is an asynchronous server->client push, not correlated to
// any request. Xid is always zkproto.XidWatchEvent.
type WatchEvent struct {
	Xid       int32
	EventType int32
	State     int32
	Path      string
	Client    addr.Endpoint
	Timestamp time.Time
}

// Event type constants for WatchEvent.EventType, mirroring ZooKeeper's
// WatcherEvent wire values.
const (
	EventNone        int32 = -1
	EventNodeCreated int32 = 1
	EventNodeDeleted int32 = 2
	EventNodeChanged int32 = 3
	EventNodeChildren int32 = 4
)

// Stat mirrors the ZooKeeper znode metadata struct returned by several
// reply bodies.
type Stat struct {
	Czxid          int64
	Mzxid          int64
	Ctime          int64
	Mtime          int64
	Version        int32
	Cversion       int32
	Aversion       int32
	EphemeralOwner int64
	DataLength     int32
	NumChildren    int32
	Pzxid          int64
}

// Body types, one per opcode whose reply carries a decodable payload.
type (
	ConnectBody struct {
		ProtocolVersion int32
		TimeoutMs       int32
		SessionID       int64
		Password        []byte
		ReadOnly        bool
	}
	CreateBody struct {
		Path string
	}
	Create2Body struct {
		Path string
		Stat Stat
	}
	ExistsBody struct{ Stat Stat }
	GetDataBody struct {
		Data []byte
		Stat Stat
	}
	SetDataBody struct{ Stat Stat }
	GetChildrenBody struct{ Children []string }
	GetChildren2Body struct {
		Children []string
		Stat     Stat
	}
	GetAclBody struct {
		Acls []zkproto.ACL
		Stat Stat
	}
	SetAclBody struct{ Stat Stat }
)
