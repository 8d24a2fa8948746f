// Copyright 2026 Twitter, Inc.
// Licensed under the Apache License, Version 2.0.

// Package zab decodes the ZAB quorum packet family exchanged between
// ensemble members: a leading i32 type code and i64 zxid, followed by a
// type-specific trailer.
package zab

import (
	"errors"
	"time"

	"github.com/twitter/zktraffic/internal/addr"
	"github.com/twitter/zktraffic/internal/wire"
)

// PacketType identifies one of the 19 quorum packet kinds (type ∈
// {1..19}).
type PacketType int32

const (
	Request            PacketType = 1
	Proposal           PacketType = 2
	Ack                PacketType = 3
	Commit             PacketType = 4
	Ping               PacketType = 5
	Revalidate         PacketType = 6
	Sync               PacketType = 7
	Inform             PacketType = 8
	InformAndActivate  PacketType = 9
	NewLeader          PacketType = 10
	FollowerInfo       PacketType = 11
	UpToDate           PacketType = 12
	Diff               PacketType = 13
	Trunc              PacketType = 14
	Snap               PacketType = 15
	ObserverInfo       PacketType = 16
	LeaderInfo         PacketType = 17
	AckEpoch           PacketType = 18
	CommitAndActivate  PacketType = 19
)

func (t PacketType) Valid() bool { return t >= 1 && t <= 19 }

var typeNames = map[PacketType]string{
	Request: "REQUEST", Proposal: "PROPOSAL", Ack: "ACK", Commit: "COMMIT",
	Ping: "PING", Revalidate: "REVALIDATE", Sync: "SYNC", Inform: "INFORM",
	InformAndActivate: "INFORMANDACTIVATE", NewLeader: "NEWLEADER",
	FollowerInfo: "FOLLOWERINFO", UpToDate: "UPTODATE", Diff: "DIFF",
	Trunc: "TRUNC", Snap: "SNAP", ObserverInfo: "OBSERVERINFO",
	LeaderInfo: "LEADERINFO", AckEpoch: "ACKEPOCH", CommitAndActivate: "COMMITANDACTIVATE",
}

func (t PacketType) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return "UNKNOWN"
}

// Header carries the fields common to every quorum packet.
type Header struct {
	Type      PacketType
	Zxid      int64
	From      addr.Endpoint
	To        addr.Endpoint
	Timestamp time.Time
}

// Packet is implemented by every decoded quorum packet variant.
type Packet interface {
	Head() Header
}

func (h Header) Head() Header { return h }

// Header-only variants: their trailers carry fields this sniffer does
// not need to decode to classify and pair the traffic.
type (
	AckPacket       struct{ Header }
	CommitPacket    struct{ Header }
	PingPacket      struct{ Header }
	SyncPacket      struct{ Header }
	NewLeaderPacket struct{ Header }
	UpToDatePacket  struct{ Header }
	DiffPacket      struct{ Header }
	TruncPacket     struct{ Header }
	SnapPacket      struct{ Header }
)

// RequestPacket is a learner forwarding a client write to the leader.
type RequestPacket struct {
	Header
	SessionID int64
	Cxid      int32
	ReqOpcode int32
}

// txnFields is embedded by the three transaction-carrying variants.
type txnFields struct {
	ClientID        int64
	Cxid            int32
	TxnZxid         int64
	TxnTime         int64
	TxnOpcode       int32
	SuggestedLeader int64 // only meaningful for InformAndActivate
}

// ProposalPacket is a leader broadcasting a transaction for ack.
type ProposalPacket struct {
	Header
	txnFields
}

// InformPacket is a leader informing observers of a committed txn.
type InformPacket struct {
	Header
	txnFields
}

// InformAndActivatePacket additionally carries a suggested new leader.
type InformAndActivatePacket struct {
	Header
	txnFields
}

// CommitAndActivatePacket commits a reconfiguration, activating a new
// leader.
type CommitAndActivatePacket struct {
	Header
	SuggestedLeaderID int64
}

// RevalidatePacket asks the leader to validate/extend a client session.
type RevalidatePacket struct {
	Header
	SessionID int64
	TimeoutMs int32
}

// FollowerInfoPacket / ObserverInfoPacket announce a learner to the
// leader at connection time.
type FollowerInfoPacket struct {
	Header
	Sid             int64
	ProtocolVersion int32
	ConfigVersion   int64
}
type ObserverInfoPacket struct {
	Header
	Sid             int64
	ProtocolVersion int32
	ConfigVersion   int64
}

// LeaderInfoPacket announces the leader's protocol version to a learner.
type LeaderInfoPacket struct {
	Header
	ProtocolVersion int32
}

// AckEpochPacket acks a leader's epoch proposal.
type AckEpochPacket struct {
	Header
	Epoch int64
}

var (
	ErrShortPacket  = errors.New("zab: packet too short")
	ErrInvalidType  = errors.New("zab: packet type out of range")
)

// Decode parses payload, the full TCP payload of one quorum packet, into
// a typed Packet.
func Decode(payload []byte, from, to addr.Endpoint, ts time.Time) (Packet, error) {
	if len(payload) < 12 {
		return nil, ErrShortPacket
	}
	r := wire.NewReader(payload)
	typeVal, _ := r.Int32()
	t := PacketType(typeVal)
	if !t.Valid() {
		return nil, ErrInvalidType
	}
	zxid, _ := r.Int64()
	h := Header{Type: t, Zxid: zxid, From: from, To: to, Timestamp: ts}

	switch t {
	case Ack:
		return AckPacket{h}, nil
	case Commit:
		return CommitPacket{h}, nil
	case Ping:
		return PingPacket{h}, nil
	case Sync:
		return SyncPacket{h}, nil
	case NewLeader:
		return NewLeaderPacket{h}, nil
	case UpToDate:
		return UpToDatePacket{h}, nil
	case Diff:
		return DiffPacket{h}, nil
	case Trunc:
		return TruncPacket{h}, nil
	case Snap:
		return SnapPacket{h}, nil
	case Request:
		sid, _ := r.Int64()
		cxid, _ := r.Int32()
		op, _ := r.Int32()
		return RequestPacket{Header: h, SessionID: sid, Cxid: cxid, ReqOpcode: op}, nil
	case Proposal:
		return ProposalPacket{Header: h, txnFields: decodeTxn(r)}, nil
	case Inform:
		return InformPacket{Header: h, txnFields: decodeTxn(r)}, nil
	case InformAndActivate:
		tf := decodeTxn(r)
		tf.SuggestedLeader, _ = r.Int64()
		return InformAndActivatePacket{Header: h, txnFields: tf}, nil
	case CommitAndActivate:
		leaderID, _ := r.Int64()
		return CommitAndActivatePacket{Header: h, SuggestedLeaderID: leaderID}, nil
	case Revalidate:
		sid, _ := r.Int64()
		timeout, _ := r.Int32()
		return RevalidatePacket{Header: h, SessionID: sid, TimeoutMs: timeout}, nil
	case FollowerInfo:
		sid, proto, cfg := decodeLearnerInfo(r)
		return FollowerInfoPacket{Header: h, Sid: sid, ProtocolVersion: proto, ConfigVersion: cfg}, nil
	case ObserverInfo:
		sid, proto, cfg := decodeLearnerInfo(r)
		return ObserverInfoPacket{Header: h, Sid: sid, ProtocolVersion: proto, ConfigVersion: cfg}, nil
	case LeaderInfo:
		proto, _ := r.Int32()
		return LeaderInfoPacket{Header: h, ProtocolVersion: proto}, nil
	case AckEpoch:
		epoch, _ := r.Int64()
		return AckEpochPacket{Header: h, Epoch: epoch}, nil
	default:
		return nil, ErrInvalidType
	}
}

// decodeTxn reads the inner transaction fields shared by Proposal,
// Inform and InformAndActivate. The exact byte layout of the inner
// transaction beyond these fields depends on the operation it carries;
// additional fields may follow and are intentionally left undecoded.
func decodeTxn(r *wire.Reader) txnFields {
	var tf txnFields
	// Inner transaction blob: [i32 data_len][data_len bytes]. We parse
	// the leading fields of the txn header out of that blob rather than
	// the outer trailer.
	blob, ok := r.Buffer(1 << 20)
	if !ok || len(blob) < 28 {
		return tf
	}
	br := wire.NewReader(blob)
	tf.ClientID, _ = br.Int64()
	cxid, _ := br.Int32()
	tf.Cxid = cxid
	tf.TxnZxid, _ = br.Int64()
	tf.TxnTime, _ = br.Int64()
	op, _ := br.Int32()
	tf.TxnOpcode = op
	return tf
}

func decodeLearnerInfo(r *wire.Reader) (sid int64, protocolVersion int32, configVersion int64) {
	sid, _ = r.Int64()
	// FollowerInfo/ObserverInfo carry a length-prefixed blob containing
	// the protocol version and, in later versions, a config version.
	blob, ok := r.Buffer(64)
	if !ok || len(blob) < 4 {
		return sid, 0, 0
	}
	br := wire.NewReader(blob)
	protocolVersion, _ = br.Int32()
	if len(blob) >= 12 {
		configVersion, _ = br.Int64()
	}
	return sid, protocolVersion, configVersion
}
