// Copyright 2026 Twitter, Inc.
// Licensed under the Apache License, Version 2.0.

package zkserver

import (
	"errors"
	"time"

	"github.com/twitter/zktraffic/internal/addr"
	"github.com/twitter/zktraffic/internal/wire"
	"github.com/twitter/zktraffic/internal/zkproto"
)

// ErrShortPacket indicates the payload was too short to hold a reply
// header.
var ErrShortPacket = errors.New("zkserver: packet too short")

// OpcodeLookup is satisfied by the per-connection session memory
// (internal/zksession.Session): given an xid, it returns the opcode
// remembered for the request that xid belongs to.
type OpcodeLookup interface {
	OpcodeForXid(xid int32) (zkproto.Opcode, bool)
}

// maxListCount bounds children/ACL lists read from a reply body; replies
// are trusted more than requests (they originate from the ensemble, not
// an arbitrary client) but an unbounded allocation from a malformed
// capture is still unacceptable.
const maxListCount = 1 << 20

// Decode parses payload, the full payload of one server->client packet,
// into either *Reply or *WatchEvent. lookup supplies the opcode
// remembered for the reply's xid; a nil or missing lookup entry yields a
// header-only Reply.
func Decode(payload []byte, client addr.Endpoint, ts time.Time, lookup OpcodeLookup) (interface{}, error) {
	r := wire.NewReader(payload)
	xid, ok := r.Int32()
	if !ok {
		return nil, ErrShortPacket
	}

	if xid == zkproto.XidWatchEvent {
		return decodeWatchEvent(r, client, ts)
	}

	zxid, ok := r.Int64()
	if !ok {
		return nil, ErrShortPacket
	}
	errCode, ok := r.Int32()
	if !ok {
		return nil, ErrShortPacket
	}

	head := ReplyHeader{Xid: xid, Zxid: zxid, Err: errCode, Client: client, Timestamp: ts, Opcode: zkproto.OpError}

	var opcode zkproto.Opcode
	if lookup != nil {
		if op, found := lookup.OpcodeForXid(xid); found {
			opcode = op
			head.Opcode = op
		} else {
			return &Reply{ReplyHeader: head}, nil
		}
	} else {
		return &Reply{ReplyHeader: head}, nil
	}

	if errCode != 0 {
		// Error replies never carry a body beyond the header.
		return &Reply{ReplyHeader: head}, nil
	}

	body, _ := decodeBody(r, opcode)
	return &Reply{ReplyHeader: head, Body: body}, nil
}

func decodeWatchEvent(r *wire.Reader, client addr.Endpoint, ts time.Time) (*WatchEvent, error) {
	eventType, _ := r.Int32()
	state, _ := r.Int32()
	path, err := r.String(wire.DefaultMaxLen)
	if err != nil {
		return nil, err
	}
	return &WatchEvent{
		Xid:       zkproto.XidWatchEvent,
		EventType: eventType,
		State:     state,
		Path:      path,
		Client:    client,
		Timestamp: ts,
	}, nil
}

func decodeStat(r *wire.Reader) Stat {
	var s Stat
	s.Czxid, _ = r.Int64()
	s.Mzxid, _ = r.Int64()
	s.Ctime, _ = r.Int64()
	s.Mtime, _ = r.Int64()
	s.Version, _ = r.Int32()
	s.Cversion, _ = r.Int32()
	s.Aversion, _ = r.Int32()
	s.EphemeralOwner, _ = r.Int64()
	s.DataLength, _ = r.Int32()
	s.NumChildren, _ = r.Int32()
	s.Pzxid, _ = r.Int64()
	return s
}

func decodeStringList(r *wire.Reader) []string {
	count, ok := r.Int32()
	if !ok || count < 0 {
		return nil
	}
	list := make([]string, 0, min32(count, 64))
	for i := int32(0); i < count && i < maxListCount; i++ {
		s, err := r.String(wire.DefaultMaxLen)
		if err != nil {
			return list
		}
		list = append(list, s)
	}
	return list
}

func decodeAclList(r *wire.Reader) []zkproto.ACL {
	count, ok := r.Int32()
	if !ok || count < 0 {
		return nil
	}
	acls := make([]zkproto.ACL, 0, min32(count, 64))
	for i := int32(0); i < count && i < maxListCount; i++ {
		perms, ok := r.Int32()
		if !ok {
			return acls
		}
		scheme, err := r.String(wire.DefaultMaxLen)
		if err != nil {
			return acls
		}
		credential, err := r.String(wire.DefaultMaxLen)
		if err != nil {
			return acls
		}
		acls = append(acls, zkproto.ACL{Perms: uint32(perms), Scheme: scheme, Credential: credential})
	}
	return acls
}

func min32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}

func decodeBody(r *wire.Reader, opcode zkproto.Opcode) (interface{}, error) {
	switch opcode {
	case zkproto.OpCreateSess:
		protocolVersion, _ := r.Int32()
		timeoutMs, _ := r.Int32()
		sessionID, _ := r.Int64()
		password, _ := r.Buffer(wire.DefaultMaxLen)
		readOnly, _ := r.Bool()
		return ConnectBody{ProtocolVersion: protocolVersion, TimeoutMs: timeoutMs, SessionID: sessionID, Password: password, ReadOnly: readOnly}, nil
	case zkproto.OpPing, zkproto.OpAuth, zkproto.OpCloseSess, zkproto.OpSync, zkproto.OpCheck, zkproto.OpDelete, zkproto.OpSetWatches, zkproto.OpReconfig:
		return nil, nil
	case zkproto.OpCreate:
		path, err := r.String(wire.DefaultMaxLen)
		if err != nil {
			return nil, err
		}
		return CreateBody{Path: path}, nil
	case zkproto.OpCreate2:
		path, err := r.String(wire.DefaultMaxLen)
		if err != nil {
			return nil, err
		}
		return Create2Body{Path: path, Stat: decodeStat(r)}, nil
	case zkproto.OpExists, zkproto.OpSetData, zkproto.OpSetAcl:
		stat := decodeStat(r)
		switch opcode {
		case zkproto.OpExists:
			return ExistsBody{Stat: stat}, nil
		case zkproto.OpSetData:
			return SetDataBody{Stat: stat}, nil
		default:
			return SetAclBody{Stat: stat}, nil
		}
	case zkproto.OpGetData:
		data, _ := r.Buffer(zkproto.MaxCreateDataLen)
		return GetDataBody{Data: data, Stat: decodeStat(r)}, nil
	case zkproto.OpGetChildren:
		return GetChildrenBody{Children: decodeStringList(r)}, nil
	case zkproto.OpGetChildren2:
		children := decodeStringList(r)
		return GetChildren2Body{Children: children, Stat: decodeStat(r)}, nil
	case zkproto.OpGetAcl:
		acls := decodeAclList(r)
		return GetAclBody{Acls: acls, Stat: decodeStat(r)}, nil
	case zkproto.OpMulti:
		return nil, nil
	default:
		return nil, nil
	}
}
