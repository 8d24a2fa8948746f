// Copyright 2026 Twitter, Inc.
// Licensed under the Apache License, Version 2.0.

package zkclient

import (
	"errors"
	"fmt"
	"time"

	"github.com/twitter/zktraffic/internal/addr"
	"github.com/twitter/zktraffic/internal/wire"
	"github.com/twitter/zktraffic/internal/zkproto"
)

// ErrShortPacket is returned when the payload is too short to contain
// even the leading length/xid word.
var ErrShortPacket = errors.New("zkclient: packet too short")

// ErrUnknownOpcode indicates the opcode field decoded to a value
// outside the known set.
var ErrUnknownOpcode = errors.New("zkclient: unknown opcode")

// ErrBadPath indicates a path field did not start with '/'.
var ErrBadPath = errors.New("zkclient: path does not start with /")

// Decode parses payload, the full TCP payload of one client->server
// packet, into a typed Request. client identifies the originating
// connection and ts is the capture timestamp to stamp onto the result.
//
// This implements the C client's length-elision quirk: a Connect
// request sent by the C client omits the outer i32
// total-length prefix, so the leading word must be disambiguated between
// "this is a length", "this is actually the xid" (reserved xids or an
// implausibly large length), and "this is a length and a Connect follows
// immediately".
func Decode(payload []byte, client addr.Endpoint, ts time.Time) (Request, error) {
	r := wire.NewReader(payload)

	leading, ok := r.Int32()
	if !ok {
		return nil, ErrShortPacket
	}

	if leading == 0 {
		r.Seek(0)
		return decodeConnect(r, client, ts)
	}

	if leading == zkproto.XidPing || leading == zkproto.XidAuth ||
		leading == zkproto.XidSetWatches || leading >= zkproto.MaxRequestSize {
		return decodeByOpcode(r, leading, payload, client, ts)
	}

	maybeXidOrVersion, ok := r.Int32()
	if !ok {
		return nil, ErrShortPacket
	}
	if maybeXidOrVersion == zkproto.ProtocolVersion0 || maybeXidOrVersion == zkproto.ProtocolVersion1 {
		savedOffset := r.Offset()
		conn, err := decodeConnectBody(r, maybeXidOrVersion, client, ts)
		if err == nil {
			conn.Size = leading
			return conn, nil
		}
		r.Seek(savedOffset)
	}

	return decodeByOpcode(r, maybeXidOrVersion, payload, client, ts)
}

func decodeConnect(r *wire.Reader, client addr.Endpoint, ts time.Time) (Request, error) {
	version, ok := r.Int32()
	if !ok {
		return nil, ErrShortPacket
	}
	return decodeConnectBody(r, version, client, ts)
}

func decodeConnectBody(r *wire.Reader, version int32, client addr.Endpoint, ts time.Time) (*Connect, error) {
	lastZxidSeen, ok := r.Int64()
	if !ok {
		return nil, ErrShortPacket
	}
	timeoutMs, ok := r.Int32()
	if !ok {
		return nil, ErrShortPacket
	}
	sessionID, ok := r.Int64()
	if !ok {
		return nil, ErrShortPacket
	}
	password, ok := r.Buffer(wire.DefaultMaxLen)
	if !ok {
		return nil, ErrShortPacket
	}
	readOnly := false
	if b, ok := r.Bool(); ok {
		readOnly = b
	}
	return &Connect{
		Header: Header{
			Xid:       0,
			Opcode:    zkproto.OpCreateSess,
			Client:    client,
			Timestamp: ts,
		},
		ProtocolVersion: version,
		LastZxidSeen:    lastZxidSeen,
		TimeoutMs:       timeoutMs,
		SessionID:       sessionID,
		Password:        password,
		ReadOnly:        readOnly,
	}, nil
}

func decodeByOpcode(r *wire.Reader, xid int32, payload []byte, client addr.Endpoint, ts time.Time) (Request, error) {
	opcodeVal, ok := r.Int32()
	if !ok {
		return nil, ErrShortPacket
	}
	opcode := zkproto.Opcode(opcodeVal)
	if !opcode.Known() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownOpcode, opcodeVal)
	}

	h := Header{
		Size:      int32(len(payload)),
		Xid:       xid,
		Opcode:    opcode,
		Client:    client,
		Timestamp: ts,
	}

	if opcode.HasPath() {
		path, err := r.String(wire.DefaultMaxLen)
		if err != nil {
			return nil, err
		}
		if path != "" && path[0] != '/' {
			return nil, ErrBadPath
		}
		h.Path = path
	}

	if opcode.HasWatchFlag() {
		if w, ok := r.Bool(); ok {
			h.Watch = w
		}
	}

	switch opcode {
	case zkproto.OpPing:
		return &Ping{Header: h}, nil
	case zkproto.OpAuth:
		return decodeSetAuth(r, h)
	case zkproto.OpCloseSess:
		return &Close{Header: h}, nil
	case zkproto.OpCreate, zkproto.OpCreate2:
		return decodeCreate(r, h, opcode == zkproto.OpCreate2)
	case zkproto.OpDelete:
		return decodeDelete(r, h)
	case zkproto.OpExists:
		return &Exists{Header: h}, nil
	case zkproto.OpGetData:
		return &GetData{Header: h}, nil
	case zkproto.OpSetData:
		return decodeSetData(r, h)
	case zkproto.OpGetChildren:
		return &GetChildren{Header: h}, nil
	case zkproto.OpGetChildren2:
		return &GetChildren2{Header: h}, nil
	case zkproto.OpSync:
		return &Sync{Header: h}, nil
	case zkproto.OpGetAcl:
		return &GetAcl{Header: h}, nil
	case zkproto.OpSetAcl:
		return decodeSetAcl(r, h)
	case zkproto.OpCheck:
		return decodeCheck(r, h)
	case zkproto.OpSetWatches:
		return decodeSetWatches(r, h)
	case zkproto.OpMulti:
		return decodeMulti(r, h)
	case zkproto.OpReconfig:
		return decodeReconfig(r, h)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownOpcode, opcodeVal)
	}
}

func decodeSetAuth(r *wire.Reader, h Header) (Request, error) {
	authType, _ := r.Int32()
	scheme, err := r.String(wire.DefaultMaxLen)
	if err != nil {
		return nil, err
	}
	credential, err := r.String(wire.DefaultMaxLen)
	if err != nil {
		return nil, err
	}
	return &SetAuth{Header: h, AuthType: authType, Scheme: scheme, Credential: credential}, nil
}

func decodeAcls(r *wire.Reader) []zkproto.ACL {
	count, ok := r.Int32()
	if !ok || count < 0 {
		return nil
	}
	acls := make([]zkproto.ACL, 0, count)
	for i := int32(0); i < count && i < zkproto.MaxACLCount; i++ {
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
	if count > zkproto.MaxACLCount {
		// Over the cap: report no ACLs, with both flags left false,
		// rather than the partial list.
		return nil
	}
	return acls
}

func decodeCreate(r *wire.Reader, h Header, v2 bool) (Request, error) {
	data, ok := r.Buffer(zkproto.MaxCreateDataLen)
	if !ok {
		return &Create{Header: h, V2: v2}, nil
	}
	acls := decodeAcls(r)
	create := &Create{Header: h, V2: v2, Data: data, Acls: acls}
	if acls != nil {
		if flags, ok := r.Int32(); ok {
			create.Ephemeral = flags&1 != 0
			create.Sequence = flags&2 != 0
		}
	}
	return create, nil
}

func decodeDelete(r *wire.Reader, h Header) (Request, error) {
	version, _ := r.Int32()
	return &Delete{Header: h, Version: version}, nil
}

func decodeSetData(r *wire.Reader, h Header) (Request, error) {
	data, _ := r.Buffer(zkproto.MaxCreateDataLen)
	version, _ := r.Int32()
	return &SetData{Header: h, Data: data, Version: version}, nil
}

func decodeSetAcl(r *wire.Reader, h Header) (Request, error) {
	acls := decodeAcls(r)
	version, _ := r.Int32()
	return &SetAcl{Header: h, Acls: acls, Version: version}, nil
}

func decodeCheck(r *wire.Reader, h Header) (Request, error) {
	version, _ := r.Int32()
	return &Check{Header: h, Version: version}, nil
}

func decodeStringList(r *wire.Reader, maxCount int) []string {
	count, ok := r.Int32()
	if !ok || count < 0 {
		return nil
	}
	list := make([]string, 0, count)
	for i := int32(0); i < count && int(i) < maxCount; i++ {
		s, err := r.String(wire.DefaultMaxLen)
		if err != nil {
			// Partially parsed lists are kept as-is.
			return list
		}
		list = append(list, s)
	}
	return list
}

func decodeSetWatches(r *wire.Reader, h Header) (Request, error) {
	relZxid, _ := r.Int64()
	data := decodeStringList(r, zkproto.MaxWatchListLen)
	exist := decodeStringList(r, zkproto.MaxWatchListLen)
	child := decodeStringList(r, zkproto.MaxWatchListLen)
	return &SetWatches{
		Header:       h,
		RelativeZxid: relZxid,
		DataWatches:  data,
		ExistWatches: exist,
		ChildWatches: child,
	}, nil
}

func decodeMulti(r *wire.Reader, h Header) (Request, error) {
	opVal, _ := r.Int32()
	done, _ := r.Bool()
	errCode, _ := r.Int32()
	return &Multi{Header: h, FirstOpcode: zkproto.Opcode(opVal), Done: done, Err: errCode}, nil
}

func decodeReconfig(r *wire.Reader, h Header) (Request, error) {
	joining, _ := r.String(wire.DefaultMaxLen)
	leaving, _ := r.String(wire.DefaultMaxLen)
	newMembers, _ := r.String(wire.DefaultMaxLen)
	curConfigID, _ := r.Int64()
	return &Reconfig{
		Header:         h,
		JoiningServers: joining,
		LeavingServers: leaving,
		NewMembers:     newMembers,
		CurConfigID:    curConfigID,
	}, nil
}
