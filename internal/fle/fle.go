// Copyright 2026 Twitter, Inc.
// Licensed under the Apache License, Version 2.0.

// Package fle decodes the Fast Leader Election protocol: the initial
// handshake and election notifications exchanged between ensemble
// members while they choose a leader.
package fle

import (
	"errors"
	"time"

	"github.com/twitter/zktraffic/internal/addr"
	"github.com/twitter/zktraffic/internal/wire"
)

// initialSentinel is the 8-byte "protocol version" marker that
// distinguishes an Initial handshake from a Notification:
// 0xFFFF_FFFF_FFFF_0000 read as a signed i64.
const initialSentinel int64 = -65536

// State is a peer's election state.
type State int32

const (
	Looking   State = 0
	Following State = 1
	Leading   State = 2
	Observing State = 3
)

func (s State) Valid() bool { return s >= Looking && s <= Observing }

// Initial is the FLE handshake message.
type Initial struct {
	ServerID     int64
	ElectionAddr string
	Client       addr.Endpoint
	Server       addr.Endpoint
	Timestamp    time.Time
}

// Notification is an FLE election-round broadcast. The wire payload
// grows in three recognized shapes; fields absent in the observed
// shape are set to the documented defaults.
type Notification struct {
	State          State
	Leader         int64
	Zxid           int64
	ElectionEpoch  int64
	PeerEpoch      int64
	Version        int32
	Config         string
	Client         addr.Endpoint
	Server         addr.Endpoint
	Timestamp      time.Time
}

// Message is implemented by Initial and Notification.
type Message interface {
	isFLEMessage()
}

func (Initial) isFLEMessage()      {}
func (Notification) isFLEMessage() {}

var (
	ErrShortPacket    = errors.New("fle: packet too short")
	ErrBadInitial     = errors.New("fle: malformed initial handshake")
	ErrBadState       = errors.New("fle: invalid election state")
	ErrBadNotification = errors.New("fle: notification has an unrecognized length")
)

// Decode parses payload into either an Initial or a Notification.
//
// The initial handshake is tried first: its sentinel is an i64 that
// cannot otherwise appear as a valid election State at offset 0 (State
// is encoded as an i32, so the sentinel's high 4 bytes, 0xFFFFFFFF,
// would decode to State -1, already invalid). Otherwise the payload is
// validated against the three recognized notification shapes by length.
func Decode(payload []byte, client, server addr.Endpoint, ts time.Time) (Message, error) {
	r := wire.NewReader(payload)
	if len(payload) >= 8 {
		peek := wire.NewReader(payload)
		if sentinel, ok := peek.Int64(); ok && sentinel == initialSentinel {
			return decodeInitial(r, client, server, ts, len(payload))
		}
	}
	return decodeNotification(payload, client, server, ts)
}

func decodeInitial(r *wire.Reader, client, server addr.Endpoint, ts time.Time, total int) (Message, error) {
	r.Skip(8) // sentinel already verified
	serverID, ok := r.Int64()
	if !ok {
		return nil, ErrBadInitial
	}
	addrLen, ok := r.Int32()
	if !ok || addrLen < 0 {
		return nil, ErrBadInitial
	}
	// Total length must equal exactly 20+len(addr); anything else is
	// malformed rather than merely truncated.
	if total != 20+int(addrLen) {
		return nil, ErrBadInitial
	}
	// The address text is the only field on the wire here: it carries no
	// length prefix of its own, addrLen above already is that prefix.
	if r.Len() < int(addrLen) {
		return nil, ErrBadInitial
	}
	electionAddr := string(r.Bytes()[:addrLen])
	r.Skip(int(addrLen))
	if _, splitErr := addr.Parse(electionAddr); splitErr != nil {
		return nil, ErrBadInitial
	}
	return Initial{
		ServerID:     serverID,
		ElectionAddr: electionAddr,
		Client:       client,
		Server:       server,
		Timestamp:    ts,
	}, nil
}

func decodeNotification(payload []byte, client, server addr.Endpoint, ts time.Time) (Message, error) {
	r := wire.NewReader(payload)
	if len(payload) < 28 {
		return nil, ErrShortPacket
	}
	stateVal, _ := r.Int32()
	state := State(stateVal)
	if !state.Valid() {
		return nil, ErrBadState
	}
	leader, _ := r.Int64()
	zxid, _ := r.Int64()
	electionEpoch, _ := r.Int64()

	n := Notification{
		State:         state,
		Leader:        leader,
		Zxid:          zxid,
		ElectionEpoch: electionEpoch,
		PeerEpoch:     -1,
		Version:       0,
		Client:        client,
		Server:        server,
		Timestamp:     ts,
	}

	if len(payload) == 28 {
		return n, nil
	}
	if len(payload) < 36 {
		return nil, ErrBadNotification
	}
	peerEpoch, _ := r.Int64()
	n.PeerEpoch = peerEpoch
	if len(payload) == 36 {
		return n, nil
	}
	if len(payload) < 40 {
		return nil, ErrBadNotification
	}
	version, _ := r.Int32()
	n.Version = version
	if version >= 2 && len(payload) > 40 {
		config, err := r.String(1 << 20)
		if err != nil {
			return nil, err
		}
		n.Config = config
	}
	return n, nil
}
