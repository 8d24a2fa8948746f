// Copyright 2026 Twitter, Inc.
// Licensed under the Apache License, Version 2.0.

// Package zksession implements the per-client session state used to
// decode server replies: a bounded xid->opcode memory used to decode
// reply bodies, and the single "four-letter admin word" mode tag used
// to recognize and skip the out-of-band admin protocol.
package zksession

import (
	"container/list"
	"sync"

	"github.com/twitter/zktraffic/internal/zkproto"
)

// DefaultXidCap is the default bound on in-flight xids per client.
const DefaultXidCap = 10000

// FourLetterWords is the closed set of four-ASCII-byte admin probes
// recognized on the client port.
var FourLetterWords = map[string]bool{
	"conf": true, "cons": true, "crst": true, "dump": true,
	"envi": true, "ruok": true, "srst": true, "srvr": true,
	"stat": true, "wchs": true, "wchc": true, "wchp": true,
	"mntr": true,
}

type entry struct {
	xid    int32
	opcode zkproto.Opcode
}

// Session is one client connection's in-flight request memory. It is
// safe for concurrent use, though in practice it is only ever touched
// from the single capture thread.
type Session struct {
	mu             sync.Mutex
	cap            int
	order          *list.List // of *entry, oldest at Front
	byXid          map[int32]*list.Element
	overflowCount  uint64
	fourLetterWord string
}

// NewSession returns a Session with the given xid-map cap. A cap <= 0
// uses DefaultXidCap.
func NewSession(cap int) *Session {
	if cap <= 0 {
		cap = DefaultXidCap
	}
	return &Session{
		cap:   cap,
		order: list.New(),
		byXid: make(map[int32]*list.Element),
	}
}

// Remember records that xid is an in-flight request of the given
// opcode. It returns false if the cap was already reached, in which
// case the entry is dropped and an overflow is recorded instead: the
// xid map size never exceeds the cap.
func (s *Session) Remember(xid int32, opcode zkproto.Opcode) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.byXid[xid]; ok {
		// A duplicate delivery (loopback retransmit) of the same
		// request; keep the existing entry rather than growing the map.
		el.Value.(*entry).opcode = opcode
		return true
	}
	if s.order.Len() >= s.cap {
		s.overflowCount++
		return false
	}
	el := s.order.PushBack(&entry{xid: xid, opcode: opcode})
	s.byXid[xid] = el
	return true
}

// OpcodeForXid implements zkserver.OpcodeLookup: it returns the
// remembered opcode for xid and removes the entry, since a reply
// consumes the in-flight request it answers.
func (s *Session) OpcodeForXid(xid int32) (zkproto.Opcode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.byXid[xid]
	if !ok {
		return 0, false
	}
	opcode := el.Value.(*entry).opcode
	s.order.Remove(el)
	delete(s.byXid, xid)
	return opcode, true
}

// Len returns the number of in-flight xids currently remembered.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

// Overflows returns the number of requests dropped because the cap was
// reached.
func (s *Session) Overflows() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overflowCount
}

// TrySetFourLetterWord marks this session as being in four-letter-word
// mode for word, if word is a recognized probe. It reports whether the
// word was recognized. Only one probe is tracked in flight at a time; a
// second probe before the first response simply overwrites the tag.
func (s *Session) TrySetFourLetterWord(word string) bool {
	if !FourLetterWords[word] {
		return false
	}
	s.mu.Lock()
	s.fourLetterWord = word
	s.mu.Unlock()
	return true
}

// FourLetterWord returns the active four-letter-word mode, or "" if
// none is in flight.
func (s *Session) FourLetterWord() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fourLetterWord
}

// ClearFourLetterWord clears the four-letter-word mode after its
// matching single-packet response has been observed.
func (s *Session) ClearFourLetterWord() {
	s.mu.Lock()
	s.fourLetterWord = ""
	s.mu.Unlock()
}
