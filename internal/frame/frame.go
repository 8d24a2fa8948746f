// Copyright 2026 Twitter, Inc.
// Licensed under the Apache License, Version 2.0.

// Package frame turns a captured link-layer frame into a TCP payload
// plus the canonical endpoints and direction of the flow it belongs to,
// using gopacket to strip the Ethernet/Loopback, IP and TCP headers.
package frame

import (
	"errors"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/twitter/zktraffic/internal/addr"
)

// Direction classifies which side of a known server port sent a frame.
type Direction int

const (
	ClientToServer Direction = iota
	ServerToClient
)

func (d Direction) String() string {
	if d == ClientToServer {
		return "client->server"
	}
	return "server->client"
}

// ErrBadPacket is returned for any frame this package declines to
// classify: missing layers, a non-TCP transport, or a frame that does
// not touch the configured server port. A segment with an empty payload
// is still returned as a Frame.
var ErrBadPacket = errors.New("frame: not a packet of interest")

// Frame is one decoded TCP segment ready for protocol-specific decoding.
type Frame struct {
	Payload   []byte
	Src       addr.Endpoint
	Dst       addr.Endpoint
	Seq       uint32
	RST       bool
	Direction Direction
}

// Parser extracts Frames belonging to one TCP server port. ClientPort,
// when nonzero, additionally restricts matches to that specific client
// port; zero matches any client. The omni dispatcher does not use a
// Parser: it reads frames through ParseAny.
type Parser struct {
	ServerPort layers.TCPPort
	ClientPort layers.TCPPort
}

// NewParser returns a Parser bound to serverPort with no client-port
// restriction.
func NewParser(serverPort int) *Parser {
	return &Parser{ServerPort: layers.TCPPort(serverPort)}
}

// Parse decodes one gopacket.Packet, pulled from a pcap handle by the
// capture loop, into a Frame.
func (p *Parser) Parse(pkt gopacket.Packet) (Frame, error) {
	networkLayer := pkt.NetworkLayer()
	if networkLayer == nil {
		return Frame{}, ErrBadPacket
	}
	tcpLayer := pkt.Layer(layers.LayerTypeTCP)
	if tcpLayer == nil {
		return Frame{}, ErrBadPacket
	}
	tcp, ok := tcpLayer.(*layers.TCP)
	if !ok {
		return Frame{}, ErrBadPacket
	}

	if tcp.SrcPort != p.ServerPort && tcp.DstPort != p.ServerPort {
		return Frame{}, ErrBadPacket
	}
	if p.ClientPort != 0 {
		other := tcp.SrcPort
		if tcp.SrcPort == p.ServerPort {
			other = tcp.DstPort
		}
		if other != p.ClientPort {
			return Frame{}, ErrBadPacket
		}
	}

	srcIP, dstIP := networkLayer.NetworkFlow().Endpoints()
	src := addr.New(net.IP(srcIP.Raw()), int(tcp.SrcPort))
	dst := addr.New(net.IP(dstIP.Raw()), int(tcp.DstPort))

	direction := ServerToClient
	if tcp.DstPort == p.ServerPort {
		direction = ClientToServer
	}

	return Frame{
		Payload:   tcp.LayerPayload(),
		Src:       src,
		Dst:       dst,
		Seq:       tcp.Seq,
		RST:       tcp.RST,
		Direction: direction,
	}, nil
}

// ParseAny extracts a Frame from pkt without restricting to a single
// known server port, for the omni dispatcher, which discovers the
// ports it cares about at runtime instead of being configured with one
// up front. Direction is left at its zero value (ClientToServer) since
// neither side is known to be "the server" yet.
func ParseAny(pkt gopacket.Packet) (Frame, error) {
	networkLayer := pkt.NetworkLayer()
	if networkLayer == nil {
		return Frame{}, ErrBadPacket
	}
	tcpLayer := pkt.Layer(layers.LayerTypeTCP)
	if tcpLayer == nil {
		return Frame{}, ErrBadPacket
	}
	tcp, ok := tcpLayer.(*layers.TCP)
	if !ok {
		return Frame{}, ErrBadPacket
	}

	srcIP, dstIP := networkLayer.NetworkFlow().Endpoints()
	return Frame{
		Payload: tcp.LayerPayload(),
		Src:     addr.New(net.IP(srcIP.Raw()), int(tcp.SrcPort)),
		Dst:     addr.New(net.IP(dstIP.Raw()), int(tcp.DstPort)),
		Seq:     tcp.Seq,
		RST:     tcp.RST,
	}, nil
}

