// Copyright 2026 Twitter, Inc.
// Licensed under the Apache License, Version 2.0.

package frame

import (
	"net"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

func buildTCPPacket(t *testing.T, srcIP, dstIP net.IP, srcPort, dstPort layers.TCPPort, seq uint32, rst bool, payload []byte) gopacket.Packet {
	t.Helper()

	eth := &layers.Ethernet{EthernetType: layers.EthernetTypeIPv4}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    srcIP,
		DstIP:    dstIP,
	}
	tcp := &layers.TCP{
		SrcPort: srcPort,
		DstPort: dstPort,
		Seq:     seq,
		RST:     rst,
		ACK:     true,
		Window:  1024,
	}
	if err := tcp.SetNetworkLayerForChecksum(ip); err != nil {
		t.Fatalf("SetNetworkLayerForChecksum: %v", err)
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, ip, tcp, gopacket.Payload(payload)); err != nil {
		t.Fatalf("SerializeLayers: %v", err)
	}
	return gopacket.NewPacket(buf.Bytes(), layers.LayerTypeEthernet, gopacket.Default)
}

func TestParseClientToServer(t *testing.T) {
	p := NewParser(2181)
	pkt := buildTCPPacket(t, net.IPv4(10, 0, 0, 2), net.IPv4(10, 0, 0, 1), 51000, 2181, 100, false, []byte("hello"))

	f, err := p.Parse(pkt)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.Direction != ClientToServer {
		t.Errorf("Direction = %v, want ClientToServer", f.Direction)
	}
	if string(f.Payload) != "hello" {
		t.Errorf("Payload = %q, want %q", f.Payload, "hello")
	}
	if f.Src.Port() != 51000 || f.Dst.Port() != 2181 {
		t.Errorf("endpoints = %s -> %s, unexpected ports", f.Src, f.Dst)
	}
}

func TestParseServerToClient(t *testing.T) {
	p := NewParser(2181)
	pkt := buildTCPPacket(t, net.IPv4(10, 0, 0, 1), net.IPv4(10, 0, 0, 2), 2181, 51000, 200, false, []byte("world"))

	f, err := p.Parse(pkt)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.Direction != ServerToClient {
		t.Errorf("Direction = %v, want ServerToClient", f.Direction)
	}
}

func TestParseIgnoresUnrelatedPort(t *testing.T) {
	p := NewParser(2181)
	pkt := buildTCPPacket(t, net.IPv4(10, 0, 0, 1), net.IPv4(10, 0, 0, 2), 80, 51000, 1, false, nil)

	if _, err := p.Parse(pkt); err != ErrBadPacket {
		t.Fatalf("Parse error = %v, want ErrBadPacket", err)
	}
}

func TestParseReportsRST(t *testing.T) {
	p := NewParser(2181)
	pkt := buildTCPPacket(t, net.IPv4(10, 0, 0, 2), net.IPv4(10, 0, 0, 1), 51000, 2181, 300, true, nil)

	f, err := p.Parse(pkt)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !f.RST {
		t.Error("RST = false, want true")
	}
}

func TestParseHonorsClientPortRestriction(t *testing.T) {
	p := &Parser{ServerPort: 2181, ClientPort: 51000}
	wrongClient := buildTCPPacket(t, net.IPv4(10, 0, 0, 3), net.IPv4(10, 0, 0, 1), 51111, 2181, 1, false, nil)
	if _, err := p.Parse(wrongClient); err != ErrBadPacket {
		t.Fatalf("Parse error = %v, want ErrBadPacket for mismatched client port", err)
	}

	rightClient := buildTCPPacket(t, net.IPv4(10, 0, 0, 3), net.IPv4(10, 0, 0, 1), 51000, 2181, 1, false, nil)
	if _, err := p.Parse(rightClient); err != nil {
		t.Fatalf("Parse: %v", err)
	}
}

func TestParseAnyAcceptsAnyPort(t *testing.T) {
	pkt := buildTCPPacket(t, net.IPv4(10, 0, 0, 4), net.IPv4(10, 0, 0, 5), 3888, 3888, 7, false, []byte("fle"))

	f, err := ParseAny(pkt)
	if err != nil {
		t.Fatalf("ParseAny: %v", err)
	}
	if string(f.Payload) != "fle" {
		t.Errorf("Payload = %q, want %q", f.Payload, "fle")
	}
	if f.Src.Port() != 3888 || f.Dst.Port() != 3888 {
		t.Errorf("endpoints = %s -> %s, unexpected ports", f.Src, f.Dst)
	}
}

func TestParseAnyRejectsNonTCP(t *testing.T) {
	eth := &layers.Ethernet{EthernetType: layers.EthernetTypeIPv4}
	ip := &layers.IPv4{Version: 4, TTL: 64, Protocol: layers.IPProtocolUDP, SrcIP: net.IPv4(10, 0, 0, 1), DstIP: net.IPv4(10, 0, 0, 2)}
	udp := &layers.UDP{SrcPort: 1, DstPort: 2}
	_ = udp.SetNetworkLayerForChecksum(ip)

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, ip, udp); err != nil {
		t.Fatalf("SerializeLayers: %v", err)
	}
	pkt := gopacket.NewPacket(buf.Bytes(), layers.LayerTypeEthernet, gopacket.Default)

	if _, err := ParseAny(pkt); err != ErrBadPacket {
		t.Fatalf("ParseAny error = %v, want ErrBadPacket for a UDP packet", err)
	}
}
