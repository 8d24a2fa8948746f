// Copyright 2026 Twitter, Inc.
// Licensed under the Apache License, Version 2.0.

// Package capture owns the single capture-source loop the dump tools
// share: open a live interface or an offline pcap file, hand every
// packet to a frame.Parser, and feed the resulting frames to a sink
// until the run is cancelled.
package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"github.com/twitter/zktraffic/internal/frame"
	"github.com/twitter/zktraffic/internal/zklog"
)

// DefaultSnapLen is large enough to capture a full ZK/ZAB/FLE frame
// without truncation for any payload this sniffer decodes.
const DefaultSnapLen = 65536

// Sink receives every frame the capture loop parses, along with its
// capture timestamp.
type Sink interface {
	Feed(f frame.Frame, ts time.Time) error
}

// Options configures a Run.
type Options struct {
	// Device is the interface to capture live from (e.g. "eth0" or
	// "lo"). Ignored when OfflineFile is set.
	Device string
	// OfflineFile, if non-empty, replays a pcap file instead of
	// capturing live.
	OfflineFile string
	// ServerPort is the TCP port whose traffic frame.Parser recognizes.
	// Ignored when AnyPort is set.
	ServerPort int
	// AnyPort captures every TCP flow via frame.ParseAny instead of
	// restricting to ServerPort, for callers (the omni dispatcher) that
	// discover the ports they care about at runtime.
	AnyPort bool
	// ClientPort optionally restricts capture to a single known client
	// port; zero means any port.
	ClientPort int
	// Promisc enables promiscuous mode on a live capture.
	Promisc bool
	// SnapLen bounds how much of each packet is captured; <= 0 uses
	// DefaultSnapLen.
	SnapLen int32
	// BPFFilter, if non-empty, is applied at the capture handle.
	BPFFilter string
}

// Run opens the configured source and feeds frames to sink until ctx
// is cancelled or the packet source is exhausted (the normal end of an
// offline replay).
func Run(ctx context.Context, opts Options, sink Sink) error {
	handle, err := open(opts)
	if err != nil {
		return err
	}
	defer handle.Close()

	if opts.BPFFilter != "" {
		if err := handle.SetBPFFilter(opts.BPFFilter); err != nil {
			return fmt.Errorf("capture: setting BPF filter %q: %w", opts.BPFFilter, err)
		}
	}

	var parser *frame.Parser
	if !opts.AnyPort {
		parser = frame.NewParser(opts.ServerPort)
		if opts.ClientPort != 0 {
			parser.ClientPort = layers.TCPPort(opts.ClientPort)
		}
	}

	source := gopacket.NewPacketSource(handle, handle.LinkType())
	packets := source.Packets()

	zklog.Infof(ctx, "capture: listening, server_port=%d any_port=%v", opts.ServerPort, opts.AnyPort)
	for {
		select {
		case <-ctx.Done():
			zklog.Infof(ctx, "capture: stopping")
			return nil
		case pkt, ok := <-packets:
			if !ok {
				return nil // offline replay exhausted
			}
			var f frame.Frame
			var err error
			if opts.AnyPort {
				f, err = frame.ParseAny(pkt)
			} else {
				f, err = parser.Parse(pkt)
			}
			if err != nil {
				continue // BadPacket: not of interest
			}
			ts := pkt.Metadata().Timestamp
			if ts.IsZero() {
				ts = time.Now()
			}
			if err := sink.Feed(f, ts); err != nil {
				return err // Fatal: e.g. an omni registration conflict
			}
		}
	}
}

func open(opts Options) (*pcap.Handle, error) {
	snaplen := opts.SnapLen
	if snaplen <= 0 {
		snaplen = DefaultSnapLen
	}
	if opts.OfflineFile != "" {
		handle, err := pcap.OpenOffline(opts.OfflineFile)
		if err != nil {
			return nil, fmt.Errorf("capture: opening %q: %w", opts.OfflineFile, err)
		}
		return handle, nil
	}
	if opts.Device == "" {
		return nil, fmt.Errorf("capture: no device or offline file given")
	}
	handle, err := pcap.OpenLive(opts.Device, snaplen, opts.Promisc, pcap.BlockForever)
	if err != nil {
		return nil, fmt.Errorf("capture: opening interface %q: %w", opts.Device, err)
	}
	return handle, nil
}
