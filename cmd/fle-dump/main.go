// Copyright 2026 Twitter, Inc.
// Licensed under the Apache License, Version 2.0.

// fle-dump captures fast-leader-election traffic on one interface/port
// and prints each decoded message as it is seen.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"

	"github.com/twitter/zktraffic/internal/capture"
	"github.com/twitter/zktraffic/internal/fle"
	"github.com/twitter/zktraffic/internal/frame"
	"github.com/twitter/zktraffic/internal/printer"
	"github.com/twitter/zktraffic/internal/zkcancel"
)

type sniffCmd struct {
	device      string
	offlineFile string
	port        int
	promisc     bool
}

func (*sniffCmd) Name() string     { return "sniff" }
func (*sniffCmd) Synopsis() string { return "decode and print FLE traffic" }
func (*sniffCmd) Usage() string {
	return "sniff -i <device> -p <fle_port> [flags...]\n"
}

func (c *sniffCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.device, "i", "", "interface to capture live from")
	f.StringVar(&c.offlineFile, "r", "", "replay a pcap file instead of capturing live")
	f.IntVar(&c.port, "p", 3888, "FLE election port")
	f.BoolVar(&c.promisc, "promisc", false, "enable promiscuous mode")
}

func (c *sniffCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, stop := zkcancel.OnSignals(ctx, os.Interrupt)
	defer stop()

	sink := fleSink{}
	err := capture.Run(ctx, capture.Options{
		Device:      c.device,
		OfflineFile: c.offlineFile,
		ServerPort:  c.port,
		Promisc:     c.promisc,
	}, sink)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type fleSink struct{}

func (fleSink) Feed(f frame.Frame, ts time.Time) error {
	if len(f.Payload) == 0 {
		return nil
	}
	msg, err := fle.Decode(f.Payload, f.Src, f.Dst, ts)
	if err != nil {
		return nil // BadPacket, not of interest
	}
	printer.Line(os.Stdout, msg)
	return nil
}

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&sniffCmd{}, "")

	flag.Parse()
	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx)))
}
