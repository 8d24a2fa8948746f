// Copyright 2026 Twitter, Inc.
// Licensed under the Apache License, Version 2.0.

// omni-dump captures an entire ensemble's traffic (FLE, ZAB and ZK
// client traffic alike), discovering the ensemble's topology from
// election messages, and prints every decoded event.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"

	"github.com/twitter/zktraffic/internal/capture"
	"github.com/twitter/zktraffic/internal/event"
	"github.com/twitter/zktraffic/internal/omni"
	"github.com/twitter/zktraffic/internal/printer"
	"github.com/twitter/zktraffic/internal/zkcancel"
)

type sniffCmd struct {
	device      string
	offlineFile string
	promisc     bool
}

func (*sniffCmd) Name() string     { return "sniff" }
func (*sniffCmd) Synopsis() string { return "discover ensemble topology and print all decoded traffic" }
func (*sniffCmd) Usage() string {
	return "sniff -i <device> [flags...]\n"
}

func (c *sniffCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.device, "i", "", "interface to capture live from")
	f.StringVar(&c.offlineFile, "r", "", "replay a pcap file instead of capturing live")
	f.BoolVar(&c.promisc, "promisc", false, "enable promiscuous mode")
}

func (c *sniffCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, stop := zkcancel.OnSignals(ctx, os.Interrupt)
	defer stop()

	queue := event.NewQueue("omni-dump", 0)
	p := printer.New(os.Stdout)
	done := make(chan struct{})
	go func() {
		defer close(done)
		drainUntilStopped(ctx, queue, p)
	}()

	dispatcher := omni.New(queue)
	err := capture.Run(ctx, capture.Options{
		Device:      c.device,
		OfflineFile: c.offlineFile,
		AnyPort:     true,
		Promisc:     c.promisc,
	}, dispatcher)
	<-done
	queue.DrainTo(p)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func drainUntilStopped(ctx context.Context, queue *event.Queue, h event.Handler) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			queue.DrainTo(h)
		}
	}
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
