// Copyright 2026 Twitter, Inc.
// Licensed under the Apache License, Version 2.0.

// zk-dump captures ZK client<->server traffic on one interface/port,
// pairs each request with its reply, and prints the pairs as they
// settle.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"

	"github.com/twitter/zktraffic/internal/addr"
	"github.com/twitter/zktraffic/internal/capture"
	"github.com/twitter/zktraffic/internal/correlate"
	"github.com/twitter/zktraffic/internal/event"
	"github.com/twitter/zktraffic/internal/frame"
	"github.com/twitter/zktraffic/internal/printer"
	"github.com/twitter/zktraffic/internal/zkcancel"
	"github.com/twitter/zktraffic/internal/zkclient"
	"github.com/twitter/zktraffic/internal/zkserver"
	"github.com/twitter/zktraffic/internal/zksession"
)

type sniffCmd struct {
	device      string
	offlineFile string
	port        int
	promisc     bool
}

func (*sniffCmd) Name() string     { return "sniff" }
func (*sniffCmd) Synopsis() string { return "pair and print ZK client/server traffic" }
func (*sniffCmd) Usage() string {
	return "sniff -i <device> -p <client_port> [flags...]\n"
}

func (c *sniffCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.device, "i", "", "interface to capture live from")
	f.StringVar(&c.offlineFile, "r", "", "replay a pcap file instead of capturing live")
	f.IntVar(&c.port, "p", 2181, "ZK client port")
	f.BoolVar(&c.promisc, "promisc", false, "enable promiscuous mode")
}

func (c *sniffCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, stop := zkcancel.OnSignals(ctx, os.Interrupt)
	defer stop()

	queue := event.NewQueue("zk-dump", 0)
	p := printer.New(os.Stdout)
	done := make(chan struct{})
	go func() {
		defer close(done)
		drainUntilStopped(ctx, queue, p)
	}()

	sink := &zkSink{
		serverPort: c.port,
		sessions:   make(map[addr.Endpoint]*zksession.Session),
		pairs:      correlate.New(queue, 0),
	}
	err := capture.Run(ctx, capture.Options{
		Device:      c.device,
		OfflineFile: c.offlineFile,
		ServerPort:  c.port,
		Promisc:     c.promisc,
	}, sink)
	<-done
	queue.DrainTo(p)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// drainUntilStopped repeatedly drains queue to h until ctx is done,
// pausing briefly between empty drains rather than busy-spinning.
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

type zkSink struct {
	serverPort int
	sessions   map[addr.Endpoint]*zksession.Session
	pairs      *correlate.Correlator
}

func (s *zkSink) Feed(f frame.Frame, ts time.Time) error {
	if len(f.Payload) == 0 {
		return nil
	}
	client := f.Src
	if f.Direction == frame.ServerToClient {
		client = f.Dst
	}

	sess, ok := s.sessions[client]
	if !ok {
		sess = zksession.NewSession(0)
		s.sessions[client] = sess
	}

	if f.Direction == frame.ClientToServer {
		req, err := zkclient.Decode(f.Payload, client, ts)
		if err != nil {
			return nil
		}
		sess.Remember(req.Head().Xid, req.Head().Opcode)
		s.pairs.Request(client, req)
		return nil
	}

	reply, err := zkserver.Decode(f.Payload, client, ts, sess)
	if err != nil {
		return nil
	}
	switch r := reply.(type) {
	case *zkserver.WatchEvent:
		s.pairs.Watch(r)
	case *zkserver.Reply:
		s.pairs.Reply(client, r)
	}
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
