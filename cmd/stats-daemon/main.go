// Copyright 2026 Twitter, Inc.
// Licensed under the Apache License, Version 2.0.

// stats-daemon captures an ensemble's traffic the way omni-dump does,
// but accumulates counters instead of printing lines, and serves them
// over the /json/* HTTP endpoints until stopped.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/subcommands"

	"github.com/twitter/zktraffic/internal/capture"
	"github.com/twitter/zktraffic/internal/event"
	"github.com/twitter/zktraffic/internal/omni"
	"github.com/twitter/zktraffic/internal/statsdaemon"
	"github.com/twitter/zktraffic/internal/zkcancel"
	"github.com/twitter/zktraffic/internal/zklog"
)

type daemonCmd struct {
	device      string
	offlineFile string
	promisc     bool
	listenAddr  string
	authDumpCap int
}

func (*daemonCmd) Name() string     { return "serve" }
func (*daemonCmd) Synopsis() string { return "capture ensemble traffic and serve JSON stats" }
func (*daemonCmd) Usage() string {
	return "serve -i <device> -http <addr> [flags...]\n"
}

func (c *daemonCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.device, "i", "", "interface to capture live from")
	f.StringVar(&c.offlineFile, "r", "", "replay a pcap file instead of capturing live")
	f.BoolVar(&c.promisc, "promisc", false, "enable promiscuous mode")
	f.StringVar(&c.listenAddr, "http", ":7070", "address to serve /json/* endpoints on")
	f.IntVar(&c.authDumpCap, "auth-dump-cap", statsdaemon.DefaultAuthDumpCap, "entries kept for /json/auths-dump")
}

func (c *daemonCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, stop := zkcancel.OnSignals(ctx, os.Interrupt)
	defer stop()

	queue := event.NewQueue("stats-daemon", 0)
	stats := statsdaemon.New(c.authDumpCap)
	done := make(chan struct{})
	go func() {
		defer close(done)
		drainUntilStopped(ctx, queue, stats)
	}()

	httpServer := &http.Server{Addr: c.listenAddr, Handler: statsdaemon.NewServer(stats)}
	go func() {
		zklog.Infof(ctx, "stats-daemon: serving on %s", c.listenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zklog.Errorf(ctx, "stats-daemon: http server: %v", err)
		}
	}()

	dispatcher := omni.New(queue)
	err := capture.Run(ctx, capture.Options{
		Device:      c.device,
		OfflineFile: c.offlineFile,
		AnyPort:     true,
		Promisc:     c.promisc,
	}, dispatcher)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	<-done
	queue.DrainTo(stats)

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
	subcommands.Register(&daemonCmd{}, "")

	flag.Parse()
	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx)))
}
