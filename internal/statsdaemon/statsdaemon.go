// Copyright 2026 Twitter, Inc.
// Licensed under the Apache License, Version 2.0.

// Package statsdaemon accumulates bounded in-memory counters from the
// typed event stream and serves them as JSON over the wire contract
// named in the external-interfaces section of the network protocol
// this module decodes: /json/paths, /json/ips, /json/auths,
// /json/auths-dump, /json/info and /json/health.
package statsdaemon

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/twitter/zktraffic/internal/addr"
	"github.com/twitter/zktraffic/internal/event"
)

// DefaultAuthDumpCap bounds the number of recent SetAuth observations
// kept for the /json/auths-dump endpoint.
const DefaultAuthDumpCap = 1000

// pathCounters tracks per-path request volume and cumulative latency.
type pathCounters struct {
	Count      uint64        `json:"count"`
	TotalNanos int64         `json:"-"`
	MaxLatency time.Duration `json:"-"`
}

type ipCounters struct {
	Requests uint64 `json:"requests"`
	Replies  uint64 `json:"replies"`
}

type authEvent struct {
	Client    string    `json:"client"`
	Scheme    string    `json:"scheme"`
	Timestamp time.Time `json:"timestamp"`
}

// Stats is an event.Handler that accumulates bounded counters. It is
// safe for concurrent use: Handle is called from the consumer worker
// that drains the event queue, while the JSON handlers read it from
// arbitrary HTTP goroutines.
type Stats struct {
	mu        sync.Mutex
	started   time.Time
	events    uint64
	overflows uint64
	paths     map[string]*pathCounters
	ips       map[string]*ipCounters
	auths     map[string]uint64
	authLog   []authEvent
	authCap   int
}

// New returns an empty Stats. An authDumpCap <= 0 uses
// DefaultAuthDumpCap.
func New(authDumpCap int) *Stats {
	if authDumpCap <= 0 {
		authDumpCap = DefaultAuthDumpCap
	}
	return &Stats{
		started: time.Now(),
		paths:   make(map[string]*pathCounters),
		ips:     make(map[string]*ipCounters),
		auths:   make(map[string]uint64),
		authCap: authDumpCap,
	}
}

// Handle implements event.Handler.
func (s *Stats) Handle(e event.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events++

	switch v := e.(type) {
	case event.Pair:
		s.recordPair(v)
	case event.CloseEvent:
		s.touchIP(v.Close.Client, true, false)
	case event.WatchEvent:
		s.touchIP(v.WatchEvent.Client, false, true)
	case event.Overflow:
		s.overflows += v.Count
	case event.FLEEvent, event.ZABEvent:
		// Quorum traffic carries no client path or auth to account for.
	}
}

func (s *Stats) recordPair(p event.Pair) {
	h := p.Request.Head()
	s.touchIP(h.Client, true, false)
	if p.Reply != nil {
		s.touchIP(h.Client, false, true)
	}

	if h.Auth != "" {
		s.auths[h.Auth]++
		s.authLog = append(s.authLog, authEvent{Client: string(h.Client), Scheme: h.Auth, Timestamp: h.Timestamp})
		if len(s.authLog) > s.authCap {
			s.authLog = s.authLog[len(s.authLog)-s.authCap:]
		}
	}

	if h.Path == "" {
		return
	}
	pc, ok := s.paths[h.Path]
	if !ok {
		pc = &pathCounters{}
		s.paths[h.Path] = pc
	}
	pc.Count++
	if p.Reply != nil {
		latency := p.Latency()
		pc.TotalNanos += int64(latency)
		if latency > pc.MaxLatency {
			pc.MaxLatency = latency
		}
	}
}

func (s *Stats) touchIP(client addr.Endpoint, req, reply bool) {
	ip := client.Host()
	c, ok := s.ips[ip]
	if !ok {
		c = &ipCounters{}
		s.ips[ip] = c
	}
	if req {
		c.Requests++
	}
	if reply {
		c.Replies++
	}
}

type pathJSON struct {
	Path         string  `json:"path"`
	Count        uint64  `json:"count"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	MaxLatencyMs float64 `json:"max_latency_ms"`
}

// Paths returns per-path counters sorted by descending request count.
func (s *Stats) Paths() []pathJSON {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]pathJSON, 0, len(s.paths))
	for path, pc := range s.paths {
		avg := 0.0
		if pc.Count > 0 {
			avg = float64(pc.TotalNanos) / float64(pc.Count) / float64(time.Millisecond)
		}
		out = append(out, pathJSON{
			Path:         path,
			Count:        pc.Count,
			AvgLatencyMs: avg,
			MaxLatencyMs: float64(pc.MaxLatency) / float64(time.Millisecond),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

type ipJSON struct {
	IP       string `json:"ip"`
	Requests uint64 `json:"requests"`
	Replies  uint64 `json:"replies"`
}

// IPs returns per-client counters sorted by descending request count.
func (s *Stats) IPs() []ipJSON {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ipJSON, 0, len(s.ips))
	for ip, c := range s.ips {
		out = append(out, ipJSON{IP: ip, Requests: c.Requests, Replies: c.Replies})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Requests > out[j].Requests })
	return out
}

type authJSON struct {
	Scheme string `json:"scheme"`
	Count  uint64 `json:"count"`
}

// Auths returns per-scheme SetAuth counts sorted by descending count.
func (s *Stats) Auths() []authJSON {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]authJSON, 0, len(s.auths))
	for scheme, count := range s.auths {
		out = append(out, authJSON{Scheme: scheme, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// AuthsDump returns the bounded recent-SetAuth log, oldest first.
func (s *Stats) AuthsDump() []authEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]authEvent, len(s.authLog))
	copy(out, s.authLog)
	return out
}

// Info is the /json/info payload: uptime and cumulative event/overflow
// counts since start.
type Info struct {
	UptimeSeconds float64 `json:"uptime_seconds"`
	Events        uint64  `json:"events"`
	Overflows     uint64  `json:"overflows"`
	Paths         int     `json:"paths"`
	IPs           int     `json:"ips"`
}

func (s *Stats) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{
		UptimeSeconds: time.Since(s.started).Seconds(),
		Events:        s.events,
		Overflows:     s.overflows,
		Paths:         len(s.paths),
		IPs:           len(s.ips),
	}
}

// Server wires a Stats into the JSON HTTP surface via httprouter.
type Server struct {
	stats  *Stats
	router *httprouter.Router
}

// NewServer builds a Server backed by stats, ready to pass as an
// http.Handler.
func NewServer(stats *Stats) *Server {
	s := &Server{stats: stats, router: httprouter.New()}
	s.router.GET("/json/paths", s.handlePaths)
	s.router.GET("/json/ips", s.handleIPs)
	s.router.GET("/json/auths", s.handleAuths)
	s.router.GET("/json/auths-dump", s.handleAuthsDump)
	s.router.GET("/json/info", s.handleInfo)
	s.router.GET("/json/health", s.handleHealth)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handlePaths(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, s.stats.Paths())
}

func (s *Server) handleIPs(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, s.stats.IPs())
}

func (s *Server) handleAuths(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, s.stats.Auths())
}

func (s *Server) handleAuthsDump(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, s.stats.AuthsDump())
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, s.stats.Info())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, map[string]string{"status": "ok"})
}
