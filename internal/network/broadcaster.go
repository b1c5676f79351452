// Package network carries pointer events between the origin machine and its
// followers over plain TCP, one newline-delimited JSON frame per event.
package network

import (
	"fmt"
	"log"
	"net"
	"strconv"
	"sync"

	"crosscursors/internal/protocol"
)

// clientConn is one follower connection, owned by the broadcaster registry.
type clientConn struct {
	conn net.Conn
	addr string
}

// Broadcaster is the origin-side TCP server. Every event published with
// Broadcast is fanned out to all currently connected followers in publish
// order. Delivery is fire-and-forget: a follower whose write fails is closed
// and dropped, without affecting the others.
type Broadcaster struct {
	bind string
	port int

	// OnPeerChange, if set, is invoked after a follower connects or is
	// dropped, with the follower address and the new registry size.
	OnPeerChange func(addr string, connected bool, total int)

	mu       sync.Mutex
	listener net.Listener
	clients  []*clientConn
	running  bool
}

// NewBroadcaster creates a broadcaster that will listen on bind:port.
func NewBroadcaster(bind string, port int) *Broadcaster {
	return &Broadcaster{bind: bind, port: port}
}

// Start binds the listen socket and begins accepting followers in a dedicated
// goroutine. Calling Start while already running is a no-op.
func (b *Broadcaster) Start() error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return nil
	}

	addr := net.JoinHostPort(b.bind, strconv.Itoa(b.port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		b.mu.Unlock()
		return fmt.Errorf("%w: %s: %v", ErrBind, addr, err)
	}
	b.listener = ln
	b.running = true
	b.mu.Unlock()

	log.Printf("Broadcaster: listening on %s", ln.Addr())
	go b.acceptLoop(ln)
	return nil
}

// Addr returns the bound listen address, or "" before Start.
func (b *Broadcaster) Addr() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listener == nil {
		return ""
	}
	return b.listener.Addr().String()
}

func (b *Broadcaster) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			// Stop closes the listener; an accept error after that is
			// termination, not failure.
			b.mu.Lock()
			running := b.running
			b.mu.Unlock()
			if running {
				log.Printf("Broadcaster: accept error: %v", err)
			}
			return
		}

		client := &clientConn{conn: conn, addr: conn.RemoteAddr().String()}
		b.mu.Lock()
		b.clients = append(b.clients, client)
		total := len(b.clients)
		b.mu.Unlock()

		log.Printf("Broadcaster: client connected: %s (%d total)", client.addr, total)
		if b.OnPeerChange != nil {
			b.OnPeerChange(client.addr, true, total)
		}
	}
}

// Broadcast serializes the event once and writes the frame to every
// registered follower. Followers whose write fails are closed and removed
// after the fan-out pass; their failure never blocks delivery to the rest.
func (b *Broadcaster) Broadcast(ev protocol.Event) {
	frame := protocol.Encode(ev)
	if frame == nil {
		return
	}

	var dropped []*clientConn

	b.mu.Lock()
	var stale map[*clientConn]bool
	for _, c := range b.clients {
		if _, err := c.conn.Write(frame); err != nil {
			if stale == nil {
				stale = make(map[*clientConn]bool)
			}
			stale[c] = true
		}
	}
	if stale != nil {
		kept := b.clients[:0]
		for _, c := range b.clients {
			if stale[c] {
				c.conn.Close()
				dropped = append(dropped, c)
				continue
			}
			kept = append(kept, c)
		}
		b.clients = kept
	}
	total := len(b.clients)
	b.mu.Unlock()

	for _, c := range dropped {
		log.Printf("Broadcaster: dropping stale client %s", c.addr)
		if b.OnPeerChange != nil {
			b.OnPeerChange(c.addr, false, total)
		}
	}
}

// PeerCount returns the number of currently registered followers.
func (b *Broadcaster) PeerCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Stop closes the listen socket and every follower connection and clears the
// registry. Safe to call repeatedly.
func (b *Broadcaster) Stop() {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	b.running = false
	ln := b.listener
	b.listener = nil
	clients := b.clients
	b.clients = nil
	b.mu.Unlock()

	if ln != nil {
		ln.Close()
	}
	for _, c := range clients {
		c.conn.Close()
	}
	log.Printf("Broadcaster: stopped")
}
