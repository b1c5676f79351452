package network

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"

	"crosscursors/internal/protocol"
)

// waitFor polls cond until it reports true or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

func startBroadcaster(t *testing.T) *Broadcaster {
	t.Helper()
	b := NewBroadcaster("127.0.0.1", 0)
	if err := b.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(b.Stop)
	return b
}

func dialBroadcaster(t *testing.T, b *Broadcaster) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", b.Addr())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	line, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("ReadString failed: %v", err)
	}
	return strings.TrimSuffix(line, "\n")
}

// TestBroadcastDeliversInOrder tests that every connected client receives
// every published event, in publish order.
func TestBroadcastDeliversInOrder(t *testing.T) {
	b := startBroadcaster(t)

	connA := dialBroadcaster(t, b)
	connB := dialBroadcaster(t, b)
	waitFor(t, "both clients registered", func() bool { return b.PeerCount() == 2 })

	events := []protocol.Event{
		protocol.MoveAbsolute(1, 2),
		protocol.Press(protocol.ButtonLeft),
		protocol.Scroll(0, -1),
		protocol.Release(protocol.ButtonLeft),
	}
	for _, ev := range events {
		b.Broadcast(ev)
	}

	for _, conn := range []net.Conn{connA, connB} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		r := bufio.NewReader(conn)
		for i, want := range events {
			got, ok := protocol.Decode([]byte(readFrame(t, r)))
			if !ok {
				t.Fatalf("Frame %d did not decode", i)
			}
			if got != want {
				t.Errorf("Frame %d: got %+v, want %+v", i, got, want)
			}
		}
	}
}

// TestBroadcastDropsStalePeer tests that a failed write evicts only the
// failing client and the rest keep receiving frames.
func TestBroadcastDropsStalePeer(t *testing.T) {
	b := startBroadcaster(t)

	connA := dialBroadcaster(t, b)
	connB := dialBroadcaster(t, b)
	waitFor(t, "both clients registered", func() bool { return b.PeerCount() == 2 })

	connA.Close()

	// The dead connection is only noticed on a write, possibly after a few
	// buffered sends.
	sent := 0
	waitFor(t, "stale client eviction", func() bool {
		b.Broadcast(protocol.MoveAbsolute(sent, 0))
		sent++
		return b.PeerCount() == 1
	})
	b.Broadcast(protocol.Press(protocol.ButtonRight))
	sent++

	connB.SetReadDeadline(time.Now().Add(2 * time.Second))
	r := bufio.NewReader(connB)
	for i := 0; i < sent; i++ {
		if _, ok := protocol.Decode([]byte(readFrame(t, r))); !ok {
			t.Fatalf("Frame %d did not decode", i)
		}
	}
}

// TestBroadcastOnlyWhileConnected tests that a client sees exactly the
// events published while it was connected.
func TestBroadcastOnlyWhileConnected(t *testing.T) {
	b := startBroadcaster(t)

	b.Broadcast(protocol.MoveAbsolute(1, 1)) // nobody connected, dropped

	conn := dialBroadcaster(t, b)
	waitFor(t, "client registered", func() bool { return b.PeerCount() == 1 })

	b.Broadcast(protocol.MoveAbsolute(2, 2))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	r := bufio.NewReader(conn)
	got, ok := protocol.Decode([]byte(readFrame(t, r)))
	if !ok || got.X != 2 {
		t.Errorf("Expected the post-connect event first, got %+v ok=%v", got, ok)
	}
}

// TestStartIdempotent tests that a second Start while running is a no-op.
func TestStartIdempotent(t *testing.T) {
	b := startBroadcaster(t)
	addr := b.Addr()
	if err := b.Start(); err != nil {
		t.Fatalf("Second Start failed: %v", err)
	}
	if b.Addr() != addr {
		t.Errorf("Second Start rebound the listener: %s != %s", b.Addr(), addr)
	}
}

// TestBindError tests that an occupied port surfaces ErrBind.
func TestBindError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port
	b := NewBroadcaster("127.0.0.1", port)
	err = b.Start()
	if err == nil {
		b.Stop()
		t.Fatal("Expected Start to fail on an occupied port")
	}
	if !isErr(err, ErrBind) {
		t.Errorf("Expected ErrBind, got %v", err)
	}
}

// TestStopClosesClients tests that Stop disconnects clients, clears the
// registry and is safe to call twice.
func TestStopClosesClients(t *testing.T) {
	b := startBroadcaster(t)

	conn := dialBroadcaster(t, b)
	waitFor(t, "client registered", func() bool { return b.PeerCount() == 1 })

	b.Stop()
	b.Stop()

	if b.PeerCount() != 0 {
		t.Errorf("Expected empty registry after Stop, got %d", b.PeerCount())
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := conn.Read(make([]byte, 1)); err == nil {
		t.Error("Expected the client connection to be closed")
	}
}

// TestPeerChangeCallback tests connect and drop notifications.
func TestPeerChangeCallback(t *testing.T) {
	b := NewBroadcaster("127.0.0.1", 0)

	type change struct {
		connected bool
		total     int
	}
	changes := make(chan change, 16)
	b.OnPeerChange = func(addr string, connected bool, total int) {
		changes <- change{connected, total}
	}

	if err := b.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer b.Stop()

	conn, err := net.Dial("tcp", b.Addr())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}

	select {
	case c := <-changes:
		if !c.connected || c.total != 1 {
			t.Errorf("Unexpected connect notification: %+v", c)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for connect notification")
	}

	conn.Close()
	waitFor(t, "drop notification", func() bool {
		b.Broadcast(protocol.MoveAbsolute(0, 0))
		select {
		case c := <-changes:
			if c.connected || c.total != 0 {
				t.Errorf("Unexpected drop notification: %+v", c)
			}
			return true
		default:
			return false
		}
	})
}
