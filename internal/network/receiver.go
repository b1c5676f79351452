package network

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strconv"
	"sync"
	"time"

	"crosscursors/internal/display"
	"crosscursors/internal/input"
	"crosscursors/internal/protocol"
)

// Status values reported through Receiver.OnStatus.
const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
	StatusError        = "error"
)

const dialTimeout = 5 * time.Second

// Receiver is the follower-side TCP client. It reconstructs the ordered event
// stream a broadcaster published on the connection, regardless of how the
// frames were split across reads, and replays each decoded event into the
// pointer-injection sink.
//
// Connection loss is terminal for a session: the receiver reports it through
// OnStatus and exits its read loop. Retrying is the caller's decision.
type Receiver struct {
	host        string
	port        int
	readTimeout time.Duration

	sink     input.Injector
	displays display.Provider

	// OnStatus, if set, receives connected/disconnected/error transitions.
	OnStatus func(status, message string)

	conn     net.Conn
	done     chan struct{}
	stopOnce sync.Once
}

// NewReceiver creates a receiver that will replay events from host:port into
// sink, remapping relative moves onto the provider's primary display. The
// read timeout bounds how long Stop may go unobserved by a blocked read.
func NewReceiver(host string, port int, readTimeout time.Duration, sink input.Injector, displays display.Provider) *Receiver {
	if readTimeout <= 0 {
		readTimeout = 50 * time.Millisecond
	}
	return &Receiver{
		host:        host,
		port:        port,
		readTimeout: readTimeout,
		sink:        sink,
		displays:    displays,
		done:        make(chan struct{}),
	}
}

// Start connects to the broadcaster and launches the read loop goroutine.
func (r *Receiver) Start() error {
	addr := net.JoinHostPort(r.host, strconv.Itoa(r.port))
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrConnect, addr, err)
	}
	r.conn = conn

	log.Printf("Receiver: connected to %s", addr)
	r.status(StatusConnected, "connected to "+addr)

	go r.readLoop()
	return nil
}

func (r *Receiver) readLoop() {
	buf := make([]byte, 4096)
	var pending []byte

	for {
		select {
		case <-r.done:
			return
		default:
		}

		r.conn.SetReadDeadline(time.Now().Add(r.readTimeout))
		n, err := r.conn.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			pending = r.drain(pending)
		}
		if err == nil {
			continue
		}

		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			// Timeouts just re-poll so a stop request is observed promptly.
			continue
		}

		select {
		case <-r.done:
			// Stop closed the socket out from under the read.
			return
		default:
		}

		if errors.Is(err, io.EOF) {
			log.Printf("Receiver: server closed connection")
			r.status(StatusDisconnected, "server closed connection")
		} else {
			log.Printf("Receiver: read error: %v", err)
			r.status(StatusError, err.Error())
		}
		return
	}
}

// drain extracts and dispatches every complete frame in pending, returning
// the leftover bytes after the last newline.
func (r *Receiver) drain(pending []byte) []byte {
	for {
		i := bytes.IndexByte(pending, '\n')
		if i < 0 {
			return pending
		}
		line := pending[:i]
		pending = pending[i+1:]

		// Blank and malformed lines are discarded; the loop keeps going.
		ev, ok := protocol.Decode(line)
		if !ok {
			continue
		}
		r.dispatch(ev)
	}
}

func (r *Receiver) dispatch(ev protocol.Event) {
	switch ev.Type {
	case protocol.TypeMove:
		x, y := ev.X, ev.Y
		if ev.HasRel && ev.ScreenWidth > 0 && ev.ScreenHeight > 0 {
			if local, ok := r.displays.Primary(); ok {
				x, y = display.Remap(ev.XRel, ev.YRel, ev.ScreenWidth, ev.ScreenHeight, local)
			}
		}
		r.sink.MoveTo(x, y)
	case protocol.TypePress:
		r.sink.Press(ev.Button)
	case protocol.TypeRelease:
		r.sink.Release(ev.Button)
	case protocol.TypeScroll:
		r.sink.Scroll(ev.DX, ev.DY)
	}
}

func (r *Receiver) status(state, message string) {
	if r.OnStatus != nil {
		r.OnStatus(state, message)
	}
}

// Stop signals the read loop to exit and closes the socket. The loop observes
// it within one read timeout. Safe to call repeatedly.
func (r *Receiver) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
		if r.conn != nil {
			r.conn.Close()
		}
	})
}
