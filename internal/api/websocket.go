package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Local network tool; accept any origin.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is the envelope pushed to status stream subscribers.
type Message struct {
	Type    string `json:"type"` // "sharing", "peer", "corner", "receiver"
	Active  bool   `json:"active,omitempty"`
	Address string `json:"address,omitempty"`
	Peers   int    `json:"peers,omitempty"`
	State   string `json:"state,omitempty"`
	Message string `json:"message,omitempty"`
}

// Hub fans status messages out to WebSocket subscribers.
type Hub struct {
	subscribers map[*subscriber]bool
	subMu       sync.RWMutex
	messages    chan Message
	register    chan *subscriber
	unregister  chan *subscriber
}

type subscriber struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	ip   string
}

func newHub() *Hub {
	return &Hub{
		subscribers: make(map[*subscriber]bool),
		messages:    make(chan Message, 64),
		register:    make(chan *subscriber),
		unregister:  make(chan *subscriber),
	}
}

func (h *Hub) run() {
	for {
		select {
		case sub := <-h.register:
			h.subMu.Lock()
			h.subscribers[sub] = true
			h.subMu.Unlock()
			log.Printf("API: status subscriber from %s (%d total)", sub.ip, len(h.subscribers))

		case sub := <-h.unregister:
			h.subMu.Lock()
			if _, ok := h.subscribers[sub]; ok {
				delete(h.subscribers, sub)
				close(sub.send)
			}
			h.subMu.Unlock()

		case msg := <-h.messages:
			h.push(msg)
		}
	}
}

// broadcast queues a status message without blocking the caller. The status
// stream is advisory; messages are dropped when the hub is saturated.
func (h *Hub) broadcast(msg Message) {
	select {
	case h.messages <- msg:
	default:
	}
}

func (h *Hub) push(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("API: failed to marshal status message: %v", err)
		return
	}

	h.subMu.Lock()
	defer h.subMu.Unlock()
	for sub := range h.subscribers {
		select {
		case sub.send <- data:
		default:
			close(sub.send)
			delete(h.subscribers, sub)
		}
	}
}

func (h *Hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("API: failed to upgrade connection: %v", err)
		return
	}

	sub := &subscriber{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 64),
		ip:   r.RemoteAddr,
	}
	h.register <- sub

	go sub.writePump()
	go sub.readPump()
}

// readPump discards inbound frames; the stream is push-only. Its job is to
// notice the subscriber going away.
func (s *subscriber) readPump() {
	defer func() {
		s.hub.unregister <- s
		s.conn.Close()
	}()

	s.conn.SetReadLimit(512)
	s.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *subscriber) writePump() {
	ticker := time.NewTicker(50 * time.Second)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case data, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
