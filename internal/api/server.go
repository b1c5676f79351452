// Package api provides the local HTTP status API and the WebSocket status
// stream the presentation layer subscribes to.
package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"

	"crosscursors/internal/config"
	"crosscursors/internal/display"
	"crosscursors/internal/network"
)

// Server exposes service state over HTTP and pushes status transitions
// (sharing toggled, peer connected/dropped, corner triggered, receiver state)
// to WebSocket subscribers.
type Server struct {
	configMgr *config.Manager
	displays  display.Provider
	hub       *Hub

	mu      sync.Mutex
	sharing bool
	peers   int
}

// NewServer creates a status API server.
func NewServer(configMgr *config.Manager, displays display.Provider) *Server {
	s := &Server{
		configMgr: configMgr,
		displays:  displays,
	}
	s.hub = newHub()
	return s
}

// Start serves the API on the given port. Blocking.
func (s *Server) Start(port int) error {
	go s.hub.run()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/ws", s.hub.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	// Explicit tcp4 avoids IPv6-only binding issues on Windows.
	addr := fmt.Sprintf("0.0.0.0:%d", port)
	ln, err := net.Listen("tcp4", addr)
	if err != nil {
		log.Printf("API: failed to listen on %s: %v", addr, err)
		return err
	}
	log.Printf("API: status server on %s", addr)

	server := &http.Server{Handler: s.recoverMiddleware(mux)}
	if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
		log.Printf("API: server stopped: %v", err)
		return err
	}
	return nil
}

// recoverMiddleware prevents handler panics from crashing the service.
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("API: panic recovered: %v", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// SetSharing records the sharing toggle and notifies subscribers.
func (s *Server) SetSharing(active bool) {
	s.mu.Lock()
	s.sharing = active
	s.mu.Unlock()
	s.hub.broadcast(Message{Type: "sharing", Active: active})
}

// PeerChanged records a follower connect or drop and notifies subscribers.
func (s *Server) PeerChanged(addr string, connected bool, total int) {
	s.mu.Lock()
	s.peers = total
	s.mu.Unlock()
	s.hub.broadcast(Message{Type: "peer", Address: addr, Active: connected, Peers: total})
}

// CornerTriggered notifies subscribers that the hot corner fired.
func (s *Server) CornerTriggered() {
	s.hub.broadcast(Message{Type: "corner"})
}

// ReceiverStatus forwards a follower-side connection transition.
func (s *Server) ReceiverStatus(state, message string) {
	s.hub.broadcast(Message{Type: "receiver", State: state, Message: message})
}

// handleStatus handles GET /api/status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.Lock()
	sharing := s.sharing
	peers := s.peers
	s.mu.Unlock()

	ips, _ := network.GetLocalIPs()
	cfg := s.configMgr.Get()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"sharing":     sharing,
		"peers":       peers,
		"displays":    s.displays.Snapshot(),
		"local_ips":   ips,
		"server_port": cfg.ServerPort,
	})
}

// handleConfig handles GET (read) and POST (update) for the preferences.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(s.configMgr.Get())

	case "POST":
		var newCfg config.Config
		if err := json.NewDecoder(r.Body).Decode(&newCfg); err != nil {
			http.Error(w, "Invalid configuration data", http.StatusBadRequest)
			return
		}

		log.Printf("API: configuration update from %s", r.RemoteAddr)
		s.configMgr.Set(&newCfg)
		if err := s.configMgr.Save(); err != nil {
			log.Printf("API: failed to save config: %v", err)
			http.Error(w, "Failed to save configuration", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleHealth handles GET /health (for monitoring).
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
