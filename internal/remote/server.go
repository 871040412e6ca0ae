// ABOUTME: Websocket remote control for the pomodoro
// ABOUTME: Accepts interval and noise commands and streams timer status to clients
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/harperreed/noise-pomodoro/internal/app"
	"github.com/harperreed/noise-pomodoro/internal/timer"
	"github.com/harperreed/noise-pomodoro/internal/version"
)

const (
	// DefaultPath is the websocket endpoint
	DefaultPath = "/pomodoro"

	sendBufferSize = 32
	writeDeadline  = 10 * time.Second
	pingInterval   = 30 * time.Second
	shutdownWait   = 2 * time.Second
)

// Controller is the command surface the remote drives
type Controller interface {
	StartInterval(kind timer.Kind) error
	CancelInterval() error
	SetNoiseEnabled(enabled bool) error
	Snapshot() app.Status
}

// Config holds remote server configuration
type Config struct {
	// Addr to listen on, e.g. ":8930"
	Addr string

	// Name reported in server/hello
	Name string

	// Path of the websocket endpoint (default: /pomodoro)
	Path string
}

// Server serves the remote control websocket
type Server struct {
	config   Config
	serverID string
	ctrl     Controller

	upgrader   websocket.Upgrader
	mux        *http.ServeMux
	httpServer *http.Server
	listener   net.Listener

	clients   map[string]*Client
	clientsMu sync.RWMutex

	shutdownMu sync.RWMutex
	isShutdown bool
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

// Client is a connected remote
type Client struct {
	ID   string
	Addr string
	Conn *websocket.Conn

	sendChan chan Message
	dropped  atomic.Int64
}

// New creates a remote server for ctrl
func New(config Config, ctrl Controller) *Server {
	if config.Path == "" {
		config.Path = DefaultPath
	}

	s := &Server{
		config:   config,
		serverID: uuid.New().String(),
		ctrl:     ctrl,
		mux:      http.NewServeMux(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Intended for trusted local networks; non-browser clients send no Origin
				origin := r.Header.Get("Origin")
				if origin != "" {
					log.Printf("Accepting remote websocket from origin: %s", origin)
				}
				return true
			},
		},
		clients: make(map[string]*Client),
	}

	s.mux.HandleFunc(config.Path, s.handleWebSocket)

	return s
}

// Handler returns the HTTP handler serving the websocket endpoint
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start listens on the configured address and serves in the background
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	s.listener = ln

	s.httpServer = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("Remote control listening on %s%s (ID: %s)", ln.Addr(), s.config.Path, s.serverID)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Remote server error: %v", err)
		}
	}()

	return nil
}

// Port returns the port the server is listening on, or 0 before Start
func (s *Server) Port() int {
	if s.listener == nil {
		return 0
	}
	if addr, ok := s.listener.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}

// ClientCount returns the number of connected clients
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// Stop closes the listener and every client connection
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		s.shutdownMu.Lock()
		s.isShutdown = true
		s.shutdownMu.Unlock()

		if s.httpServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownWait)
			if err := s.httpServer.Shutdown(ctx); err != nil {
				log.Printf("Remote server shutdown error: %v", err)
			}
			cancel()
		}

		// Hijacked websocket connections are not closed by Shutdown
		s.clientsMu.RLock()
		for _, client := range s.clients {
			client.Conn.Close()
		}
		s.clientsMu.RUnlock()

		s.wg.Wait()
		log.Printf("Remote control stopped")
	})
}

// Listener returns pomodoro callbacks that broadcast events to clients
func (s *Server) Listener() app.Listener {
	return app.Listener{
		OnTick: func(st app.Status) {
			s.broadcast(TypeTimerStatus, NewTimerStatus(st))
		},
		OnIntervalComplete: func(st app.Status) {
			s.broadcast(TypeTimerComplete, NewTimerStatus(st))
		},
		OnError: func(err error) {
			s.broadcast(TypeServerError, ErrorPayload{Error: "audio", Message: err.Error()})
		},
	}
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	log.Printf("New remote connection from %s", r.RemoteAddr)

	s.handleConnection(conn, r.RemoteAddr)
}

// handleConnection manages a client connection
func (s *Server) handleConnection(conn *websocket.Conn, addr string) {
	defer conn.Close()

	client := &Client{
		ID:       uuid.New().String(),
		Addr:     addr,
		Conn:     conn,
		sendChan: make(chan Message, sendBufferSize),
	}

	// Register unless shutting down
	s.shutdownMu.RLock()
	if s.isShutdown {
		s.shutdownMu.RUnlock()
		log.Printf("Rejecting connection during shutdown")
		return
	}
	s.clientsMu.Lock()
	s.clients[client.ID] = client
	s.clientsMu.Unlock()
	s.shutdownMu.RUnlock()

	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, client.ID)
		s.clientsMu.Unlock()
		close(client.sendChan)
		log.Printf("Remote disconnected: %s (%s)", client.ID, client.Addr)
	}()

	hello := ServerHello{
		ServerID:     s.serverID,
		ClientID:     client.ID,
		Name:         s.config.Name,
		Product:      version.Product,
		Version:      version.Version,
		Manufacturer: version.Manufacturer,
	}
	if err := s.sendMessage(client, TypeServerHello, hello); err != nil {
		log.Printf("Error sending server hello: %v", err)
		return
	}
	if err := s.sendMessage(client, TypeTimerStatus, NewTimerStatus(s.ctrl.Snapshot())); err != nil {
		log.Printf("Error sending status: %v", err)
		return
	}

	// Start writer goroutine
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.clientWriter(client)
	}()

	// Read messages from client
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		s.handleClientMessage(client, data)
	}
}

// clientWriter sends messages to the client
func (s *Server) clientWriter(client *Client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-client.sendChan:
			if !ok {
				return
			}

			data, err := json.Marshal(msg)
			if err != nil {
				log.Printf("Error marshaling message: %v", err)
				continue
			}
			client.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := client.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("Error writing message: %v", err)
				return
			}

		case <-ticker.C:
			if err := client.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeDeadline)); err != nil {
				return
			}
		}
	}
}

// handleClientMessage processes commands from clients
func (s *Server) handleClientMessage(client *Client, data []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.reject(client, "invalid_message", fmt.Sprintf("invalid message: %v", err))
		return
	}

	var err error
	switch msg.Type {
	case TypeIntervalStart:
		var req IntervalStart
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			s.reject(client, "invalid_payload", fmt.Sprintf("invalid interval/start payload: %v", err))
			return
		}
		kind, perr := timer.ParseKind(req.Kind)
		if perr != nil {
			s.reject(client, "invalid_kind", perr.Error())
			return
		}
		log.Printf("Remote %s: start %s", client.ID, kind)
		err = s.ctrl.StartInterval(kind)

	case TypeIntervalCancel:
		log.Printf("Remote %s: cancel", client.ID)
		err = s.ctrl.CancelInterval()

	case TypeNoiseSet:
		var req NoiseSet
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			s.reject(client, "invalid_payload", fmt.Sprintf("invalid noise/set payload: %v", err))
			return
		}
		log.Printf("Remote %s: noise %v", client.ID, req.Enabled)
		err = s.ctrl.SetNoiseEnabled(req.Enabled)

	default:
		s.reject(client, "unknown_type", fmt.Sprintf("unknown message type: %s", msg.Type))
		return
	}

	if err != nil {
		s.reject(client, "command_failed", err.Error())
	}
}

// reject sends a server/error to one client
func (s *Server) reject(client *Client, code, message string) {
	log.Printf("Rejecting remote %s message: %s", client.ID, message)
	if err := s.sendMessage(client, TypeServerError, ErrorPayload{Error: code, Message: message}); err != nil {
		log.Printf("Error sending error: %v", err)
	}
}

// sendMessage queues a JSON message for a client
func (s *Server) sendMessage(client *Client, msgType string, payload interface{}) error {
	msg := Message{
		Type:    msgType,
		Payload: payload,
	}

	select {
	case client.sendChan <- msg:
		return nil
	default:
		return fmt.Errorf("client send buffer full")
	}
}

// broadcast queues a message for every client. Slow clients miss it.
func (s *Server) broadcast(msgType string, payload interface{}) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for _, client := range s.clients {
		if err := s.sendMessage(client, msgType, payload); err != nil {
			if n := client.dropped.Add(1); n == 1 || n%100 == 0 {
				log.Printf("Dropping %s for slow remote %s (%d dropped)", msgType, client.ID, n)
			}
		}
	}
}
