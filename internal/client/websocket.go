// ABOUTME: WebSocket client for the pomodoro remote control
// ABOUTME: Handles connection, handshake, commands and status routing
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/harperreed/noise-pomodoro/internal/remote"
	"github.com/harperreed/noise-pomodoro/internal/timer"
)

const handshakeTimeout = 5 * time.Second

// Config holds client configuration
type Config struct {
	ServerAddr string
	Path       string // default /pomodoro
}

// Client is a remote control connection to a pomodoro
type Client struct {
	config Config
	conn   *websocket.Conn
	mu     sync.RWMutex
	hello  remote.ServerHello

	// Message channels
	Status   chan remote.TimerStatus
	Complete chan remote.TimerStatus
	Errors   chan remote.ErrorPayload

	// State
	connected bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewClient creates a new WebSocket client
func NewClient(config Config) *Client {
	if config.Path == "" {
		config.Path = remote.DefaultPath
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		config:   config,
		Status:   make(chan remote.TimerStatus, 10),
		Complete: make(chan remote.TimerStatus, 10),
		Errors:   make(chan remote.ErrorPayload, 10),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Connect establishes the WebSocket connection and waits for server/hello
func (c *Client) Connect() error {
	u := url.URL{Scheme: "ws", Host: c.config.ServerAddr, Path: c.config.Path}
	log.Printf("Connecting to %s", u.String())

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	if err := c.handshake(); err != nil {
		c.Close()
		return fmt.Errorf("handshake failed: %w", err)
	}

	// Start message reader
	go c.readMessages()

	return nil
}

// handshake waits for the server/hello the server sends on connect
func (c *Client) handshake() error {
	c.conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read server/hello: %w", err)
	}
	c.conn.SetReadDeadline(time.Time{}) // Clear deadline

	var msg envelope
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("failed to parse server/hello: %w", err)
	}
	if msg.Type != remote.TypeServerHello {
		return fmt.Errorf("expected %s, got %s", remote.TypeServerHello, msg.Type)
	}

	var hello remote.ServerHello
	if err := json.Unmarshal(msg.Payload, &hello); err != nil {
		return fmt.Errorf("failed to parse server/hello payload: %w", err)
	}

	c.mu.Lock()
	c.hello = hello
	c.mu.Unlock()

	log.Printf("Handshake complete with %s (%s %s)", hello.Name, hello.Product, hello.Version)

	return nil
}

// Hello returns the server/hello received during Connect
func (c *Client) Hello() remote.ServerHello {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hello
}

// envelope is a message with its payload left encoded
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// sendJSON sends a JSON message
func (c *Client) sendJSON(msg remote.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return fmt.Errorf("not connected")
	}

	return c.conn.WriteJSON(msg)
}

// readMessages reads and routes incoming messages
func (c *Client) readMessages() {
	defer c.Close()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("Read error: %v", err)
			}
			return
		}

		if messageType == websocket.TextMessage {
			c.handleJSONMessage(data)
		}
	}
}

// handleJSONMessage routes JSON messages
func (c *Client) handleJSONMessage(data []byte) {
	var msg envelope
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("Failed to parse JSON message: %v", err)
		return
	}

	switch msg.Type {
	case remote.TypeTimerStatus, remote.TypeTimerComplete:
		var status remote.TimerStatus
		if err := json.Unmarshal(msg.Payload, &status); err != nil {
			log.Printf("Failed to parse %s: %v", msg.Type, err)
			return
		}
		ch := c.Status
		if msg.Type == remote.TypeTimerComplete {
			ch = c.Complete
		}
		select {
		case ch <- status:
		default:
			// Nobody is watching; drop stale status
		}

	case remote.TypeServerError:
		var e remote.ErrorPayload
		if err := json.Unmarshal(msg.Payload, &e); err != nil {
			log.Printf("Failed to parse server/error: %v", err)
			return
		}
		log.Printf("Server error: %s: %s", e.Error, e.Message)
		select {
		case c.Errors <- e:
		default:
		}

	default:
		log.Printf("Unknown message type: %s", msg.Type)
	}
}

// StartInterval sends interval/start
func (c *Client) StartInterval(kind timer.Kind) error {
	return c.sendJSON(remote.Message{
		Type:    remote.TypeIntervalStart,
		Payload: remote.IntervalStart{Kind: kind.String()},
	})
}

// CancelInterval sends interval/cancel
func (c *Client) CancelInterval() error {
	return c.sendJSON(remote.Message{Type: remote.TypeIntervalCancel})
}

// SetNoiseEnabled sends noise/set
func (c *Client) SetNoiseEnabled(enabled bool) error {
	return c.sendJSON(remote.Message{
		Type:    remote.TypeNoiseSet,
		Payload: remote.NoiseSet{Enabled: enabled},
	})
}

// Done is closed when the connection ends
func (c *Client) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Close closes the connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		c.connected = false
		c.cancel()
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		c.conn.Close()
		log.Printf("Connection closed")
	}
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}
