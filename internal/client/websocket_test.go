// ABOUTME: Tests for the remote control WebSocket client
// ABOUTME: Tests handshake, commands and status routing against a real remote server
package client

import (
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/harperreed/noise-pomodoro/internal/app"
	"github.com/harperreed/noise-pomodoro/internal/remote"
	"github.com/harperreed/noise-pomodoro/internal/timer"
)

// stubController records commands sent through the remote server
type stubController struct {
	mu    sync.Mutex
	calls []string
	seen  chan string
}

func newStubController() *stubController {
	return &stubController{seen: make(chan string, 16)}
}

func (s *stubController) record(call string) error {
	s.mu.Lock()
	s.calls = append(s.calls, call)
	s.mu.Unlock()
	s.seen <- call
	return nil
}

func (s *stubController) StartInterval(kind timer.Kind) error {
	return s.record("start " + kind.String())
}

func (s *stubController) CancelInterval() error {
	return s.record("cancel")
}

func (s *stubController) SetNoiseEnabled(enabled bool) error {
	if enabled {
		return s.record("noise on")
	}
	return s.record("noise off")
}

func (s *stubController) Snapshot() app.Status {
	return app.Status{Kind: timer.Work, Remaining: 1500, Running: true}
}

func (s *stubController) next(t *testing.T) string {
	t.Helper()
	select {
	case call := <-s.seen:
		return call
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for command")
		return ""
	}
}

func startServer(t *testing.T, ctrl remote.Controller) (*remote.Server, string) {
	t.Helper()
	srv := remote.New(remote.Config{Name: "test-pomodoro"}, ctrl)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	t.Cleanup(srv.Stop)
	return srv, strings.TrimPrefix(ts.URL, "http://")
}

func TestNewClient(t *testing.T) {
	client := NewClient(Config{ServerAddr: "localhost:8930"})
	if client == nil {
		t.Fatal("expected client to be created")
	}

	if client.config.ServerAddr != "localhost:8930" {
		t.Errorf("expected server addr localhost:8930, got %s", client.config.ServerAddr)
	}
	if client.config.Path != remote.DefaultPath {
		t.Errorf("expected default path, got %s", client.config.Path)
	}
	if client.IsConnected() {
		t.Error("expected client to start disconnected")
	}
}

func TestConnectAndCommands(t *testing.T) {
	ctrl := newStubController()
	_, addr := startServer(t, ctrl)

	client := NewClient(Config{ServerAddr: addr})
	if err := client.Connect(); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()

	if client.Hello().Name != "test-pomodoro" {
		t.Errorf("unexpected hello %+v", client.Hello())
	}

	select {
	case st := <-client.Status:
		if st.Remaining != 1500 || st.Label != "25:00" {
			t.Errorf("unexpected initial status %+v", st)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected initial status")
	}

	if err := client.StartInterval(timer.Break); err != nil {
		t.Fatalf("StartInterval failed: %v", err)
	}
	if got := ctrl.next(t); got != "start break" {
		t.Errorf("expected start break, got %s", got)
	}

	if err := client.SetNoiseEnabled(false); err != nil {
		t.Fatalf("SetNoiseEnabled failed: %v", err)
	}
	if got := ctrl.next(t); got != "noise off" {
		t.Errorf("expected noise off, got %s", got)
	}

	if err := client.CancelInterval(); err != nil {
		t.Fatalf("CancelInterval failed: %v", err)
	}
	if got := ctrl.next(t); got != "cancel" {
		t.Errorf("expected cancel, got %s", got)
	}
}

func TestCompleteRouting(t *testing.T) {
	ctrl := newStubController()
	srv, addr := startServer(t, ctrl)

	client := NewClient(Config{ServerAddr: addr})
	if err := client.Connect(); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()
	<-client.Status

	srv.Listener().OnIntervalComplete(app.Status{Kind: timer.Work})

	select {
	case st := <-client.Complete:
		if st.Kind != "work" || st.Running {
			t.Errorf("unexpected completion %+v", st)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected completion")
	}
}

func TestServerClosesConnection(t *testing.T) {
	ctrl := newStubController()
	srv, addr := startServer(t, ctrl)

	client := NewClient(Config{ServerAddr: addr})
	if err := client.Connect(); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	srv.Stop()

	select {
	case <-client.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("expected client to notice the closed connection")
	}
	if client.IsConnected() {
		t.Error("expected client disconnected")
	}
	if err := client.CancelInterval(); err == nil {
		t.Error("expected error sending on a closed client")
	}
}

func TestConnectFailure(t *testing.T) {
	client := NewClient(Config{ServerAddr: "127.0.0.1:1"})
	if err := client.Connect(); err == nil {
		client.Close()
		t.Fatal("expected dial failure")
	}
}
