// ABOUTME: Tests for mDNS discovery
// ABOUTME: Tests service record construction and configuration defaults
package discovery

import (
	"net"
	"testing"

	"github.com/hashicorp/mdns"
)

func TestNewManager(t *testing.T) {
	config := Config{
		ServiceName: "Test Pomodoro",
		Port:        8930,
	}

	mgr := NewManager(config)
	if mgr == nil {
		t.Fatal("expected manager to be created")
	}
	if mgr.config.Path != DefaultPath {
		t.Errorf("expected default path %s, got %s", DefaultPath, mgr.config.Path)
	}
}

func TestTXTRecord(t *testing.T) {
	mgr := NewManager(Config{ServiceName: "desk", Port: 8930, Path: "/custom"})

	txt := mgr.TXT()
	if len(txt) != 1 || txt[0] != "path=/custom" {
		t.Errorf("unexpected TXT record %v", txt)
	}
}

func TestService(t *testing.T) {
	mgr := NewManager(Config{ServiceName: "desk", Port: 8930})

	svc, err := mgr.Service([]net.IP{net.ParseIP("192.168.1.10")})
	if err != nil {
		t.Fatalf("Service failed: %v", err)
	}

	if svc.Service != ServiceType {
		t.Errorf("expected service type %s, got %s", ServiceType, svc.Service)
	}
	if svc.Port != 8930 {
		t.Errorf("expected port 8930, got %d", svc.Port)
	}
	if len(svc.TXT) != 1 || svc.TXT[0] != "path=/pomodoro" {
		t.Errorf("unexpected TXT %v", svc.TXT)
	}
}

func TestServiceInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{"missing name", Config{Port: 8930}},
		{"zero port", Config{ServiceName: "desk"}},
		{"port too large", Config{ServiceName: "desk", Port: 70000}},
	}

	ips := []net.IP{net.ParseIP("192.168.1.10")}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewManager(tt.config).Service(ips); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestStopIsSafe(t *testing.T) {
	mgr := NewManager(Config{ServiceName: "desk", Port: 8930})
	mgr.Stop()
	mgr.Stop()
}

func TestServerFromEntry(t *testing.T) {
	tests := []struct {
		name     string
		entry    *mdns.ServiceEntry
		expected *ServerInfo
	}{
		{
			name: "with path",
			entry: &mdns.ServiceEntry{
				Name:       "desk._noise-pomodoro._tcp.local.",
				AddrV4:     net.ParseIP("192.168.1.10"),
				Port:       8930,
				InfoFields: []string{"path=/custom"},
			},
			expected: &ServerInfo{Name: "desk", Host: "192.168.1.10", Port: 8930, Path: "/custom"},
		},
		{
			name: "default path",
			entry: &mdns.ServiceEntry{
				Name:   "desk._noise-pomodoro._tcp.local.",
				AddrV4: net.ParseIP("10.0.0.2"),
				Port:   9000,
			},
			expected: &ServerInfo{Name: "desk", Host: "10.0.0.2", Port: 9000, Path: DefaultPath},
		},
		{
			name:  "no ipv4",
			entry: &mdns.ServiceEntry{Name: "desk", Port: 8930},
		},
		{
			name:  "nil",
			entry: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := serverFromEntry(tt.entry)
			if tt.expected == nil {
				if got != nil {
					t.Errorf("expected nil, got %+v", got)
				}
				return
			}
			if got == nil || *got != *tt.expected {
				t.Errorf("expected %+v, got %+v", tt.expected, got)
			}
		})
	}
}

func TestServerAddr(t *testing.T) {
	s := &ServerInfo{Host: "192.168.1.10", Port: 8930}
	if s.Addr() != "192.168.1.10:8930" {
		t.Errorf("unexpected addr %s", s.Addr())
	}
}
