// ABOUTME: Command line remote control for a running noise pomodoro
// ABOUTME: Finds a pomodoro via mDNS or -server, sends one command and optionally watches status
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/harperreed/noise-pomodoro/internal/client"
	"github.com/harperreed/noise-pomodoro/internal/discovery"
	"github.com/harperreed/noise-pomodoro/internal/remote"
	"github.com/harperreed/noise-pomodoro/internal/timer"
)

var (
	serverAddr = flag.String("server", "", "Pomodoro address host:port (skip mDNS)")
	path       = flag.String("path", remote.DefaultPath, "WebSocket path")
	watch      = flag.Bool("watch", false, "Keep running and print status updates")
	timeout    = flag.Duration("discover-timeout", 10*time.Second, "How long to browse mDNS for a pomodoro")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] [work|break|cancel|noise on|noise off|status]\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	log.SetFlags(log.Ltime)

	send, err := parseCommand(flag.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		usage()
		os.Exit(2)
	}

	addr, wsPath := *serverAddr, *path
	if addr == "" {
		server, err := discover(*timeout)
		if err != nil {
			log.Fatalf("%v", err)
		}
		addr, wsPath = server.Addr(), server.Path
	}

	c := client.NewClient(client.Config{ServerAddr: addr, Path: wsPath})
	if err := c.Connect(); err != nil {
		log.Fatalf("Connection failed: %v", err)
	}
	defer c.Close()

	// The server sends the current status right after its hello
	select {
	case st := <-c.Status:
		printStatus(st)
	case <-time.After(5 * time.Second):
		log.Fatalf("No status from %s", addr)
	}

	if send != nil {
		if err := send(c); err != nil {
			log.Fatalf("Command failed: %v", err)
		}
		// Wait for the status reflecting the command, or a rejection
		select {
		case st := <-c.Status:
			printStatus(st)
		case e := <-c.Errors:
			log.Fatalf("Rejected: %s", e.Message)
		case <-time.After(5 * time.Second):
		}
	}

	if !*watch {
		return
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case st := <-c.Status:
			printStatus(st)
		case st := <-c.Complete:
			fmt.Printf("%s interval complete\n", st.Kind)
		case e := <-c.Errors:
			fmt.Printf("error: %s\n", e.Message)
		case <-c.Done():
			log.Printf("Connection closed by pomodoro")
			return
		case <-sigChan:
			return
		}
	}
}

// parseCommand maps CLI args to a client command. No args means status only.
func parseCommand(args []string) (func(*client.Client) error, error) {
	if len(args) == 0 || args[0] == "status" {
		return nil, nil
	}

	switch args[0] {
	case "cancel":
		return (*client.Client).CancelInterval, nil
	case "noise":
		if len(args) < 2 {
			return nil, fmt.Errorf("noise needs on or off")
		}
		enabled, err := parseOnOff(args[1])
		if err != nil {
			return nil, err
		}
		return func(c *client.Client) error { return c.SetNoiseEnabled(enabled) }, nil
	default:
		kind, err := timer.ParseKind(args[0])
		if err != nil {
			return nil, err
		}
		return func(c *client.Client) error { return c.StartInterval(kind) }, nil
	}
}

func parseOnOff(s string) (bool, error) {
	switch s {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("expected on or off, got %q", s)
	}
	return b, nil
}

// discover returns the first pomodoro found via mDNS
func discover(timeout time.Duration) (*discovery.ServerInfo, error) {
	log.Printf("Browsing for pomodoros...")

	disc := discovery.NewManager(discovery.Config{})
	defer disc.Stop()

	if err := disc.Browse(); err != nil {
		return nil, fmt.Errorf("browse failed: %w", err)
	}

	select {
	case server := <-disc.Servers():
		log.Printf("Found %s at %s", server.Name, server.Addr())
		return server, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("no pomodoro found after %v", timeout)
	}
}

func printStatus(st remote.TimerStatus) {
	state := "stopped"
	if st.Running {
		state = "running"
	}
	noise := "off"
	if st.NoiseEnabled {
		noise = "on"
	}
	fmt.Printf("%s %s %s  noise %s (engine %s)\n", st.Label, st.Kind, state, noise, st.Engine)
}
