package session

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/novarelay/tunrelay/proxy/rawtcp"
)

func startEchoUpstream(t *testing.T) *net.TCPListener {
	t.Helper()
	ln, err := net.ListenTCP("tcp", &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				buf := make([]byte, 4096)
				for {
					n, err := conn.Read(buf)
					if n > 0 {
						conn.Write(buf[:n])
					}
					if err != nil {
						return
					}
				}
			}()
		}
	}()
	return ln
}

func rawTCPHeader(port int, payload string) []byte {
	h := []byte{0x01, 127, 0, 0, 1}
	h = append(h, byte(port>>8), byte(port))
	h = append(h, []byte(payload)...)
	return h
}

func TestSessionRelaysRawTCP(t *testing.T) {
	upstream := startEchoUpstream(t)
	defer upstream.Close()
	port := upstream.Addr().(*net.TCPAddr).Port

	client, server := net.Pipe()
	defer client.Close()

	sess := New(server, rawtcp.Parse, Config{SendSignalByte: true})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	done := make(chan struct{})
	go func() {
		sess.Run(ctx)
		close(done)
	}()

	header := rawTCPHeader(port, "ping")
	if _, err := client.Write(header); err != nil {
		t.Fatalf("write header failed: %v", err)
	}

	signal := make([]byte, 1)
	client.SetReadDeadline(time.Now().Add(time.Second))
	if _, err := client.Read(signal); err != nil {
		t.Fatalf("read signal failed: %v", err)
	}
	if signal[0] != 0x00 {
		t.Fatalf("expected success signal, got %#x", signal[0])
	}

	echoed := make([]byte, 4)
	client.SetReadDeadline(time.Now().Add(time.Second))
	if _, err := client.Read(echoed); err != nil {
		t.Fatalf("read echo failed: %v", err)
	}
	if string(echoed) != "ping" {
		t.Fatalf("expected echoed leftover %q, got %q", "ping", echoed)
	}

	client.Close()
	<-done

	if got := sess.getState(); got != Closed {
		t.Fatalf("expected Closed, got %v", got)
	}
}

func TestSessionRejectsUnknownATYP(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	sess := New(server, rawtcp.Parse, Config{SendSignalByte: true})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	done := make(chan struct{})
	go func() {
		sess.Run(ctx)
		close(done)
	}()

	client.Write([]byte{0xff, 1, 2, 3, 4, 0, 80})

	signal := make([]byte, 1)
	client.SetReadDeadline(time.Now().Add(time.Second))
	if _, err := client.Read(signal); err != nil {
		t.Fatalf("read signal failed: %v", err)
	}
	if signal[0] != 0x01 {
		t.Fatalf("expected failure signal, got %#x", signal[0])
	}

	client.Close()
	<-done
	if got := sess.getState(); got != Closed {
		t.Fatalf("expected Closed, got %v", got)
	}
}
