package session

import (
	"context"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/novarelay/tunrelay/netLayer"
	"github.com/novarelay/tunrelay/utils"
)

// UDPForwarder is a stateless per-source-endpoint datagram forwarder:
// every datagram from source S is sent verbatim to the configured
// upstream U, and S is recorded in a routing map for return traffic.
//
// The routing map is only ever populated here; return routing from U
// back to a recorded S is not wired up yet. That gap is left as-is
// rather than guessed at.
type UDPForwarder struct {
	Upstream *net.UDPAddr
	IdleTime time.Duration

	conn net.PacketConn

	mu      sync.Mutex
	clients map[string]time.Time
}

func (f *UDPForwarder) idleTime() time.Duration {
	if f.IdleTime <= 0 {
		return netLayer.DefaultUDPIdle
	}
	return f.IdleTime
}

// Listen binds addr (e.g. ":8100") for inbound datagrams.
func (f *UDPForwarder) Listen(addr string) error {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return err
	}
	f.conn = conn
	f.clients = make(map[string]time.Time)
	return nil
}

// Serve runs the receive loop and the idle-sweep loop until ctx is
// cancelled.
func (f *UDPForwarder) Serve(ctx context.Context) {
	go f.sweepLoop(ctx)

	buf := utils.GetPacket()
	defer utils.PutPacket(buf)

	for {
		n, from, err := f.conn.ReadFrom(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if ce := utils.CanLogWarn("udp read error"); ce != nil {
				ce.Write(zap.Error(err))
			}
			continue
		}

		f.touch(from)

		if _, err := f.conn.WriteTo(buf[:n], f.Upstream); err != nil {
			if ce := utils.CanLogDebug("udp forward write failed"); ce != nil {
				ce.Write(zap.Error(err))
			}
		}
	}
}

func (f *UDPForwarder) touch(from net.Addr) {
	f.mu.Lock()
	f.clients[from.String()] = time.Now()
	f.mu.Unlock()
}

func (f *UDPForwarder) sweepLoop(ctx context.Context) {
	t := time.NewTicker(netLayer.UDPIdleSweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			f.sweep()
		}
	}
}

func (f *UDPForwarder) sweep() {
	cutoff := time.Now().Add(-f.idleTime())
	f.mu.Lock()
	for k, last := range f.clients {
		if last.Before(cutoff) {
			delete(f.clients, k)
		}
	}
	f.mu.Unlock()
}

// Close releases the underlying socket.
func (f *UDPForwarder) Close() error {
	return f.conn.Close()
}
