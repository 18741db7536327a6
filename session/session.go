// Package session implements the per-connection relay state machine:
// it drives the configured tunnel parser over the accumulating
// handshake buffer, dials the parsed target, reports the outcome back
// to the client, and splices the two sockets.
package session

import (
	"context"
	"io"
	"net"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/novarelay/tunrelay/netLayer"
	"github.com/novarelay/tunrelay/utils"
)

// State is one of the five states a Session moves through over its
// lifetime, from first byte read to socket teardown.
type State int32

const (
	AwaitHandshake State = iota
	Dialing
	Relaying
	Closing
	Closed
)

func (s State) String() string {
	switch s {
	case AwaitHandshake:
		return "AwaitHandshake"
	case Dialing:
		return "Dialing"
	case Relaying:
		return "Relaying"
	case Closing:
		return "Closing"
	case Closed:
		return "Closed"
	default:
		return "Unknown"
	}
}

var sessionIDCounter atomic.Uint64

// Parser is implemented by each tunnel protocol's Parse function,
// adapted to a common signature so Session doesn't know which protocol
// it is driving.
type Parser func(buf []byte) (netLayer.HandshakeResult, netLayer.Status)

// Config bundles the deployment knobs a Session needs, all optional
// with sensible defaults applied by the accessor methods below.
type Config struct {
	HandshakeTimeout   time.Duration
	ConnectTimeout     time.Duration
	UpstreamIdleTime   time.Duration
	MaxHandshakeBuffer int

	// SendSignalByte is true for VLESS/Trojan/RawTCP listeners, which
	// expect a 0x00/0x01 outcome byte; HTTP-Proxy listeners reply with
	// their own status line instead (see HandshakeResult.OnDialOK/Fail)
	// and set this false.
	SendSignalByte bool

	// HandshakeFailBytes overrides the signal byte written when the
	// handshake ends without a HandshakeResult (parse failure, oversized
	// buffer, handshake timeout, or inbound read error/EOF), so there's
	// no OnDialFail to fall back on yet. HTTP-Proxy sets this to its
	// 400 Bad Request status line.
	HandshakeFailBytes []byte

	Dialer *netLayer.Dialer
}

func (c Config) handshakeTimeout() time.Duration {
	if c.HandshakeTimeout <= 0 {
		return netLayer.DefaultHandshakeTimeout
	}
	return c.HandshakeTimeout
}

func (c Config) upstreamIdleTime() time.Duration {
	if c.UpstreamIdleTime <= 0 {
		return netLayer.DefaultUpstreamIdle
	}
	return c.UpstreamIdleTime
}

func (c Config) maxHandshakeBuffer() int {
	if c.MaxHandshakeBuffer <= 0 {
		return 8192
	}
	return c.MaxHandshakeBuffer
}

// Session owns one inbound connection end-to-end: handshake buffering,
// dialing, signaling, and the bidirectional splice. A Session is used
// once and discarded.
type Session struct {
	id      uint64
	inbound net.Conn
	parse   Parser
	cfg     Config

	mu       sync.Mutex
	state    State
	upstream *net.TCPConn

	closeOnce sync.Once
}

// New constructs a Session for an accepted inbound connection.
func New(inbound net.Conn, parse Parser, cfg Config) *Session {
	return &Session{
		id:      sessionIDCounter.Add(1),
		inbound: inbound,
		parse:   parse,
		cfg:     cfg,
		state:   AwaitHandshake,
	}
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Session) getState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Run drives the Session through its entire lifecycle: handshake,
// dial, relay, cleanup. It blocks until the session is Closed.
func (s *Session) Run(ctx context.Context) {
	defer s.close("internal")

	result, reason := s.awaitHandshake()
	if reason != "" {
		if ce := utils.CanLogDebug("handshake failed"); ce != nil {
			ce.Write(zap.Uint64("session", s.id), zap.String("reason", reason))
		}
		s.sendHandshakeFail()
		return
	}

	s.setState(Dialing)
	upstream, err := s.dial(ctx, result.Target)
	if err != nil {
		if ce := utils.CanLogWarn("dial failed"); ce != nil {
			ce.Write(zap.Uint64("session", s.id), zap.String("target", result.Target.String()), zap.Error(err))
		}
		s.sendDialOutcome(result, false)
		return
	}
	s.mu.Lock()
	s.upstream = upstream
	s.mu.Unlock()

	if !s.sendDialOutcome(result, true) {
		return
	}

	if len(result.Leftover) > 0 {
		if _, err := upstream.Write(result.Leftover); err != nil {
			if ce := utils.CanLogDebug("leftover write failed"); ce != nil {
				ce.Write(zap.Uint64("session", s.id), zap.Error(err))
			}
			return
		}
	}

	s.setState(Relaying)
	if ce := utils.CanLogInfo("relaying"); ce != nil {
		ce.Write(zap.Uint64("session", s.id), zap.String("target", result.Target.String()))
	}
	s.relay()
}

// awaitHandshake accumulates inbound bytes and feeds them to the
// parser until it returns Ok or Fail, the buffer exceeds the
// configured limit, or the handshake deadline elapses.
func (s *Session) awaitHandshake() (netLayer.HandshakeResult, string) {
	deadline := time.Now().Add(s.cfg.handshakeTimeout())
	s.inbound.SetReadDeadline(deadline)

	buf := make([]byte, 0, 4096)
	chunk := utils.GetPacket()
	defer utils.PutPacket(chunk)

	for {
		n, err := s.inbound.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			result, status := s.parse(buf)
			switch status {
			case netLayer.Ok:
				return result, ""
			case netLayer.Fail:
				return netLayer.HandshakeResult{}, "BadHandshake"
			}
			if len(buf) > s.cfg.maxHandshakeBuffer() {
				return netLayer.HandshakeResult{}, "BufferTooLarge"
			}
		}
		if err != nil {
			if err == io.EOF {
				return netLayer.HandshakeResult{}, "ClientClosed"
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				return netLayer.HandshakeResult{}, "HandshakeTimeout"
			}
			return netLayer.HandshakeResult{}, "ReadError"
		}
	}
}

func (s *Session) dial(ctx context.Context, target netLayer.Target) (*net.TCPConn, error) {
	dialer := s.cfg.Dialer
	if dialer == nil {
		dialer = &netLayer.Dialer{}
	}
	if s.cfg.ConnectTimeout > 0 {
		d := *dialer
		d.ConnectTimeout = s.cfg.ConnectTimeout
		dialer = &d
	}
	return dialer.Dial(ctx, target)
}

// sendDialOutcome writes the parser-specific reply (HTTP-Proxy's status
// line) or falls back to the generic signal byte, before any upstream
// payload is relayed back to the client.
func (s *Session) sendDialOutcome(result netLayer.HandshakeResult, ok bool) bool {
	payload := result.OnDialFail
	if ok {
		payload = result.OnDialOK
	}
	if payload == nil && s.cfg.SendSignalByte {
		b := byte(0x01)
		if ok {
			b = 0x00
		}
		payload = []byte{b}
	}
	if payload == nil {
		return true
	}
	_, err := s.inbound.Write(payload)
	return err == nil
}

// sendHandshakeFail writes the parser's malformed-request reply (or the
// generic failure byte) whenever awaitHandshake ends without a
// HandshakeResult to carry protocol-specific bytes, whatever the reason.
func (s *Session) sendHandshakeFail() {
	payload := s.cfg.HandshakeFailBytes
	if payload == nil && s.cfg.SendSignalByte {
		payload = []byte{0x01}
	}
	if payload != nil {
		s.inbound.Write(payload)
	}
}

// relay runs the two half-duplex copies concurrently and waits for
// both to finish.
func (s *Session) relay() {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		s.copyHalf(s.upstream, s.inbound, "inbound->upstream")
	}()
	go func() {
		defer wg.Done()
		s.copyHalf(s.inbound, s.upstream, "upstream->inbound")
	}()

	wg.Wait()
}

func (s *Session) copyHalf(dst, src net.Conn, label string) {
	buf := utils.GetPacket()
	defer utils.PutPacket(buf)

	idle := s.cfg.upstreamIdleTime()

	for {
		src.SetReadDeadline(time.Now().Add(idle))
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				if ce := utils.CanLogDebug("relay write failed"); ce != nil {
					ce.Write(zap.Uint64("session", s.id), zap.String("half", label), zap.Error(werr))
				}
				return
			}
		}
		if err != nil {
			if tc, ok := dst.(interface{ CloseWrite() error }); ok {
				tc.CloseWrite()
			}
			return
		}
	}
}

// close performs the idempotent Closing->Closed transition exactly
// once per session regardless of how many failure paths call it.
func (s *Session) close(reason string) {
	s.closeOnce.Do(func() {
		s.setState(Closing)
		if s.upstream != nil {
			s.upstream.Close()
		}
		s.inbound.Close()
		s.setState(Closed)
		if ce := utils.CanLogDebug("session closed"); ce != nil {
			ce.Write(zap.Uint64("session", s.id), zap.String("reason", reason))
		}
	})
}
