package session

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/pires/go-proxyproto"
	"go.uber.org/zap"

	"github.com/novarelay/tunrelay/advLayer/ws"
	"github.com/novarelay/tunrelay/utils"
)

// Protocol selects the parser and framing a Listener uses for every
// connection it accepts. One protocol per listener; a deployment that
// needs several runs several Listeners side by side.
type Protocol string

const (
	ProtoVlessWS    Protocol = "vless-ws"
	ProtoTrojanWS   Protocol = "trojan-ws"
	ProtoRawTCP     Protocol = "rawtcp"
	ProtoHTTPProxy  Protocol = "http-proxy"
	wsDefaultPath            = "/"
	shutdownGrace            = 5 * time.Second
)

// Listener binds one TCP port, accepts connections, and spawns a
// Session per connection with the configured protocol's parser and
// framing.
type Listener struct {
	Protocol     Protocol
	Parser       Parser
	SessionCfg   Config
	WSPath       string
	ProxyProto   bool

	ln net.Listener

	mu       sync.Mutex
	sessions map[*Session]struct{}
	closing  bool
}

// Listen binds addr (e.g. ":8100") and wraps it with the PROXY protocol
// if configured.
func (l *Listener) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	if l.ProxyProto {
		ln = &proxyproto.Listener{Listener: ln}
	}
	l.ln = ln
	l.sessions = make(map[*Session]struct{})
	return nil
}

// Serve runs the accept loop until ctx is cancelled. On cancellation it
// stops accepting, signals every live session to close, waits up to
// shutdownGrace, then returns.
func (l *Listener) Serve(ctx context.Context) {
	go func() {
		<-ctx.Done()
		l.mu.Lock()
		l.closing = true
		for sess := range l.sessions {
			sess.close("shutdown")
		}
		l.mu.Unlock()
		l.ln.Close()
	}()

	var wg sync.WaitGroup
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			l.mu.Lock()
			closing := l.closing
			l.mu.Unlock()
			if closing {
				break
			}
			if ce := utils.CanLogWarn("accept error"); ce != nil {
				ce.Write(zap.Error(err))
			}
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			l.handle(ctx, conn)
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(shutdownGrace):
		if ce := utils.CanLogWarn("shutdown grace period elapsed, forcing exit"); ce != nil {
			ce.Write(zap.String("listener", string(l.Protocol)))
		}
	}
}

func (l *Listener) handle(ctx context.Context, conn net.Conn) {
	framed, err := l.frame(conn)
	if err != nil {
		if ce := utils.CanLogDebug("framing setup failed"); ce != nil {
			ce.Write(zap.Error(err))
		}
		conn.Close()
		return
	}

	sess := New(framed, l.Parser, l.SessionCfg)

	l.mu.Lock()
	l.sessions[sess] = struct{}{}
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		delete(l.sessions, sess)
		l.mu.Unlock()
	}()

	sess.Run(ctx)
}

// frame applies the protocol's MessageTransport upgrade where needed,
// so the rest of Session always sees a plain net.Conn.
func (l *Listener) frame(conn net.Conn) (net.Conn, error) {
	switch l.Protocol {
	case ProtoVlessWS, ProtoTrojanWS:
		path := l.WSPath
		if path == "" {
			path = wsDefaultPath
		}
		srv := ws.NewServer(path, false)
		return srv.Handshake(nil, conn)
	default:
		return conn, nil
	}
}
