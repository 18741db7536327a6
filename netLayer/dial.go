package netLayer

import (
	"context"
	"errors"
	"net"
	"strconv"
	"syscall"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/zap"

	"github.com/novarelay/tunrelay/utils"
)

// Resolver is the recursive resolver consulted before falling back to the
// system resolver. nil means "system resolver only".
type Resolver struct {
	Servers []string
	Timeout time.Duration
}

// Resolve turns a domain Target into an IP, trying Resolver.Servers
// first via a direct recursive query and falling back to
// net.DefaultResolver on any failure, so a misconfigured or
// unreachable recursive resolver never blocks a dial outright.
func (r *Resolver) Resolve(ctx context.Context, name string) (net.IP, error) {
	if r != nil {
		for _, server := range r.Servers {
			ip, err := queryA(server, name, r.timeout())
			if err == nil {
				return ip, nil
			}
			if ce := utils.CanLogDebug("recursive dns query failed, trying next"); ce != nil {
				ce.Write(zap.String("server", server), zap.String("name", name), zap.Error(err))
			}
		}
	}

	ips, err := net.DefaultResolver.LookupIP(ctx, "ip", name)
	if err != nil {
		return nil, utils.ErrInErr{ErrDesc: "dns lookup failed", ErrDetail: err, Data: name}
	}
	return ips[0], nil
}

func (r *Resolver) timeout() time.Duration {
	if r.Timeout <= 0 {
		return 2 * time.Second
	}
	return r.Timeout
}

func queryA(server, name string, timeout time.Duration) (net.IP, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), dns.TypeA)

	c := dns.Client{Timeout: timeout}
	in, _, err := c.Exchange(m, server)
	if err != nil {
		return nil, err
	}
	for _, rr := range in.Answer {
		if a, ok := rr.(*dns.A); ok {
			return a.A, nil
		}
	}
	return nil, utils.ErrInErr{ErrDesc: "no A record", Data: name}
}

// Dialer establishes the outbound TCP connection to a parsed Target:
// DNS resolution when the target is a domain, a connect deadline, and
// socket tuning (NoDelay, keepalive).
type Dialer struct {
	ConnectTimeout time.Duration
	Resolver       *Resolver
}

func (d *Dialer) connectTimeout() time.Duration {
	if d.ConnectTimeout <= 0 {
		return DefaultConnectTimeout
	}
	return d.ConnectTimeout
}

// Dial resolves t if it is a domain, then connects with the configured
// deadline. Errors are one of DnsFail/ConnectTimeout/ConnectRefused/
// Unreachable, wrapped in utils.ErrInErr.
func (d *Dialer) Dial(ctx context.Context, t Target) (*net.TCPConn, error) {
	ctx, cancel := context.WithTimeout(ctx, d.connectTimeout())
	defer cancel()

	ip := t.IP
	if t.IsDomain() {
		resolved, err := d.Resolver.Resolve(ctx, t.Name)
		if err != nil {
			return nil, utils.ErrInErr{ErrDesc: "DnsFail", ErrDetail: err, Data: t.Name}
		}
		ip = resolved
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(ip.String(), strconv.Itoa(t.Port)))
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, utils.ErrInErr{ErrDesc: "ConnectTimeout", ErrDetail: err, Data: t.String()}
		}
		if errors.Is(err, syscall.ECONNREFUSED) {
			return nil, utils.ErrInErr{ErrDesc: "ConnectRefused", ErrDetail: err, Data: t.String()}
		}
		return nil, utils.ErrInErr{ErrDesc: "Unreachable", ErrDetail: err, Data: t.String()}
	}

	tcpConn := conn.(*net.TCPConn)
	tcpConn.SetNoDelay(true)
	tcpConn.SetKeepAlive(true)
	tcpConn.SetKeepAlivePeriod(DefaultKeepAlivePeriod)
	tuneKeepAliveProbes(tcpConn)

	return tcpConn, nil
}
