package netLayer

import (
	"net"
	"strconv"

	"github.com/novarelay/tunrelay/utils"
)

// Kind distinguishes the one textual form a Target actually carries.
type Kind byte

const (
	KindIPv4 Kind = iota
	KindIPv6
	KindDomain
)

// Target is the common {kind, address, port} triple produced by every
// tunnel parser and consumed by the Upstream Dialer. Exactly one of
// IP/Name is meaningful, selected by Kind.
type Target struct {
	Kind Kind
	IP   net.IP
	Name string
	Port int
}

// NewTargetFromIP builds a Target from a resolved IP, picking IPv4 or
// IPv6 as Kind based on the actual address family.
func NewTargetFromIP(ip net.IP, port int) Target {
	if v4 := ip.To4(); v4 != nil {
		return Target{Kind: KindIPv4, IP: v4, Port: port}
	}
	return Target{Kind: KindIPv6, IP: ip, Port: port}
}

// NewDomainTarget builds a domain Target. The wire format carries
// domains as opaque bytes (a trailing-dot FQDN or an over-63-byte
// label are both legal here), so the only check is the 1..255 length
// bound the address codec's length prefix can actually carry.
func NewDomainTarget(name string, port int) (Target, error) {
	if len(name) < 1 || len(name) > 255 {
		return Target{}, utils.ErrInErr{ErrDesc: "domain length out of range", ErrDetail: utils.ErrInvalidData, Data: name}
	}
	return Target{Kind: KindDomain, Name: name, Port: port}, nil
}

// String renders the one canonical host:port form for logging and dialing.
func (t Target) String() string {
	host := t.Name
	if t.Kind != KindDomain {
		host = t.IP.String()
	}
	return net.JoinHostPort(host, strconv.Itoa(t.Port))
}

func (t Target) IsDomain() bool { return t.Kind == KindDomain }
