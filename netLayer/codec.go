package netLayer

import (
	"net"

	"github.com/novarelay/tunrelay/utils"
)

// AddrTable gives the per-protocol ATYP code points. VLESS and RawTCP
// share one table, while Trojan assigns different bytes to "domain" and
// "IPv6", so one codec is parameterized by table instead of being
// copy-pasted three times.
type AddrTable struct {
	IPv4   byte
	Domain byte
	IPv6   byte
}

var (
	VlessAddrTable  = AddrTable{IPv4: 0x01, Domain: 0x02, IPv6: 0x03}
	TrojanAddrTable = AddrTable{IPv4: 0x01, Domain: 0x03, IPv6: 0x04}
	RawTCPAddrTable = AddrTable{IPv4: 0x01, Domain: 0x02, IPv6: 0x03}
)

// DecodeAddrPart reads the {ATYP, address-bytes} portion of the wire
// format from buf (port is handled separately by each tunnel parser,
// since its position relative to ATYP differs by protocol). Returns the
// host half of a Target, with Port left at zero, and the number of bytes
// consumed.
//
// A buf too short to contain a full field returns utils.ErrShortBuffer,
// which callers must treat as "wait for more bytes", never as a parse
// failure.
func DecodeAddrPart(table AddrTable, buf []byte) (t Target, consumed int, err error) {
	if len(buf) < 1 {
		return t, 0, utils.ErrShortBuffer
	}
	atyp := buf[0]

	switch atyp {
	case table.IPv4:
		if len(buf) < 1+net.IPv4len {
			return t, 0, utils.ErrShortBuffer
		}
		ip := make(net.IP, net.IPv4len)
		copy(ip, buf[1:1+net.IPv4len])
		return Target{Kind: KindIPv4, IP: ip}, 1 + net.IPv4len, nil

	case table.IPv6:
		if len(buf) < 1+net.IPv6len {
			return t, 0, utils.ErrShortBuffer
		}
		ip := make(net.IP, net.IPv6len)
		// Correct big-endian 16-bit reads at offsets base+2k for k in
		// [0,7]; a stride that doesn't match the advancing offset
		// silently corrupts every group past the first.
		base := 1
		for k := 0; k < 8; k++ {
			off := base + 2*k
			ip[2*k] = buf[off]
			ip[2*k+1] = buf[off+1]
		}
		return Target{Kind: KindIPv6, IP: ip}, 1 + net.IPv6len, nil

	case table.Domain:
		if len(buf) < 2 {
			return t, 0, utils.ErrShortBuffer
		}
		l := int(buf[1])
		if l == 0 {
			return t, 0, utils.ErrInErr{ErrDesc: "domain length is zero", ErrDetail: utils.ErrInvalidData}
		}
		if len(buf) < 2+l {
			return t, 0, utils.ErrShortBuffer
		}
		name := string(buf[2 : 2+l])
		dt, derr := NewDomainTarget(name, 0)
		if derr != nil {
			return t, 0, derr
		}
		return dt, 2 + l, nil

	default:
		return t, 0, utils.ErrInErr{ErrDesc: "invalid ATYP", ErrDetail: utils.ErrInvalidData, Data: atyp}
	}
}

// EncodeAddrPart is the inverse of DecodeAddrPart: it renders the
// {ATYP, address-bytes} portion for the given table, without a port.
func EncodeAddrPart(table AddrTable, t Target) []byte {
	switch t.Kind {
	case KindIPv4:
		ip := t.IP.To4()
		out := make([]byte, 1+net.IPv4len)
		out[0] = table.IPv4
		copy(out[1:], ip)
		return out
	case KindIPv6:
		ip := t.IP.To16()
		out := make([]byte, 1+net.IPv6len)
		out[0] = table.IPv6
		copy(out[1:], ip)
		return out
	case KindDomain:
		out := make([]byte, 2+len(t.Name))
		out[0] = table.Domain
		out[1] = byte(len(t.Name))
		copy(out[2:], t.Name)
		return out
	}
	return nil
}

// DecodePort reads a big-endian uint16 port field.
func DecodePort(buf []byte) (port int, consumed int, err error) {
	if len(buf) < 2 {
		return 0, 0, utils.ErrShortBuffer
	}
	return int(buf[0])<<8 | int(buf[1]), 2, nil
}

// EncodePort renders a big-endian uint16 port field.
func EncodePort(port int) []byte {
	return []byte{byte(port >> 8), byte(port)}
}
