// Package trojan parses the Trojan tunnel handshake: a 56-hex password
// hash, CRLF, command, a codec address/port, and a trailing CRLF.
//
// See https://trojan-gfw.github.io/trojan/protocol.
package trojan

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"

	"github.com/novarelay/tunrelay/netLayer"
	"github.com/novarelay/tunrelay/utils"
)

const HashLen = 56

var hashPattern = regexp.MustCompile(`^[0-9a-fA-F]{56}$`)

const (
	CmdConnect      = 0x01
	CmdUDPAssociate = 0x03
)

var crlf = []byte{0x0d, 0x0a}

// SHA224Hex returns the 56 lowercase hex characters Trojan clients send
// in place of a plaintext password.
func SHA224Hex(password string) string {
	sum := sha256.Sum224([]byte(password))
	return hex.EncodeToString(sum[:])
}

// AllowList is an optional set of accepted password hashes. A nil or
// empty AllowList accepts any syntactically valid hash, matching the
// legacy behavior of deployments that never configured one.
type AllowList map[string]bool

// NewAllowList lowercases each hash so lookups are case-insensitive.
func NewAllowList(hashes []string) AllowList {
	al := make(AllowList, len(hashes))
	for _, h := range hashes {
		al[lowerHex(h)] = true
	}
	return al
}

func lowerHex(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// Parse consumes a Trojan header from buf against the given allow-list.
func Parse(buf []byte, allowed AllowList) (netLayer.HandshakeResult, netLayer.Status) {
	if len(buf) < HashLen {
		return netLayer.HandshakeResult{}, netLayer.NeedMore
	}
	hash := buf[:HashLen]
	if !hashPattern.Match(hash) {
		return netLayer.HandshakeResult{}, netLayer.Fail
	}
	if len(allowed) > 0 && !allowed[lowerHex(string(hash))] {
		return netLayer.HandshakeResult{}, netLayer.Fail
	}

	off := HashLen
	if len(buf) < off+2 {
		return netLayer.HandshakeResult{}, netLayer.NeedMore
	}
	if buf[off] != crlf[0] || buf[off+1] != crlf[1] {
		return netLayer.HandshakeResult{}, netLayer.Fail
	}
	off += 2

	if len(buf) < off+1 {
		return netLayer.HandshakeResult{}, netLayer.NeedMore
	}
	cmdByte := buf[off]
	off++
	if cmdByte != CmdConnect {
		return netLayer.HandshakeResult{}, netLayer.Fail
	}

	target, n, err := netLayer.DecodeAddrPart(netLayer.TrojanAddrTable, buf[off:])
	if err == utils.ErrShortBuffer {
		return netLayer.HandshakeResult{}, netLayer.NeedMore
	}
	if err != nil {
		return netLayer.HandshakeResult{}, netLayer.Fail
	}
	off += n

	port, n, err := netLayer.DecodePort(buf[off:])
	if err == utils.ErrShortBuffer {
		return netLayer.HandshakeResult{}, netLayer.NeedMore
	}
	off += n
	target.Port = port

	if len(buf) < off+2 {
		return netLayer.HandshakeResult{}, netLayer.NeedMore
	}
	if buf[off] != crlf[0] || buf[off+1] != crlf[1] {
		return netLayer.HandshakeResult{}, netLayer.Fail
	}
	off += 2

	return netLayer.HandshakeResult{
		Target:   target,
		Command:  netLayer.CmdTCP,
		Leftover: buf[off:],
	}, netLayer.Ok
}
