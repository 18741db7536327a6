// Package vless parses the VLESS tunnel handshake: version byte, UUID
// against an allow-list, addon bytes, command, and a codec address/port.
package vless

import (
	"encoding/hex"
	"strings"

	"github.com/novarelay/tunrelay/netLayer"
	"github.com/novarelay/tunrelay/utils"
)

const UUIDLen = 16

// AllowList is the set of UUIDs (16 raw bytes each) permitted to dial
// out, read-only after startup.
type AllowList map[[UUIDLen]byte]bool

// NewAllowList converts hex UUID strings (hyphens optional, case
// insensitive) into an AllowList, skipping any that don't decode to 16
// bytes.
func NewAllowList(hexUUIDs []string) AllowList {
	al := make(AllowList, len(hexUUIDs))
	for _, s := range hexUUIDs {
		s = strings.ToLower(strings.ReplaceAll(s, "-", ""))
		raw, err := hex.DecodeString(s)
		if err != nil || len(raw) != UUIDLen {
			continue
		}
		var key [UUIDLen]byte
		copy(key[:], raw)
		al[key] = true
	}
	return al
}

// Parse consumes a VLESS header from buf against the given allow-list.
// It never blocks and never retains buf.
func Parse(buf []byte, allowed AllowList) (netLayer.HandshakeResult, netLayer.Status) {
	if len(buf) < 1 {
		return netLayer.HandshakeResult{}, netLayer.NeedMore
	}
	if buf[0] != 0x00 {
		return netLayer.HandshakeResult{}, netLayer.Fail
	}

	if len(buf) < 1+UUIDLen {
		return netLayer.HandshakeResult{}, netLayer.NeedMore
	}
	var uuid [UUIDLen]byte
	copy(uuid[:], buf[1:1+UUIDLen])
	if !allowed[uuid] {
		return netLayer.HandshakeResult{}, netLayer.Fail
	}

	off := 1 + UUIDLen
	if len(buf) < off+1 {
		return netLayer.HandshakeResult{}, netLayer.NeedMore
	}
	addonsLen := int(buf[off])
	off++
	if len(buf) < off+addonsLen {
		return netLayer.HandshakeResult{}, netLayer.NeedMore
	}
	off += addonsLen

	if len(buf) < off+1 {
		return netLayer.HandshakeResult{}, netLayer.NeedMore
	}
	var cmd netLayer.Command
	switch buf[off] {
	case 0x01:
		cmd = netLayer.CmdTCP
	case 0x02:
		cmd = netLayer.CmdUDP
	case 0x03:
		cmd = netLayer.CmdMux
	default:
		return netLayer.HandshakeResult{}, netLayer.Fail
	}
	off++

	port, n, err := netLayer.DecodePort(buf[off:])
	if err == utils.ErrShortBuffer {
		return netLayer.HandshakeResult{}, netLayer.NeedMore
	}
	off += n

	target, n, err := netLayer.DecodeAddrPart(netLayer.VlessAddrTable, buf[off:])
	if err == utils.ErrShortBuffer {
		return netLayer.HandshakeResult{}, netLayer.NeedMore
	}
	if err != nil {
		return netLayer.HandshakeResult{}, netLayer.Fail
	}
	off += n
	target.Port = port

	if cmd != netLayer.CmdTCP {
		return netLayer.HandshakeResult{}, netLayer.Fail
	}

	return netLayer.HandshakeResult{
		Target:   target,
		Command:  cmd,
		Leftover: buf[off:],
	}, netLayer.Ok
}
