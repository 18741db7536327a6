// Package rawtcp parses the bespoke address-prefixed TCP handshake: a
// codec address/port with no other framing.
package rawtcp

import (
	"github.com/novarelay/tunrelay/netLayer"
	"github.com/novarelay/tunrelay/utils"
)

// Parse consumes a RawTCP header from buf.
func Parse(buf []byte) (netLayer.HandshakeResult, netLayer.Status) {
	target, n, err := netLayer.DecodeAddrPart(netLayer.RawTCPAddrTable, buf)
	if err == utils.ErrShortBuffer {
		return netLayer.HandshakeResult{}, netLayer.NeedMore
	}
	if err != nil {
		return netLayer.HandshakeResult{}, netLayer.Fail
	}
	off := n

	port, n, err := netLayer.DecodePort(buf[off:])
	if err == utils.ErrShortBuffer {
		return netLayer.HandshakeResult{}, netLayer.NeedMore
	}
	off += n
	target.Port = port

	return netLayer.HandshakeResult{
		Target:   target,
		Command:  netLayer.CmdTCP,
		Leftover: buf[off:],
	}, netLayer.Ok
}
