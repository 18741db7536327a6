package session

import (
	"github.com/novarelay/tunrelay/httpLayer"
	"github.com/novarelay/tunrelay/netLayer"
	"github.com/novarelay/tunrelay/proxy/rawtcp"
	"github.com/novarelay/tunrelay/proxy/trojan"
	"github.com/novarelay/tunrelay/proxy/vless"
)

// VlessParser adapts vless.Parse to the Parser signature.
func VlessParser(allowed vless.AllowList) Parser {
	return func(buf []byte) (netLayer.HandshakeResult, netLayer.Status) {
		return vless.Parse(buf, allowed)
	}
}

// TrojanParser adapts trojan.Parse to the Parser signature.
func TrojanParser(allowed trojan.AllowList) Parser {
	return func(buf []byte) (netLayer.HandshakeResult, netLayer.Status) {
		return trojan.Parse(buf, allowed)
	}
}

// RawTCPParser adapts rawtcp.Parse to the Parser signature.
func RawTCPParser() Parser {
	return rawtcp.Parse
}

// HTTPProxyParser adapts httpLayer.Parse to the Parser signature,
// translating its Mode into the OnDialOK/OnDialFail status lines
// Session writes back instead of the generic signal byte.
func HTTPProxyParser() Parser {
	return func(buf []byte) (netLayer.HandshakeResult, netLayer.Status) {
		res, status := httpLayer.Parse(buf)
		if status != netLayer.Ok {
			return netLayer.HandshakeResult{}, status
		}

		hr := netLayer.HandshakeResult{
			Target:  res.Target,
			Command: netLayer.CmdTCP,
		}
		if res.Mode == httpLayer.ModeConnect {
			hr.OnDialOK = httpLayer.ConnectEstablished
			hr.OnDialFail = httpLayer.BadGateway
		} else {
			hr.Leftover = res.Leftover
		}
		return hr, netLayer.Ok
	}
}
