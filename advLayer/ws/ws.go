/*
Package ws implements the WebSocket MessageTransport side of the
Framing Adapter: it terminates the WebSocket handshake on an inbound
listener and exposes binary frames as a plain net.Conn.

# Reference

websocket rfc: https://datatracker.ietf.org/doc/html/rfc6455/

Below is a real websocket handshake progress:

Request

	GET /chat HTTP/1.1
	    Host: server.example.com
	    Upgrade: websocket
	    Connection: Upgrade
	    Sec-WebSocket-Key: x3JJHMbDL1EzLkh9GBhXDw==
	    Sec-WebSocket-Protocol: chat, superchat
	    Sec-WebSocket-Version: 13
	    Origin: http://example.com

Response

	HTTP/1.1 101 Switching Protocols
	    Upgrade: websocket
	    Connection: Upgrade
	    Sec-WebSocket-Accept: HSmrc0sMlYUkAGmm5OPpG2HaGWk=
	    Sec-WebSocket-Protocol: chat

gobwas/ws only speaks HTTP/1.1 framing, so a front proxy must set
proxy_http_version 1.1 when relaying to this listener.
*/
package ws

// MaxEarlyDataLen bounds the optional 0-RTT payload some clients smuggle
// in the Sec-WebSocket-Protocol header during the handshake, avoiding an
// unbounded base64 decode off an attacker-controlled header.
const MaxEarlyDataLen = 2048

// MaxEarlyDataLen_Base64 is MaxEarlyDataLen after base64 expansion:
// 2048/3 = 682.666, rounded up to 683 groups of 4 chars = 2732.
const MaxEarlyDataLen_Base64 = 2732
