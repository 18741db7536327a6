// Package httpLayer parses the HTTP-Proxy request line and dispatches
// between CONNECT tunnel mode and absolute-URI forward mode.
//
// See https://datatracker.ietf.org/doc/html/rfc7231#section-4.3.6 for
// why CONNECT exists only in proxy requests.
package httpLayer

import (
	"bytes"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/novarelay/tunrelay/netLayer"
	"github.com/novarelay/tunrelay/utils"
)

// MaxHeaderBytes bounds how long Parse will wait for the end of the
// request headers before declaring the handshake malformed.
const MaxHeaderBytes = 8 * 1024

var endOfHeaders = []byte("\r\n\r\n")

// ConnectEstablished is written back to the client once the upstream
// dial for a CONNECT request succeeds.
var ConnectEstablished = []byte("HTTP/1.1 200 Connection established\r\n\r\n")

// BadRequest is written back when the request line can't be parsed, or
// when an absolute-URI request names the https scheme (which must use
// CONNECT instead).
var BadRequest = []byte("HTTP/1.1 400 Bad Request\r\n\r\n")

// BadGateway is written back when the upstream dial for a CONNECT
// request fails.
var BadGateway = []byte("HTTP/1.1 502 Bad Gateway\r\n\r\n")

// Mode distinguishes the two HTTP-Proxy handshake outcomes, since each
// drives a different Session reply and forwarding behavior.
type Mode int

const (
	ModeConnect Mode = iota
	ModeForward
)

// Result is what Parse hands the Session once the request headers are
// fully read: the mode, target, and (for ModeForward) the original
// request bytes to replay to upstream verbatim. CONNECT never forwards
// its request line or headers, so Leftover is empty in that mode.
type Result struct {
	Mode     Mode
	Target   netLayer.Target
	Leftover []byte
}

// Parse reads buf until the blank line ending the request headers and
// classifies the request line. It never blocks and never retains buf.
func Parse(buf []byte) (Result, netLayer.Status) {
	idx := bytes.Index(buf, endOfHeaders)
	if idx < 0 {
		if len(buf) > MaxHeaderBytes {
			return Result{}, netLayer.Fail
		}
		return Result{}, netLayer.NeedMore
	}
	lineEnd := bytes.Index(buf[:idx], []byte("\r\n"))
	var line string
	if lineEnd < 0 {
		line = string(buf[:idx])
	} else {
		line = string(buf[:lineEnd])
	}

	fields := strings.Fields(line)
	if len(fields) != 3 {
		return Result{}, netLayer.Fail
	}
	method, target := fields[0], fields[1]

	if strings.EqualFold(method, "CONNECT") {
		t, err := targetFromAuthority(target)
		if err != nil {
			return Result{}, netLayer.Fail
		}
		return Result{Mode: ModeConnect, Target: t}, netLayer.Ok
	}

	u, err := url.ParseRequestURI(target)
	if err != nil || u.Host == "" || u.Scheme != "http" {
		return Result{}, netLayer.Fail
	}

	t, err := targetFromAuthority(u.Host)
	if err != nil {
		return Result{}, netLayer.Fail
	}

	return Result{Mode: ModeForward, Target: t, Leftover: buf}, netLayer.Ok
}

func targetFromAuthority(authority string) (netLayer.Target, error) {
	host, portStr := authority, "80"
	if i := strings.LastIndexByte(authority, ':'); i >= 0 {
		host, portStr = authority[:i], authority[i+1:]
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return netLayer.Target{}, utils.ErrInvalidData
	}
	if ip := net.ParseIP(host); ip != nil {
		return netLayer.NewTargetFromIP(ip, port), nil
	}
	return netLayer.NewDomainTarget(host, port)
}
