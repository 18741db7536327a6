package httpLayer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/novarelay/tunrelay/netLayer"
)

func TestParseConnect(t *testing.T) {
	req := "CONNECT 1.2.3.4:443 HTTP/1.1\r\nHost: x\r\n\r\n"
	res, status := Parse([]byte(req))
	if status != netLayer.Ok {
		t.Fatalf("expected Ok, got %v", status)
	}
	if res.Mode != ModeConnect || res.Target.String() != "1.2.3.4:443" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(res.Leftover) != 0 {
		t.Fatalf("CONNECT must not forward any request bytes, got %q", res.Leftover)
	}
}

func TestParseAbsoluteURI(t *testing.T) {
	req := "GET http://example.com/p HTTP/1.1\r\nHost: example.com\r\n\r\n"
	res, status := Parse([]byte(req))
	if status != netLayer.Ok {
		t.Fatalf("expected Ok, got %v", status)
	}
	if res.Mode != ModeForward || res.Target.String() != "example.com:80" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !bytes.Equal(res.Leftover, []byte(req)) {
		t.Fatalf("forward mode must replay the exact original bytes, got %q", res.Leftover)
	}
}

func TestParseAbsoluteURIWithBufferedBody(t *testing.T) {
	req := "POST http://example.com/p HTTP/1.1\r\nHost: example.com\r\nContent-Length: 4\r\n\r\nping"
	res, status := Parse([]byte(req))
	if status != netLayer.Ok {
		t.Fatalf("expected Ok, got %v", status)
	}
	if !bytes.Equal(res.Leftover, []byte(req)) {
		t.Fatalf("forward mode must replay headers and any already-buffered body, got %q", res.Leftover)
	}
}

func TestParseRejectsHTTPS(t *testing.T) {
	req := "GET https://x/ HTTP/1.1\r\n\r\n"
	_, status := Parse([]byte(req))
	if status != netLayer.Fail {
		t.Fatalf("expected Fail for https absolute-URI, got %v", status)
	}
}

func TestParseNeedMoreUntilHeadersEnd(t *testing.T) {
	req := "CONNECT 1.2.3.4:443 HTTP/1.1\r\nHost: x\r\n\r\n"
	for i := 1; i < len(req)-1; i++ {
		_, status := Parse([]byte(req[:i]))
		if status == netLayer.Fail {
			t.Fatalf("unexpected Fail at prefix length %d", i)
		}
	}
	_, status := Parse([]byte(req))
	if status != netLayer.Ok {
		t.Fatal("full request must parse")
	}
}

func TestParseOversizedWithoutHeaderEndFails(t *testing.T) {
	huge := "GET / HTTP/1.1\r\n" + strings.Repeat("a", MaxHeaderBytes+1)
	_, status := Parse([]byte(huge))
	if status != netLayer.Fail {
		t.Fatalf("expected Fail for oversized header, got %v", status)
	}
}
