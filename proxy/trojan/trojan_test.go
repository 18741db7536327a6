package trojan

import (
	"bytes"
	"strings"
	"testing"

	"github.com/novarelay/tunrelay/netLayer"
)

func connectHeader(hash string) []byte {
	h := []byte(hash)
	h = append(h, crlf...)
	h = append(h, CmdConnect)
	h = append(h, 0x01, 1, 2, 3, 4)
	h = append(h, 0x01, 0xBB)
	h = append(h, crlf...)
	h = append(h, []byte("GET / HTTP/1.0\r\n\r\n")...)
	return h
}

func TestParseHappyPath(t *testing.T) {
	hash := SHA224Hex("secret")
	header := connectHeader(hash)

	res, status := Parse(header, nil)
	if status != netLayer.Ok {
		t.Fatalf("expected Ok, got %v", status)
	}
	if res.Target.Port != 443 {
		t.Fatalf("unexpected port: %d", res.Target.Port)
	}
	if !bytes.Equal(res.Leftover, []byte("GET / HTTP/1.0\r\n\r\n")) {
		t.Fatalf("unexpected leftover: %q", res.Leftover)
	}
}

func TestParseRejectsBadHash(t *testing.T) {
	bad := strings.Repeat("z", HashLen)
	header := append([]byte(bad), crlf...)
	_, status := Parse(header, nil)
	if status != netLayer.Fail {
		t.Fatalf("expected Fail for non-hex password, got %v", status)
	}
}

func TestHashPatternBoundaries(t *testing.T) {
	if !hashPattern.MatchString(strings.Repeat("a", HashLen)) {
		t.Fatal("56 hex chars should match")
	}
	if hashPattern.MatchString(strings.Repeat("a", HashLen-1)) {
		t.Fatal("55 chars should not match")
	}
	if hashPattern.MatchString(strings.Repeat("a", HashLen+1)) {
		t.Fatal("57 chars should not match")
	}
	if hashPattern.MatchString(strings.Repeat("a", HashLen-1) + "g") {
		t.Fatal("non-hex char should not match")
	}
}

func TestParseRejectsUnknownHash(t *testing.T) {
	hash := SHA224Hex("secret")
	header := connectHeader(hash)
	allowed := NewAllowList([]string{SHA224Hex("other")})
	_, status := Parse(header, allowed)
	if status != netLayer.Fail {
		t.Fatalf("expected Fail for hash not on allow-list, got %v", status)
	}
}

func TestParseIncrementalBuffering(t *testing.T) {
	header := connectHeader(SHA224Hex("secret"))
	for i := 1; i < len(header); i++ {
		_, status := Parse(header[:i], nil)
		if status == netLayer.Fail {
			t.Fatalf("unexpected Fail at prefix length %d", i)
		}
	}
}
