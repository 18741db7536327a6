package vless

import (
	"bytes"
	"testing"

	"github.com/novarelay/tunrelay/netLayer"
)

func happyPathHeader() []byte {
	uuid := make([]byte, UUIDLen)
	for i := range uuid {
		uuid[i] = byte(i)
	}
	h := []byte{0x00}
	h = append(h, uuid...)
	h = append(h, 0x00)       // addons len
	h = append(h, 0x01)       // cmd TCP
	h = append(h, 0x01, 0xBB) // port 443
	h = append(h, 0x01, 1, 2, 3, 4)
	h = append(h, []byte("GET / HTTP/1.0\r\n\r\n")...)
	return h
}

func TestParseHappyPath(t *testing.T) {
	header := happyPathHeader()
	var uuid [UUIDLen]byte
	copy(uuid[:], header[1:1+UUIDLen])
	allowed := AllowList{uuid: true}

	res, status := Parse(header, allowed)
	if status != netLayer.Ok {
		t.Fatalf("expected Ok, got %v", status)
	}
	if res.Target.Port != 443 || res.Target.IP.String() != "1.2.3.4" {
		t.Fatalf("unexpected target: %+v", res.Target)
	}
	if !bytes.Equal(res.Leftover, []byte("GET / HTTP/1.0\r\n\r\n")) {
		t.Fatalf("unexpected leftover: %q", res.Leftover)
	}
}

func TestParseIncrementalBuffering(t *testing.T) {
	header := happyPathHeader()
	var uuid [UUIDLen]byte
	copy(uuid[:], header[1:1+UUIDLen])
	allowed := AllowList{uuid: true}

	for i := 1; i < len(header); i++ {
		res, status := Parse(header[:i], allowed)
		if status == netLayer.Fail {
			t.Fatalf("unexpected Fail at prefix length %d", i)
		}
		if status == netLayer.Ok {
			if res.Target.Port != 443 {
				t.Fatalf("premature Ok with wrong result at prefix %d", i)
			}
		}
	}
	res, status := Parse(header, allowed)
	if status != netLayer.Ok || res.Target.Port != 443 {
		t.Fatalf("final prefix must parse fully, got %v", status)
	}
}

func TestParseRejectsUnknownUUID(t *testing.T) {
	header := happyPathHeader()
	_, status := Parse(header, AllowList{{0xff}: true})
	if status != netLayer.Fail {
		t.Fatalf("expected Fail for unknown uuid, got %v", status)
	}
}

func TestParseRejectsEmptyAllowList(t *testing.T) {
	header := happyPathHeader()
	_, status := Parse(header, AllowList{})
	if status != netLayer.Fail {
		t.Fatalf("expected Fail when no UUIDs are configured, got %v", status)
	}
}

func TestParseRejectsUDPCommand(t *testing.T) {
	header := happyPathHeader()
	header[1+UUIDLen+1] = 0x02 // overwrite cmd with UDP

	var uuid [UUIDLen]byte
	copy(uuid[:], header[1:1+UUIDLen])
	_, status := Parse(header, AllowList{uuid: true})
	if status != netLayer.Fail {
		t.Fatalf("expected Fail for UDP command, got %v", status)
	}
}
