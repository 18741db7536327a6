package rawtcp

import (
	"bytes"
	"testing"

	"github.com/novarelay/tunrelay/netLayer"
)

func TestParseDomainTarget(t *testing.T) {
	header := []byte{0x02, 7}
	header = append(header, []byte("a.b.com")...)
	header = append(header, 0x00, 0x50)
	header = append(header, []byte("PING")...)

	res, status := Parse(header)
	if status != netLayer.Ok {
		t.Fatalf("expected Ok, got %v", status)
	}
	if res.Target.Name != "a.b.com" || res.Target.Port != 80 {
		t.Fatalf("unexpected target: %+v", res.Target)
	}
	if !bytes.Equal(res.Leftover, []byte("PING")) {
		t.Fatalf("unexpected leftover: %q", res.Leftover)
	}
}

func TestParseNeedsMoreOnTruncatedDomain(t *testing.T) {
	header := []byte{0x02, 7, 'a', 'b'}
	_, status := Parse(header)
	if status != netLayer.NeedMore {
		t.Fatalf("expected NeedMore, got %v", status)
	}
}

func TestParseInvalidAtypFails(t *testing.T) {
	header := []byte{0xff, 1, 2, 3, 4, 0, 80}
	_, status := Parse(header)
	if status != netLayer.Fail {
		t.Fatalf("expected Fail, got %v", status)
	}
}
