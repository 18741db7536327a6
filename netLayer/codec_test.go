package netLayer

import (
	"net"
	"strings"
	"testing"

	"github.com/novarelay/tunrelay/utils"
)

func TestAddrCodecRoundTrip(t *testing.T) {
	cases := []Target{
		{Kind: KindIPv4, IP: net.IPv4(1, 2, 3, 4)},
		{Kind: KindIPv6, IP: net.ParseIP("2001:db8::1")},
		mustDomain(t, "a", 0),
		mustDomain(t, strings.Repeat("a", 255), 0),
	}

	for _, table := range []AddrTable{VlessAddrTable, TrojanAddrTable, RawTCPAddrTable} {
		for _, want := range cases {
			encoded := EncodeAddrPart(table, want)
			got, n, err := DecodeAddrPart(table, encoded)
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if n != len(encoded) {
				t.Fatalf("consumed %d, want %d", n, len(encoded))
			}
			if got.Kind != want.Kind {
				t.Fatalf("kind mismatch: got %v want %v", got.Kind, want.Kind)
			}
			switch want.Kind {
			case KindDomain:
				if got.Name != want.Name {
					t.Fatalf("name mismatch: got %q want %q", got.Name, want.Name)
				}
			default:
				if !got.IP.Equal(want.IP) {
					t.Fatalf("ip mismatch: got %v want %v", got.IP, want.IP)
				}
			}
		}
	}
}

func mustDomain(t *testing.T, name string, port int) Target {
	t.Helper()
	target, err := NewDomainTarget(name, port)
	if err != nil {
		t.Fatalf("NewDomainTarget(%q) failed: %v", name, err)
	}
	return target
}

func TestDecodeAddrPartShortBufferNeverFails(t *testing.T) {
	full := EncodeAddrPart(VlessAddrTable, mustDomain(t, "example.com", 0))
	for i := 0; i < len(full); i++ {
		_, _, err := DecodeAddrPart(VlessAddrTable, full[:i])
		if err != utils.ErrShortBuffer {
			t.Fatalf("prefix length %d: expected ErrShortBuffer, got %v", i, err)
		}
	}
	if _, n, err := DecodeAddrPart(VlessAddrTable, full); err != nil || n != len(full) {
		t.Fatalf("full buffer should decode cleanly, got n=%d err=%v", n, err)
	}
}
