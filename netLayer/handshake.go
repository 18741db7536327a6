package netLayer

// Command is the tunneled operation a handshake asked for. Only CmdTCP is
// actually relayed; parsers recognize the others as valid wire values but
// still report Fail for them, the same status as a malformed header.
type Command byte

const (
	CmdTCP Command = iota
	CmdUDP
	CmdMux
	CmdUnknown
)

// Status is the three-way outcome every tunnel parser reports for a
// given accumulated buffer: wait for more bytes, a complete result, or a
// terminal parse failure. Never both Ok and Fail for the same buffer
// contents, regardless of how the bytes were fragmented across reads.
type Status int

const (
	NeedMore Status = iota
	Ok
	Fail
)

// HandshakeResult is what a tunnel parser hands the Session once a
// header is fully parsed: the upstream Target, the requested Command,
// and any payload bytes that followed the header in the same read.
//
// OnDialOK/OnDialFail override the Session's default one-byte signal
// for parsers whose wire reply isn't a single byte (HTTP-Proxy's
// "200 Connection established" / "502 Bad Gateway" status lines). Both
// are nil for VLESS/Trojan/RawTCP, which fall back to the signal byte.
type HandshakeResult struct {
	Target     Target
	Command    Command
	Leftover   []byte
	OnDialOK   []byte
	OnDialFail []byte
}
