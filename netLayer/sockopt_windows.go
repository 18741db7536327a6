package netLayer

import (
	"net"
	"unsafe"

	"golang.org/x/sys/windows"
)

// tcpKeepalive mirrors the Win32 tcp_keepalive struct used by the
// SIO_KEEPALIVE_VALS WSAIoctl, which is how Windows exposes keepalive
// probe interval/count that net.TCPConn does not surface directly.
type tcpKeepalive struct {
	OnOff    uint32
	Time     uint32
	Interval uint32
}

// tuneKeepAliveProbes sets the keepalive probe interval on Windows via a
// raw WSAIoctl call.
func tuneKeepAliveProbes(conn *net.TCPConn) {
	raw, err := conn.SyscallConn()
	if err != nil {
		logTuneFailure("SyscallConn", err)
		return
	}

	ctrlErr := raw.Control(func(fd uintptr) {
		in := tcpKeepalive{OnOff: 1, Time: uint32(DefaultKeepAlivePeriod.Milliseconds()), Interval: 10000}
		var out tcpKeepalive
		var bytesReturned uint32

		err := windows.WSAIoctl(windows.Handle(fd), windows.SIO_KEEPALIVE_VALS,
			(*byte)(unsafe.Pointer(&in)), uint32(unsafe.Sizeof(in)),
			(*byte)(unsafe.Pointer(&out)), uint32(unsafe.Sizeof(out)),
			&bytesReturned, nil, 0)
		if err != nil {
			logTuneFailure("WSAIoctl SIO_KEEPALIVE_VALS", err)
		}
	})
	if ctrlErr != nil {
		logTuneFailure("Control", ctrlErr)
	}
}
