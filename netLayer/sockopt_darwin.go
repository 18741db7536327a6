package netLayer

import (
	"net"

	"golang.org/x/sys/unix"
)

// tuneKeepAliveProbes sets TCP_KEEPINTVL/TCP_KEEPCNT on Darwin.
func tuneKeepAliveProbes(conn *net.TCPConn) {
	raw, err := conn.SyscallConn()
	if err != nil {
		logTuneFailure("SyscallConn", err)
		return
	}

	ctrlErr := raw.Control(func(fd uintptr) {
		if err := unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPINTVL, 10); err != nil {
			logTuneFailure("TCP_KEEPINTVL", err)
		}
		if err := unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPCNT, 6); err != nil {
			logTuneFailure("TCP_KEEPCNT", err)
		}
	})
	if ctrlErr != nil {
		logTuneFailure("Control", ctrlErr)
	}
}
