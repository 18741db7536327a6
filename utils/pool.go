package utils

import (
	"bytes"
	"sync"
)

// MaxBufLen bounds the chunk size used by the splice and UDP forwarder.
const MaxBufLen = 64 * 1024

var (
	packetPool = sync.Pool{
		New: func() any { return make([]byte, MaxBufLen) },
	}
	bufPool = sync.Pool{
		New: func() any { return &bytes.Buffer{} },
	}
)

// GetPacket returns a MaxBufLen-capacity slice from the pool, for splice
// and UDP datagram reads.
func GetPacket() []byte { return packetPool.Get().([]byte)[:MaxBufLen] }

// PutPacket returns a slice obtained from GetPacket to the pool.
func PutPacket(bs []byte) {
	if cap(bs) < MaxBufLen {
		return
	}
	packetPool.Put(bs[:MaxBufLen])
}

// GetBuf returns a pooled, empty *bytes.Buffer, for accumulating a
// handshake header across short reads.
func GetBuf() *bytes.Buffer { return bufPool.Get().(*bytes.Buffer) }

// PutBuf resets and returns buf to the pool.
func PutBuf(buf *bytes.Buffer) {
	buf.Reset()
	bufPool.Put(buf)
}
