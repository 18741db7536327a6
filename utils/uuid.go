package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

const UUIDBytesLen = 16

// StrToUUID parses the canonical 8-4-4-4-12 hyphenated form used in
// config files into its 16-byte wire representation.
func StrToUUID(s string) (uuid [UUIDBytesLen]byte, err error) {
	b := []byte(strings.ReplaceAll(s, "-", ""))
	if len(b) != 32 {
		return uuid, ErrInErr{ErrDesc: "invalid UUID string", ErrDetail: ErrInvalidData, Data: s}
	}
	_, err = hex.Decode(uuid[:], b)
	return
}

// UUIDToStr renders 16 raw bytes back into the canonical hyphenated form.
func UUIDToStr(u []byte) string {
	if len(u) != UUIDBytesLen {
		return ""
	}
	buf := make([]byte, 36)
	hex.Encode(buf[0:8], u[0:4])
	buf[8] = '-'
	hex.Encode(buf[9:13], u[4:6])
	buf[13] = '-'
	hex.Encode(buf[14:18], u[6:8])
	buf[18] = '-'
	hex.Encode(buf[19:23], u[8:10])
	buf[23] = '-'
	hex.Encode(buf[24:], u[10:])
	return string(buf)
}

// GenerateUUIDv4 produces a random RFC 4122 version-4 UUID, used by the
// config init wizard to seed a fresh allowed_uuids entry.
func GenerateUUIDv4() (r [UUIDBytesLen]byte) {
	rand.Read(r[:])
	r[6] = (r[6] & 0x0f) | 0x40
	r[8] = (r[8] & 0x3f) | 0x80
	return
}
