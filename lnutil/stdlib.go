package lnutil

import (
	"encoding/binary"
	"strings"

	"github.com/mit-dci/litd/logging"
)

// U32tB is a uint32 as 4 big endian bytes.
func U32tB(i uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, i)
	return b
}

// BtU32 reads 4 big endian bytes. Returns ffffffff on a bad length.
func BtU32(b []byte) uint32 {
	if len(b) != 4 {
		logging.Errorf("Got %x to BtU32 (%d bytes)", b, len(b))
		return 0xffffffff
	}
	return binary.BigEndian.Uint32(b)
}

// U16tB is a uint16 as 2 big endian bytes.
func U16tB(i uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, i)
	return b
}

// BtU16 reads 2 big endian bytes. Returns ffff on a bad length.
func BtU16(b []byte) uint16 {
	if len(b) != 2 {
		logging.Errorf("Got %x to BtU16 (%d bytes)", b, len(b))
		return 0xffff
	}
	return binary.BigEndian.Uint16(b)
}

// U64tB is a uint64 as 8 big endian bytes.
func U64tB(i uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, i)
	return b
}

// BtU64 reads 8 big endian bytes. Returns ffff... on a bad length.
func BtU64(b []byte) uint64 {
	if len(b) != 8 {
		logging.Errorf("Got %x to BtU64 (%d bytes)", b, len(b))
		return 0xffffffffffffffff
	}
	return binary.BigEndian.Uint64(b)
}

// NopeString returns true if the string means "nope"
func NopeString(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "nope", "no", "n", "false", "0", "nil", "null", "disable", "off", "none", "":
		return true
	}
	return false
}
