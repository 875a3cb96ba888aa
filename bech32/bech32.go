// Package bech32 implements the bech32 checksummed base32 format used by
// segwit addresses and lightning invoices. Unlike address decoding there is
// no 90 character limit here; invoices routinely run to several hundred.
package bech32

import (
	"fmt"
	"strings"
)

// charset is the sequence of ascii characters that make up the bech32
// alphabet.  Each character represents a 5-bit word.
const charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

var generator = [5]uint32{0x3b6a57b2, 0x26508e6d, 0x1ea119fa, 0x3d4233dd, 0x2a1462b3}

// charIndex maps both cases of each charset character to its 5-bit value,
// and everything else to -1.
var charIndex [256]int8

func init() {
	for i := range charIndex {
		charIndex[i] = -1
	}
	for i, c := range charset {
		charIndex[c] = int8(i)
		charIndex[strings.ToUpper(string(c))[0]] = int8(i)
	}
}

// ConvertBits regroups a slice of fromBits-wide values into toBits-wide
// values. With pad set a final partial group is zero filled; without it any
// leftover bits must be zero and fewer than fromBits.
func ConvertBits(data []byte, fromBits, toBits uint, pad bool) ([]byte, error) {
	var acc uint32
	var bits uint
	maxv := uint32(1)<<toBits - 1
	out := make([]byte, 0, len(data)*int(fromBits)/int(toBits)+1)
	for i, b := range data {
		if uint32(b)>>fromBits != 0 {
			return nil, fmt.Errorf("value %x at %d wider than %d bits", b, i, fromBits)
		}
		acc = acc<<fromBits | uint32(b)
		bits += fromBits
		for bits >= toBits {
			bits -= toBits
			out = append(out, byte(acc>>bits&maxv))
		}
	}
	if pad {
		if bits > 0 {
			out = append(out, byte(acc<<(toBits-bits)&maxv))
		}
		return out, nil
	}
	if bits >= fromBits || acc<<(toBits-bits)&maxv != 0 {
		return nil, fmt.Errorf("invalid padding converting %d to %d bits", fromBits, toBits)
	}
	return out, nil
}

// Bytes8to5 spreads bytes over 5-bit words, zero padding the tail.
func Bytes8to5(input []byte) []byte {
	out, _ := ConvertBits(input, 8, 5, true)
	return out
}

// Bytes5to8 packs 5-bit words back into bytes. Non-zero padding is an error.
func Bytes5to8(input []byte) ([]byte, error) {
	return ConvertBits(input, 5, 8, false)
}

func polyMod(values []byte) uint32 {
	chk := uint32(1)
	for _, v := range values {
		top := chk >> 25
		chk = (chk&0x1ffffff)<<5 ^ uint32(v)
		for i, g := range generator {
			if (top>>uint(i))&1 == 1 {
				chk ^= g
			}
		}
	}
	return chk
}

func hrpExpand(hrp string) []byte {
	out := make([]byte, len(hrp)*2+1)
	for i := 0; i < len(hrp); i++ {
		out[i] = hrp[i] >> 5
		out[i+len(hrp)+1] = hrp[i] & 0x1f
	}
	return out
}

func checksum(hrp string, words []byte) []byte {
	values := append(hrpExpand(hrp), words...)
	values = append(values, 0, 0, 0, 0, 0, 0)
	mod := polyMod(values) ^ 1
	sum := make([]byte, 6)
	for i := range sum {
		sum[i] = byte(mod>>(5*uint(5-i))) & 0x1f
	}
	return sum
}

func verifyChecksum(hrp string, words []byte) bool {
	return polyMod(append(hrpExpand(hrp), words...)) == 1
}

// EncodeWords builds a bech32 string from an hrp and 5-bit words.
func EncodeWords(hrp string, words []byte) (string, error) {
	var sb strings.Builder
	sb.Grow(len(hrp) + 1 + len(words) + 6)
	sb.WriteString(hrp)
	sb.WriteByte('1')
	all := make([]byte, 0, len(words)+6)
	all = append(append(all, words...), checksum(hrp, words)...)
	for i, w := range all {
		if w > 31 {
			return "", fmt.Errorf("word %d (%x) is not 5 bits", i, w)
		}
		sb.WriteByte(charset[w])
	}
	return sb.String(), nil
}

// Encode squashes full bytes into words and encodes them.
func Encode(hrp string, data []byte) string {
	s, _ := EncodeWords(hrp, Bytes8to5(data))
	return s
}

// DecodeWords splits s at its last '1', checks the checksum and returns the
// lower case hrp with the 5-bit data words, checksum removed.
func DecodeWords(s string) (string, []byte, error) {
	lower := strings.ToLower(s)
	if s != lower && s != strings.ToUpper(s) {
		return "", nil, fmt.Errorf("mixed case string")
	}
	split := strings.LastIndexByte(lower, '1')
	if split < 1 {
		return "", nil, fmt.Errorf("missing or leading 1 separator")
	}
	if len(lower)-split-1 < 6 {
		return "", nil, fmt.Errorf("data part shorter than checksum")
	}
	hrp := lower[:split]
	for i := 0; i < len(hrp); i++ {
		if hrp[i] < 33 || hrp[i] > 126 {
			return "", nil, fmt.Errorf("hrp character %d out of range", i)
		}
	}
	words := make([]byte, len(lower)-split-1)
	for i := range words {
		v := charIndex[lower[split+1+i]]
		if v == -1 {
			return "", nil, fmt.Errorf("invalid character %q", lower[split+1+i])
		}
		words[i] = byte(v)
	}
	if !verifyChecksum(hrp, words) {
		return "", nil, fmt.Errorf("checksum invalid")
	}
	return hrp, words[:len(words)-6], nil
}

// Decode is DecodeWords with the data packed back into bytes.
func Decode(s string) (string, []byte, error) {
	hrp, words, err := DecodeWords(s)
	if err != nil {
		return hrp, nil, err
	}
	data, err := Bytes5to8(words)
	if err != nil {
		return hrp, nil, err
	}
	return hrp, data, nil
}
