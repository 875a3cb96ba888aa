package bech32

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"
)

var (
	validChecksum = []string{
		"A12UEL5L",
		"an83characterlonghumanreadablepartthatcontainsthenumber1andtheexcludedcharactersbio1tt5tgs",
		"abcdef1qpzry9x8gf2tvdw0s3jn54khce6mua7lmqqqxw",
		"11qqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqc8247j",
		"split1checkupstagehandshakeupstreamerranterredcaperred2y9e3w",
	}

	invalidChecksum = []string{
		"pzry9x0s0muk",
		"1pzry9x0s0muk",
		"x1b4n0q5v",
		"li1dgmt3",
		"A1G7SGD8",
		"10a06t8",
		"1qzzfhee",
		"a12UEL5L",
	}
)

func TestValidChecksum(t *testing.T) {
	for _, s := range validChecksum {
		hrp, words, err := DecodeWords(s)
		if err != nil {
			t.Fatalf("%s: %s", s, err.Error())
		}
		again, err := EncodeWords(hrp, words)
		if err != nil {
			t.Fatal(err)
		}
		if again != strings.ToLower(s) {
			t.Fatalf("re-encode got %s want %s", again, strings.ToLower(s))
		}
	}
}

func TestInvalidChecksum(t *testing.T) {
	for _, s := range invalidChecksum {
		if _, _, err := DecodeWords(s); err == nil {
			t.Fatalf("%s decoded but should not", s)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		data := make([]byte, r.Intn(400))
		r.Read(data)
		s := Encode("lnbcrt", data)
		hrp, got, err := Decode(s)
		if err != nil {
			t.Fatalf("len %d: %s", len(data), err.Error())
		}
		if hrp != "lnbcrt" || !bytes.Equal(got, data) {
			t.Fatalf("round trip mismatch at len %d", len(data))
		}
	}
}

func TestLongStringAccepted(t *testing.T) {
	s := Encode("lnbc", bytes.Repeat([]byte{0x5a}, 300))
	if len(s) <= 90 {
		t.Fatalf("test string only %d chars", len(s))
	}
	if _, _, err := Decode(s); err != nil {
		t.Fatalf("long string rejected: %s", err.Error())
	}
}

func TestConvertBitsPadding(t *testing.T) {
	// 3 words is 15 bits, one byte plus 7 leftover bits
	if _, err := ConvertBits([]byte{1, 2, 3}, 5, 8, false); err == nil {
		t.Fatalf("7 leftover bits accepted without padding")
	}
	out, err := ConvertBits([]byte{1, 2, 3}, 5, 8, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("padded output %x, want 2 bytes", out)
	}
	if _, err := ConvertBits([]byte{32}, 5, 8, true); err == nil {
		t.Fatalf("6 bit value accepted as 5 bit word")
	}
}
