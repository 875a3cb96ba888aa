package lnutil

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

func TestOutPointsEqual(t *testing.T) {
	h1 := chainhash.Hash{0x01}
	h2 := chainhash.Hash{0x02}

	tests := []struct {
		a, b wire.OutPoint
		want bool
	}{
		{wire.OutPoint{Hash: h1, Index: 2}, wire.OutPoint{Hash: h2, Index: 1}, false},
		{wire.OutPoint{Hash: h1, Index: 1}, wire.OutPoint{Hash: h2, Index: 1}, false},
		{wire.OutPoint{Hash: h1, Index: 1}, wire.OutPoint{Hash: h1, Index: 2}, false},
		{wire.OutPoint{Hash: h1, Index: 1}, wire.OutPoint{Hash: h1, Index: 1}, true},
	}
	for i, test := range tests {
		if got := OutPointsEqual(test.a, test.b); got != test.want {
			t.Fatalf("test %d: got %t want %t", i, got, test.want)
		}
	}
}

func TestWitnessAddress(t *testing.T) {
	p2wpkh := append([]byte{0x00, 0x14}, bytes.Repeat([]byte{0xab}, 20)...)
	p2wsh := append([]byte{0x00, 0x20}, bytes.Repeat([]byte{0xcd}, 32)...)
	p2pkh := append(append([]byte{0x76, 0xa9, 0x14}, bytes.Repeat([]byte{0x11}, 20)...), 0x88, 0xac)

	tests := []struct {
		script []byte
		ok     bool
	}{
		{p2wpkh, true},
		{p2wsh, true},
		{p2pkh, false},
		{[]byte{0x6a}, false},
	}
	for i, test := range tests {
		addr, err := WitnessAddress(test.script, &chaincfg.RegressionNetParams)
		if test.ok != (err == nil) {
			t.Fatalf("test %d: err %v, want ok %t", i, err, test.ok)
		}
		if test.ok && !strings.HasPrefix(addr.EncodeAddress(), "bcrt1") {
			t.Fatalf("test %d: address %s is not regtest bech32", i, addr.EncodeAddress())
		}
	}
}

func TestParseChannelID(t *testing.T) {
	good := strings.Repeat("0f", 32)
	id, err := ParseChannelID(good)
	if err != nil {
		t.Fatal(err)
	}
	if id[0] != 0x0f || id[31] != 0x0f {
		t.Fatalf("bad decode %x", id)
	}
	for _, s := range []string{"", "0f", strings.Repeat("zz", 32), strings.Repeat("0f", 33)} {
		if _, err := ParseChannelID(s); err == nil {
			t.Fatalf("%q accepted", s)
		}
	}
}

func TestTxToString(t *testing.T) {
	tx := wire.NewMsgTx(2)
	tx.AddTxIn(wire.NewTxIn(&wire.OutPoint{Index: 3}, nil, nil))
	tx.AddTxOut(wire.NewTxOut(5000, []byte{0x00, 0x14}))
	s := TxToString(tx)
	if !strings.Contains(s, tx.TxHash().String()) {
		t.Fatalf("txid missing from %q", s)
	}
	if !strings.Contains(s, fmt.Sprintf("size %d vsize %d ", tx.SerializeSize(), tx.SerializeSize())) {
		t.Fatalf("non-witness vsize should equal size in %q", s)
	}
	if !strings.Contains(s, "amt: 5000") {
		t.Fatalf("output missing from %q", s)
	}
}
