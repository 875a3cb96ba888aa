package invoice

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/fastsha256"
)

func testKey(seed byte) *btcec.PrivateKey {
	priv, _ := btcec.PrivKeyFromBytes(btcec.S256(), bytes.Repeat([]byte{seed}, 32))
	return priv
}

func u64(v uint64) *uint64 { return &v }

func baseInvoice(net *chaincfg.Params) *Invoice {
	hash := fastsha256.Sum256([]byte("preimage"))
	desc := "coffee"
	return &Invoice{
		Net:         net,
		Timestamp:   time.Unix(1496314658, 0),
		PaymentHash: &hash,
		Description: &desc,
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		msat uint64
		ok   bool
	}{
		{"2500u", 250000000, true},
		{"20m", 2000000000, true},
		{"10n", 1000, true},
		{"10p", 1, true},
		{"1", 100000000000, true},
		{"1p", 0, false},
		{"0m", 0, false},
		{"m", 0, false},
		{"12x", 0, false},
		{"99999999999999999999", 0, false},
		{"18446744073709551616p", 0, false},
		{"18446744073709551619p", 0, false},
		{"18446744073709551610p", 1844674407370955161, true},
		{"184467440737095516150p", 0, false},
	}
	for _, test := range tests {
		got, err := parseAmount(test.in)
		if test.ok != (err == nil) {
			t.Fatalf("%q: err %v, want ok %t", test.in, err, test.ok)
		}
		if test.ok && *got != test.msat {
			t.Fatalf("%q: got %d msat want %d", test.in, *got, test.msat)
		}
	}
	if got, err := parseAmount(""); err != nil || got != nil {
		t.Fatalf("empty amount should be nil, got %v %v", got, err)
	}
}

func TestFormatAmount(t *testing.T) {
	tests := map[uint64]string{
		250000000:    "2500u",
		2000000000:   "20m",
		100000000000: "1",
		1000:         "10n",
		1:            "10p",
	}
	for msat, want := range tests {
		if got := formatAmount(msat); got != want {
			t.Fatalf("%d msat: got %s want %s", msat, got, want)
		}
	}
}

func TestEncodeDecode(t *testing.T) {
	key := testKey(0x11)
	hop := testKey(0x22)

	inv := baseInvoice(&chaincfg.RegressionNetParams)
	inv.MilliSat = u64(250000000)
	exp := 90 * time.Second
	inv.Expiry = &exp
	inv.MinFinalCLTV = u64(144)
	inv.Destination = key.PubKey()
	inv.RouteHints = [][]HopHint{{{
		NodeID:                    hop.PubKey(),
		ShortChannelID:            0x0102030405060708,
		FeeBaseMsat:               1000,
		FeeProportionalMillionths: 10,
		CLTVExpiryDelta:           40,
	}}}

	s, err := Encode(inv, key)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(s, "lnbcrt2500u1") {
		t.Fatalf("unexpected prefix on %s", s)
	}

	got, err := Decode(s)
	if err != nil {
		t.Fatal(err)
	}
	if got.Net.Name != chaincfg.RegressionNetParams.Name {
		t.Fatalf("net %s", got.Net.Name)
	}
	if got.MilliSat == nil || *got.MilliSat != 250000000 {
		t.Fatalf("amount %v", got.MilliSat)
	}
	if !got.Timestamp.Equal(inv.Timestamp) {
		t.Fatalf("timestamp %s", got.Timestamp)
	}
	if *got.PaymentHash != *inv.PaymentHash {
		t.Fatalf("payment hash %x", *got.PaymentHash)
	}
	if got.Description == nil || *got.Description != "coffee" {
		t.Fatalf("description %v", got.Description)
	}
	if !got.Payee.IsEqual(key.PubKey()) {
		t.Fatalf("recovered wrong payee")
	}
	if got.Destination == nil || !got.Destination.IsEqual(key.PubKey()) {
		t.Fatalf("destination not decoded")
	}
	if got.ExpiryOrDefault() != exp || got.MinFinalCLTVOrDefault() != 144 {
		t.Fatalf("expiry %s cltv %d", got.ExpiryOrDefault(), got.MinFinalCLTVOrDefault())
	}
	if len(got.RouteHints) != 1 || len(got.RouteHints[0]) != 1 {
		t.Fatalf("route hints %v", got.RouteHints)
	}
	h := got.RouteHints[0][0]
	if !h.NodeID.IsEqual(hop.PubKey()) || h.ShortChannelID != 0x0102030405060708 ||
		h.FeeBaseMsat != 1000 || h.FeeProportionalMillionths != 10 || h.CLTVExpiryDelta != 40 {
		t.Fatalf("hop hint %+v", h)
	}
}

func TestDecodeDefaults(t *testing.T) {
	s, err := Encode(baseInvoice(&chaincfg.TestNet3Params), testKey(3))
	if err != nil {
		t.Fatal(err)
	}
	inv, err := Decode(s)
	if err != nil {
		t.Fatal(err)
	}
	if inv.MilliSat != nil {
		t.Fatalf("amountless invoice decoded amount %d", *inv.MilliSat)
	}
	if inv.ExpiryOrDefault() != DefaultExpiry {
		t.Fatalf("default expiry %s", inv.ExpiryOrDefault())
	}
	if inv.MinFinalCLTVOrDefault() != DefaultMinFinalCLTV {
		t.Fatalf("default cltv %d", inv.MinFinalCLTVOrDefault())
	}
	if !inv.Expired(inv.Timestamp.Add(2 * time.Hour)) {
		t.Fatalf("should be expired after two hours")
	}
}

func TestDecodeMainnetPrefix(t *testing.T) {
	inv := baseInvoice(&chaincfg.MainNetParams)
	inv.MilliSat = u64(1000)
	s, err := Encode(inv, testKey(4))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(s, "lnbc10n1") {
		t.Fatalf("unexpected prefix on %s", s)
	}
	got, err := Decode(s)
	if err != nil {
		t.Fatal(err)
	}
	if got.Net.Name != chaincfg.MainNetParams.Name {
		t.Fatalf("net %s", got.Net.Name)
	}
}

func TestDecodeRejects(t *testing.T) {
	s, err := Encode(baseInvoice(&chaincfg.RegressionNetParams), testKey(5))
	if err != nil {
		t.Fatal(err)
	}

	// flip one data character; the checksum catches it
	b := []byte(s)
	i := len(b) - 20
	if b[i] == 'q' {
		b[i] = 'p'
	} else {
		b[i] = 'q'
	}

	bad := []string{
		"",
		"lnbcrt1qqqqqqqq",
		string(b),
		strings.Replace(s, "lnbcrt", "lnxx", 1),
	}
	for _, in := range bad {
		if _, err := Decode(in); err == nil {
			t.Fatalf("%q decoded", in)
		}
	}
}

func TestEncodeNeedsHash(t *testing.T) {
	inv := baseInvoice(&chaincfg.RegressionNetParams)
	inv.PaymentHash = nil
	if _, err := Encode(inv, testKey(6)); err == nil {
		t.Fatalf("encoded invoice without payment hash")
	}
}
