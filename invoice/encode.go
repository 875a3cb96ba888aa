package invoice

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec"
	"github.com/mit-dci/litd/bech32"
	"github.com/mit-dci/litd/lnutil"
)

// Encode serializes inv and signs it with key. Net, PaymentHash and one of
// Description or DescriptionHash are required. Payee is ignored; the
// signature makes it key's public half.
func Encode(inv *Invoice, key *btcec.PrivateKey) (string, error) {
	if inv.Net == nil {
		return "", fmt.Errorf("invoice has no network")
	}
	if inv.PaymentHash == nil {
		return "", fmt.Errorf("invoice has no payment hash")
	}
	if inv.Description == nil && inv.DescriptionHash == nil {
		return "", fmt.Errorf("invoice needs a description or description hash")
	}

	hrp := "ln" + inv.Net.Bech32HRPSegwit
	if inv.MilliSat != nil && *inv.MilliSat != 0 {
		if *inv.MilliSat > (1<<64-1)/10 {
			return "", fmt.Errorf("amount %d msat too large", *inv.MilliSat)
		}
		hrp += formatAmount(*inv.MilliSat)
	}

	ts := inv.Timestamp.Unix()
	if ts < 0 || ts >= 1<<35 {
		return "", fmt.Errorf("timestamp %d out of range", ts)
	}
	words := uintToWords(uint64(ts), timestampWords)

	add := func(typ byte, data []byte) error {
		if len(data) >= 1<<10 {
			return fmt.Errorf("field %d is %d words, too long", typ, len(data))
		}
		words = append(words, typ, byte(len(data)>>5), byte(len(data)&31))
		words = append(words, data...)
		return nil
	}

	if err := add(fieldPaymentHash, bech32.Bytes8to5(inv.PaymentHash[:])); err != nil {
		return "", err
	}
	if inv.PaymentSecret != nil {
		if err := add(fieldPaymentSecret, bech32.Bytes8to5(inv.PaymentSecret[:])); err != nil {
			return "", err
		}
	}
	if inv.Description != nil {
		if err := add(fieldDescription, bech32.Bytes8to5([]byte(*inv.Description))); err != nil {
			return "", err
		}
	}
	if inv.DescriptionHash != nil {
		if err := add(fieldDescriptionHash, bech32.Bytes8to5(inv.DescriptionHash[:])); err != nil {
			return "", err
		}
	}
	if inv.Destination != nil {
		if err := add(fieldDestination, bech32.Bytes8to5(inv.Destination.SerializeCompressed())); err != nil {
			return "", err
		}
	}
	if inv.Expiry != nil {
		if err := add(fieldExpiry, uintToWords(uint64(inv.Expiry.Seconds()), 0)); err != nil {
			return "", err
		}
	}
	if inv.MinFinalCLTV != nil {
		if err := add(fieldMinFinalCLTV, uintToWords(*inv.MinFinalCLTV, 0)); err != nil {
			return "", err
		}
	}
	for _, fb := range inv.Fallbacks {
		data := append([]byte{fb.Version}, bech32.Bytes8to5(fb.Program)...)
		if err := add(fieldFallback, data); err != nil {
			return "", err
		}
	}
	for _, route := range inv.RouteHints {
		b := make([]byte, 0, len(route)*hopHintLen)
		for _, hop := range route {
			b = append(b, hop.NodeID.SerializeCompressed()...)
			b = append(b, lnutil.U64tB(hop.ShortChannelID)...)
			b = append(b, lnutil.U32tB(hop.FeeBaseMsat)...)
			b = append(b, lnutil.U32tB(hop.FeeProportionalMillionths)...)
			b = append(b, lnutil.U16tB(hop.CLTVExpiryDelta)...)
		}
		if err := add(fieldRouteHint, bech32.Bytes8to5(b)); err != nil {
			return "", err
		}
	}
	if len(inv.Features) != 0 {
		if err := add(fieldFeatures, inv.Features); err != nil {
			return "", err
		}
	}

	hash, err := sigHash(hrp, words)
	if err != nil {
		return "", err
	}
	compact, err := btcec.SignCompact(btcec.S256(), key, hash[:], true)
	if err != nil {
		return "", err
	}
	// compact is header || r || s, the invoice wants r || s || recid
	sig := append(compact[1:65:65], compact[0]-27-4)
	words = append(words, bech32.Bytes8to5(sig)...)

	return bech32.EncodeWords(hrp, words)
}

// uintToWords writes n as big endian 5-bit words, at least min of them.
// Zero with min 0 encodes as no words at all.
func uintToWords(n uint64, min int) []byte {
	var rev []byte
	for n > 0 {
		rev = append(rev, byte(n&31))
		n >>= 5
	}
	for len(rev) < min {
		rev = append(rev, 0)
	}
	out := make([]byte, len(rev))
	for i, w := range rev {
		out[len(rev)-1-i] = w
	}
	return out
}
