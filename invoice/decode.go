package invoice

import (
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcec"
	"github.com/btcsuite/fastsha256"
	"github.com/mit-dci/litd/bech32"
	"github.com/mit-dci/litd/lnutil"
)

// Decode parses a BOLT11 string, checks its signature and recovers the
// payee key. Malformed known fields are skipped as the format requires,
// except where that would change who gets paid.
func Decode(s string) (*Invoice, error) {
	hrp, words, err := bech32.DecodeWords(s)
	if err != nil {
		return nil, err
	}
	net, amt, err := netForHRP(hrp)
	if err != nil {
		return nil, err
	}
	inv := &Invoice{Net: net}
	inv.MilliSat, err = parseAmount(amt)
	if err != nil {
		return nil, err
	}

	if len(words) < timestampWords+signatureWords {
		return nil, fmt.Errorf("invoice data only %d words", len(words))
	}
	signed := words[:len(words)-signatureWords]
	sigWords := words[len(words)-signatureWords:]

	ts, err := wordsToUint(signed[:timestampWords])
	if err != nil {
		return nil, err
	}
	inv.Timestamp = time.Unix(int64(ts), 0)

	if err := inv.parseFields(signed[timestampWords:]); err != nil {
		return nil, err
	}
	if inv.PaymentHash == nil {
		return nil, fmt.Errorf("invoice has no payment hash")
	}

	hash, err := sigHash(hrp, signed)
	if err != nil {
		return nil, err
	}
	sig, err := bech32.Bytes5to8(sigWords)
	if err != nil {
		return nil, err
	}
	recid := sig[64]
	if recid > 3 {
		return nil, fmt.Errorf("bad signature recovery id %d", recid)
	}
	compact := append([]byte{27 + 4 + recid}, sig[:64]...)
	payee, _, err := btcec.RecoverCompact(btcec.S256(), compact, hash[:])
	if err != nil {
		return nil, fmt.Errorf("invoice signature: %s", err.Error())
	}
	inv.Payee = payee
	return inv, nil
}

// sigHash is sha256 over the hrp bytes and the signed words packed into
// zero padded bytes.
func sigHash(hrp string, signed []byte) ([32]byte, error) {
	packed, err := bech32.ConvertBits(signed, 5, 8, true)
	if err != nil {
		return [32]byte{}, err
	}
	return fastsha256.Sum256(append([]byte(hrp), packed...)), nil
}

func (inv *Invoice) parseFields(words []byte) error {
	for len(words) > 0 {
		if len(words) < 3 {
			return fmt.Errorf("truncated tagged field")
		}
		typ := words[0]
		l := int(words[1])<<5 | int(words[2])
		words = words[3:]
		if len(words) < l {
			return fmt.Errorf("field %d length %d overruns data", typ, l)
		}
		data := words[:l]
		words = words[l:]

		switch typ {
		case fieldPaymentHash:
			if inv.PaymentHash == nil {
				inv.PaymentHash = fixed32(data)
			}
		case fieldPaymentSecret:
			if inv.PaymentSecret == nil {
				inv.PaymentSecret = fixed32(data)
			}
		case fieldDescriptionHash:
			if inv.DescriptionHash == nil {
				inv.DescriptionHash = fixed32(data)
			}
		case fieldDescription:
			if inv.Description != nil {
				continue
			}
			b, err := bech32.ConvertBits(data, 5, 8, false)
			if err != nil {
				return fmt.Errorf("description: %s", err.Error())
			}
			d := string(b)
			inv.Description = &d
		case fieldDestination:
			if inv.Destination != nil || l != 53 {
				continue
			}
			b, err := bech32.ConvertBits(data, 5, 8, false)
			if err != nil {
				return fmt.Errorf("destination: %s", err.Error())
			}
			pub, err := btcec.ParsePubKey(b, btcec.S256())
			if err != nil {
				return fmt.Errorf("destination: %s", err.Error())
			}
			inv.Destination = pub
		case fieldExpiry:
			if inv.Expiry != nil {
				continue
			}
			secs, err := wordsToUint(data)
			if err != nil {
				return fmt.Errorf("expiry: %s", err.Error())
			}
			if secs > uint64(1<<63-1)/uint64(time.Second) {
				return fmt.Errorf("expiry %d seconds too large", secs)
			}
			exp := time.Duration(secs) * time.Second
			inv.Expiry = &exp
		case fieldMinFinalCLTV:
			if inv.MinFinalCLTV != nil {
				continue
			}
			c, err := wordsToUint(data)
			if err != nil {
				return fmt.Errorf("min final cltv: %s", err.Error())
			}
			inv.MinFinalCLTV = &c
		case fieldFallback:
			if l < 1 {
				continue
			}
			prog, err := bech32.ConvertBits(data[1:], 5, 8, false)
			if err != nil {
				continue
			}
			inv.Fallbacks = append(inv.Fallbacks, Fallback{Version: data[0], Program: prog})
		case fieldRouteHint:
			b, err := bech32.ConvertBits(data, 5, 8, false)
			if err != nil {
				return fmt.Errorf("route hint: %s", err.Error())
			}
			route, err := parseRoute(b)
			if err != nil {
				return err
			}
			inv.RouteHints = append(inv.RouteHints, route)
		case fieldFeatures:
			inv.Features = append([]byte(nil), data...)
		}
	}
	return nil
}

func parseRoute(b []byte) ([]HopHint, error) {
	if len(b) == 0 || len(b)%hopHintLen != 0 {
		return nil, fmt.Errorf("route hint is %d bytes, not a multiple of %d", len(b), hopHintLen)
	}
	route := make([]HopHint, 0, len(b)/hopHintLen)
	for ; len(b) > 0; b = b[hopHintLen:] {
		pub, err := btcec.ParsePubKey(b[:33], btcec.S256())
		if err != nil {
			return nil, fmt.Errorf("route hint node: %s", err.Error())
		}
		route = append(route, HopHint{
			NodeID:                    pub,
			ShortChannelID:            lnutil.BtU64(b[33:41]),
			FeeBaseMsat:               lnutil.BtU32(b[41:45]),
			FeeProportionalMillionths: lnutil.BtU32(b[45:49]),
			CLTVExpiryDelta:           lnutil.BtU16(b[49:51]),
		})
	}
	return route, nil
}

// fixed32 reads a 52 word field. Other lengths are skipped.
func fixed32(words []byte) *[32]byte {
	if len(words) != 52 {
		return nil
	}
	b, err := bech32.ConvertBits(words, 5, 8, false)
	if err != nil || len(b) != 32 {
		return nil
	}
	var out [32]byte
	copy(out[:], b)
	return &out
}

// wordsToUint reads big endian 5-bit words as an integer.
func wordsToUint(words []byte) (uint64, error) {
	var n uint64
	for _, w := range words {
		if n > (1<<64-1)>>5 {
			return 0, fmt.Errorf("%d words overflow 64 bits", len(words))
		}
		n = n<<5 | uint64(w)
	}
	return n, nil
}
