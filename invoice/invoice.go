// Package invoice reads and writes BOLT11 payment requests.
package invoice

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcec"
	"github.com/btcsuite/btcd/chaincfg"
)

const (
	// DefaultExpiry applies when the invoice carries no x field.
	DefaultExpiry = time.Hour

	// DefaultMinFinalCLTV applies when the invoice carries no c field.
	DefaultMinFinalCLTV = 9

	// hopHintLen is pubkey(33) scid(8) fee_base(4) fee_prop(4) cltv_delta(2)
	hopHintLen = 51

	timestampWords = 7
	signatureWords = 104
)

// tagged field types, by their bech32 letter
const (
	fieldPaymentHash     = 1  // p
	fieldRouteHint       = 3  // r
	fieldFeatures        = 5  // 9
	fieldExpiry          = 6  // x
	fieldFallback        = 9  // f
	fieldDescription     = 13 // d
	fieldPaymentSecret   = 16 // s
	fieldDestination     = 19 // n
	fieldDescriptionHash = 23 // h
	fieldMinFinalCLTV    = 24 // c
)

// HopHint is one hop of a private route the payee wants us to use.
type HopHint struct {
	NodeID                    *btcec.PublicKey
	ShortChannelID            uint64
	FeeBaseMsat               uint32
	FeeProportionalMillionths uint32
	CLTVExpiryDelta           uint16
}

// Fallback is an on-chain address to use if the payment can't be routed.
// Version 0-16 are witness versions, 17 is p2pkh and 18 is p2sh.
type Fallback struct {
	Version byte
	Program []byte
}

// Invoice is a decoded payment request. Optional fields are nil when the
// invoice did not carry them.
type Invoice struct {
	Net *chaincfg.Params

	// MilliSat is nil for "any amount" invoices.
	MilliSat  *uint64
	Timestamp time.Time

	PaymentHash     *[32]byte
	PaymentSecret   *[32]byte
	Description     *string
	DescriptionHash *[32]byte

	// Destination is the n field. Payee is the key that signed the
	// invoice, filled in by Decode.
	Destination *btcec.PublicKey
	Payee       *btcec.PublicKey

	Expiry       *time.Duration
	MinFinalCLTV *uint64

	Fallbacks  []Fallback
	RouteHints [][]HopHint
	Features   []byte
}

// ExpiryOrDefault is the x field or one hour.
func (inv *Invoice) ExpiryOrDefault() time.Duration {
	if inv.Expiry != nil {
		return *inv.Expiry
	}
	return DefaultExpiry
}

// MinFinalCLTVOrDefault is the c field or 9 blocks.
func (inv *Invoice) MinFinalCLTVOrDefault() uint64 {
	if inv.MinFinalCLTV != nil {
		return *inv.MinFinalCLTV
	}
	return DefaultMinFinalCLTV
}

// Expired reports whether the invoice is past its expiry at now.
func (inv *Invoice) Expired(now time.Time) bool {
	return now.After(inv.Timestamp.Add(inv.ExpiryOrDefault()))
}

var knownNets = []*chaincfg.Params{
	&chaincfg.MainNetParams,
	&chaincfg.TestNet3Params,
	&chaincfg.RegressionNetParams,
	&chaincfg.SimNetParams,
}

// netForHRP splits "ln<currency><amount>" into params and amount string.
// Longer currency codes win so that "bcrt" is not read as "bc" + "rt".
func netForHRP(hrp string) (*chaincfg.Params, string, error) {
	if !strings.HasPrefix(hrp, "ln") {
		return nil, "", fmt.Errorf("prefix %q is not a lightning invoice", hrp)
	}
	rest := hrp[2:]
	nets := make([]*chaincfg.Params, len(knownNets))
	copy(nets, knownNets)
	sort.Slice(nets, func(i, j int) bool {
		return len(nets[i].Bech32HRPSegwit) > len(nets[j].Bech32HRPSegwit)
	})
	for _, p := range nets {
		if strings.HasPrefix(rest, p.Bech32HRPSegwit) {
			return p, rest[len(p.Bech32HRPSegwit):], nil
		}
	}
	return nil, "", fmt.Errorf("unknown currency in %q", hrp)
}

// pico-btc per unit of each multiplier
var multipliers = map[byte]uint64{
	'm': 1000000000,
	'u': 1000000,
	'n': 1000,
	'p': 1,
}

const picoPerBTC = 1000000000000

// parseAmount turns the hrp amount suffix into millisatoshi.
func parseAmount(s string) (*uint64, error) {
	if s == "" {
		return nil, nil
	}
	mult := uint64(picoPerBTC)
	if m, ok := multipliers[s[len(s)-1]]; ok {
		mult = m
		s = s[:len(s)-1]
	}
	if s == "" || s[0] == '0' {
		return nil, fmt.Errorf("bad amount %q", s)
	}
	var n uint64
	for _, c := range s {
		if c < '0' || c > '9' {
			return nil, fmt.Errorf("bad amount digit %q", c)
		}
		d := uint64(c - '0')
		if n > (math.MaxUint64-d)/10 {
			return nil, fmt.Errorf("amount overflows")
		}
		n = n*10 + d
	}
	if n > math.MaxUint64/mult {
		return nil, fmt.Errorf("amount overflows")
	}
	pico := n * mult
	if pico%10 != 0 {
		return nil, fmt.Errorf("amount %dp is not a whole millisatoshi", pico)
	}
	msat := pico / 10
	return &msat, nil
}

// formatAmount picks the shortest exact hrp amount for msat.
func formatAmount(msat uint64) string {
	pico := msat * 10
	if pico%picoPerBTC == 0 {
		return fmt.Sprintf("%d", pico/picoPerBTC)
	}
	for _, m := range []byte{'m', 'u', 'n'} {
		if pico%multipliers[m] == 0 {
			return fmt.Sprintf("%d%c", pico/multipliers[m], m)
		}
	}
	return fmt.Sprintf("%dp", pico)
}
