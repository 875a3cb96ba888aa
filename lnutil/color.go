package lnutil

import (
	"fmt"

	"github.com/fatih/color"
)

var (
	White = color.New(color.FgHiWhite).SprintFunc()
	Green = color.New(color.FgHiGreen).SprintFunc()
	Red   = color.New(color.FgHiRed).SprintFunc()

	Header   = color.New(color.FgHiCyan).SprintFunc()
	Prompt   = color.New(color.FgHiYellow).SprintFunc()
	OutPoint = color.New(color.FgYellow).SprintFunc()
	Address  = color.New(color.FgMagenta).SprintFunc()
	PubKey   = color.New(color.FgCyan).SprintFunc()
	BTC      = color.New(color.FgHiWhite).Add(color.Underline).SprintFunc()
	Satoshi  = color.New(color.Faint).SprintFunc()
)

func ReqColor(required ...interface{}) string {
	var s string
	for _, r := range required {
		s += " <" + White(r) + ">"
	}
	return s
}

func OptColor(optional ...interface{}) string {
	var s, tail string
	for _, o := range optional {
		s += " [<" + White(o) + ">"
		tail += "]"
	}
	return s + tail
}

// SatoshiColor renders an amount as BTC, mBTC and a faint satoshi tail,
// so 123456789 reads as 1 234 56789.
func SatoshiColor(value int64) string {
	mBTC := value / 100000
	if mBTC < 1 {
		return Satoshi(value)
	}
	sat := value - mBTC*100000
	btc := mBTC / 1000
	mBTC -= btc * 1000
	if btc < 1 {
		return fmt.Sprintf("%d%s", mBTC, Satoshi(fmt.Sprintf("%05d", sat)))
	}
	return fmt.Sprintf("%s%03d%s", BTC(btc), mBTC, Satoshi(fmt.Sprintf("%05d", sat)))
}

// MsatColor is SatoshiColor with the millisatoshi remainder appended.
func MsatColor(msat uint64) string {
	s := SatoshiColor(int64(msat / 1000))
	if rem := msat % 1000; rem != 0 {
		s += Satoshi(fmt.Sprintf(".%03d", rem))
	}
	return s
}
