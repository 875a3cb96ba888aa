package lnutil

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/mempool"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcutil"
)

// OutPointsEqual is faster than comparing String()s.
func OutPointsEqual(a, b wire.OutPoint) bool {
	return a.Index == b.Index && a.Hash.IsEqual(&b.Hash)
}

// WitnessAddress turns a v0 witness output script into its bech32 address.
// Anything that is not p2wpkh or p2wsh is refused; bitcoind would happily
// fund a legacy output and the channel would never confirm as expected.
func WitnessAddress(pkScript []byte, p *chaincfg.Params) (btcutil.Address, error) {
	class, addrs, _, err := txscript.ExtractPkScriptAddrs(pkScript, p)
	if err != nil {
		return nil, err
	}
	switch class {
	case txscript.WitnessV0PubKeyHashTy, txscript.WitnessV0ScriptHashTy:
	default:
		return nil, fmt.Errorf("script %x is %s, not a witness output", pkScript, class)
	}
	if len(addrs) != 1 {
		return nil, fmt.Errorf("script %x has %d addresses", pkScript, len(addrs))
	}
	return addrs[0], nil
}

// ParseChannelID reads a 32 byte channel id written as 64 hex characters.
func ParseChannelID(s string) (id [32]byte, err error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, err
	}
	if len(b) != 32 {
		return id, fmt.Errorf("channel id is %d bytes, expect 32", len(b))
	}
	copy(id[:], b)
	return id, nil
}

// TxToString prints out some info about a transaction. for testing / debugging
func TxToString(tx *wire.MsgTx) string {
	utx := btcutil.NewTx(tx)
	str := fmt.Sprintf("txid %s size %d vsize %d locktime %d wit: %t\n",
		tx.TxHash().String(), tx.SerializeSize(),
		mempool.GetTxVirtualSize(utx), tx.LockTime, tx.HasWitness())
	for i, in := range tx.TxIn {
		str += fmt.Sprintf("input %d spends %s seq %d\n",
			i, in.PreviousOutPoint.String(), in.Sequence)
		for j, wit := range in.Witness {
			str += fmt.Sprintf("\twitness %d: %x\n", j, wit)
		}
	}
	for i, out := range tx.TxOut {
		if out == nil {
			str += fmt.Sprintf("output %d nil (WARNING)\n", i)
			continue
		}
		str += fmt.Sprintf("output %d script: %x amt: %d\n",
			i, out.PkScript, out.Value)
	}
	return str
}
