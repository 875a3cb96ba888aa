package chainrpc

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
	"github.com/mit-dci/litd/logging"
	"github.com/pkg/errors"
)

// MinVerificationProgress is how synced bitcoind must be before we start.
const MinVerificationProgress = 0.99

// bitcoind moved segwit from bip9_softforks to softforks in 0.19, and
// changed softforks from an array to an object, so neither btcjson result
// type decodes both.
type blockchainInfo struct {
	Chain                string              `json:"chain"`
	VerificationProgress float64             `json:"verificationprogress"`
	Bip9SoftForks        map[string]bip9Fork `json:"bip9_softforks"`
	SoftForks            json.RawMessage     `json:"softforks"`
}

type bip9Fork struct {
	Status string `json:"status"`
}

type namedFork struct {
	Active bool `json:"active"`
}

func (bi *blockchainInfo) segwitActive() bool {
	if f, ok := bi.Bip9SoftForks["segwit"]; ok && f.Status == "active" {
		return true
	}
	var forks map[string]namedFork
	if json.Unmarshal(bi.SoftForks, &forks) == nil {
		if f, ok := forks["segwit"]; ok && f.Active {
			return true
		}
	}
	return false
}

// CheckChain asks bitcoind which chain it is on and whether it is ready.
// Mainnet is refused.
func CheckChain(c Caller) (*chaincfg.Params, error) {
	raw, err := c.CallAsync("getblockchaininfo").Receive()
	if err != nil {
		return nil, errors.Wrap(err, "getblockchaininfo")
	}
	var bi blockchainInfo
	if err := json.Unmarshal(raw, &bi); err != nil {
		return nil, errors.Wrap(err, "getblockchaininfo result")
	}

	if bi.VerificationProgress <= MinVerificationProgress {
		return nil, fmt.Errorf("bitcoind is only %.2f%% verified, wait for it to sync",
			bi.VerificationProgress*100)
	}
	if !bi.segwitActive() {
		return nil, fmt.Errorf("segwit is not active on %s", bi.Chain)
	}

	switch bi.Chain {
	case "main":
		return nil, fmt.Errorf("refusing to run on mainnet")
	case "test":
		return &chaincfg.TestNet3Params, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	}
	return nil, fmt.Errorf("unknown chain %q", bi.Chain)
}

// Broadcaster sends transactions with sendrawtransaction. Results are only
// logged; a funding tx that fails to broadcast is retried by the operator.
type Broadcaster struct {
	c Caller
}

func NewBroadcaster(c Caller) *Broadcaster {
	return &Broadcaster{c: c}
}

func (b *Broadcaster) BroadcastTransaction(tx *wire.MsgTx) {
	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		logging.Errorf("broadcast: serialize %s: %s", tx.TxHash(), err.Error())
		return
	}
	f := b.c.CallAsync("sendrawtransaction", Quote(hex.EncodeToString(buf.Bytes())))
	txid := tx.TxHash()
	go func() {
		res, err := f.Receive()
		if err != nil {
			logging.Errorf("broadcast: %s rejected: %s", txid, err.Error())
			return
		}
		logging.Infof("broadcast: %s accepted, bitcoind says %s", txid, string(res))
	}()
}
