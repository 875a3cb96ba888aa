package reconciler

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcutil"
	"github.com/mit-dci/litd/chainrpc"
	"github.com/mit-dci/litd/engine"
	"github.com/mit-dci/litd/lnutil"
	"github.com/mit-dci/litd/logging"
	"github.com/pkg/errors"
)

type fundResult struct {
	Hex       string  `json:"hex"`
	ChangePos int     `json:"changepos"`
	Fee       float64 `json:"fee"`
}

type signResult struct {
	Hex      string `json:"hex"`
	Complete bool   `json:"complete"`
}

// fund builds, funds and signs the transaction the engine asked for, then
// hands the outpoint back. Nothing is kept if any step fails.
func (r *Reconciler) fund(e engine.FundingGenerationReady) error {
	tx, op, err := r.buildFunding(e)
	if err != nil {
		return err
	}
	logging.Debugf("reconciler: funding tx for temp channel %x:\n%s",
		e.TemporaryChannelID, lnutil.TxToString(tx))

	// Recorded before the engine hears about it: its broadcast-safe event
	// can be drained by any later pass.
	r.pendingMtx.Lock()
	r.pending[op] = tx
	r.pendingMtx.Unlock()

	r.cfg.Channels.FundingTransactionGenerated(e.TemporaryChannelID, op)
	logging.Infof("reconciler: funding outpoint %s for temp channel %x", op, e.TemporaryChannelID)
	r.Notify()
	return nil
}

func call(c chainrpc.Caller, out interface{}, method string, args ...string) error {
	raw, err := c.CallAsync(method, args...).Receive()
	if err != nil {
		return errors.Wrap(err, method)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrapf(err, "%s result", method)
	}
	return nil
}

func (r *Reconciler) buildFunding(e engine.FundingGenerationReady) (*wire.MsgTx, wire.OutPoint, error) {
	var op wire.OutPoint

	addr, err := lnutil.WitnessAddress(e.OutputScript, r.cfg.Params)
	if err != nil {
		return nil, op, errors.Wrap(err, "funding script")
	}
	btc := btcutil.Amount(e.ChannelValueSatoshis).ToBTC()
	outputs := fmt.Sprintf("{%s:%s}",
		chainrpc.Quote(addr.EncodeAddress()), strconv.FormatFloat(btc, 'f', 8, 64))

	var created string
	if err := call(r.cfg.RPC, &created, "createrawtransaction", "[]", outputs); err != nil {
		return nil, op, err
	}

	var funded fundResult
	if err := call(r.cfg.RPC, &funded, "fundrawtransaction", chainrpc.Quote(created)); err != nil {
		return nil, op, err
	}
	if funded.ChangePos != 0 && funded.ChangePos != 1 {
		return nil, op, fmt.Errorf("fundrawtransaction put change at %d, expect 0 or 1", funded.ChangePos)
	}

	var signed signResult
	if err := call(r.cfg.RPC, &signed, r.cfg.SignMethod, chainrpc.Quote(funded.Hex)); err != nil {
		return nil, op, err
	}
	if !signed.Complete {
		return nil, op, fmt.Errorf("%s returned an incomplete signature", r.cfg.SignMethod)
	}

	raw, err := hex.DecodeString(signed.Hex)
	if err != nil {
		return nil, op, errors.Wrap(err, "signed tx hex")
	}
	tx := wire.NewMsgTx(wire.TxVersion)
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, op, errors.Wrap(err, "signed tx")
	}

	idx := 0
	if funded.ChangePos == 0 {
		idx = 1
	}
	if len(tx.TxOut) <= idx {
		return nil, op, fmt.Errorf("signed tx has %d outputs, funding output should be %d",
			len(tx.TxOut), idx)
	}
	out := tx.TxOut[idx]
	if !bytes.Equal(out.PkScript, e.OutputScript) || out.Value != int64(e.ChannelValueSatoshis) {
		return nil, op, fmt.Errorf("output %d pays %d to %x, want %d to %x",
			idx, out.Value, out.PkScript, e.ChannelValueSatoshis, e.OutputScript)
	}

	op = wire.OutPoint{Hash: tx.TxHash(), Index: uint32(idx)}
	return tx, op, nil
}
