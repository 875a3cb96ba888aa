// Package reconciler drains the channel engine's events and acts on them.
//
// Anything that wants the engine looked at calls Notify. Tokens coalesce in
// a one slot channel: a token already waiting guarantees a full drain, so
// dropping the extra one loses nothing. Each token runs one pass of
// ProcessEvents, GetAndClearPendingEvents and a dispatch of every event.
// Work that has to wait (the funding RPC chain, the HTLC forward timer)
// runs on its own goroutine and calls Notify when it is done.
package reconciler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
	"github.com/mit-dci/litd/chainrpc"
	"github.com/mit-dci/litd/engine"
	"github.com/mit-dci/litd/logging"
	"github.com/mit-dci/litd/preimage"
	"github.com/pkg/errors"
)

// DefaultSignMethod works up to bitcoind 0.17. Later versions want
// signrawtransactionwithwallet.
const DefaultSignMethod = "signrawtransaction"

// ErrNoPendingFunding means the engine said a funding tx was safe to
// broadcast but we never built one for that outpoint.
var ErrNoPendingFunding = errors.New("no pending funding transaction")

type Config struct {
	Events      engine.EventProvider
	Channels    engine.ChannelManager
	RPC         chainrpc.Caller
	Broadcaster engine.Broadcaster
	Preimages   *preimage.Vault
	Params      *chaincfg.Params

	// SignMethod is the RPC used to sign funded transactions.
	SignMethod string
}

type Reconciler struct {
	cfg Config

	wake chan struct{}

	// closed when Run returns
	done     chan struct{}
	doneOnce sync.Once

	pendingMtx sync.Mutex
	pending    map[wire.OutPoint]*wire.MsgTx

	// in flight funding chains and timers
	wg sync.WaitGroup
}

func New(cfg Config) *Reconciler {
	if cfg.SignMethod == "" {
		cfg.SignMethod = DefaultSignMethod
	}
	return &Reconciler{
		cfg:     cfg,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		pending: make(map[wire.OutPoint]*wire.MsgTx),
	}
}

// Notify asks for a pass. It never blocks.
func (r *Reconciler) Notify() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Run does one pass per token until ctx is done.
func (r *Reconciler) Run(ctx context.Context) {
	defer r.doneOnce.Do(func() { close(r.done) })
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.wake:
			r.pass()
		}
	}
}

// Done is closed once Run has returned. After that no new funding chain
// or timer can start.
func (r *Reconciler) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until every funding chain and timer started so far is done.
// When Run is in use, call it only after Done is closed.
func (r *Reconciler) Wait() {
	r.wg.Wait()
}

func (r *Reconciler) pass() {
	r.cfg.Events.ProcessEvents()
	events := r.cfg.Events.GetAndClearPendingEvents()
	if len(events) != 0 {
		logging.Debugf("reconciler: %d events", len(events))
	}
	for _, ev := range events {
		if err := r.handle(ev); err != nil {
			logging.Errorf("reconciler: %s: %s", ev, err.Error())
		}
	}
}

func (r *Reconciler) handle(ev engine.Event) error {
	switch e := ev.(type) {
	case engine.FundingGenerationReady:
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			if err := r.fund(e); err != nil {
				logging.Errorf("reconciler: funding for temp channel %x failed: %s",
					e.TemporaryChannelID, err.Error())
			}
		}()
		return nil

	case engine.FundingBroadcastSafe:
		r.pendingMtx.Lock()
		tx, ok := r.pending[e.FundingTxo]
		delete(r.pending, e.FundingTxo)
		r.pendingMtx.Unlock()
		if !ok {
			return errors.Wrapf(ErrNoPendingFunding, "outpoint %s", e.FundingTxo)
		}
		logging.Infof("reconciler: broadcasting funding tx %s", tx.TxHash())
		r.cfg.Broadcaster.BroadcastTransaction(tx)
		return nil

	case engine.PaymentReceived:
		img, ok := r.cfg.Preimages.Lookup(e.PaymentHash)
		if !ok {
			logging.Warnf("reconciler: no preimage for %x, failing %d msat back",
				e.PaymentHash, e.AmtMsat)
			r.cfg.Channels.FailHTLCBackwards(e.PaymentHash)
			return nil
		}
		if r.cfg.Channels.ClaimFunds(img) {
			logging.Infof("reconciler: claimed %d msat for %x", e.AmtMsat, e.PaymentHash)
		} else {
			logging.Warnf("reconciler: claim for %x found no HTLCs", e.PaymentHash)
		}
		r.Notify()
		return nil

	case engine.PaymentSent:
		logging.Infof("reconciler: payment with preimage %x sent", e.PaymentPreimage)
		return nil

	case engine.PaymentFailed:
		logging.Warnf("reconciler: payment %x failed (rejected by destination: %t)",
			e.PaymentHash, e.RejectedByDest)
		return nil

	case engine.PendingHTLCsForwardable:
		r.wg.Add(1)
		time.AfterFunc(e.TimeForwardable, func() {
			defer r.wg.Done()
			r.cfg.Channels.ProcessPendingHTLCForwards()
			r.Notify()
		})
		return nil

	default:
		// The engine and this loop disagree on the event set.
		panic(fmt.Sprintf("reconciler: unknown event type %T", ev))
	}
}

// PendingFunding lists outpoints with a built but not yet broadcast
// funding transaction.
func (r *Reconciler) PendingFunding() []wire.OutPoint {
	r.pendingMtx.Lock()
	defer r.pendingMtx.Unlock()
	ops := make([]wire.OutPoint, 0, len(r.pending))
	for op := range r.pending {
		ops = append(ops, op)
	}
	return ops
}
