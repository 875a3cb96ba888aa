package engine

import (
	"fmt"
	"time"

	"github.com/btcsuite/btcd/wire"
)

// Event is something the channel engine wants the node to act on. The set
// of kinds is closed; isEvent keeps other packages from adding to it.
type Event interface {
	isEvent()
	fmt.Stringer
}

// FundingGenerationReady asks for a transaction paying ChannelValueSatoshis
// to OutputScript. The node builds it and answers with
// ChannelManager.FundingTransactionGenerated.
type FundingGenerationReady struct {
	TemporaryChannelID   [32]byte
	ChannelValueSatoshis uint64
	OutputScript         []byte
	UserChannelID        uint64
}

// FundingBroadcastSafe means the counterparty has signed for the funding
// output and the transaction can go to the network.
type FundingBroadcastSafe struct {
	FundingTxo    wire.OutPoint
	UserChannelID uint64
}

// PaymentReceived is an incoming HTLC waiting for its preimage.
type PaymentReceived struct {
	PaymentHash [32]byte
	AmtMsat     uint64
}

// PaymentSent means an outgoing payment completed.
type PaymentSent struct {
	PaymentPreimage [32]byte
}

// PaymentFailed means an outgoing payment will not complete.
type PaymentFailed struct {
	PaymentHash    [32]byte
	RejectedByDest bool
}

// PendingHTLCsForwardable asks for ProcessPendingHTLCForwards to be called
// no sooner than TimeForwardable from now.
type PendingHTLCsForwardable struct {
	TimeForwardable time.Duration
}

func (FundingGenerationReady) isEvent()  {}
func (FundingBroadcastSafe) isEvent()    {}
func (PaymentReceived) isEvent()         {}
func (PaymentSent) isEvent()             {}
func (PaymentFailed) isEvent()           {}
func (PendingHTLCsForwardable) isEvent() {}

func (e FundingGenerationReady) String() string {
	return fmt.Sprintf("FundingGenerationReady(temp %x, %d sat, user %d)",
		e.TemporaryChannelID, e.ChannelValueSatoshis, e.UserChannelID)
}

func (e FundingBroadcastSafe) String() string {
	return fmt.Sprintf("FundingBroadcastSafe(%s, user %d)", e.FundingTxo, e.UserChannelID)
}

func (e PaymentReceived) String() string {
	return fmt.Sprintf("PaymentReceived(%x, %d msat)", e.PaymentHash, e.AmtMsat)
}

func (e PaymentSent) String() string {
	return fmt.Sprintf("PaymentSent(preimage %x)", e.PaymentPreimage)
}

func (e PaymentFailed) String() string {
	return fmt.Sprintf("PaymentFailed(%x, rejected by dest %t)", e.PaymentHash, e.RejectedByDest)
}

func (e PendingHTLCsForwardable) String() string {
	return fmt.Sprintf("PendingHTLCsForwardable(after %s)", e.TimeForwardable)
}
