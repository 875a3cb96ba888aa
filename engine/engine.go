// Package engine declares what litd needs from the lightning protocol
// engine it drives. The engine itself (channel state machines, gossip,
// routing, the noise handshake) lives elsewhere; litd persists its
// monitors, answers its events and turns operator commands into calls on it.
package engine

import (
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/btcsuite/btcd/btcec"
	"github.com/btcsuite/btcd/wire"
)

// ErrMonitorUpdateTemporary tells the engine a monitor update was not made
// durable. The channel must not advance; the update can be retried.
var ErrMonitorUpdateTemporary = errors.New("channel monitor update failed temporarily")

// EventProvider is drained once per wakeup.
type EventProvider interface {
	// ProcessEvents lets the engine turn internal state (monitor
	// notifications etc) into pending events.
	ProcessEvents()
	GetAndClearPendingEvents() []Event
}

// ChannelDetails describes one channel as listed by the engine.
type ChannelDetails struct {
	ChannelID [32]byte
	// ShortChannelID is nil until the funding tx is confirmed.
	ShortChannelID       *uint64
	RemoteNodeID         *btcec.PublicKey
	ChannelValueSatoshis uint64
	UserID               uint64
	IsLive               bool
}

func (c ChannelDetails) String() string {
	scid := "unconfirmed"
	if c.ShortChannelID != nil {
		scid = fmt.Sprintf("%d", *c.ShortChannelID)
	}
	peer := "unknown"
	if c.RemoteNodeID != nil {
		peer = fmt.Sprintf("%x", c.RemoteNodeID.SerializeCompressed())
	}
	return fmt.Sprintf("%x scid %s peer %s value %d live %t",
		c.ChannelID, scid, peer, c.ChannelValueSatoshis, c.IsLive)
}

// RouteHint is a private last hop supplied by the payee.
type RouteHint struct {
	SrcNodeID                 *btcec.PublicKey
	ShortChannelID            uint64
	FeeBaseMsat               uint32
	FeeProportionalMillionths uint32
	CLTVExpiryDelta           uint16
	HTLCMinimumMsat           uint64
}

// RouteHop is one hop of a payment route.
type RouteHop struct {
	PubKey          *btcec.PublicKey
	ShortChannelID  uint64
	FeeMsat         uint64
	CLTVExpiryDelta uint32
}

// Route is what Router returns and ChannelManager.SendPayment consumes.
type Route struct {
	Hops []RouteHop
}

// ChannelManager holds the channels.
type ChannelManager interface {
	FundingTransactionGenerated(temporaryChannelID [32]byte, fundingTxo wire.OutPoint)

	// ClaimFunds settles every HTLC paying to sha256(preimage). It reports
	// whether any were found.
	ClaimFunds(preimage [32]byte) bool
	FailHTLCBackwards(paymentHash [32]byte) bool
	ProcessPendingHTLCForwards()

	CreateChannel(theirNodeID *btcec.PublicKey, valueSat, pushMsat, userID uint64) error
	CloseChannel(channelID [32]byte) error
	ListChannels() []ChannelDetails
	ListUsableChannels() []ChannelDetails
	SendPayment(route *Route, paymentHash [32]byte) error
}

// Router finds routes over the gossiped graph plus any hints.
type Router interface {
	GetRoute(target *btcec.PublicKey, firstHops []ChannelDetails, lastHops []RouteHint,
		finalValueMsat uint64, finalCLTV uint32) (*Route, error)
}

// PeerManager knows which peers have a live session.
type PeerManager interface {
	GetPeerNodeIDs() []*btcec.PublicKey
}

// ConnectionSetup runs the authenticated handshake over a raw connection and
// takes ownership of it.
type ConnectionSetup interface {
	SetupOutbound(theirNodeID *btcec.PublicKey, conn net.Conn) error
	SetupInbound(conn net.Conn) error
}

// ChannelMonitor is the engine's watch state for one channel.
type ChannelMonitor interface {
	Serialize(w io.Writer) error
}

// MonitorDecoder rebuilds a ChannelMonitor from Serialize output.
type MonitorDecoder func(r io.Reader) (ChannelMonitor, error)

// ManyChannelMonitor watches the chain for every channel. The engine calls
// AddUpdateMonitor on each state change and must not proceed until it
// returns nil.
type ManyChannelMonitor interface {
	AddUpdateMonitor(fundingTxo wire.OutPoint, mon ChannelMonitor) error
}

// Broadcaster puts transactions on the network.
type Broadcaster interface {
	BroadcastTransaction(tx *wire.MsgTx)
}

// Engine is everything the node drives.
type Engine interface {
	EventProvider
	ChannelManager
	Router
	PeerManager
	ConnectionSetup
}
