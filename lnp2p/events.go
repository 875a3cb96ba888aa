package lnp2p

import (
	"github.com/btcsuite/btcd/btcec"
	"github.com/mit-dci/litd/eventbus"
)

// NewPeerEvent is fired once the engine has taken a connection.
type NewPeerEvent struct {
	// PubKey is nil for inbound connections; the handshake that learns it
	// belongs to the engine.
	PubKey          *btcec.PublicKey
	NetAddr         string
	RemoteInitiated bool
}

func (e NewPeerEvent) Name() string { return "lnp2p.peer.new" }

func (e NewPeerEvent) Flags() uint8 { return eventbus.EFLAG_UNCANCELLABLE }

// PeerDisconnectEvent is fired when a peer connection is closed.
type PeerDisconnectEvent struct {
	PubKey          *btcec.PublicKey
	NetAddr         string
	RemoteInitiated bool
	Reason          string
}

func (e PeerDisconnectEvent) Name() string { return "lnp2p.peer.disconnect" }

func (e PeerDisconnectEvent) Flags() uint8 { return eventbus.EFLAG_ASYNC }

// NewListeningPortEvent is fired before a listen socket is opened. A
// handler may cancel it.
type NewListeningPortEvent struct {
	Port int
}

func (e NewListeningPortEvent) Name() string { return "lnp2p.listen.start" }

func (e NewListeningPortEvent) Flags() uint8 { return eventbus.EFLAG_NORMAL }

// StopListeningPortEvent is fired when an accept loop ends.
type StopListeningPortEvent struct {
	Port   int
	Reason string
}

func (e StopListeningPortEvent) Name() string { return "lnp2p.listen.stop" }

func (e StopListeningPortEvent) Flags() uint8 { return eventbus.EFLAG_ASYNC }
