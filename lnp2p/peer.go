package lnp2p

import (
	"net"
	"sync"

	"github.com/btcsuite/btcd/btcec"
)

// peerConn is a connection handed to the engine. Whoever closes it first
// causes the disconnect event.
type peerConn struct {
	net.Conn

	pubkey  *btcec.PublicKey
	inbound bool

	once    sync.Once
	onClose func(*peerConn)
}

func (c *peerConn) Close() error {
	err := c.Conn.Close()
	c.once.Do(func() { c.onClose(c) })
	return err
}
