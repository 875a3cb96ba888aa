// Package lnp2p opens the raw connections the engine runs its handshake
// over: outbound dials, inbound accept loops and reconnects to known peers.
package lnp2p

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/mit-dci/litd/engine"
	"github.com/mit-dci/litd/eventbus"
	"github.com/mit-dci/litd/lncore"
	"github.com/mit-dci/litd/logging"
	"github.com/mit-dci/litd/nat"
)

type listeningthread struct {
	listener net.Listener
	mapping  nat.Mapping
}

// PeerManager hands connections to the engine and keeps the peer book up
// to date.
type PeerManager struct {
	setup    engine.ConnectionSetup
	peerdb   lncore.LitPeerStorage
	ebus     *eventbus.EventBus
	dialer   *Dialer
	settings NetSettings

	mtx            sync.Mutex
	outbound       map[string]*peerConn // by pubkey hex
	listeningPorts map[int]*listeningthread
}

// NewPeerManager checks settings and builds the dialer.
func NewPeerManager(setup engine.ConnectionSetup, pdb lncore.LitPeerStorage,
	bus *eventbus.EventBus, settings *NetSettings) (*PeerManager, error) {

	d, err := NewDialer(settings)
	if err != nil {
		return nil, err
	}
	pm := &PeerManager{
		setup:          setup,
		peerdb:         pdb,
		ebus:           bus,
		dialer:         d,
		outbound:       make(map[string]*peerConn),
		listeningPorts: make(map[int]*listeningthread),
	}
	if settings != nil {
		pm.settings = *settings
	}
	return pm, nil
}

// Connect dials addr and gives the connection to the engine.
func (pm *PeerManager) Connect(addr *lncore.NodeAddr) error {
	key := lncore.PubKeyHex(addr.PubKey)
	pc := &peerConn{pubkey: addr.PubKey, onClose: pm.connClosed}

	// The slot is taken before dialing so only one dial per peer runs, and
	// a close during the handshake is seen.
	pm.mtx.Lock()
	if _, ok := pm.outbound[key]; ok {
		pm.mtx.Unlock()
		return fmt.Errorf("already connected to %s", key)
	}
	pm.outbound[key] = pc
	pm.mtx.Unlock()

	raw, err := pm.dialer.Dial(addr.NetAddr)
	if err != nil {
		pm.forget(key, pc)
		return err
	}
	pc.Conn = raw

	if err := pm.setup.SetupOutbound(addr.PubKey, pc); err != nil {
		pm.forget(key, pc)
		raw.Close()
		return err
	}

	pm.recordPeer(key, addr.NetAddr)
	logging.Infof("peermgr: connected to %s", addr)
	pm.ebus.Publish(NewPeerEvent{PubKey: addr.PubKey, NetAddr: addr.NetAddr})
	return nil
}

// ConnectKnown dials a peer from the peer book at its last address.
func (pm *PeerManager) ConnectKnown(pubhex string) error {
	pi, err := pm.peerdb.GetPeerInfo(pubhex)
	if err != nil {
		return err
	}
	if pi == nil || pi.NetAddr == nil {
		return fmt.Errorf("no address known for %s", pubhex)
	}
	pub, err := lncore.ParsePubKeyHex(pubhex)
	if err != nil {
		return err
	}
	return pm.Connect(&lncore.NodeAddr{PubKey: pub, NetAddr: *pi.NetAddr})
}

// IsConnected reports whether we hold, or are dialing, an outbound
// connection to pubhex.
func (pm *PeerManager) IsConnected(pubhex string) bool {
	pm.mtx.Lock()
	defer pm.mtx.Unlock()
	_, ok := pm.outbound[pubhex]
	return ok
}

func (pm *PeerManager) recordPeer(key, netaddr string) {
	pi, err := pm.peerdb.GetPeerInfo(key)
	if err != nil {
		logging.Errorf("peermgr: load peer %s: %s", key, err.Error())
		return
	}
	if pi == nil {
		pi = &lncore.PeerInfo{}
	}
	pi.NetAddr = &netaddr
	pi.LastConnected = time.Now().Unix()
	if err := pm.peerdb.UpdatePeer(key, pi); err != nil {
		logging.Errorf("peermgr: save peer %s: %s", key, err.Error())
	}
}

// forget drops pc from the outbound set and reports whether it was there.
func (pm *PeerManager) forget(key string, pc *peerConn) bool {
	pm.mtx.Lock()
	defer pm.mtx.Unlock()
	if pm.outbound[key] != pc {
		return false
	}
	delete(pm.outbound, key)
	return true
}

func (pm *PeerManager) connClosed(pc *peerConn) {
	// an outbound conn that failed setup was never a peer
	if !pc.inbound && !pm.forget(lncore.PubKeyHex(pc.pubkey), pc) {
		return
	}
	ev := PeerDisconnectEvent{
		PubKey:          pc.pubkey,
		NetAddr:         pc.RemoteAddr().String(),
		RemoteInitiated: pc.inbound,
		Reason:          "closed",
	}
	logging.Infof("peermgr: connection to %s closed", ev.NetAddr)
	if err := pm.ebus.PublishNonblocking(ev); err != nil {
		logging.Errorf("peermgr: %s", err.Error())
	}
}

// ListenOnPort accepts connections on port and, if a NAT mode is set,
// forwards it on the router. It returns the bound address.
func (pm *PeerManager) ListenOnPort(ctx context.Context, port int) (net.Addr, error) {
	ok, err := pm.ebus.Publish(NewListeningPortEvent{Port: port})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("listen on %d cancelled by event handler", port)
	}

	pm.mtx.Lock()
	_, dup := pm.listeningPorts[port]
	pm.mtx.Unlock()
	if dup {
		return nil, fmt.Errorf("already listening on %d", port)
	}

	l, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		pm.ebus.Publish(StopListeningPortEvent{Port: port, Reason: "initfail"})
		return nil, err
	}
	lt := &listeningthread{listener: l}

	if pm.settings.NatMode != nil && *pm.settings.NatMode != "" {
		bound := l.Addr().(*net.TCPAddr).Port
		m, err := nat.Forward(ctx, *pm.settings.NatMode, uint16(bound))
		if err != nil {
			// still reachable on the local network
			logging.Warnf("peermgr: port forwarding failed: %s", err.Error())
		} else {
			lt.mapping = m
		}
	}

	pm.mtx.Lock()
	pm.listeningPorts[port] = lt
	pm.mtx.Unlock()

	logging.Infof("peermgr: listening on %s", l.Addr())
	go acceptConnections(lt, port, pm)
	return l.Addr(), nil
}

// GetListeningAddrs lists the bound listen addresses.
func (pm *PeerManager) GetListeningAddrs() []string {
	pm.mtx.Lock()
	defer pm.mtx.Unlock()
	addrs := make([]string, 0, len(pm.listeningPorts))
	for _, lt := range pm.listeningPorts {
		addrs = append(addrs, lt.listener.Addr().String())
	}
	return addrs
}

// StopListening closes the socket for port, which ends its accept loop.
func (pm *PeerManager) StopListening(port int) error {
	pm.mtx.Lock()
	lt, ok := pm.listeningPorts[port]
	pm.mtx.Unlock()
	if !ok {
		return fmt.Errorf("not listening on %d", port)
	}
	if lt.mapping != nil {
		if err := lt.mapping.Close(); err != nil {
			logging.Warnf("peermgr: removing port mapping: %s", err.Error())
		}
	}
	return lt.listener.Close()
}

// Close stops every listener.
func (pm *PeerManager) Close() {
	pm.mtx.Lock()
	ports := make([]int, 0, len(pm.listeningPorts))
	for p := range pm.listeningPorts {
		ports = append(ports, p)
	}
	pm.mtx.Unlock()
	for _, p := range ports {
		pm.StopListening(p)
	}
}
