package lnp2p

import (
	"github.com/mit-dci/litd/logging"
)

func acceptConnections(lt *listeningthread, port int, pm *PeerManager) {
	stopEvent := &StopListeningPortEvent{Port: port, Reason: "panic"}
	defer func() { pm.ebus.Publish(*stopEvent) }()

	for {
		raw, err := lt.listener.Accept()
		if err != nil {
			// usually means the socket was closed
			logging.Infof("peermgr: stopped accepting on %d: %s", port, err.Error())
			break
		}

		pc := &peerConn{Conn: raw, inbound: true, onClose: pm.connClosed}
		if err := pm.setup.SetupInbound(pc); err != nil {
			logging.Warnf("peermgr: inbound from %s refused: %s", raw.RemoteAddr(), err.Error())
			raw.Close()
			continue
		}
		logging.Infof("peermgr: inbound connection from %s", raw.RemoteAddr())
		pm.ebus.Publish(NewPeerEvent{NetAddr: raw.RemoteAddr().String(), RemoteInitiated: true})
	}

	stopEvent.Reason = "closed"
	pm.mtx.Lock()
	delete(pm.listeningPorts, port)
	pm.mtx.Unlock()
}
