package lnp2p

import (
	"context"
	"time"

	"github.com/mit-dci/litd/eventbus"
	"github.com/mit-dci/litd/lncore"
	"github.com/mit-dci/litd/logging"
)

func makePeerDisconnectHandler(pm *PeerManager) eventbus.HandlerFunc {
	return func(event eventbus.Event) eventbus.EventHandleResult {
		dce, ok := event.(PeerDisconnectEvent)
		if !ok || dce.RemoteInitiated || dce.PubKey == nil {
			return eventbus.EHANDLE_OK
		}
		key := lncore.PubKeyHex(dce.PubKey)
		if err := pm.ConnectKnown(key); err != nil {
			logging.Warnf("peermgr: redial %s: %s", key, err.Error())
		}
		return eventbus.EHANDLE_OK
	}
}

// StartAutoReconnect redials outbound peers as soon as they drop, and every
// interval tries each peer in the peer book we aren't connected to.
func (pm *PeerManager) StartAutoReconnect(ctx context.Context, interval time.Duration) {
	pm.ebus.RegisterHandler(PeerDisconnectEvent{}.Name(), makePeerDisconnectHandler(pm))
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				pm.reconnectAll()
			}
		}
	}()
}

func (pm *PeerManager) reconnectAll() {
	keys, err := pm.peerdb.GetPeerKeys()
	if err != nil {
		logging.Errorf("peermgr: list peers: %s", err.Error())
		return
	}
	for _, k := range keys {
		if pm.IsConnected(k) {
			continue
		}
		if err := pm.ConnectKnown(k); err != nil {
			logging.Debugf("peermgr: reconnect %s: %s", k, err.Error())
		}
	}
}
