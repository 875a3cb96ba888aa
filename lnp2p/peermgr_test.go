package lnp2p

import (
	"context"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec"
	"github.com/mit-dci/litd/eventbus"
	"github.com/mit-dci/litd/lncore"
	"github.com/mit-dci/litd/logging"
)

type fakeSetup struct {
	mtx      sync.Mutex
	outbound []*btcec.PublicKey
	conns    chan net.Conn
	fail     error
}

func (s *fakeSetup) SetupOutbound(pub *btcec.PublicKey, c net.Conn) error {
	if s.fail != nil {
		return s.fail
	}
	s.mtx.Lock()
	s.outbound = append(s.outbound, pub)
	s.mtx.Unlock()
	s.conns <- c
	return nil
}

func (s *fakeSetup) SetupInbound(c net.Conn) error {
	if s.fail != nil {
		return s.fail
	}
	s.conns <- c
	return nil
}

type memPeers struct {
	mtx   sync.Mutex
	peers map[string]lncore.PeerInfo
}

func (m *memPeers) GetPeerKeys() ([]string, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	var ks []string
	for k := range m.peers {
		ks = append(ks, k)
	}
	return ks, nil
}

func (m *memPeers) GetPeerInfo(k string) (*lncore.PeerInfo, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	pi, ok := m.peers[k]
	if !ok {
		return nil, nil
	}
	return &pi, nil
}

func (m *memPeers) GetPeerInfos() (map[string]lncore.PeerInfo, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	out := make(map[string]lncore.PeerInfo)
	for k, v := range m.peers {
		out[k] = v
	}
	return out, nil
}

func (m *memPeers) AddPeer(k string, pi lncore.PeerInfo) error { return m.UpdatePeer(k, &pi) }

func (m *memPeers) UpdatePeer(k string, pi *lncore.PeerInfo) error {
	m.mtx.Lock()
	m.peers[k] = *pi
	m.mtx.Unlock()
	return nil
}

func (m *memPeers) DeletePeer(k string) error {
	m.mtx.Lock()
	delete(m.peers, k)
	m.mtx.Unlock()
	return nil
}

func newTestManager(t *testing.T) (*PeerManager, *fakeSetup, *memPeers, *eventbus.EventBus) {
	logging.SetupTestLogs()
	setup := &fakeSetup{conns: make(chan net.Conn, 4)}
	peers := &memPeers{peers: make(map[string]lncore.PeerInfo)}
	bus := eventbus.NewEventBus()
	pm, err := NewPeerManager(setup, peers, bus, nil)
	if err != nil {
		t.Fatal(err)
	}
	return pm, setup, peers, bus
}

func testPub(t *testing.T) *btcec.PublicKey {
	priv, err := btcec.NewPrivateKey(btcec.S256())
	if err != nil {
		t.Fatal(err)
	}
	return priv.PubKey()
}

func TestConnectRecordsPeer(t *testing.T) {
	pm, setup, peers, bus := newTestManager(t)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	go func() {
		c, err := l.Accept()
		if err == nil {
			defer c.Close()
			time.Sleep(100 * time.Millisecond)
		}
	}()

	newPeer := make(chan NewPeerEvent, 1)
	bus.RegisterHandler("lnp2p.peer.new", func(e eventbus.Event) eventbus.EventHandleResult {
		newPeer <- e.(NewPeerEvent)
		return eventbus.EHANDLE_OK
	})

	pub := testPub(t)
	addr := &lncore.NodeAddr{PubKey: pub, NetAddr: l.Addr().String()}
	if err := pm.Connect(addr); err != nil {
		t.Fatal(err)
	}
	c := <-setup.conns
	if !setup.outbound[0].IsEqual(pub) {
		t.Fatalf("engine got the wrong pubkey")
	}

	key := lncore.PubKeyHex(pub)
	pi, _ := peers.GetPeerInfo(key)
	if pi == nil || pi.NetAddr == nil || *pi.NetAddr != l.Addr().String() || pi.LastConnected == 0 {
		t.Fatalf("peer book entry %+v", pi)
	}
	if !pm.IsConnected(key) {
		t.Fatalf("not marked connected")
	}
	if err := pm.Connect(addr); err == nil {
		t.Fatalf("second connect to the same peer allowed")
	}
	if ev := <-newPeer; ev.RemoteInitiated || !ev.PubKey.IsEqual(pub) {
		t.Fatalf("event %+v", ev)
	}

	c.Close()
	if pm.IsConnected(key) {
		t.Fatalf("still connected after close")
	}
}

func TestConnectSetupFailure(t *testing.T) {
	pm, setup, peers, _ := newTestManager(t)
	setup.fail = fmt.Errorf("handshake failed")

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	pub := testPub(t)
	if err := pm.Connect(&lncore.NodeAddr{PubKey: pub, NetAddr: l.Addr().String()}); err == nil {
		t.Fatalf("setup failure not returned")
	}
	if pm.IsConnected(lncore.PubKeyHex(pub)) || len(peers.peers) != 0 {
		t.Fatalf("failed connect left state behind")
	}
}

func TestListenAccepts(t *testing.T) {
	pm, setup, _, bus := newTestManager(t)

	inbound := make(chan NewPeerEvent, 1)
	bus.RegisterHandler("lnp2p.peer.new", func(e eventbus.Event) eventbus.EventHandleResult {
		inbound <- e.(NewPeerEvent)
		return eventbus.EHANDLE_OK
	})
	stopped := make(chan string, 1)
	bus.RegisterHandler("lnp2p.listen.stop", func(e eventbus.Event) eventbus.EventHandleResult {
		stopped <- e.(StopListeningPortEvent).Reason
		return eventbus.EHANDLE_OK
	})

	addr, err := pm.ListenOnPort(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	port := addr.(*net.TCPAddr).Port
	c, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	select {
	case <-setup.conns:
	case <-time.After(2 * time.Second):
		t.Fatalf("inbound conn never reached the engine")
	}
	select {
	case ev := <-inbound:
		if !ev.RemoteInitiated || ev.PubKey != nil {
			t.Fatalf("event %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no new peer event")
	}
	if len(pm.GetListeningAddrs()) != 1 {
		t.Fatalf("listening addrs %v", pm.GetListeningAddrs())
	}

	if err := pm.StopListening(0); err != nil {
		t.Fatal(err)
	}
	select {
	case r := <-stopped:
		if r != "closed" {
			t.Fatalf("stop reason %s", r)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("accept loop did not stop")
	}
}

func TestListenCancelled(t *testing.T) {
	pm, _, _, bus := newTestManager(t)
	bus.RegisterHandler("lnp2p.listen.start", func(eventbus.Event) eventbus.EventHandleResult {
		return eventbus.EHANDLE_CANCEL
	})
	if _, err := pm.ListenOnPort(context.Background(), 0); err == nil {
		t.Fatalf("cancelled listen went ahead")
	}
}

func TestReconnectKnownPeers(t *testing.T) {
	pm, setup, peers, _ := newTestManager(t)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	go func() {
		for {
			c, err := l.Accept()
			if err != nil {
				return
			}
			defer c.Close()
		}
	}()

	pub := testPub(t)
	na := l.Addr().String()
	peers.AddPeer(lncore.PubKeyHex(pub), lncore.PeerInfo{NetAddr: &na})
	// no address, skipped
	peers.AddPeer(lncore.PubKeyHex(testPub(t)), lncore.PeerInfo{})

	pm.reconnectAll()
	select {
	case <-setup.conns:
	case <-time.After(2 * time.Second):
		t.Fatalf("known peer not redialed")
	}
	if !pm.IsConnected(lncore.PubKeyHex(pub)) {
		t.Fatalf("redialed peer not connected")
	}
}

func TestDialerProxySettings(t *testing.T) {
	addr := "127.0.0.1:9050"
	bad := "nocolon"
	if _, err := NewDialer(&NetSettings{ProxyAddr: &addr, ProxyAuth: &bad}); err == nil {
		t.Fatalf("bad proxy auth accepted")
	}
	good := "user:pass"
	d, err := NewDialer(&NetSettings{ProxyAddr: &addr, ProxyAuth: &good})
	if err != nil {
		t.Fatal(err)
	}
	if d.socks == nil {
		t.Fatalf("proxy not used")
	}
}

func TestConnectOnceUnderContention(t *testing.T) {
	pm, setup, _, _ := newTestManager(t)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	go func() {
		for {
			c, err := l.Accept()
			if err != nil {
				return
			}
			defer c.Close()
		}
	}()

	addr := &lncore.NodeAddr{PubKey: testPub(t), NetAddr: l.Addr().String()}
	const dialers = 8
	var wg sync.WaitGroup
	var mtx sync.Mutex
	succeeded := 0
	for i := 0; i < dialers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if pm.Connect(addr) == nil {
				mtx.Lock()
				succeeded++
				mtx.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 {
		t.Fatalf("%d connects succeeded, want 1", succeeded)
	}
	setup.mtx.Lock()
	defer setup.mtx.Unlock()
	if len(setup.outbound) != 1 {
		t.Fatalf("engine got %d outbound conns", len(setup.outbound))
	}
}

func TestDialFailureFreesSlot(t *testing.T) {
	pm, _, _, _ := newTestManager(t)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	dead := l.Addr().String()
	l.Close()

	pub := testPub(t)
	if err := pm.Connect(&lncore.NodeAddr{PubKey: pub, NetAddr: dead}); err == nil {
		t.Fatalf("dial to closed port succeeded")
	}
	if pm.IsConnected(lncore.PubKeyHex(pub)) {
		t.Fatalf("failed dial left the peer marked connected")
	}
}
