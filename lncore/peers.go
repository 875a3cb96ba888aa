package lncore

import (
	"encoding/hex"
	"fmt"
	"net"
	"strings"

	"github.com/btcsuite/btcd/btcec"
)

// NodeAddr is "<66 hex pubkey>@host:port", the form operators paste around.
type NodeAddr struct {
	PubKey  *btcec.PublicKey
	NetAddr string
}

// ParseNodeAddr splits and checks a pubkey@host:port string. The host part
// is not resolved here.
func ParseNodeAddr(s string) (*NodeAddr, error) {
	at := strings.IndexByte(s, '@')
	if at < 0 {
		return nil, fmt.Errorf("%q is not pubkey@host:port", s)
	}
	pub, err := ParsePubKeyHex(s[:at])
	if err != nil {
		return nil, err
	}
	host, port, err := net.SplitHostPort(s[at+1:])
	if err != nil {
		return nil, err
	}
	if host == "" || port == "" {
		return nil, fmt.Errorf("%q needs both host and port", s[at+1:])
	}
	return &NodeAddr{PubKey: pub, NetAddr: net.JoinHostPort(host, port)}, nil
}

func (a *NodeAddr) String() string {
	return PubKeyHex(a.PubKey) + "@" + a.NetAddr
}

// ParsePubKeyHex reads a 33 byte compressed pubkey written in hex.
func ParsePubKeyHex(s string) (*btcec.PublicKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("pubkey: %s", err.Error())
	}
	if len(b) != 33 {
		return nil, fmt.Errorf("pubkey is %d bytes, expect 33", len(b))
	}
	return btcec.ParsePubKey(b, btcec.S256())
}

// PubKeyHex is the compressed hex form used as the peer book key.
func PubKeyHex(pub *btcec.PublicKey) string {
	return hex.EncodeToString(pub.SerializeCompressed())
}

// LitPeerStorage is storage for peer data, keyed by PubKeyHex.
type LitPeerStorage interface {
	GetPeerKeys() ([]string, error)
	GetPeerInfo(pubkey string) (*PeerInfo, error)
	GetPeerInfos() (map[string]PeerInfo, error)
	AddPeer(pubkey string, pi PeerInfo) error
	UpdatePeer(pubkey string, pi *PeerInfo) error
	DeletePeer(pubkey string) error
}

// PeerInfo is what we remember about a peer between runs.
type PeerInfo struct {
	Nickname *string `json:"name,omitempty"`
	NetAddr  *string `json:"netaddr,omitempty"` // host:port we last reached them on

	// LastConnected is unix seconds.
	LastConnected int64 `json:"lastconnected"`
	Inbound       bool  `json:"inbound"`
}
