package lnp2p

import (
	"fmt"
	"net"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// DialTimeout bounds an outbound TCP connect.
const DialTimeout = 10 * time.Second

// NetSettings holds the optional NAT and proxy settings.
type NetSettings struct {
	NatMode *string `json:"natmode"`

	ProxyAddr *string `json:"proxyserv"`
	ProxyAuth *string `json:"proxyauth"` // user:pass
}

// Dialer opens raw TCP connections to peers, directly or through SOCKS5.
type Dialer struct {
	direct *net.Dialer
	socks  proxy.Dialer
}

// NewDialer builds a dialer for settings, which may be nil.
func NewDialer(settings *NetSettings) (*Dialer, error) {
	d := &Dialer{direct: &net.Dialer{Timeout: DialTimeout}}
	if settings == nil || settings.ProxyAddr == nil || *settings.ProxyAddr == "" {
		return d, nil
	}

	var auth *proxy.Auth
	if settings.ProxyAuth != nil && *settings.ProxyAuth != "" {
		parts := strings.SplitN(*settings.ProxyAuth, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("proxy auth should be user:pass")
		}
		auth = &proxy.Auth{User: parts[0], Password: parts[1]}
	}
	s, err := proxy.SOCKS5("tcp", *settings.ProxyAddr, auth, d.direct)
	if err != nil {
		return nil, err
	}
	d.socks = s
	return d, nil
}

// Dial connects to host:port.
func (d *Dialer) Dial(addr string) (net.Conn, error) {
	if d.socks != nil {
		return d.socks.Dial("tcp", addr)
	}
	return d.direct.Dial("tcp", addr)
}
