package nat

import (
	"context"
	"net"

	upnp "github.com/NebulousLabs/go-UpnP"
	"github.com/mit-dci/litd/logging"
	"github.com/pkg/errors"
)

type upnpMapping struct {
	igd  *upnp.IGD
	ip   net.IP
	port uint16
}

// SetupUpnp finds the router and forwards port to us.
func SetupUpnp(ctx context.Context, port uint16) (Mapping, error) {
	igd, err := upnp.DiscoverCtx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "upnp: discover router")
	}
	ipStr, err := igd.ExternalIP()
	if err != nil {
		return nil, errors.Wrap(err, "upnp: external ip")
	}
	if err := igd.Forward(port, "litd peer port"); err != nil {
		return nil, errors.Wrapf(err, "upnp: forward %d", port)
	}
	logging.Infof("upnp: forwarded %d, external ip %s", port, ipStr)
	return &upnpMapping{igd: igd, ip: net.ParseIP(ipStr), port: port}, nil
}

func (m *upnpMapping) ExternalIP() net.IP { return m.ip }

func (m *upnpMapping) Close() error {
	return m.igd.Clear(m.port)
}
