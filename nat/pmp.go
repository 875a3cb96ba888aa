package nat

import (
	"errors"
	"net"
	"time"

	"github.com/jackpal/gateway"
	natpmp "github.com/jackpal/go-nat-pmp"
	"github.com/mit-dci/litd/logging"
)

// PmpLifetime is how long the router keeps our mapping, in seconds.
const PmpLifetime = 7200

// ErrMultipleNAT means the router's external address is itself private.
var ErrMultipleNAT = errors.New("multiple NATs detected")

var privateBlocks []*net.IPNet

func init() {
	for _, cidr := range []string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"} {
		_, block, _ := net.ParseCIDR(cidr)
		privateBlocks = append(privateBlocks, block)
	}
}

func isPrivateIP(ip net.IP) bool {
	for _, b := range privateBlocks {
		if b.Contains(ip) {
			return true
		}
	}
	return false
}

type pmpMapping struct {
	client *natpmp.Client
	ip     net.IP
	port   int
}

// SetupPmp asks the gateway for a tcp mapping of port.
func SetupPmp(timeout time.Duration, port uint16) (Mapping, error) {
	gw, err := gateway.DiscoverGateway()
	if err != nil {
		return nil, err
	}
	client := natpmp.NewClientWithTimeout(gw, timeout)

	res, err := client.GetExternalAddress()
	if err != nil {
		return nil, err
	}
	ip := net.IP(res.ExternalIPAddress[:])
	if isPrivateIP(ip) {
		return nil, ErrMultipleNAT
	}

	if _, err := client.AddPortMapping("tcp", int(port), int(port), PmpLifetime); err != nil {
		return nil, err
	}
	logging.Infof("pmp: forwarded %d, external ip %s", port, ip)
	return &pmpMapping{client: client, ip: ip, port: int(port)}, nil
}

func (m *pmpMapping) ExternalIP() net.IP { return m.ip }

// Close deletes the mapping; a zero lifetime means delete.
func (m *pmpMapping) Close() error {
	_, err := m.client.AddPortMapping("tcp", m.port, 0, 0)
	return err
}
