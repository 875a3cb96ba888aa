// Package nat opens the listen port on the local router.
package nat

import (
	"context"
	"fmt"
	"net"
	"time"
)

// PmpTimeout bounds each NAT-PMP request.
const PmpTimeout = 10 * time.Second

// Mapping is a forwarded port that can be handed back.
type Mapping interface {
	ExternalIP() net.IP
	Close() error
}

// Forward maps port with mode, "upnp" or "pmp".
func Forward(ctx context.Context, mode string, port uint16) (Mapping, error) {
	switch mode {
	case "upnp":
		return SetupUpnp(ctx, port)
	case "pmp":
		return SetupPmp(PmpTimeout, port)
	}
	return nil, fmt.Errorf("invalid NAT type %q, want upnp or pmp", mode)
}
