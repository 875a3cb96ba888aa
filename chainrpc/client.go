// Package chainrpc talks to bitcoind over JSON-RPC. Calls are asynchronous:
// CallAsync returns at once and the Future blocks on Receive.
package chainrpc

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/rpcclient"
	"github.com/pkg/errors"
)

// Future is a pending RPC result.
type Future interface {
	Receive() (json.RawMessage, error)
}

// Caller issues a named RPC. Each arg is one already encoded JSON param.
type Caller interface {
	CallAsync(method string, args ...string) Future
}

// CallerFunc adapts a function to Caller.
type CallerFunc func(method string, args ...string) Future

func (f CallerFunc) CallAsync(method string, args ...string) Future {
	return f(method, args...)
}

type readyFuture struct {
	res json.RawMessage
	err error
}

func (f readyFuture) Receive() (json.RawMessage, error) { return f.res, f.err }

// Ready is a Future that already has its result.
func Ready(res json.RawMessage, err error) Future {
	return readyFuture{res: res, err: err}
}

// Quote encodes s as a JSON string param.
func Quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// Endpoint is a parsed user:pass@host:port.
type Endpoint struct {
	User string
	Pass string
	Host string
}

// ParseEndpoint splits user:pass@host:port. The password may contain ':'
// and the user may not; the host part is everything after the last '@'.
func ParseEndpoint(s string) (*Endpoint, error) {
	at := strings.LastIndexByte(s, '@')
	if at < 0 {
		return nil, fmt.Errorf("rpc endpoint %q is not user:pass@host:port", s)
	}
	creds, host := s[:at], s[at+1:]
	colon := strings.IndexByte(creds, ':')
	if colon < 1 {
		return nil, fmt.Errorf("rpc endpoint needs user:pass before the @")
	}
	if !strings.Contains(host, ":") {
		return nil, fmt.Errorf("rpc endpoint %q has no port", host)
	}
	return &Endpoint{User: creds[:colon], Pass: creds[colon+1:], Host: host}, nil
}

// Client is a Caller backed by btcd's rpcclient in HTTP POST mode.
type Client struct {
	rpc *rpcclient.Client
}

// Dial makes a client for user:pass@host:port. No request is sent until
// the first call.
func Dial(endpoint string) (*Client, error) {
	ep, err := ParseEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	rpc, err := rpcclient.New(&rpcclient.ConnConfig{
		Host:         ep.Host,
		User:         ep.User,
		Pass:         ep.Pass,
		HTTPPostMode: true,
		DisableTLS:   true,
	}, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "rpc client for %s", ep.Host)
	}
	return &Client{rpc: rpc}, nil
}

func (c *Client) CallAsync(method string, args ...string) Future {
	params := make([]json.RawMessage, len(args))
	for i, a := range args {
		params[i] = json.RawMessage(a)
	}
	return c.rpc.RawRequestAsync(method, params)
}

func (c *Client) Shutdown() {
	c.rpc.Shutdown()
	c.rpc.WaitForShutdown()
}
