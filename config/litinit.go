package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/getlantern/deepcopy"
	flags "github.com/jessevdk/go-flags"
	"github.com/mit-dci/litd/chainrpc"
	"github.com/mit-dci/litd/lnutil"
	"github.com/pkg/errors"
)

const defaultConfigText = `; litd configuration. Command line flags override these.
; rpc=user:pass@127.0.0.1:18443
; listen=9735
; nat=upnp
; autoReconnect=true
`

// createDefaultConfigFile creates a config file -- only call this if the
// config file isn't already there
func createDefaultConfigFile(path string) error {
	dest, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer dest.Close()

	w := bufio.NewWriter(dest)
	if _, err := w.WriteString(defaultConfigText); err != nil {
		return err
	}
	return w.Flush()
}

// Setup parses args over the defaults and the config file. The home
// directory and a commented config file are created on first run.
// A help request comes back as a *flags.Error of type flags.ErrHelp.
func Setup(args []string) (*Config, error) {
	conf := Default()

	// Pre-parse the command line to find the home directory. Errors other
	// than help are caught by the final parse.
	preconf := new(Config)
	if err := deepcopy.Copy(preconf, conf); err != nil {
		return nil, err
	}
	preParser := NewConfigParser(preconf, flags.HelpFlag|flags.IgnoreUnknown)
	if _, err := preParser.ParseArgs(args); err != nil {
		if fe, ok := err.(*flags.Error); ok && fe.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, fe.Message)
			return nil, err
		}
	}

	if _, err := os.Stat(preconf.LitHomeDir); os.IsNotExist(err) {
		if err := os.MkdirAll(preconf.LitHomeDir, 0700); err != nil {
			return nil, errors.Wrap(err, "create home directory")
		}
	}
	conf.LitHomeDir = preconf.LitHomeDir
	conf.ConfigFile = filepath.Join(preconf.LitHomeDir, DefaultConfigFilename)
	if _, err := os.Stat(conf.ConfigFile); os.IsNotExist(err) {
		if err := createDefaultConfigFile(conf.ConfigFile); err != nil {
			return nil, errors.Wrap(err, "create config file")
		}
	}

	parser := NewConfigParser(conf, flags.Default)
	if err := flags.NewIniParser(parser).ParseFile(conf.ConfigFile); err != nil {
		if _, ok := err.(*os.PathError); !ok {
			return nil, errors.Wrapf(err, "parse %s", conf.ConfigFile)
		}
	}

	// Parse command line options again to ensure they take precedence.
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	conf.normalize()
	if err := conf.check(); err != nil {
		return nil, err
	}
	return conf, nil
}

// normalize blanks the optional string settings given as "off", "none"
// and the like.
func (c *Config) normalize() {
	for _, s := range []*string{&c.NatMode, &c.ProxyURL, &c.ProxyAuth, &c.SignRPC} {
		if lnutil.NopeString(*s) {
			*s = ""
		}
	}
	c.NatMode = strings.ToLower(strings.TrimSpace(c.NatMode))
}

func (c *Config) check() error {
	if c.RPC == "" {
		return fmt.Errorf("no bitcoind given, use --rpc user:pass@host:port")
	}
	if _, err := chainrpc.ParseEndpoint(c.RPC); err != nil {
		return err
	}
	switch c.NatMode {
	case "", "upnp", "pmp":
	default:
		return fmt.Errorf("nat mode %q, want upnp, pmp or off", c.NatMode)
	}
	if c.ListenPort < 0 || c.ListenPort > 65535 {
		return fmt.Errorf("listen port %d out of range", c.ListenPort)
	}
	if c.AutoReconnect && c.AutoReconnectInterval <= 0 {
		return fmt.Errorf("autoReconnectInterval must be positive")
	}
	if c.LogLevel < 0 || c.LogLevel > 3 {
		return fmt.Errorf("loglevel %d out of range 0-3", c.LogLevel)
	}
	return nil
}
