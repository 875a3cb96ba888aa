// Package config reads litd's settings from the command line and the
// litd.conf file in the home directory.
package config

import (
	"os"
	"path/filepath"

	flags "github.com/jessevdk/go-flags"
)

type Config struct { // define a struct for usage with go-flags
	RPC        string `long:"rpc" description:"bitcoind JSON-RPC endpoint as user:pass@host:port"`
	LitHomeDir string `long:"dir" description:"Home directory of litd as an absolute path."`
	ConfigFile string `no-flag:"true"`

	ListenPort int    `long:"listen" description:"Port to accept peer connections on. 0 disables listening."`
	NatMode    string `long:"nat" description:"Forward the listen port on the router with upnp or pmp, or off"`
	ProxyURL   string `long:"proxy" description:"SOCKS5 proxy to use for outbound peer connections"`
	ProxyAuth  string `long:"proxyauth" description:"user:pass for the SOCKS5 proxy"`

	SignRPC          string `long:"signrpc" description:"RPC used to sign funding transactions, signrawtransactionwithwallet for bitcoind 0.17+"`
	PersistPreimages bool   `long:"persistpreimages" description:"Keep payment preimages in the database so they survive a restart."`

	AutoReconnect         bool  `long:"autoReconnect" description:"Attempts to automatically reconnect to known peers periodically."`
	AutoReconnectInterval int64 `long:"autoReconnectInterval" description:"The interval (in seconds) the reconnect logic should be executed"`

	Verbose  bool `short:"v" long:"verbose" description:"Also print the log to stdout."`
	LogLevel int  `long:"loglevel" description:"0 errors, 1 warnings, 2 info, 3 debug"`
	NoPass   bool `long:"nopass" description:"Don't ask for a passphrase when creating the key file."`
}

var (
	DefaultLitHomeDirName        = filepath.Join(os.Getenv("HOME"), ".litd")
	DefaultKeyFileName           = "privkey.hex"
	DefaultConfigFilename        = "litd.conf"
	DefaultLogFilename           = "litd.log"
	DefaultDBFilename            = "litd.db"
	DefaultHistoryFilename       = "litd.history"
	DefaultMonitorDirName        = "monitors"
	DefaultListenPort            = 9735
	DefaultAutoReconnectInterval = int64(60)
	DefaultLogLevel              = 2
)

// Default is a Config with every default filled in.
func Default() *Config {
	return &Config{
		LitHomeDir:            DefaultLitHomeDirName,
		ListenPort:            DefaultListenPort,
		AutoReconnectInterval: DefaultAutoReconnectInterval,
		LogLevel:              DefaultLogLevel,
	}
}

// NewConfigParser returns a new command line flags parser.
func NewConfigParser(conf *Config, options flags.Options) *flags.Parser {
	return flags.NewParser(conf, options)
}

// Path joins name onto the home directory.
func (c *Config) Path(name string) string {
	return filepath.Join(c.LitHomeDir, name)
}
