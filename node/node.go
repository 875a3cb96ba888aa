// Package node builds litd out of its parts and runs it.
//
// The lightning protocol engine is not part of litd. Whoever embeds litd
// supplies it through Deps, along with the in-memory chain monitor that the
// persisted monitor store sits in front of.
package node

import (
	"context"
	"io"
	"io/ioutil"
	"os"
	"time"

	"github.com/btcsuite/btcd/btcec"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/fatih/color"
	flags "github.com/jessevdk/go-flags"
	"github.com/mit-dci/litd/chainrpc"
	"github.com/mit-dci/litd/config"
	"github.com/mit-dci/litd/db/lnbolt"
	"github.com/mit-dci/litd/engine"
	"github.com/mit-dci/litd/eventbus"
	"github.com/mit-dci/litd/lnp2p"
	"github.com/mit-dci/litd/lnutil"
	"github.com/mit-dci/litd/logging"
	"github.com/mit-dci/litd/monitorstore"
	"github.com/mit-dci/litd/preimage"
	"github.com/mit-dci/litd/reconciler"
	"github.com/mit-dci/litd/shell"
	"github.com/pkg/errors"
)

// Env is what the engine gets built with.
type Env struct {
	NodeKey     *btcec.PrivateKey
	Params      *chaincfg.Params
	Monitor     engine.ManyChannelMonitor
	Broadcaster engine.Broadcaster
}

type Deps struct {
	// ChainMonitor is the engine's own monitor set. Persisted monitors are
	// loaded into it at startup and every later update reaches it only
	// after it is on disk.
	ChainMonitor  engine.ManyChannelMonitor
	DecodeMonitor engine.MonitorDecoder
	NewEngine     func(Env) (engine.Engine, error)

	// DialRPC defaults to chainrpc.Dial.
	DialRPC func(endpoint string) (chainrpc.Caller, error)
	// Passphrase defaults to asking on the terminal unless --nopass.
	Passphrase lnutil.PassphraseFunc
	// Out is where the shell prints. Defaults to color.Output.
	Out io.Writer
}

type Node struct {
	conf *config.Config

	NodeKey *btcec.PrivateKey
	Params  *chaincfg.Params

	db        *lnbolt.LitBoltDB
	rpc       chainrpc.Caller
	vault     *preimage.Vault
	persister *monitorstore.Persister
	bus       *eventbus.EventBus
	peers     *lnp2p.PeerManager
	engine    engine.Engine
	rec       *reconciler.Reconciler
	cancel    context.CancelFunc
	shell     *shell.Interpreter
}

func dialRPC(endpoint string) (chainrpc.Caller, error) {
	return chainrpc.Dial(endpoint)
}

// New opens the home directory state, checks bitcoind, loads monitors and
// builds the engine. Nothing is started.
func New(conf *config.Config, deps Deps) (*Node, error) {
	if deps.NewEngine == nil || deps.ChainMonitor == nil || deps.DecodeMonitor == nil {
		return nil, errors.New("node needs an engine, a chain monitor and a monitor decoder")
	}
	if deps.DialRPC == nil {
		deps.DialRPC = dialRPC
	}
	if deps.Passphrase == nil && !conf.NoPass {
		deps.Passphrase = lnutil.TerminalPassphrase
	}
	if deps.Out == nil {
		deps.Out = color.Output
	}

	nd := &Node{conf: conf}
	ok := false
	defer func() {
		if !ok {
			nd.Close()
		}
	}()

	key, err := lnutil.ReadKeyFile(conf.Path(config.DefaultKeyFileName), deps.Passphrase)
	if err != nil {
		return nil, errors.Wrap(err, "key file")
	}
	nd.NodeKey, _ = btcec.PrivKeyFromBytes(btcec.S256(), key[:])

	nd.db = new(lnbolt.LitBoltDB)
	if err := nd.db.Open(conf.Path(config.DefaultDBFilename)); err != nil {
		nd.db = nil
		return nil, err
	}
	if conf.PersistPreimages {
		nd.vault, err = preimage.NewPersistentVault(nd.db.GetPreimageDB())
		if err != nil {
			return nil, err
		}
	} else {
		nd.vault = preimage.NewVault()
	}

	nd.rpc, err = deps.DialRPC(conf.RPC)
	if err != nil {
		return nil, err
	}
	nd.Params, err = chainrpc.CheckChain(nd.rpc)
	if err != nil {
		return nil, err
	}
	logging.Infof("bitcoind is on %s", nd.Params.Name)

	store, err := monitorstore.NewStore(conf.Path(config.DefaultMonitorDirName))
	if err != nil {
		return nil, err
	}
	nd.persister = monitorstore.NewPersister(store, deps.ChainMonitor)
	if _, err := nd.persister.LoadFromDisk(deps.DecodeMonitor); err != nil {
		return nil, err
	}

	bcast := chainrpc.NewBroadcaster(nd.rpc)
	nd.engine, err = deps.NewEngine(Env{
		NodeKey:     nd.NodeKey,
		Params:      nd.Params,
		Monitor:     nd.persister,
		Broadcaster: bcast,
	})
	if err != nil {
		return nil, errors.Wrap(err, "engine")
	}

	nd.rec = reconciler.New(reconciler.Config{
		Events:      nd.engine,
		Channels:    nd.engine,
		RPC:         nd.rpc,
		Broadcaster: bcast,
		Preimages:   nd.vault,
		Params:      nd.Params,
		SignMethod:  conf.SignRPC,
	})

	nd.bus = eventbus.NewEventBus()
	nd.peers, err = lnp2p.NewPeerManager(nd.engine, nd.db.GetPeerDB(), nd.bus, netSettings(conf))
	if err != nil {
		return nil, err
	}
	// A new session means the engine has messages to process.
	nd.bus.RegisterHandler("lnp2p.peer.new", func(e eventbus.Event) eventbus.EventHandleResult {
		nd.rec.Notify()
		return eventbus.EHANDLE_OK
	})

	nd.shell = shell.New(shell.Config{
		Channels:  nd.engine,
		Router:    nd.engine,
		Peers:     nd.engine,
		Connector: nd.peers,
		Preimages: nd.vault,
		Params:    nd.Params,
		Notify:    nd.rec.Notify,
		NodeKey:   nd.NodeKey,
		Out:       deps.Out,
	})

	ok = true
	return nd, nil
}

func netSettings(conf *config.Config) *lnp2p.NetSettings {
	s := new(lnp2p.NetSettings)
	if conf.NatMode != "" {
		s.NatMode = &conf.NatMode
	}
	if conf.ProxyURL != "" {
		s.ProxyAddr = &conf.ProxyURL
	}
	if conf.ProxyAuth != "" {
		s.ProxyAuth = &conf.ProxyAuth
	}
	return s
}

// Shell is the command interpreter, for callers that feed it lines
// themselves.
func (nd *Node) Shell() *shell.Interpreter { return nd.shell }

// Start runs the reconciler, the listener and reconnects in the
// background. An initial wake token picks up whatever the engine queued
// while loading.
func (nd *Node) Start(ctx context.Context) error {
	ctx, nd.cancel = context.WithCancel(ctx)
	go nd.rec.Run(ctx)
	nd.rec.Notify()

	if nd.conf.ListenPort != 0 {
		addr, err := nd.peers.ListenOnPort(ctx, nd.conf.ListenPort)
		if err != nil {
			return errors.Wrapf(err, "listen on %d", nd.conf.ListenPort)
		}
		logging.Infof("listening for peers on %s", addr)
	}
	if nd.conf.AutoReconnect {
		nd.peers.StartAutoReconnect(ctx,
			time.Duration(nd.conf.AutoReconnectInterval)*time.Second)
	}
	return nil
}

// Run starts the node and hands the terminal to the shell until the
// operator exits or ctx is done.
func (nd *Node) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := nd.Start(ctx); err != nil {
		return err
	}
	return nd.shell.RunInteractive(ctx, nd.conf.Path(config.DefaultHistoryFilename))
}

// Close stops networking and the reconciler, waits for in flight funding
// work and closes the database.
func (nd *Node) Close() {
	if nd.peers != nil {
		nd.peers.Close()
	}
	if nd.cancel != nil {
		nd.cancel()
		<-nd.rec.Done()
	}
	if nd.rec != nil {
		nd.rec.Wait()
	}
	if s, ok := nd.rpc.(interface{ Shutdown() }); ok {
		s.Shutdown()
	}
	if nd.db != nil {
		if err := nd.db.Close(); err != nil {
			logging.Errorf("closing db: %s", err.Error())
		}
	}
}

// Main is the body of a litd binary: it reads the config from args,
// sets up logging, builds the node and runs the shell. It returns the
// process exit code.
func Main(args []string, deps Deps) int {
	conf, err := config.Setup(args)
	if err != nil {
		if fe, ok := err.(*flags.Error); ok && fe.Type == flags.ErrHelp {
			return 0
		}
		color.New(color.FgRed).Fprintf(os.Stderr, "%s\n", err.Error())
		return 1
	}

	if err := logging.SetupLogs(conf.Path(config.DefaultLogFilename), conf.LogLevel); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "%s\n", err.Error())
		return 1
	}
	if !conf.Verbose {
		logging.SetOutput(ioutil.Discard)
	}
	logging.Infof("litd starting, home %s, listen port %d", conf.LitHomeDir, conf.ListenPort)

	nd, err := New(conf, deps)
	if err != nil {
		logging.Errorf("startup: %s", err.Error())
		color.New(color.FgRed).Fprintf(os.Stderr, "startup: %s\n", err.Error())
		return 1
	}
	defer nd.Close()

	if err := nd.Run(context.Background()); err != nil {
		logging.Errorf("%s", err.Error())
		return 1
	}
	return 0
}
