// Package shell turns operator input lines into calls on the engine.
//
// Each command prints its own result. Bad input is reported on the same
// output and never changes node state.
package shell

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/btcsuite/btcd/btcec"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/fatih/color"
	"github.com/mit-dci/litd/engine"
	"github.com/mit-dci/litd/lncore"
	"github.com/mit-dci/litd/lnutil"
	"github.com/mit-dci/litd/preimage"
)

// ErrExit is returned by Execute when the operator asks to leave.
var ErrExit = errors.New("user exit")

// Connector opens an outbound session to a peer.
type Connector interface {
	Connect(addr *lncore.NodeAddr) error
}

// Config is what the commands act on.
type Config struct {
	Channels  engine.ChannelManager
	Router    engine.Router
	Peers     engine.PeerManager
	Connector Connector
	Preimages *preimage.Vault
	Params    *chaincfg.Params

	// Notify asks the reconciler for a pass.
	Notify func()

	// NodeKey signs invoices made by new-invoice.
	NodeKey *btcec.PrivateKey

	// Out defaults to color.Output.
	Out io.Writer
}

// Command is the help text for one command.
type Command struct {
	Format           string
	Description      string
	ShortDescription string
}

type handler func(sh *Interpreter, args []string) error

type entry struct {
	help *Command
	run  handler
}

// Interpreter runs one command line at a time. It is not safe for
// concurrent use.
type Interpreter struct {
	cfg      Config
	commands map[string]entry
}

// aliases maps the short forms to full command names.
var aliases = map[string]string{
	"c":   "connect",
	"n":   "new-channel",
	"k":   "close-channel",
	"l p": "list-peers",
	"l c": "list-channels",
	"s":   "pay",
	"p":   "new-invoice-hash",
}

func New(cfg Config) *Interpreter {
	if cfg.Out == nil {
		cfg.Out = color.Output
	}
	if cfg.Notify == nil {
		cfg.Notify = func() {}
	}
	sh := &Interpreter{cfg: cfg}
	sh.commands = map[string]entry{
		"connect":          {connectCommand, (*Interpreter).connect},
		"new-channel":      {newChannelCommand, (*Interpreter).newChannel},
		"close-channel":    {closeChannelCommand, (*Interpreter).closeChannel},
		"list-peers":       {listPeersCommand, (*Interpreter).listPeers},
		"list-channels":    {listChannelsCommand, (*Interpreter).listChannels},
		"pay":              {payCommand, (*Interpreter).pay},
		"new-invoice-hash": {newInvoiceHashCommand, (*Interpreter).newInvoiceHash},
		"new-invoice":      {newInvoiceCommand, (*Interpreter).newInvoice},
		"graph":            {graphCommand, (*Interpreter).graph},
		"help":             {helpCommand, (*Interpreter).help},
	}
	return sh
}

func (sh *Interpreter) printf(format string, a ...interface{}) {
	fmt.Fprintf(sh.cfg.Out, format, a...)
}

func (sh *Interpreter) print(a ...interface{}) {
	fmt.Fprint(sh.cfg.Out, a...)
}

// Execute runs one line. Only ErrExit is returned; every other failure is
// printed.
func (sh *Interpreter) Execute(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	name, args := resolve(fields)

	if name == "exit" || name == "quit" {
		if len(args) == 1 && args[0] == "-h" {
			sh.print(exitCommand.Format)
			sh.print(exitCommand.Description)
			return nil
		}
		return ErrExit
	}

	e, ok := sh.commands[name]
	if !ok {
		sh.printf("unknown command: %s. type %s for command list.\n", name, lnutil.White("help"))
		return nil
	}
	if len(args) > 0 && args[0] == "-h" {
		sh.print(e.help.Format)
		sh.print(e.help.Description)
		return nil
	}
	if err := sh.run(e.run, args); err != nil {
		sh.printf("%s %s\n", lnutil.Red(name+" error:"), err.Error())
	}
	return nil
}

// run calls h, turning a panic into an error.
func (sh *Interpreter) run(h handler, args []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
		}
	}()
	return h(sh, args)
}

func resolve(fields []string) (string, []string) {
	if len(fields) > 1 {
		if full, ok := aliases[fields[0]+" "+fields[1]]; ok {
			return full, fields[2:]
		}
	}
	if full, ok := aliases[fields[0]]; ok {
		return full, fields[1:]
	}
	return fields[0], fields[1:]
}

// Names lists every command, sorted.
func (sh *Interpreter) Names() []string {
	names := make([]string, 0, len(sh.commands)+1)
	for n := range sh.commands {
		names = append(names, n)
	}
	names = append(names, "exit")
	sort.Strings(names)
	return names
}

var helpCommand = &Command{
	Format:           fmt.Sprintf("%s%s\n", lnutil.White("help"), lnutil.OptColor("command")),
	Description:      "Show information about a given command\n",
	ShortDescription: "Show information about a given command\n",
}

var exitCommand = &Command{
	Format:           lnutil.White("exit\n"),
	Description:      fmt.Sprintf("Alias: %s\nExit the interactive shell.\n", lnutil.White("quit")),
	ShortDescription: "Exit the interactive shell.\n",
}

func (sh *Interpreter) help(args []string) error {
	if len(args) > 0 {
		name, _ := resolve(args)
		if name == "exit" || name == "quit" {
			sh.print(exitCommand.Format)
			sh.print(exitCommand.Description)
			return nil
		}
		e, ok := sh.commands[name]
		if !ok {
			return fmt.Errorf("no command %s", args[0])
		}
		sh.print(e.help.Format)
		sh.print(e.help.Description)
		return nil
	}

	sh.printf("%s\n", lnutil.Header("Commands:"))
	for _, n := range sh.Names() {
		c := exitCommand
		if e, ok := sh.commands[n]; ok {
			c = e.help
		}
		sh.printf("%-18s %s", lnutil.White(n), c.ShortDescription)
	}
	short := make([]string, 0, len(aliases))
	for a, full := range aliases {
		short = append(short, fmt.Sprintf("%s=%s", a, full))
	}
	sort.Strings(short)
	sh.printf("Aliases: %s\n", strings.Join(short, ", "))
	return nil
}
