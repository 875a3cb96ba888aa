package shell

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/mit-dci/litd/lncore"
	"github.com/mit-dci/litd/lnutil"
)

func (sh *Interpreter) completePeers(line string) []string {
	ids := sh.cfg.Peers.GetPeerNodeIDs()
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, lncore.PubKeyHex(id))
	}
	return names
}

func (sh *Interpreter) completeChannelIDs(line string) []string {
	chans := sh.cfg.Channels.ListChannels()
	names := make([]string, 0, len(chans))
	for _, c := range chans {
		names = append(names, fmt.Sprintf("%x", c.ChannelID))
	}
	return names
}

// NewAutoCompleter completes command names, peer pubkeys and channel ids.
func (sh *Interpreter) NewAutoCompleter() readline.AutoCompleter {
	helpItems := make([]readline.PrefixCompleterInterface, 0, len(sh.commands))
	for _, n := range sh.Names() {
		helpItems = append(helpItems, readline.PcItem(n))
	}
	return readline.NewPrefixCompleter(
		readline.PcItem("help", helpItems...),
		readline.PcItem("connect"),
		readline.PcItem("new-channel",
			readline.PcItemDynamic(sh.completePeers)),
		readline.PcItem("close-channel",
			readline.PcItemDynamic(sh.completeChannelIDs)),
		readline.PcItem("list-peers"),
		readline.PcItem("list-channels"),
		readline.PcItem("pay"),
		readline.PcItem("new-invoice-hash"),
		readline.PcItem("new-invoice"),
		readline.PcItem("graph"),
		readline.PcItem("exit"),
	)
}

// RunInteractive reads lines from the terminal until exit, EOF or ctx is
// done. Commands run one at a time.
func (sh *Interpreter) RunInteractive(ctx context.Context, historyFile string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:       lnutil.Prompt("litd") + lnutil.White("> "),
		HistoryFile:  historyFile,
		AutoComplete: sh.NewAutoCompleter(),
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	go func() {
		<-ctx.Done()
		rl.Close()
	}()

	sh.print(lnutil.Header("Started interactive shell!"), " Type ", lnutil.White("help"), " for commands.\n")
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF || ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if sh.Execute(line) == ErrExit {
			return nil
		}
	}
}
