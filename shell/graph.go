package shell

import (
	"fmt"
	"io/ioutil"
	"strconv"

	"github.com/awalterschulze/gographviz"
	"github.com/mit-dci/litd/lncore"
	"github.com/mit-dci/litd/lnutil"
)

var graphCommand = &Command{
	Format: fmt.Sprintf("%s%s\n", lnutil.White("graph"), lnutil.OptColor("file")),
	Description: fmt.Sprintf("%s\n%s\n",
		"Print our peers and channels as a graphviz digraph,",
		"or write it to file."),
	ShortDescription: "Graph peers and channels in DOT.\n",
}

func quoted(s string) string { return strconv.Quote(s) }

// Visualise builds the DOT graph: one node per peer, one edge per channel
// from us to the counterparty. Live channels are green.
func (sh *Interpreter) Visualise() (string, error) {
	g := gographviz.NewGraph()
	if err := g.SetName("litd"); err != nil {
		return "", err
	}
	if err := g.SetDir(true); err != nil {
		return "", err
	}

	self := quoted("self")
	if sh.cfg.NodeKey != nil {
		self = quoted(lncore.PubKeyHex(sh.cfg.NodeKey.PubKey()))
	}
	addNode := func(name string) error {
		if g.IsNode(name) {
			return nil
		}
		return g.AddNode("litd", name, nil)
	}
	if err := addNode(self); err != nil {
		return "", err
	}

	for _, id := range sh.cfg.Peers.GetPeerNodeIDs() {
		if err := addNode(quoted(lncore.PubKeyHex(id))); err != nil {
			return "", err
		}
	}
	for _, c := range sh.cfg.Channels.ListChannels() {
		peer := quoted("unknown")
		if c.RemoteNodeID != nil {
			peer = quoted(lncore.PubKeyHex(c.RemoteNodeID))
		}
		if err := addNode(peer); err != nil {
			return "", err
		}
		attrs := map[string]string{
			"label": quoted(fmt.Sprintf("%d sat", c.ChannelValueSatoshis)),
		}
		if c.IsLive {
			attrs["color"] = "green"
		}
		if err := g.AddEdge(self, peer, true, attrs); err != nil {
			return "", err
		}
	}
	return g.String(), nil
}

func (sh *Interpreter) graph(args []string) error {
	dot, err := sh.Visualise()
	if err != nil {
		return err
	}
	if len(args) == 0 {
		sh.print(dot)
		return nil
	}
	if err := ioutil.WriteFile(args[0], []byte(dot), 0644); err != nil {
		return err
	}
	sh.printf("wrote graph to %s\n", args[0])
	return nil
}
