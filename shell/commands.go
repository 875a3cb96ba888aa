package shell

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mit-dci/litd/invoice"
	"github.com/mit-dci/litd/lncore"
	"github.com/mit-dci/litd/lnutil"
)

var connectCommand = &Command{
	Format: fmt.Sprintf("%s%s\n", lnutil.White("connect"), lnutil.ReqColor("pubkey@host:port")),
	Description: fmt.Sprintf("%s\n%s\n%s %s\n",
		"Connect to the node with the given hex pubkey at host:port and",
		"start the handshake authenticating it by that pubkey.",
		"Alias:", lnutil.White("c")),
	ShortDescription: "Connect to a node by pubkey@host:port.\n",
}

var newChannelCommand = &Command{
	Format: fmt.Sprintf("%s%s\n", lnutil.White("new-channel"),
		lnutil.ReqColor("pubkey", "value", "push")),
	Description: fmt.Sprintf("%s\n%s\n%s %s\n",
		"Open a channel with a connected node. value is the capacity in",
		"satoshis and push is how many millisatoshis to hand over at open.",
		"Alias:", lnutil.White("n")),
	ShortDescription: "Open a channel with a connected node.\n",
}

var closeChannelCommand = &Command{
	Format: fmt.Sprintf("%s%s\n", lnutil.White("close-channel"), lnutil.ReqColor("channel_id")),
	Description: fmt.Sprintf("%s\n%s %s\n",
		"Cooperatively close the channel with the given 64 hex character id.",
		"Alias:", lnutil.White("k")),
	ShortDescription: "Cooperatively close a channel.\n",
}

var listPeersCommand = &Command{
	Format:           lnutil.White("list-peers\n"),
	Description:      fmt.Sprintf("List the pubkeys of all connected peers.\nAlias: %s\n", lnutil.White("l p")),
	ShortDescription: "List connected peers.\n",
}

var listChannelsCommand = &Command{
	Format:           lnutil.White("list-channels\n"),
	Description:      fmt.Sprintf("List every channel with its id, short id, peer and value.\nAlias: %s\n", lnutil.White("l c")),
	ShortDescription: "List channels.\n",
}

var newInvoiceHashCommand = &Command{
	Format: lnutil.White("new-invoice-hash\n"),
	Description: fmt.Sprintf("%s\n%s\n%s %s\n",
		"Make a new random preimage, keep it, and print its payment hash",
		"for use in an invoice made elsewhere.",
		"Alias:", lnutil.White("p")),
	ShortDescription: "Make a payment hash to receive funds.\n",
}

var newInvoiceCommand = &Command{
	Format: fmt.Sprintf("%s%s%s\n", lnutil.White("new-invoice"),
		lnutil.ReqColor("amount_msat"), lnutil.OptColor("description")),
	Description: fmt.Sprintf("%s\n%s\n",
		"Make a new preimage and print a signed invoice for it.",
		"An amount of 0 makes an invoice for any amount."),
	ShortDescription: "Make a signed invoice to receive funds.\n",
}

func (sh *Interpreter) connect(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("Invalid line, should be connect pubkey@host:port")
	}
	addr, err := lncore.ParseNodeAddr(args[0])
	if err != nil {
		return err
	}
	sh.printf("Attempting to connect to %s...\n", addr.NetAddr)
	if err := sh.cfg.Connector.Connect(addr); err != nil {
		return fmt.Errorf("connection failed: %s", err.Error())
	}
	sh.printf("connected, initiating handshake!\n")
	sh.cfg.Notify()
	return nil
}

func (sh *Interpreter) newChannel(args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("Invalid line, should be new-channel pubkey value push")
	}
	pub, err := lncore.ParsePubKeyHex(args[0])
	if err != nil {
		return fmt.Errorf("Bad PubKey for remote node: %s", err.Error())
	}
	value, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("Couldn't parse second argument into a value")
	}
	push, err := strconv.ParseUint(args[2], 10, 64)
	if err != nil {
		return fmt.Errorf("Couldn't parse third argument into a push value")
	}
	if err := sh.cfg.Channels.CreateChannel(pub, value, push, 0); err != nil {
		return fmt.Errorf("Failed to open channel: %s", err.Error())
	}
	sh.printf("Channel created, sending open_channel!\n")
	sh.cfg.Notify()
	return nil
}

func (sh *Interpreter) closeChannel(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("Invalid line, should be close-channel channel_id")
	}
	id, err := lnutil.ParseChannelID(args[0])
	if err != nil {
		return fmt.Errorf("Bad channel_id hex")
	}
	if err := sh.cfg.Channels.CloseChannel(id); err != nil {
		return fmt.Errorf("Failed to close channel: %s", err.Error())
	}
	sh.printf("Ok, channel closing!\n")
	sh.cfg.Notify()
	return nil
}

func (sh *Interpreter) listPeers(args []string) error {
	ids := sh.cfg.Peers.GetPeerNodeIDs()
	sh.printf("%s %d\n", lnutil.Header("Connected nodes:"), len(ids))
	for _, id := range ids {
		sh.printf("\t%s\n", lnutil.PubKey(lncore.PubKeyHex(id)))
	}
	return nil
}

func (sh *Interpreter) listChannels(args []string) error {
	sh.printf("%s\n", lnutil.Header("All channels:"))
	for _, c := range sh.cfg.Channels.ListChannels() {
		scid := "not yet confirmed"
		if c.ShortChannelID != nil {
			scid = fmt.Sprintf("short_id: %d", *c.ShortChannelID)
		}
		peer := "unknown"
		if c.RemoteNodeID != nil {
			peer = lnutil.PubKey(lncore.PubKeyHex(c.RemoteNodeID))
		}
		live := ""
		if c.IsLive {
			live = lnutil.Green(" live")
		}
		sh.printf("id: %x, %s, peer: %s, value: %s sat%s\n",
			c.ChannelID, scid, peer, lnutil.SatoshiColor(int64(c.ChannelValueSatoshis)), live)
	}
	return nil
}

func (sh *Interpreter) newInvoiceHash(args []string) error {
	hash, _, err := sh.cfg.Preimages.NewPreimage()
	if err != nil {
		return err
	}
	sh.printf("payment_hash: %x\n", hash)
	return nil
}

func (sh *Interpreter) newInvoice(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("need an amount in millisatoshi")
	}
	if sh.cfg.NodeKey == nil {
		return fmt.Errorf("no node key to sign with")
	}
	amt, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("Provided amount was garbage")
	}
	desc := strings.Join(args[1:], " ")

	hash, _, err := sh.cfg.Preimages.NewPreimage()
	if err != nil {
		return err
	}
	inv := &invoice.Invoice{
		Net:         sh.cfg.Params,
		Timestamp:   time.Now(),
		PaymentHash: &hash,
		Description: &desc,
	}
	if amt != 0 {
		inv.MilliSat = &amt
	}
	s, err := invoice.Encode(inv, sh.cfg.NodeKey)
	if err != nil {
		return err
	}
	sh.printf("payment_hash: %x\n%s\n", hash, s)
	return nil
}
