package shell

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/mit-dci/litd/engine"
	"github.com/mit-dci/litd/invoice"
	"github.com/mit-dci/litd/lnutil"
)

var payCommand = &Command{
	Format: fmt.Sprintf("%s%s%s\n", lnutil.White("pay"), lnutil.ReqColor("invoice"), lnutil.OptColor("amount_msat")),
	Description: fmt.Sprintf("%s\n%s\n%s %s\n",
		"Pay a BOLT11 invoice. The amount in the invoice is used when it has one;",
		"otherwise give one in whole millisatoshis.",
		"Alias:", lnutil.White("s")),
	ShortDescription: "Pay an invoice.\n",
}

// pay checks the invoice stage by stage. Nothing reaches the engine until
// every check passes.
func (sh *Interpreter) pay(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("Invalid line, should be pay invoice [amount_msat]")
	}

	inv, err := invoice.Decode(args[0])
	if err != nil {
		return fmt.Errorf("Bad invoice: %s", err.Error())
	}
	if inv.Net.Name != sh.cfg.Params.Name {
		return fmt.Errorf("Wrong network on invoice")
	}
	if inv.Destination != nil && !inv.Destination.IsEqual(inv.Payee) {
		return fmt.Errorf("Invoice had non-equal duplicative target node_id (ie was malformed)")
	}
	if inv.Expired(time.Now()) {
		return fmt.Errorf("Invoice expired at %s",
			inv.Timestamp.Add(inv.ExpiryOrDefault()).Format(time.RFC3339))
	}

	var hints []engine.RouteHint
	for _, route := range inv.RouteHints {
		if len(route) != 1 {
			sh.printf("Invoice contained multi-hop non-public route, ignoring as yet unsupported\n")
			continue
		}
		h := route[0]
		hints = append(hints, engine.RouteHint{
			SrcNodeID:                 h.NodeID,
			ShortChannelID:            h.ShortChannelID,
			FeeBaseMsat:               h.FeeBaseMsat,
			FeeProportionalMillionths: h.FeeProportionalMillionths,
			CLTVExpiryDelta:           h.CLTVExpiryDelta,
		})
	}

	var amt uint64
	switch {
	case inv.MilliSat != nil && *inv.MilliSat != 0:
		amt = *inv.MilliSat
		if len(args) == 2 {
			sh.printf("Invoice has an amount, ignoring %s\n", args[1])
		}
	case len(args) < 2:
		return fmt.Errorf("Invoice was missing amount, you should specify one")
	default:
		amt, err = strconv.ParseUint(args[1], 10, 64)
		if err != nil || amt == 0 {
			return fmt.Errorf("Provided amount was garbage")
		}
	}

	cltv := inv.MinFinalCLTVOrDefault()
	if cltv > math.MaxUint32 {
		return fmt.Errorf("Invoice had garbage final cltv")
	}

	route, err := sh.cfg.Router.GetRoute(inv.Payee, sh.cfg.Channels.ListUsableChannels(),
		hints, amt, uint32(cltv))
	if err != nil {
		return fmt.Errorf("Failed to find route: %s", err.Error())
	}
	if err := sh.cfg.Channels.SendPayment(route, *inv.PaymentHash); err != nil {
		return fmt.Errorf("Failed to send HTLC: %s", err.Error())
	}
	sh.printf("Sending %d msat\n", amt)
	sh.cfg.Notify()
	return nil
}
