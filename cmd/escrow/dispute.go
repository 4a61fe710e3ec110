package main

import (
	"fmt"
	"net/url"

	"github.com/urfave/cli/v2"
)

var disputeIdFlag = cli.StringFlag{
	Name:     "dispute_id",
	Usage:    "the id of the dispute",
	Required: true,
}

var disputes = cli.Command{
	Name:  "disputes",
	Usage: "list the disputes of the daemon",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "trade_id",
			Usage: "list only the disputes of this trade",
		},
	},
	Action: listDisputesAction,
}

var disputeCmd = cli.Command{
	Name:  "dispute",
	Usage: "open, discuss and close disputes",
	Subcommands: []*cli.Command{
		{
			Name:  "open",
			Usage: "open a dispute for a trade",
			Flags: []cli.Flag{
				&tradeIdFlag,
				&cli.StringFlag{
					Name:  "support_type",
					Usage: "ARBITRATION, MEDIATION or REFUND",
					Value: "MEDIATION",
				},
			},
			Action: openDisputeAction,
		},
		{
			Name:  "message",
			Usage: "send an evidence message to the dispute peer",
			Flags: []cli.Flag{
				&disputeIdFlag,
				&cli.StringFlag{
					Name:     "text",
					Usage:    "the message",
					Required: true,
				},
			},
			Action: sendMessageAction,
		},
		{
			Name:  "close",
			Usage: "close the dispute with a ruling, agent only",
			Flags: []cli.Flag{
				&disputeIdFlag,
				&cli.StringFlag{
					Name:     "winner",
					Usage:    "BUYER, SELLER or STALE_MATE",
					Required: true,
				},
				&cli.StringFlag{
					Name:  "reason",
					Usage: "the reason of the ruling",
					Value: "OTHER",
				},
				&cli.StringFlag{
					Name:  "fee_policy",
					Usage: "LOSER_PAYS, SPLIT or WAIVED",
					Value: "LOSER_PAYS",
				},
				&cli.Int64Flag{
					Name:  "buyer_payout",
					Usage: "satoshis paid out to the buyer",
				},
				&cli.Int64Flag{
					Name:  "seller_payout",
					Usage: "satoshis paid out to the seller",
				},
				&cli.Int64Flag{
					Name:  "arbitrator_payout",
					Usage: "satoshis paid out to the arbitrator",
				},
				&cli.StringFlag{
					Name:  "arbitrator_address",
					Usage: "address receiving the arbitrator payout",
				},
				&cli.StringFlag{
					Name:  "notes",
					Usage: "summary notes of the ruling",
				},
				&cli.BoolFlag{
					Name:  "loser_publisher",
					Usage: "make the loser publish the payout tx",
				},
			},
			Action: closeDisputeAction,
		},
		{
			Name:   "retry-payout",
			Usage:  "publish again the disputed payout tx",
			Flags:  []cli.Flag{&disputeIdFlag},
			Action: retryPayoutAction,
		},
	},
}

func listDisputesAction(ctx *cli.Context) error {
	path := "/v1/disputes"
	if tradeId := ctx.String("trade_id"); len(tradeId) > 0 {
		path += "?tradeId=" + url.QueryEscape(tradeId)
	}
	return call(func(c *daemonClient) (interface{}, error) {
		var reply []map[string]interface{}
		err := c.get(path, &reply)
		return reply, err
	})
}

func openDisputeAction(ctx *cli.Context) error {
	tradeId := ctx.String("trade_id")
	body := map[string]string{"supportType": ctx.String("support_type")}
	return call(func(c *daemonClient) (interface{}, error) {
		var reply map[string]interface{}
		err := c.post(tradePath(tradeId, "disputes"), body, &reply)
		return reply, err
	})
}

func sendMessageAction(ctx *cli.Context) error {
	disputeId := ctx.String("dispute_id")
	body := map[string]string{"message": ctx.String("text")}
	return call(func(c *daemonClient) (interface{}, error) {
		var reply map[string]interface{}
		err := c.post(disputePath(disputeId, "messages"), body, &reply)
		return reply, err
	})
}

func closeDisputeAction(ctx *cli.Context) error {
	disputeId := ctx.String("dispute_id")
	body := map[string]interface{}{
		"winner":                 ctx.String("winner"),
		"reason":                 ctx.String("reason"),
		"feePolicy":              ctx.String("fee_policy"),
		"buyerPayoutAmount":      ctx.Int64("buyer_payout"),
		"sellerPayoutAmount":     ctx.Int64("seller_payout"),
		"arbitratorPayoutAmount": ctx.Int64("arbitrator_payout"),
		"arbitratorAddress":      ctx.String("arbitrator_address"),
		"summaryNotes":           ctx.String("notes"),
		"isLoserPublisher":       ctx.Bool("loser_publisher"),
	}
	return call(func(c *daemonClient) (interface{}, error) {
		var reply map[string]interface{}
		err := c.post(disputePath(disputeId, "close"), body, &reply)
		return reply, err
	})
}

func retryPayoutAction(ctx *cli.Context) error {
	disputeId := ctx.String("dispute_id")
	return call(func(c *daemonClient) (interface{}, error) {
		var reply map[string]interface{}
		err := c.post(disputePath(disputeId, "retry-payout"), nil, &reply)
		return reply, err
	})
}

func disputePath(disputeId, suffix string) string {
	path := fmt.Sprintf("/v1/disputes/%s", url.PathEscape(disputeId))
	if len(suffix) > 0 {
		path += "/" + suffix
	}
	return path
}
