package main

import (
	"fmt"
	"net/url"

	"github.com/urfave/cli/v2"
)

var tradeIdFlag = cli.StringFlag{
	Name:     "trade_id",
	Usage:    "the id of the trade",
	Required: true,
}

var info = cli.Command{
	Name:  "info",
	Usage: "get info about the daemon",
	Action: func(ctx *cli.Context) error {
		return call(func(c *daemonClient) (interface{}, error) {
			var reply map[string]interface{}
			err := c.get("/v1/info", &reply)
			return reply, err
		})
	},
}

var trades = cli.Command{
	Name:  "trades",
	Usage: "list the trades of the daemon",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "open",
			Usage: "list only the trades not closed yet",
		},
	},
	Action: listTradesAction,
}

var trade = cli.Command{
	Name:  "trade",
	Usage: "show or advance a trade",
	Subcommands: []*cli.Command{
		{
			Name:   "show",
			Usage:  "show the trade",
			Flags:  []cli.Flag{&tradeIdFlag},
			Action: getTradeAction,
		},
		{
			Name:   "payment-sent",
			Usage:  "confirm the fiat payment was sent, buyer only",
			Flags:  []cli.Flag{&tradeIdFlag},
			Action: tradeStepAction("payment-sent"),
		},
		{
			Name:   "payment-received",
			Usage:  "confirm the fiat payment was received, seller only",
			Flags:  []cli.Flag{&tradeIdFlag},
			Action: tradeStepAction("payment-received"),
		},
		{
			Name:   "withdraw",
			Usage:  "mark the payout as withdrawn",
			Flags:  []cli.Flag{&tradeIdFlag},
			Action: tradeStepAction("withdraw"),
		},
	},
}

var funds = cli.Command{
	Name:  "funds",
	Usage: "get the amount locked in open trades",
	Action: func(ctx *cli.Context) error {
		return call(func(c *daemonClient) (interface{}, error) {
			var reply map[string]interface{}
			err := c.get("/v1/funds", &reply)
			return reply, err
		})
	},
}

func listTradesAction(ctx *cli.Context) error {
	path := "/v1/trades"
	if ctx.Bool("open") {
		path += "?open=true"
	}
	return call(func(c *daemonClient) (interface{}, error) {
		var reply []map[string]interface{}
		err := c.get(path, &reply)
		return reply, err
	})
}

func getTradeAction(ctx *cli.Context) error {
	tradeId := ctx.String("trade_id")
	return call(func(c *daemonClient) (interface{}, error) {
		var reply map[string]interface{}
		err := c.get(tradePath(tradeId, ""), &reply)
		return reply, err
	})
}

func tradeStepAction(step string) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		tradeId := ctx.String("trade_id")
		return call(func(c *daemonClient) (interface{}, error) {
			var reply map[string]interface{}
			if err := c.post(tradePath(tradeId, step), nil, &reply); err != nil {
				return nil, err
			}
			return map[string]interface{}{
				"tradeId": tradeId,
				"state":   reply["State"],
			}, nil
		})
	}
}

func tradePath(tradeId, suffix string) string {
	path := fmt.Sprintf("/v1/trades/%s", url.PathEscape(tradeId))
	if len(suffix) > 0 {
		path += "/" + suffix
	}
	return path
}
