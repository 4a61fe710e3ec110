package main

import (
	"net/url"
	"time"

	"github.com/urfave/cli/v2"
)

var offerIdFlag = cli.StringFlag{
	Name:     "offer_id",
	Usage:    "the id of the offer",
	Required: true,
}

var offer = cli.Command{
	Name:  "offer",
	Usage: "manage the open offers of this node",
	Subcommands: []*cli.Command{
		{
			Name:  "add",
			Usage: "add an open offer",
			Flags: []cli.Flag{
				&offerIdFlag,
				&cli.StringFlag{
					Name:     "direction",
					Usage:    "BUY or SELL",
					Required: true,
				},
				&cli.StringFlag{
					Name:     "payment_method",
					Usage:    "the payment method id",
					Required: true,
				},
				&cli.StringFlag{
					Name:     "currency",
					Usage:    "the currency code",
					Required: true,
				},
				&cli.BoolFlag{
					Name:  "crypto",
					Usage: "the currency is a cryptocurrency",
				},
				&cli.Int64Flag{
					Name:  "buyer_deposit",
					Usage: "the buyer security deposit in satoshis",
				},
				&cli.Int64Flag{
					Name:  "seller_deposit",
					Usage: "the seller security deposit in satoshis",
				},
				&cli.Int64Flag{
					Name:  "maker_fee",
					Usage: "the maker fee in satoshis",
				},
				&cli.DurationFlag{
					Name:  "max_period",
					Usage: "the max duration of a trade taking this offer",
					Value: 24 * time.Hour,
				},
			},
			Action: addOfferAction,
		},
		{
			Name:   "list",
			Usage:  "list the open offers",
			Action: listOffersAction,
		},
		{
			Name:   "show",
			Usage:  "show an open offer",
			Flags:  []cli.Flag{&offerIdFlag},
			Action: getOfferAction,
		},
		{
			Name:   "close",
			Usage:  "close an open offer",
			Flags:  []cli.Flag{&offerIdFlag},
			Action: closeOfferAction,
		},
	},
}

func addOfferAction(ctx *cli.Context) error {
	body := map[string]interface{}{
		"id":                    ctx.String("offer_id"),
		"direction":             ctx.String("direction"),
		"paymentMethodId":       ctx.String("payment_method"),
		"currencyCode":          ctx.String("currency"),
		"isCryptoCurrency":      ctx.Bool("crypto"),
		"buyerSecurityDeposit":  ctx.Int64("buyer_deposit"),
		"sellerSecurityDeposit": ctx.Int64("seller_deposit"),
		"makerFee":              ctx.Int64("maker_fee"),
		"maxTradePeriod":        ctx.Duration("max_period"),
		"date":                  time.Now().UnixMilli(),
	}
	return call(func(c *daemonClient) (interface{}, error) {
		var reply map[string]interface{}
		err := c.post("/v1/offers", body, &reply)
		return reply, err
	})
}

func listOffersAction(ctx *cli.Context) error {
	return call(func(c *daemonClient) (interface{}, error) {
		var reply []map[string]interface{}
		err := c.get("/v1/offers", &reply)
		return reply, err
	})
}

func getOfferAction(ctx *cli.Context) error {
	offerId := ctx.String("offer_id")
	return call(func(c *daemonClient) (interface{}, error) {
		var reply map[string]interface{}
		err := c.get("/v1/offers/"+url.PathEscape(offerId), &reply)
		return reply, err
	})
}

func closeOfferAction(ctx *cli.Context) error {
	offerId := ctx.String("offer_id")
	return call(func(c *daemonClient) (interface{}, error) {
		var reply map[string]interface{}
		err := c.delete("/v1/offers/"+url.PathEscape(offerId), &reply)
		return reply, err
	})
}
