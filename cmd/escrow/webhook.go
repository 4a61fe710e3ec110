package main

import (
	"net/url"

	"github.com/thanhpk/randstr"
	"github.com/urfave/cli/v2"
)

var webhook = cli.Command{
	Name:  "webhook",
	Usage: "manage the webhooks notified on trade and dispute events",
	Subcommands: []*cli.Command{
		{
			Name:  "add",
			Usage: "register a webhook for a topic",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "topic",
					Usage:    "the event topic, or * for all of them",
					Required: true,
				},
				&cli.StringFlag{
					Name:     "endpoint",
					Usage:    "the url receiving the events",
					Required: true,
				},
				&cli.StringFlag{
					Name:  "secret",
					Usage: "the secret used to sign the event tokens",
				},
				&cli.BoolFlag{
					Name:  "generate_secret",
					Usage: "generate a random secret and print it",
				},
			},
			Action: addWebhookAction,
		},
		{
			Name:  "list",
			Usage: "list the registered webhooks",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "topic",
					Usage: "list only the webhooks of this topic",
				},
			},
			Action: listWebhooksAction,
		},
		{
			Name:  "remove",
			Usage: "remove a webhook",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "id",
					Usage:    "the id of the webhook",
					Required: true,
				},
			},
			Action: removeWebhookAction,
		},
	},
}

func addWebhookAction(ctx *cli.Context) error {
	secret := ctx.String("secret")
	if ctx.Bool("generate_secret") {
		if len(secret) > 0 {
			return &invalidUsageError{ctx, "add"}
		}
		secret = randstr.Hex(32)
	}

	body := map[string]string{
		"topic":    ctx.String("topic"),
		"endpoint": ctx.String("endpoint"),
		"secret":   secret,
	}
	return call(func(c *daemonClient) (interface{}, error) {
		var reply map[string]interface{}
		if err := c.post("/v1/webhooks", body, &reply); err != nil {
			return nil, err
		}
		if len(secret) > 0 {
			reply["secret"] = secret
		}
		return reply, nil
	})
}

func listWebhooksAction(ctx *cli.Context) error {
	path := "/v1/webhooks"
	if topic := ctx.String("topic"); len(topic) > 0 {
		path += "?topic=" + url.QueryEscape(topic)
	}
	return call(func(c *daemonClient) (interface{}, error) {
		var reply []map[string]interface{}
		err := c.get(path, &reply)
		return reply, err
	})
}

func removeWebhookAction(ctx *cli.Context) error {
	id := ctx.String("id")
	return call(func(c *daemonClient) (interface{}, error) {
		if err := c.delete("/v1/webhooks/"+url.PathEscape(id), nil); err != nil {
			return nil, err
		}
		return map[string]string{"removed": id}, nil
	})
}
