package pubsub

import (
	"errors"

	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
)

var (
	// ErrWebhooksDisabled ...
	ErrWebhooksDisabled = errors.New("webhooks are disabled")
	// ErrUnknownTopic ...
	ErrUnknownTopic = errors.New("unknown event topic")
)

type WebhookInfo struct {
	Id        string `json:"id"`
	Topic     string `json:"topic"`
	Endpoint  string `json:"endpoint"`
	IsSecured bool   `json:"isSecured"`
}

func webhookInfoFromSubscription(sub ports.Subscription) WebhookInfo {
	return WebhookInfo{
		Id:        sub.Id(),
		Topic:     sub.Topic(),
		Endpoint:  sub.NotifyAt(),
		IsSecured: sub.IsSecured(),
	}
}

func getEventPayload(event domain.Event) map[string]interface{} {
	return map[string]interface{}{
		"event":   event.Topic(),
		"tradeId": event.TradeId(),
		"data":    event,
	}
}
