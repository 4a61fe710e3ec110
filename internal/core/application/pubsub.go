package application

import (
	"context"

	"github.com/tdex-network/tdex-escrow/internal/core/application/pubsub"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
)

// PubSubService notifies the domain events to the in-process listeners
// (websocket streams, metrics) and to the registered webhooks.
type PubSubService interface {
	AddWebhook(ctx context.Context, topic, endpoint, secret string) (string, error)
	RemoveWebhook(ctx context.Context, id string) error
	ListWebhooks(ctx context.Context, topic string) ([]pubsub.WebhookInfo, error)
	Subscribe(listener func(domain.Event)) string
	Unsubscribe(id string)
	Publish(event domain.Event)
	Close()
}

// NewPubSubService returns the notifier. Webhooks are disabled if the given
// pubsub is nil.
func NewPubSubService(webhookPubSub ports.PubSub) PubSubService {
	return pubsub.NewService(webhookPubSub)
}
