package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
)

var topics = map[string]struct{}{
	domain.TopicTradeState:      {},
	domain.TopicTradePeriod:     {},
	domain.TopicDisputeState:    {},
	domain.TopicDisputeOpened:   {},
	domain.TopicDisputeClosed:   {},
	domain.TopicChatMessage:     {},
	domain.TopicPayoutPublished: {},
	domain.TopicFault:           {},
	ports.AnyTopic:              {},
}

// Service notifies domain events to in-process listeners and, if a pubsub
// is given, to the webhooks subscribed for the event topic.
type Service struct {
	pubsub ports.PubSub

	lock      sync.RWMutex
	listeners map[string]func(domain.Event)
}

func NewService(pubsub ports.PubSub) *Service {
	return &Service{
		pubsub:    pubsub,
		listeners: make(map[string]func(domain.Event)),
	}
}

func (s *Service) AddWebhook(
	_ context.Context, topic, endpoint, secret string,
) (string, error) {
	if s.pubsub == nil {
		return "", ErrWebhooksDisabled
	}
	if _, ok := topics[topic]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}
	return s.pubsub.Subscribe(topic, endpoint, secret)
}

func (s *Service) RemoveWebhook(_ context.Context, id string) error {
	if s.pubsub == nil {
		return ErrWebhooksDisabled
	}
	return s.pubsub.Unsubscribe(ports.UnspecifiedTopic, id)
}

func (s *Service) ListWebhooks(
	_ context.Context, topic string,
) ([]WebhookInfo, error) {
	if s.pubsub == nil {
		return nil, ErrWebhooksDisabled
	}
	if len(topic) <= 0 {
		topic = ports.AnyTopic
	}
	subs := s.pubsub.ListSubscriptionsForTopic(topic)
	webhooks := make([]WebhookInfo, 0, len(subs))
	for _, sub := range subs {
		webhooks = append(webhooks, webhookInfoFromSubscription(sub))
	}
	return webhooks, nil
}

// Subscribe registers an in-process listener for every event and returns
// its id. Listeners are called synchronously and must not block.
func (s *Service) Subscribe(listener func(domain.Event)) string {
	s.lock.Lock()
	defer s.lock.Unlock()

	id := uuid.New().String()
	s.listeners[id] = listener
	return id
}

func (s *Service) Unsubscribe(id string) {
	s.lock.Lock()
	defer s.lock.Unlock()

	delete(s.listeners, id)
}

// Publish notifies the event. Webhook failures are only logged.
func (s *Service) Publish(event domain.Event) {
	s.lock.RLock()
	for _, listener := range s.listeners {
		listener(event)
	}
	s.lock.RUnlock()

	if s.pubsub == nil {
		return
	}
	message, err := json.Marshal(getEventPayload(event))
	if err != nil {
		log.WithError(err).Warnf("failed to serialize %s event", event.Topic())
		return
	}
	if err := s.pubsub.Publish(event.Topic(), string(message)); err != nil {
		log.WithError(err).Warnf(
			"failed to publish %s event for trade %s", event.Topic(), event.TradeId(),
		)
	}
}

func (s *Service) Close() {
	if s.pubsub != nil {
		if err := s.pubsub.Close(); err != nil {
			log.WithError(err).Warn("failed to close pubsub")
		}
	}
}
