package ports

const (
	// AnyTopic subscribes an endpoint to every event.
	AnyTopic         = "*"
	UnspecifiedTopic = ""
)

// Subscription is a webhook endpoint registered for an event topic.
type Subscription interface {
	Topic() string
	Id() string
	IsSecured() bool
	NotifyAt() string
}

// PubSub delivers the node events to the registered webhook endpoints.
// Subscriptions are persisted and survive restarts of the daemon.
type PubSub interface {
	Subscribe(topic, endpoint, secret string) (string, error)
	// SubscribeWithId restores a subscription with a known id.
	SubscribeWithId(id, topic, endpoint, secret string) (string, error)
	Unsubscribe(topic, id string) error
	// ListSubscriptionsForTopic includes the AnyTopic subscriptions.
	ListSubscriptionsForTopic(topic string) []Subscription
	// Publish queues the message for every endpoint subscribed to topic.
	// It must not wait for the endpoints to reply.
	Publish(topic string, message string) error
	// Close posts the queued messages before returning.
	Close() error
}
