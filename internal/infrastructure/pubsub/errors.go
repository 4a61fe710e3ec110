package pubsub

import "errors"

var (
	// ErrMissingTopic ...
	ErrMissingTopic = errors.New("missing topic")
	// ErrInvalidEndpoint is returned if the webhook endpoint is not an
	// absolute http(s) URL.
	ErrInvalidEndpoint = errors.New("invalid webhook endpoint, must be a valid URL")
	// ErrSubscriptionNotFound ...
	ErrSubscriptionNotFound = errors.New("webhook not found")
	// ErrInvalidRateLimit ...
	ErrInvalidRateLimit = errors.New("webhook rate limit must be positive")
	// ErrQueueFull is returned if too many messages are waiting for the
	// webhooks to reply.
	ErrQueueFull = errors.New("webhook queue is full")
	// ErrServiceClosed ...
	ErrServiceClosed = errors.New("webhook service is closed")
)
