package pubsub

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
	"github.com/tdex-network/tdex-escrow/pkg/circuitbreaker"
	"go.uber.org/ratelimit"
	"golang.org/x/sync/errgroup"
)

const (
	defaultRequestTimeout = 15 * time.Second
	tokenExpiration       = 5 * time.Minute
	queueSize             = 1000
)

// notification is a message waiting to be posted to its subscriptions.
type notification struct {
	topic   string
	message string
	subs    subscriptions
}

type service struct {
	store      *store
	httpClient *client
	cb         *gobreaker.CircuitBreaker
	limiter    ratelimit.Limiter

	lock   sync.RWMutex
	closed bool
	queue  chan notification
	done   chan struct{}
}

// NewService returns a webhook pubsub whose subscriptions are persisted in
// the given dir (in memory if empty). Messages are posted in background in
// the order they are published, outgoing requests are limited to rps per
// second.
func NewService(dbDir string, rps int) (ports.PubSub, error) {
	if rps <= 0 {
		return nil, ErrInvalidRateLimit
	}
	store, err := newStore(dbDir, log.New())
	if err != nil {
		return nil, fmt.Errorf("opening webhook db: %w", err)
	}

	svc := &service{
		store:      store,
		httpClient: newHTTPClient(defaultRequestTimeout),
		cb:         circuitbreaker.New("webhooks"),
		limiter:    ratelimit.New(rps),
		queue:      make(chan notification, queueSize),
		done:       make(chan struct{}),
	}
	go svc.dispatch()
	return svc, nil
}

func (ws *service) Subscribe(topic, endpoint, secret string) (string, error) {
	sub, err := NewSubscription(topic, endpoint, secret)
	if err != nil {
		return "", err
	}
	return ws.addSubscription(sub)
}

func (ws *service) SubscribeWithId(id, topic, endpoint, secret string) (string, error) {
	sub, err := NewSubscriptionWithId(id, topic, endpoint, secret)
	if err != nil {
		return "", err
	}
	return ws.addSubscription(sub)
}

func (ws *service) Unsubscribe(_, id string) error {
	return ws.store.remove(id)
}

func (ws *service) ListSubscriptionsForTopic(topic string) []ports.Subscription {
	subs, err := ws.listSubscriptionsForTopic(topic)
	if err != nil {
		log.WithError(err).Warnf("failed to list webhooks for topic %s", topic)
		return nil
	}
	return subs.toPortable()
}

// Publish queues the message for the subscriptions of the topic and
// returns without waiting for the webhooks to reply.
func (ws *service) Publish(topic string, message string) error {
	ws.lock.RLock()
	defer ws.lock.RUnlock()

	if ws.closed {
		return ErrServiceClosed
	}
	subs, err := ws.listSubscriptionsForTopic(topic)
	if err != nil {
		return err
	}
	if len(subs) <= 0 {
		return nil
	}
	select {
	case ws.queue <- notification{topic, message, subs}:
		return nil
	default:
		return fmt.Errorf("%w: dropping %s message", ErrQueueFull, topic)
	}
}

// Close stops accepting messages and waits for the queued ones to be posted.
func (ws *service) Close() error {
	ws.lock.Lock()
	if ws.closed {
		ws.lock.Unlock()
		return nil
	}
	ws.closed = true
	close(ws.queue)
	ws.lock.Unlock()

	<-ws.done
	return ws.store.close()
}

func (ws *service) dispatch() {
	defer close(ws.done)

	for n := range ws.queue {
		if err := ws.notify(n); err != nil {
			log.WithError(err).Warnf("failed to notify %s webhooks", n.topic)
		}
	}
}

func (ws *service) notify(n notification) error {
	eg := &errgroup.Group{}
	for i := range n.subs {
		sub := n.subs[i]
		ws.limiter.Take()
		eg.Go(func() error { return ws.doRequest(sub, n.message) })
	}
	return eg.Wait()
}

// addSubscription is idempotent on the id.
func (ws *service) addSubscription(sub *Subscription) (string, error) {
	added, err := ws.store.add(*sub)
	if err != nil {
		return "", err
	}
	if !added {
		log.Debugf("webhook %s already registered", sub.ID)
	}
	return sub.ID, nil
}

// listSubscriptionsForTopic includes the subscriptions for any topic unless
// the topic itself is the wildcard or is unspecified.
func (ws *service) listSubscriptionsForTopic(topic string) (subscriptions, error) {
	if topic == ports.UnspecifiedTopic {
		return ws.store.list("")
	}

	subs, err := ws.store.list(topic)
	if err != nil {
		return nil, err
	}
	if topic != ports.AnyTopic {
		subsForAnyTopic, err := ws.store.list(ports.AnyTopic)
		if err != nil {
			return nil, err
		}
		subs = append(subs, subsForAnyTopic...)
	}
	return subs, nil
}

func (ws *service) doRequest(sub Subscription, payload string) error {
	_, err := ws.cb.Execute(func() (interface{}, error) {
		headers := map[string]string{
			"Content-Type": "application/json",
		}
		if sub.IsSecured() {
			now := time.Now()
			token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{
				Subject:   sub.Event,
				IssuedAt:  now.Unix(),
				ExpiresAt: now.Add(tokenExpiration).Unix(),
			})
			tokenString, err := token.SignedString([]byte(sub.Secret))
			if err != nil {
				return nil, err
			}
			headers["Authorization"] = fmt.Sprintf("Bearer %s", tokenString)
		}

		status, resp, err := ws.httpClient.post(
			context.Background(), sub.Endpoint, payload, headers,
		)
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK {
			return nil, fmt.Errorf("webhook %s replied %d: %s", sub.ID, status, resp)
		}
		return nil, nil
	})

	return err
}
