package httpmailbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
)

// MailboxPath is where every node accepts envelopes.
const MailboxPath = "/v1/mailbox"

const defaultRequestTimeout = 15 * time.Second

// service delivers messages directly to the mailbox endpoint of the peer.
// There is no store-and-forward: an unreachable peer is a fault.
type service struct {
	address domain.NodeAddress
	ring    domain.PubKeyRing
	key     *btcec.PrivateKey
	scheme  string
	client  *http.Client

	wg       sync.WaitGroup
	quit     chan struct{}
	stopOnce sync.Once
}

// NewService returns the mailbox network of the node. The key signs every
// envelope and is the signature key of the pubkey ring of the node.
func NewService(
	address domain.NodeAddress, key *btcec.PrivateKey, useTLS bool,
) (ports.NetworkService, error) {
	if len(address) <= 0 {
		return nil, ErrMissingNodeAddress
	}
	if key == nil {
		return nil, ErrMissingKey
	}

	pubkey := key.PubKey().SerializeCompressed()
	scheme := "http"
	if useTLS {
		scheme = "https"
	}
	return &service{
		address: address,
		ring: domain.PubKeyRing{
			SignaturePubKey:  pubkey,
			EncryptionPubKey: pubkey,
		},
		key:    key,
		scheme: scheme,
		client: &http.Client{Timeout: defaultRequestTimeout},
		quit:   make(chan struct{}),
	}, nil
}

func (s *service) NodeAddress() domain.NodeAddress {
	return s.address
}

func (s *service) PubKeyRing() domain.PubKeyRing {
	return s.ring
}

// SendEncryptedMailboxMessage posts the envelope in background and reports
// the outcome to the listener.
func (s *service) SendEncryptedMailboxMessage(
	ctx context.Context, address domain.NodeAddress,
	pubKeyRing domain.PubKeyRing, msg ports.Message,
	listener ports.SendMailboxMessageListener,
) {
	select {
	case <-s.quit:
		listener.OnFault(ErrServiceClosed.Error())
		return
	default:
	}

	env, err := newEnvelope(msg, s.address, s.ring, s.key)
	if err != nil {
		listener.OnFault(err.Error())
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		if err := s.post(address, env); err != nil {
			log.WithError(err).Debugf(
				"failed to deliver %s for trade %s to %s",
				msg.Type(), msg.GetTradeId(), address,
			)
			listener.OnFault(err.Error())
			return
		}
		listener.OnArrived()
	}()
}

// Close waits for the deliveries in progress.
func (s *service) Close() {
	s.stopOnce.Do(func() {
		close(s.quit)
	})
	s.wg.Wait()
}

func (s *service) post(address domain.NodeAddress, env *Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s://%s%s", s.scheme, strings.TrimSuffix(string(address), "/"), MailboxPath)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	rs, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer rs.Body.Close()

	if rs.StatusCode != http.StatusOK && rs.StatusCode != http.StatusAccepted {
		resp, _ := io.ReadAll(io.LimitReader(rs.Body, 1024))
		return fmt.Errorf(
			"peer %s replied %d: %s", address, rs.StatusCode, strings.TrimSpace(string(resp)),
		)
	}
	return nil
}
