package httpmailbox_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
	httpmailbox "github.com/tdex-network/tdex-escrow/internal/infrastructure/http-mailbox"
)

var ctx = context.Background()

type outcome struct {
	arrived bool
	fault   string
}

// recordingListener reports the outcome of a send on a channel.
func recordingListener() (ports.SendMailboxMessageListener, chan outcome) {
	ch := make(chan outcome, 1)
	return ports.ListenerFuncs{
		Arrived: func() { ch <- outcome{arrived: true} },
		Fault:   func(errMsg string) { ch <- outcome{fault: errMsg} },
	}, ch
}

func waitOutcome(t *testing.T, ch chan outcome) outcome {
	select {
	case o := <-ch:
		return o
	case <-time.After(2 * time.Second):
		t.Fatal("listener not notified")
	}
	return outcome{}
}

type mailbox struct {
	*httptest.Server
	lock     sync.Mutex
	received []ports.InboundMessage
}

func newMailbox(t *testing.T) *mailbox {
	m := &mailbox{}
	mux := http.NewServeMux()
	mux.HandleFunc(httpmailbox.MailboxPath, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		msg, err := httpmailbox.DecodeEnvelope(body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		m.lock.Lock()
		m.received = append(m.received, msg)
		m.lock.Unlock()
		w.WriteHeader(http.StatusAccepted)
	})
	m.Server = httptest.NewServer(mux)
	t.Cleanup(m.Close)
	return m
}

func (m *mailbox) address() domain.NodeAddress {
	return domain.NodeAddress(strings.TrimPrefix(m.URL, "http://"))
}

func (m *mailbox) messages() []ports.InboundMessage {
	m.lock.Lock()
	defer m.lock.Unlock()
	return append([]ports.InboundMessage{}, m.received...)
}

func newTestService(t *testing.T, address domain.NodeAddress) ports.NetworkService {
	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	svc, err := httpmailbox.NewService(address, key, false)
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	return svc
}

func TestSendMailboxMessage(t *testing.T) {
	peer := newMailbox(t)
	svc := newTestService(t, "localhost:9950")

	dispute := domain.Dispute{
		Id:          "tradeid_0",
		TradeId:     "tradeid",
		SupportType: domain.SupportTypeArbitration,
	}
	msg := ports.NewOpenNewDisputeMessage(dispute)

	listener, ch := recordingListener()
	svc.SendEncryptedMailboxMessage(ctx, peer.address(), domain.PubKeyRing{}, msg, listener)
	require.True(t, waitOutcome(t, ch).arrived)

	received := peer.messages()
	require.Len(t, received, 1)
	require.Equal(t, svc.NodeAddress(), received[0].SenderNodeAddress)
	require.True(t, svc.PubKeyRing().Equal(received[0].SenderPubKeyRing))

	got, ok := received[0].Message.(*ports.OpenNewDisputeMessage)
	require.True(t, ok)
	require.Equal(t, msg.Uid, got.Uid)
	require.Equal(t, "tradeid", got.GetTradeId())
}

func TestSendToUnreachablePeer(t *testing.T) {
	peer := newMailbox(t)
	address := peer.address()
	peer.Close()

	svc := newTestService(t, "localhost:9950")
	listener, ch := recordingListener()
	msg := &ports.ChatMessage{Message: domain.ChatMessage{Uid: "uid", TradeId: "tradeid"}}
	svc.SendEncryptedMailboxMessage(ctx, address, domain.PubKeyRing{}, msg, listener)

	o := waitOutcome(t, ch)
	require.False(t, o.arrived)
	require.NotEmpty(t, o.fault)
}

func TestSendAfterClose(t *testing.T) {
	svc := newTestService(t, "localhost:9950")
	svc.Close()

	listener, ch := recordingListener()
	msg := &ports.ChatMessage{Message: domain.ChatMessage{Uid: "uid", TradeId: "tradeid"}}
	svc.SendEncryptedMailboxMessage(ctx, "localhost:1", domain.PubKeyRing{}, msg, listener)

	require.Equal(t, httpmailbox.ErrServiceClosed.Error(), waitOutcome(t, ch).fault)
}

func TestDecodeEnvelope(t *testing.T) {
	peer := newMailbox(t)
	svc := newTestService(t, "localhost:9950")

	// Capture a valid envelope by relaying through a recording server.
	rawCh := make(chan []byte, 1)
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf, _ := io.ReadAll(r.Body)
		rawCh <- buf
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(relay.Close)

	listener, ch := recordingListener()
	msg := ports.NewPeerPublishedDisputePayoutTxMessage(
		"tradeid", []byte{0x01, 0x02}, domain.SupportTypeArbitration,
	)
	svc.SendEncryptedMailboxMessage(
		ctx, domain.NodeAddress(strings.TrimPrefix(relay.URL, "http://")),
		domain.PubKeyRing{}, msg, listener,
	)
	require.True(t, waitOutcome(t, ch).arrived)
	raw := <-rawCh

	inbound, err := httpmailbox.DecodeEnvelope(raw)
	require.NoError(t, err)
	require.Equal(t, msg, inbound.Message)

	t.Run("tampered payload", func(t *testing.T) {
		var env httpmailbox.Envelope
		require.NoError(t, json.Unmarshal(raw, &env))
		env.Payload = json.RawMessage(strings.Replace(string(env.Payload), "tradeid", "othertrade", 1))
		buf, _ := json.Marshal(env)

		_, err := httpmailbox.DecodeEnvelope(buf)
		require.ErrorIs(t, err, httpmailbox.ErrInvalidSignature)
	})

	t.Run("unknown type", func(t *testing.T) {
		var env httpmailbox.Envelope
		require.NoError(t, json.Unmarshal(raw, &env))
		env.Type = "UnknownMessage"
		buf, _ := json.Marshal(env)

		_, err := httpmailbox.DecodeEnvelope(buf)
		require.Error(t, err)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := httpmailbox.DecodeEnvelope([]byte("{"))
		require.ErrorIs(t, err, httpmailbox.ErrMalformedEnvelope)
	})

	require.Empty(t, peer.messages())
}

func TestNewServiceInvalidArgs(t *testing.T) {
	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	_, err = httpmailbox.NewService("", key, false)
	require.ErrorIs(t, err, httpmailbox.ErrMissingNodeAddress)
	_, err = httpmailbox.NewService("localhost:9950", nil, false)
	require.ErrorIs(t, err, httpmailbox.ErrMissingKey)
}
