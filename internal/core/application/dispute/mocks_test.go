package dispute_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
	"github.com/tdex-network/tdex-escrow/pkg/escrowtx"
)

// **** Wallet ****

// testWallet signs for real with its multisig key. Calls with side effects
// on the chain go through the embedded mock.
type testWallet struct {
	mock.Mock
	key *btcec.PrivateKey
	net *chaincfg.Params
}

func newTestWallet(t *testing.T, net *chaincfg.Params) *testWallet {
	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return &testWallet{key: key, net: net}
}

func (w *testWallet) address() string {
	addr, _ := btcutil.NewAddressWitnessPubKeyHash(
		btcutil.Hash160(w.MultiSigPubKey()), w.net,
	)
	return addr.EncodeAddress()
}

func (w *testWallet) payoutTx(args ports.DisputedPayoutTxArgs) (*escrowtx.PayoutTx, error) {
	depositTx, err := escrowtx.DecodeTx(args.DepositTx)
	if err != nil {
		return nil, err
	}
	return escrowtx.NewPayoutTx(escrowtx.PayoutTxOpts{
		DepositTx:         depositTx,
		BuyerPubKey:       args.BuyerPubKey,
		SellerPubKey:      args.SellerPubKey,
		ArbitratorPubKey:  args.ArbitratorPubKey,
		BuyerAmount:       args.BuyerPayoutAmount,
		SellerAmount:      args.SellerPayoutAmount,
		ArbitratorAmount:  args.ArbitratorPayoutAmount,
		BuyerAddress:      args.BuyerAddress,
		SellerAddress:     args.SellerAddress,
		ArbitratorAddress: args.ArbitratorAddress,
		Network:           w.net,
	})
}

func (w *testWallet) GetTransaction(
	ctx context.Context, txid string,
) (*wire.MsgTx, error) {
	args := w.Called(ctx, txid)

	var res *wire.MsgTx
	if a := args.Get(0); a != nil {
		res = a.(*wire.MsgTx)
	}
	return res, args.Error(1)
}

func (w *testWallet) SignAndFinalizeDisputedPayoutTx(
	_ context.Context, args ports.DisputedPayoutTxArgs,
) (*wire.MsgTx, error) {
	payout, err := w.payoutTx(args)
	if err != nil {
		return nil, err
	}
	if err := payout.AddSignature(
		args.ArbitratorPubKey, args.ArbitratorSignature,
	); err != nil {
		return nil, err
	}
	if _, err := payout.Sign(w.key); err != nil {
		return nil, err
	}
	return payout.Finalize()
}

func (w *testWallet) ArbitratorSignDisputedPayoutTx(
	_ context.Context, args ports.DisputedPayoutTxArgs,
) ([]byte, error) {
	payout, err := w.payoutTx(args)
	if err != nil {
		return nil, err
	}
	return payout.Sign(w.key)
}

func (w *testWallet) AddTransactionToWallet(
	ctx context.Context, tx *wire.MsgTx,
) (*wire.MsgTx, error) {
	args := w.Called(ctx, tx)

	var res *wire.MsgTx
	if a := args.Get(0); a != nil {
		res = a.(*wire.MsgTx)
	}
	return res, args.Error(1)
}

func (w *testWallet) BroadcastTx(
	ctx context.Context, tx *wire.MsgTx,
) (string, error) {
	args := w.Called(ctx, tx)
	return args.String(0), args.Error(1)
}

func (w *testWallet) OnConfidenceChanged(
	ctx context.Context, txid string, depth int,
) (<-chan ports.TxConfidence, error) {
	args := w.Called(ctx, txid, depth)

	var res <-chan ports.TxConfidence
	if a := args.Get(0); a != nil {
		res = a.(<-chan ports.TxConfidence)
	}
	return res, args.Error(1)
}

func (w *testWallet) GetAddressEntry(
	_ context.Context, tradeId string,
) (ports.AddressEntry, error) {
	return ports.AddressEntry{
		TradeId: tradeId,
		Address: w.address(),
		PubKey:  w.MultiSigPubKey(),
	}, nil
}

func (w *testWallet) MultiSigPubKey() []byte {
	return w.key.PubKey().SerializeCompressed()
}

func (w *testWallet) Close() {}

// **** Open offers ****

type mockOfferManager struct {
	mock.Mock
}

func (m *mockOfferManager) AddOpenOffer(ctx context.Context, offer domain.Offer) error {
	args := m.Called(ctx, offer)
	return args.Error(0)
}

func (m *mockOfferManager) GetOpenOffer(
	ctx context.Context, offerId string,
) (*domain.OpenOffer, error) {
	args := m.Called(ctx, offerId)

	var res *domain.OpenOffer
	if a := args.Get(0); a != nil {
		res = a.(*domain.OpenOffer)
	}
	return res, args.Error(1)
}

func (m *mockOfferManager) ListOpenOffers(
	ctx context.Context,
) ([]*domain.OpenOffer, error) {
	args := m.Called(ctx)

	var res []*domain.OpenOffer
	if a := args.Get(0); a != nil {
		res = a.([]*domain.OpenOffer)
	}
	return res, args.Error(1)
}

func (m *mockOfferManager) CloseOpenOffer(
	ctx context.Context, offerId string,
) (bool, error) {
	args := m.Called(ctx, offerId)
	return args.Bool(0), args.Error(1)
}

// **** Network ****

type envelope struct {
	from    domain.PubKeyRing
	to      domain.NodeAddress
	msgType string
	payload []byte
}

// testRouter queues the messages sent by the nodes until the test delivers
// them. Messages travel json encoded like on the wire.
type testRouter struct {
	lock  sync.Mutex
	queue []envelope
	nodes map[domain.NodeAddress]*testNode
	// unreachable makes every send to the address fail.
	unreachable map[domain.NodeAddress]bool
}

func newTestRouter() *testRouter {
	return &testRouter{
		nodes:       make(map[domain.NodeAddress]*testNode),
		unreachable: make(map[domain.NodeAddress]bool),
	}
}

func (r *testRouter) send(
	from domain.PubKeyRing, address domain.NodeAddress, msg ports.Message,
	listener ports.SendMailboxMessageListener,
) {
	r.lock.Lock()
	if r.unreachable[address] {
		r.lock.Unlock()
		listener.OnFault(fmt.Sprintf("peer %s unreachable", address))
		return
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		r.lock.Unlock()
		listener.OnFault(err.Error())
		return
	}
	r.queue = append(r.queue, envelope{from, address, msg.Type(), payload})
	r.lock.Unlock()

	listener.OnArrived()
}

func (r *testRouter) pending() []envelope {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]envelope{}, r.queue...)
}

// deliverAll hands every queued message to its recipient, including those
// sent while delivering, and returns the errors of the handlers by type.
func (r *testRouter) deliverAll(t *testing.T) map[string]error {
	errs := make(map[string]error)
	for {
		r.lock.Lock()
		if len(r.queue) <= 0 {
			r.lock.Unlock()
			return errs
		}
		env := r.queue[0]
		r.queue = r.queue[1:]
		r.lock.Unlock()

		node, ok := r.nodes[env.to]
		require.True(t, ok, "unknown recipient %s", env.to)
		if err := node.handle(env.from, decode(t, env)); err != nil {
			errs[env.msgType] = err
		}
	}
}

func decode(t *testing.T, env envelope) ports.Message {
	msg, err := ports.NewMessageOfType(env.msgType)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(env.payload, msg))
	return msg
}

type testNetwork struct {
	router     *testRouter
	address    domain.NodeAddress
	pubKeyRing domain.PubKeyRing
}

func (n *testNetwork) SendEncryptedMailboxMessage(
	_ context.Context, address domain.NodeAddress, _ domain.PubKeyRing,
	msg ports.Message, listener ports.SendMailboxMessageListener,
) {
	n.router.send(n.pubKeyRing, address, msg, listener)
}

func (n *testNetwork) NodeAddress() domain.NodeAddress { return n.address }
func (n *testNetwork) PubKeyRing() domain.PubKeyRing   { return n.pubKeyRing }
func (n *testNetwork) Close()                          {}

// **** Events ****

type eventRecorder struct {
	lock   sync.Mutex
	events []domain.Event
}

func (r *eventRecorder) record(event domain.Event) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) byTopic(topic string) []domain.Event {
	r.lock.Lock()
	defer r.lock.Unlock()

	list := make([]domain.Event, 0)
	for _, e := range r.events {
		if e.Topic() == topic {
			list = append(list, e)
		}
	}
	return list
}
