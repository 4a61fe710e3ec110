package trade

import (
	"context"
	"sync"

	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/mock"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
)

// **** Wallet ****

type mockWallet struct {
	mock.Mock
}

func (m *mockWallet) GetTransaction(
	ctx context.Context, txid string,
) (*wire.MsgTx, error) {
	args := m.Called(ctx, txid)

	var res *wire.MsgTx
	if a := args.Get(0); a != nil {
		res = a.(*wire.MsgTx)
	}
	return res, args.Error(1)
}

func (m *mockWallet) SignAndFinalizeDisputedPayoutTx(
	ctx context.Context, opts ports.DisputedPayoutTxArgs,
) (*wire.MsgTx, error) {
	args := m.Called(ctx, opts)

	var res *wire.MsgTx
	if a := args.Get(0); a != nil {
		res = a.(*wire.MsgTx)
	}
	return res, args.Error(1)
}

func (m *mockWallet) ArbitratorSignDisputedPayoutTx(
	ctx context.Context, opts ports.DisputedPayoutTxArgs,
) ([]byte, error) {
	args := m.Called(ctx, opts)

	var res []byte
	if a := args.Get(0); a != nil {
		res = a.([]byte)
	}
	return res, args.Error(1)
}

func (m *mockWallet) AddTransactionToWallet(
	ctx context.Context, tx *wire.MsgTx,
) (*wire.MsgTx, error) {
	args := m.Called(ctx, tx)

	var res *wire.MsgTx
	if a := args.Get(0); a != nil {
		res = a.(*wire.MsgTx)
	}
	return res, args.Error(1)
}

func (m *mockWallet) BroadcastTx(
	ctx context.Context, tx *wire.MsgTx,
) (string, error) {
	args := m.Called(ctx, tx)
	return args.String(0), args.Error(1)
}

func (m *mockWallet) OnConfidenceChanged(
	ctx context.Context, txid string, depth int,
) (<-chan ports.TxConfidence, error) {
	args := m.Called(ctx, txid, depth)

	var res <-chan ports.TxConfidence
	if a := args.Get(0); a != nil {
		res = a.(<-chan ports.TxConfidence)
	}
	return res, args.Error(1)
}

func (m *mockWallet) GetAddressEntry(
	ctx context.Context, tradeId string,
) (ports.AddressEntry, error) {
	args := m.Called(ctx, tradeId)

	var res ports.AddressEntry
	if a := args.Get(0); a != nil {
		res = a.(ports.AddressEntry)
	}
	return res, args.Error(1)
}

func (m *mockWallet) MultiSigPubKey() []byte {
	args := m.Called()

	var res []byte
	if a := args.Get(0); a != nil {
		res = a.([]byte)
	}
	return res
}

func (m *mockWallet) Close() {
	m.Called()
}

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
