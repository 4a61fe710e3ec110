package application_test

import (
	"context"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/stretchr/testify/mock"
	"github.com/tdex-network/tdex-escrow/internal/core/application/dispute"
	"github.com/tdex-network/tdex-escrow/internal/core/application/trade"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
)

// **** Dispute service ****

type mockDisputeService struct {
	mock.Mock
}

func (m *mockDisputeService) Role() dispute.NodeRole {
	args := m.Called()
	return args.Get(0).(dispute.NodeRole)
}

func (m *mockDisputeService) GetDispute(
	ctx context.Context, disputeId string,
) (*domain.Dispute, error) {
	args := m.Called(ctx, disputeId)

	var res *domain.Dispute
	if a := args.Get(0); a != nil {
		res = a.(*domain.Dispute)
	}
	return res, args.Error(1)
}

func (m *mockDisputeService) ListDisputes(
	ctx context.Context, tradeId string,
) ([]*domain.Dispute, error) {
	args := m.Called(ctx, tradeId)

	var res []*domain.Dispute
	if a := args.Get(0); a != nil {
		res = a.([]*domain.Dispute)
	}
	return res, args.Error(1)
}

func (m *mockDisputeService) OpenDispute(
	ctx context.Context, tradeId string, supportType domain.SupportType,
) (*domain.Dispute, error) {
	args := m.Called(ctx, tradeId, supportType)

	var res *domain.Dispute
	if a := args.Get(0); a != nil {
		res = a.(*domain.Dispute)
	}
	return res, args.Error(1)
}

func (m *mockDisputeService) SendChatMessage(
	ctx context.Context, params dispute.ChatMessageParams,
) (*domain.ChatMessage, error) {
	args := m.Called(ctx, params)

	var res *domain.ChatMessage
	if a := args.Get(0); a != nil {
		res = a.(*domain.ChatMessage)
	}
	return res, args.Error(1)
}

func (m *mockDisputeService) CloseDispute(
	ctx context.Context, params dispute.CloseDisputeParams,
) (*domain.DisputeResult, error) {
	args := m.Called(ctx, params)

	var res *domain.DisputeResult
	if a := args.Get(0); a != nil {
		res = a.(*domain.DisputeResult)
	}
	return res, args.Error(1)
}

func (m *mockDisputeService) RetryDisputedPayout(
	ctx context.Context, disputeId string,
) (*domain.Dispute, error) {
	args := m.Called(ctx, disputeId)

	var res *domain.Dispute
	if a := args.Get(0); a != nil {
		res = a.(*domain.Dispute)
	}
	return res, args.Error(1)
}

func (m *mockDisputeService) OnOpenNewDisputeMessage(
	ctx context.Context, sender domain.PubKeyRing, msg *ports.OpenNewDisputeMessage,
) error {
	args := m.Called(ctx, sender, msg)
	return args.Error(0)
}

func (m *mockDisputeService) OnPeerOpenedDisputeMessage(
	ctx context.Context, sender domain.PubKeyRing, msg *ports.PeerOpenedDisputeMessage,
) error {
	args := m.Called(ctx, sender, msg)
	return args.Error(0)
}

func (m *mockDisputeService) OnChatMessage(
	ctx context.Context, sender domain.PubKeyRing, msg *ports.ChatMessage,
) error {
	args := m.Called(ctx, sender, msg)
	return args.Error(0)
}

func (m *mockDisputeService) OnDisputeResultMessage(
	ctx context.Context, sender domain.PubKeyRing, msg *ports.DisputeResultMessage,
) error {
	args := m.Called(ctx, sender, msg)
	return args.Error(0)
}

func (m *mockDisputeService) OnPeerPublishedDisputePayoutTx(
	ctx context.Context, sender domain.PubKeyRing, msg *ports.PeerPublishedDisputePayoutTxMessage,
) error {
	args := m.Called(ctx, sender, msg)
	return args.Error(0)
}

// **** Trade service ****

type mockTradeService struct {
	mock.Mock
}

func (m *mockTradeService) tradeResult(args mock.Arguments) (*domain.Trade, error) {
	var res *domain.Trade
	if a := args.Get(0); a != nil {
		res = a.(*domain.Trade)
	}
	return res, args.Error(1)
}

func (m *mockTradeService) Start(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockTradeService) Stop() {
	m.Called()
}

func (m *mockTradeService) AddTrade(
	ctx context.Context, params trade.TradeParams,
) (*domain.Trade, error) {
	return m.tradeResult(m.Called(ctx, params))
}

func (m *mockTradeService) GetTrade(
	ctx context.Context, tradeId string,
) (*domain.Trade, error) {
	return m.tradeResult(m.Called(ctx, tradeId))
}

func (m *mockTradeService) ListTrades(
	ctx context.Context, openOnly bool,
) ([]*domain.Trade, error) {
	args := m.Called(ctx, openOnly)

	var res []*domain.Trade
	if a := args.Get(0); a != nil {
		res = a.([]*domain.Trade)
	}
	return res, args.Error(1)
}

func (m *mockTradeService) FundsLockedIn(
	ctx context.Context,
) (btcutil.Amount, []string, error) {
	args := m.Called(ctx)

	var ids []string
	if a := args.Get(1); a != nil {
		ids = a.([]string)
	}
	return args.Get(0).(btcutil.Amount), ids, args.Error(2)
}

func (m *mockTradeService) SetState(
	ctx context.Context, tradeId string, state domain.State,
) (*domain.Trade, error) {
	return m.tradeResult(m.Called(ctx, tradeId, state))
}

func (m *mockTradeService) OnTakerFeePublished(
	ctx context.Context, tradeId, txid string,
) (*domain.Trade, error) {
	return m.tradeResult(m.Called(ctx, tradeId, txid))
}

func (m *mockTradeService) PublishDepositTx(
	ctx context.Context, tradeId string, rawTx []byte,
) (*domain.Trade, error) {
	return m.tradeResult(m.Called(ctx, tradeId, rawTx))
}

func (m *mockTradeService) OnDepositPublished(
	ctx context.Context, tradeId string, deposit trade.DepositInfo,
) (*domain.Trade, error) {
	return m.tradeResult(m.Called(ctx, tradeId, deposit))
}

func (m *mockTradeService) ConfirmPaymentSent(
	ctx context.Context, tradeId string,
) (*domain.Trade, error) {
	return m.tradeResult(m.Called(ctx, tradeId))
}

func (m *mockTradeService) OnPaymentSentMessage(
	ctx context.Context, tradeId string,
) (*domain.Trade, error) {
	return m.tradeResult(m.Called(ctx, tradeId))
}

func (m *mockTradeService) ConfirmPaymentReceived(
	ctx context.Context, tradeId string,
) (*domain.Trade, error) {
	return m.tradeResult(m.Called(ctx, tradeId))
}

func (m *mockTradeService) OnPayoutPublished(
	ctx context.Context, tradeId, txid string,
) (*domain.Trade, error) {
	return m.tradeResult(m.Called(ctx, tradeId, txid))
}

func (m *mockTradeService) Withdraw(
	ctx context.Context, tradeId string,
) (*domain.Trade, error) {
	return m.tradeResult(m.Called(ctx, tradeId))
}
