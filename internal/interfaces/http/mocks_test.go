package httpinterface_test

import (
	"context"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/stretchr/testify/mock"
	"github.com/tdex-network/tdex-escrow/internal/core/application/dispute"
	"github.com/tdex-network/tdex-escrow/internal/core/application/trade"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
)

func tradeOrNil(args mock.Arguments) (*domain.Trade, error) {
	var res *domain.Trade
	if a := args.Get(0); a != nil {
		res = a.(*domain.Trade)
	}
	return res, args.Error(1)
}

func disputeOrNil(args mock.Arguments) (*domain.Dispute, error) {
	var res *domain.Dispute
	if a := args.Get(0); a != nil {
		res = a.(*domain.Dispute)
	}
	return res, args.Error(1)
}

// **** Coordinator ****

type mockCoordinator struct {
	mock.Mock
}

func (m *mockCoordinator) HandleMessage(
	ctx context.Context, msg ports.InboundMessage,
) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *mockCoordinator) AddTrade(
	ctx context.Context, params trade.TradeParams,
) (*domain.Trade, error) {
	return tradeOrNil(m.Called(ctx, params))
}

func (m *mockCoordinator) SetState(
	ctx context.Context, tradeId string, state domain.State,
) (*domain.Trade, error) {
	return tradeOrNil(m.Called(ctx, tradeId, state))
}

func (m *mockCoordinator) OnTakerFeePublished(
	ctx context.Context, tradeId, txid string,
) (*domain.Trade, error) {
	return tradeOrNil(m.Called(ctx, tradeId, txid))
}

func (m *mockCoordinator) PublishDepositTx(
	ctx context.Context, tradeId string, rawTx []byte,
) (*domain.Trade, error) {
	return tradeOrNil(m.Called(ctx, tradeId, rawTx))
}

func (m *mockCoordinator) OnDepositPublished(
	ctx context.Context, tradeId string, deposit trade.DepositInfo,
) (*domain.Trade, error) {
	return tradeOrNil(m.Called(ctx, tradeId, deposit))
}

func (m *mockCoordinator) ConfirmPaymentSent(
	ctx context.Context, tradeId string,
) (*domain.Trade, error) {
	return tradeOrNil(m.Called(ctx, tradeId))
}

func (m *mockCoordinator) OnPaymentSentMessage(
	ctx context.Context, tradeId string,
) (*domain.Trade, error) {
	return tradeOrNil(m.Called(ctx, tradeId))
}

func (m *mockCoordinator) ConfirmPaymentReceived(
	ctx context.Context, tradeId string,
) (*domain.Trade, error) {
	return tradeOrNil(m.Called(ctx, tradeId))
}

func (m *mockCoordinator) OnPayoutPublished(
	ctx context.Context, tradeId, txid string,
) (*domain.Trade, error) {
	return tradeOrNil(m.Called(ctx, tradeId, txid))
}

func (m *mockCoordinator) Withdraw(
	ctx context.Context, tradeId string,
) (*domain.Trade, error) {
	return tradeOrNil(m.Called(ctx, tradeId))
}

func (m *mockCoordinator) OpenDispute(
	ctx context.Context, tradeId string, supportType domain.SupportType,
) (*domain.Dispute, error) {
	return disputeOrNil(m.Called(ctx, tradeId, supportType))
}

func (m *mockCoordinator) SendChatMessage(
	ctx context.Context, params dispute.ChatMessageParams,
) (*domain.ChatMessage, error) {
	args := m.Called(ctx, params)

	var res *domain.ChatMessage
	if a := args.Get(0); a != nil {
		res = a.(*domain.ChatMessage)
	}
	return res, args.Error(1)
}

func (m *mockCoordinator) CloseDispute(
	ctx context.Context, params dispute.CloseDisputeParams,
) (*domain.DisputeResult, error) {
	args := m.Called(ctx, params)

	var res *domain.DisputeResult
	if a := args.Get(0); a != nil {
		res = a.(*domain.DisputeResult)
	}
	return res, args.Error(1)
}

func (m *mockCoordinator) RetryDisputedPayout(
	ctx context.Context, disputeId string,
) (*domain.Dispute, error) {
	return disputeOrNil(m.Called(ctx, disputeId))
}

// **** Readers ****

type mockTradeReader struct {
	mock.Mock
}

func (m *mockTradeReader) GetTrade(
	ctx context.Context, tradeId string,
) (*domain.Trade, error) {
	return tradeOrNil(m.Called(ctx, tradeId))
}

func (m *mockTradeReader) ListTrades(
	ctx context.Context, openOnly bool,
) ([]*domain.Trade, error) {
	args := m.Called(ctx, openOnly)

	var res []*domain.Trade
	if a := args.Get(0); a != nil {
		res = a.([]*domain.Trade)
	}
	return res, args.Error(1)
}

func (m *mockTradeReader) FundsLockedIn(
	ctx context.Context,
) (btcutil.Amount, []string, error) {
	args := m.Called(ctx)

	var ids []string
	if a := args.Get(1); a != nil {
		ids = a.([]string)
	}
	return args.Get(0).(btcutil.Amount), ids, args.Error(2)
}

type mockDisputeReader struct {
	mock.Mock
}

func (m *mockDisputeReader) Role() dispute.NodeRole {
	args := m.Called()
	return args.Get(0).(dispute.NodeRole)
}

func (m *mockDisputeReader) GetDispute(
	ctx context.Context, disputeId string,
) (*domain.Dispute, error) {
	return disputeOrNil(m.Called(ctx, disputeId))
}

func (m *mockDisputeReader) ListDisputes(
	ctx context.Context, tradeId string,
) ([]*domain.Dispute, error) {
	args := m.Called(ctx, tradeId)

	var res []*domain.Dispute
	if a := args.Get(0); a != nil {
		res = a.([]*domain.Dispute)
	}
	return res, args.Error(1)
}
