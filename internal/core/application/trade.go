package application

import (
	"context"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/tdex-network/tdex-escrow/internal/core/application/pubsub"
	"github.com/tdex-network/tdex-escrow/internal/core/application/trade"
	"github.com/tdex-network/tdex-escrow/internal/core/application/tradelock"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
)

type TradeService interface {
	Start(ctx context.Context) error
	Stop()
	AddTrade(ctx context.Context, params trade.TradeParams) (*domain.Trade, error)
	GetTrade(ctx context.Context, tradeId string) (*domain.Trade, error)
	ListTrades(ctx context.Context, openOnly bool) ([]*domain.Trade, error)
	FundsLockedIn(ctx context.Context) (btcutil.Amount, []string, error)
	SetState(
		ctx context.Context, tradeId string, state domain.State,
	) (*domain.Trade, error)
	OnTakerFeePublished(
		ctx context.Context, tradeId, txid string,
	) (*domain.Trade, error)
	PublishDepositTx(
		ctx context.Context, tradeId string, rawTx []byte,
	) (*domain.Trade, error)
	OnDepositPublished(
		ctx context.Context, tradeId string, deposit trade.DepositInfo,
	) (*domain.Trade, error)
	ConfirmPaymentSent(ctx context.Context, tradeId string) (*domain.Trade, error)
	OnPaymentSentMessage(ctx context.Context, tradeId string) (*domain.Trade, error)
	ConfirmPaymentReceived(ctx context.Context, tradeId string) (*domain.Trade, error)
	OnPayoutPublished(
		ctx context.Context, tradeId, txid string,
	) (*domain.Trade, error)
	Withdraw(ctx context.Context, tradeId string) (*domain.Trade, error)
}

func NewTradeService(
	walletSvc ports.WalletService, pubsubSvc PubSubService,
	repoManager ports.RepoManager, locker *tradelock.Locker,
	periodCheckInterval time.Duration,
) (TradeService, error) {
	p, ok := pubsubSvc.(*pubsub.Service)
	if !ok {
		return nil, fmt.Errorf("missing pubsub service")
	}
	svc, err := trade.NewService(
		walletSvc, p, repoManager, locker, periodCheckInterval,
	)
	if err != nil {
		return nil, err
	}
	return svc, nil
}
