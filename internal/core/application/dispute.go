package application

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/tdex-network/tdex-escrow/internal/core/application/dispute"
	"github.com/tdex-network/tdex-escrow/internal/core/application/pubsub"
	"github.com/tdex-network/tdex-escrow/internal/core/application/trade"
	"github.com/tdex-network/tdex-escrow/internal/core/application/tradelock"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
)

type DisputeService interface {
	Role() dispute.NodeRole
	GetDispute(ctx context.Context, disputeId string) (*domain.Dispute, error)
	ListDisputes(ctx context.Context, tradeId string) ([]*domain.Dispute, error)
	OpenDispute(
		ctx context.Context, tradeId string, supportType domain.SupportType,
	) (*domain.Dispute, error)
	SendChatMessage(
		ctx context.Context, params dispute.ChatMessageParams,
	) (*domain.ChatMessage, error)
	CloseDispute(
		ctx context.Context, params dispute.CloseDisputeParams,
	) (*domain.DisputeResult, error)
	RetryDisputedPayout(
		ctx context.Context, disputeId string,
	) (*domain.Dispute, error)

	// The message handlers get the authenticated sender of the message.
	OnOpenNewDisputeMessage(
		ctx context.Context, sender domain.PubKeyRing,
		msg *ports.OpenNewDisputeMessage,
	) error
	OnPeerOpenedDisputeMessage(
		ctx context.Context, sender domain.PubKeyRing,
		msg *ports.PeerOpenedDisputeMessage,
	) error
	OnChatMessage(
		ctx context.Context, sender domain.PubKeyRing, msg *ports.ChatMessage,
	) error
	OnDisputeResultMessage(
		ctx context.Context, sender domain.PubKeyRing,
		msg *ports.DisputeResultMessage,
	) error
	OnPeerPublishedDisputePayoutTx(
		ctx context.Context, sender domain.PubKeyRing,
		msg *ports.PeerPublishedDisputePayoutTxMessage,
	) error
}

// NewDisputeService returns the dispute service of a trader or of an agent.
// Agents run without trade service.
func NewDisputeService(
	role dispute.NodeRole, nodeKey *btcec.PrivateKey,
	tradeSvc TradeService, walletSvc ports.WalletService,
	networkSvc ports.NetworkService, offerManager ports.OpenOfferManager,
	pubsubSvc PubSubService, repoManager ports.RepoManager,
	locker *tradelock.Locker, net *chaincfg.Params,
) (DisputeService, error) {
	p, ok := pubsubSvc.(*pubsub.Service)
	if !ok {
		return nil, fmt.Errorf("missing pubsub service")
	}
	var t *trade.Service
	if tradeSvc != nil {
		if t, ok = tradeSvc.(*trade.Service); !ok {
			return nil, fmt.Errorf("unsupported trade service")
		}
	}

	svc, err := dispute.NewService(
		role, nodeKey, t, walletSvc, networkSvc, offerManager, p, repoManager,
		locker, net,
	)
	if err != nil {
		return nil, err
	}
	return svc, nil
}
