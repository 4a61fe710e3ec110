package dispute

import (
	"context"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-escrow/internal/core/application/pubsub"
	"github.com/tdex-network/tdex-escrow/internal/core/application/trade"
	"github.com/tdex-network/tdex-escrow/internal/core/application/tradelock"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
)

var timeNow = time.Now

func nowUnix() int64 { return timeNow().Unix() }

// Service runs the dispute protocol for this node, either as one of the
// traders or as the agent. Like the trade service, it expects its callers
// to hold the lock of the trade. Send outcomes reported by the network are
// applied asynchronously under the same lock.
type Service struct {
	role        NodeRole
	nodeKey     *btcec.PrivateKey
	tradeSvc    *trade.Service
	wallet      ports.WalletService
	network     ports.NetworkService
	offers      ports.OpenOfferManager
	pubsub      *pubsub.Service
	repoManager ports.RepoManager
	locker      *tradelock.Locker
	resolver    *PayoutResolver
}

func NewService(
	role NodeRole,
	nodeKey *btcec.PrivateKey,
	tradeSvc *trade.Service,
	walletSvc ports.WalletService,
	networkSvc ports.NetworkService,
	offerManager ports.OpenOfferManager,
	pubsubSvc *pubsub.Service,
	repoManager ports.RepoManager,
	locker *tradelock.Locker,
	net *chaincfg.Params,
) (*Service, error) {
	if nodeKey == nil {
		return nil, fmt.Errorf("missing node key")
	}
	if tradeSvc == nil && role == RoleTrader {
		return nil, fmt.Errorf("missing trade service")
	}
	if walletSvc == nil {
		return nil, fmt.Errorf("missing wallet service")
	}
	if networkSvc == nil {
		return nil, fmt.Errorf("missing network service")
	}
	if offerManager == nil && role == RoleTrader {
		return nil, fmt.Errorf("missing open offer manager")
	}
	if pubsubSvc == nil {
		return nil, fmt.Errorf("missing pubsub service")
	}
	if repoManager == nil {
		return nil, fmt.Errorf("missing repo manager")
	}
	if locker == nil {
		return nil, fmt.Errorf("missing trade locker")
	}
	if net == nil {
		return nil, fmt.Errorf("missing network params")
	}

	return &Service{
		role:        role,
		nodeKey:     nodeKey,
		tradeSvc:    tradeSvc,
		wallet:      walletSvc,
		network:     networkSvc,
		offers:      offerManager,
		pubsub:      pubsubSvc,
		repoManager: repoManager,
		locker:      locker,
		resolver:    NewPayoutResolver(walletSvc, net),
	}, nil
}

func (s *Service) Role() NodeRole {
	return s.role
}

func (s *Service) GetDispute(
	ctx context.Context, disputeId string,
) (*domain.Dispute, error) {
	return s.repoManager.DisputeRepository().GetDispute(ctx, disputeId)
}

// ListDisputes returns the disputes of the given trade, or all of them if
// no trade id is given.
func (s *Service) ListDisputes(
	ctx context.Context, tradeId string,
) ([]*domain.Dispute, error) {
	if len(tradeId) > 0 {
		return s.repoManager.DisputeRepository().GetDisputesByTradeId(ctx, tradeId)
	}
	return s.repoManager.DisputeRepository().GetAllDisputes(ctx)
}

// myDisputeId is the id of the dispute this trader node owns for the trade.
func (s *Service) myDisputeId(tradeId string) string {
	return domain.DisputeId(
		tradeId, domain.TraderIdFromPubKeyRing(s.network.PubKeyRing()),
	)
}

func (s *Service) requireRole(role NodeRole) error {
	if s.role == role {
		return nil
	}
	if role == RoleAgent {
		return fmt.Errorf("%w: %w", ErrContractViolation, ErrNotAgent)
	}
	return fmt.Errorf("%w: %w", ErrContractViolation, ErrNotTrader)
}

// updateDispute applies fn to the stored dispute. An error returned by fn
// leaves the stored dispute untouched.
func (s *Service) updateDispute(
	ctx context.Context, disputeId string,
	fn func(d *domain.Dispute) (bool, error),
) (*domain.Dispute, bool, error) {
	var after *domain.Dispute
	changed := false

	if err := s.repoManager.DisputeRepository().UpdateDispute(
		ctx, disputeId, func(d *domain.Dispute) (*domain.Dispute, error) {
			ok, err := fn(d)
			if err != nil {
				return nil, err
			}
			changed = ok
			after = d
			return d, nil
		},
	); err != nil {
		return nil, false, err
	}
	return after, changed, nil
}

// failDispute records the error of a failed operation on the dispute so
// that it can be queried, and emits it as a fault event.
func (s *Service) failDispute(
	ctx context.Context, tradeId, disputeId, operation string, opErr error,
) {
	log.WithError(opErr).Warnf(
		"%s failed for dispute %s of trade %s", operation, disputeId, tradeId,
	)
	if _, _, err := s.updateDispute(
		ctx, disputeId, func(d *domain.Dispute) (bool, error) {
			d.FaultMessage = opErr.Error()
			return true, nil
		},
	); err != nil {
		log.WithError(err).Warnf("failed to record error on dispute %s", disputeId)
	}
	s.publishFault(tradeId, operation, opErr.Error())
}

func (s *Service) publishFault(tradeId, operation, message string) {
	s.pubsub.Publish(domain.FaultEvent{
		Id:        tradeId,
		Operation: operation,
		Message:   message,
		Timestamp: nowUnix(),
	})
}

func (s *Service) publishChatMessage(msg domain.ChatMessage, disputeId string) {
	s.pubsub.Publish(domain.ChatMessageAdded{
		Id:        msg.TradeId,
		DisputeId: disputeId,
		Uid:       msg.Uid,
		Timestamp: nowUnix(),
	})
}

// sendMessage delivers the message and tracks the outcome on the chat
// message with the given uid, if any. Outcomes are applied under the trade
// lock in a separate goroutine since the network may report them before
// returning.
func (s *Service) sendMessage(
	ctx context.Context, tradeId, disputeId, uid string,
	address domain.NodeAddress, pubKeyRing domain.PubKeyRing, msg ports.Message,
) {
	update := func(fn func(m *domain.ChatMessage)) {
		if len(uid) <= 0 {
			return
		}
		s.locker.Run(tradeId, func() {
			s.updateChatMessage(context.Background(), disputeId, uid, fn)
		})
	}

	log.Debugf("sending %s for trade %s to %s", msg.Type(), tradeId, address)
	s.network.SendEncryptedMailboxMessage(
		ctx, address, pubKeyRing, msg, ports.ListenerFuncs{
			Arrived: func() {
				log.Debugf("%s for trade %s arrived", msg.Type(), tradeId)
				go update(func(m *domain.ChatMessage) { m.Arrived = true })
			},
			StoredInMailbox: func() {
				log.Debugf("%s for trade %s stored in mailbox", msg.Type(), tradeId)
				go update(func(m *domain.ChatMessage) { m.StoredInMailbox = true })
			},
			Fault: func(errMsg string) {
				log.Warnf(
					"failed to send %s for trade %s: %s", msg.Type(), tradeId, errMsg,
				)
				go func() {
					update(func(m *domain.ChatMessage) { m.SendMessageErr = errMsg })
					s.publishFault(tradeId, "send "+msg.Type(), errMsg)
				}()
			},
		},
	)
}

func (s *Service) updateChatMessage(
	ctx context.Context, disputeId, uid string, fn func(m *domain.ChatMessage),
) {
	if _, _, err := s.updateDispute(
		ctx, disputeId, func(d *domain.Dispute) (bool, error) {
			m, ok := d.FindChatMessage(uid)
			if !ok {
				return false, nil
			}
			fn(m)
			return true, nil
		},
	); err != nil {
		log.WithError(err).Warnf(
			"failed to update chat message %s of dispute %s", uid, disputeId,
		)
	}
}
