package dispute

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
)

const (
	openedSystemMessage = "You opened a %s ticket for trade %s as %s. " +
		"Provide the requested evidence to the agent through this chat."
	peerOpenedSystemMessage = "Your trading peer opened a %s ticket for trade %s. " +
		"Provide the requested evidence to the agent through this chat."
)

// OpenDispute opens a dispute of the given type for the trade and sends it
// to the agent. Opening an already open dispute returns the existing one,
// a closed dispute is reopened and sent again.
func (s *Service) OpenDispute(
	ctx context.Context, tradeId string, supportType domain.SupportType,
) (*domain.Dispute, error) {
	if err := s.requireRole(RoleTrader); err != nil {
		return nil, err
	}

	t, err := s.tradeSvc.GetTrade(ctx, tradeId)
	if err != nil {
		return nil, err
	}
	if t.IsClosed() {
		return nil, domain.ErrTradeClosed
	}
	if t.Contract == nil {
		return nil, domain.ErrTradeMissingContract
	}
	if !t.IsDepositPublished() {
		return nil, domain.ErrDepositNotPublished
	}
	agentAddress, agentPubKeyRing := agentOf(t, supportType)
	if len(agentAddress) <= 0 || agentPubKeyRing.IsEmpty() {
		return nil, fmt.Errorf("%w: %s", ErrMissingAgent, supportType)
	}

	disputeRepo := s.repoManager.DisputeRepository()
	existing, err := disputeRepo.GetDispute(ctx, s.myDisputeId(tradeId))
	if err != nil && !errors.Is(err, domain.ErrDisputeNotFound) {
		return nil, err
	}

	var dispute *domain.Dispute
	switch {
	case existing != nil && !existing.IsClosed():
		opening, ok := existing.OpeningMessage()
		if !ok || (opening.Arrived && len(opening.SendMessageErr) <= 0) {
			log.Warnf(
				"dispute for trade %s already opened, skipping", t.ShortId(),
			)
			return existing, nil
		}
		return s.resendOpenNewDispute(ctx, existing)
	case existing != nil:
		dispute, _, err = s.updateDispute(
			ctx, existing.Id, func(d *domain.Dispute) (bool, error) {
				d.ReOpen()
				d.FaultMessage = ""
				return true, nil
			},
		)
		if err != nil {
			return nil, err
		}
		log.Infof("reopened dispute for trade %s", t.ShortId())
	default:
		dispute = s.newDispute(t, supportType, agentAddress, agentPubKeyRing)
		if err := disputeRepo.AddDispute(ctx, dispute); err != nil {
			return nil, err
		}
		log.Infof("opened %s dispute for trade %s", supportType, t.ShortId())
	}

	if _, err := s.tradeSvc.SetDisputeState(
		ctx, tradeId, supportType.RequestedDisputeState(),
	); err != nil {
		return nil, err
	}

	s.pubsub.Publish(domain.DisputeOpened{
		Id:          tradeId,
		DisputeId:   dispute.Id,
		SupportType: supportType,
		ByPeer:      false,
		Timestamp:   nowUnix(),
	})

	s.sendOpenNewDispute(ctx, dispute)
	return dispute, nil
}

// resendOpenNewDispute sends again the open request of a dispute whose
// previous request failed or has not been acknowledged yet.
func (s *Service) resendOpenNewDispute(
	ctx context.Context, existing *domain.Dispute,
) (*domain.Dispute, error) {
	opening, _ := existing.OpeningMessage()
	uid := opening.Uid
	dispute, _, err := s.updateDispute(
		ctx, existing.Id, func(d *domain.Dispute) (bool, error) {
			if m, ok := d.FindChatMessage(uid); ok {
				m.SendMessageErr = ""
			}
			d.FaultMessage = ""
			return true, nil
		},
	)
	if err != nil {
		return nil, err
	}
	log.Infof(
		"open request of dispute for trade %s was not delivered, sending again",
		dispute.ShortTradeId(),
	)
	s.sendOpenNewDispute(ctx, dispute)
	return dispute, nil
}

func (s *Service) sendOpenNewDispute(ctx context.Context, dispute *domain.Dispute) {
	uid := ""
	if opening, ok := dispute.OpeningMessage(); ok {
		uid = opening.Uid
	}
	s.sendMessage(
		ctx, dispute.TradeId, dispute.Id, uid, dispute.AgentNodeAddress,
		dispute.AgentPubKeyRing, ports.NewOpenNewDisputeMessage(*dispute),
	)
}

// OnOpenNewDisputeMessage is the agent receiving a dispute from one of the
// traders. It stores it together with the mirrored dispute of the peer and
// notifies the peer. A redelivered message only creates the mirrored
// dispute if it is still missing.
func (s *Service) OnOpenNewDisputeMessage(
	ctx context.Context, sender domain.PubKeyRing,
	msg *ports.OpenNewDisputeMessage,
) error {
	if err := s.requireRole(RoleAgent); err != nil {
		return err
	}

	dispute := msg.Dispute
	if dispute.Contract == nil {
		return fmt.Errorf("%w: dispute without contract", ErrContractViolation)
	}
	if !dispute.AgentPubKeyRing.Equal(s.network.PubKeyRing()) {
		return fmt.Errorf(
			"%w: dispute of trade %s addressed to another agent",
			ErrContractViolation, dispute.ShortTradeId(),
		)
	}
	if !sender.Equal(dispute.TraderPubKeyRing) ||
		!isTradeParty(dispute.Contract, sender) {
		return fmt.Errorf(
			"%w: dispute of trade %s not sent by one of the traders",
			ErrContractViolation, dispute.ShortTradeId(),
		)
	}

	disputeRepo := s.repoManager.DisputeRepository()
	stored, err := disputeRepo.GetDispute(ctx, dispute.Id)
	if err != nil && !errors.Is(err, domain.ErrDisputeNotFound) {
		return err
	}
	if stored != nil {
		log.Debugf(
			"dispute %s already received for trade %s",
			dispute.Id, dispute.ShortTradeId(),
		)
	} else {
		dispute.AgentNodeAddress = s.network.NodeAddress()
		if err := disputeRepo.AddDispute(ctx, &dispute); err != nil {
			return err
		}
		log.Infof(
			"received %s dispute for trade %s from %s",
			dispute.SupportType, dispute.ShortTradeId(), dispute.RoleString(),
		)
		s.pubsub.Publish(domain.DisputeOpened{
			Id:          dispute.TradeId,
			DisputeId:   dispute.Id,
			SupportType: dispute.SupportType,
			ByPeer:      false,
			Timestamp:   nowUnix(),
		})
	}

	peersPubKeyRing := dispute.Contract.PeersPubKeyRing(dispute.TraderPubKeyRing)
	peersAddress := dispute.Contract.PeersNodeAddress(dispute.TraderPubKeyRing)
	mirror := dispute.Mirror(peersPubKeyRing)
	if _, err := disputeRepo.GetDispute(ctx, mirror.Id); err == nil {
		log.Warnf(
			"dispute %s and its peer dispute already exist for trade %s, "+
				"dropping message", dispute.Id, dispute.ShortTradeId(),
		)
		return nil
	} else if !errors.Is(err, domain.ErrDisputeNotFound) {
		return err
	}

	mirror.AgentNodeAddress = s.network.NodeAddress()
	mirror.AddChatMessage(domain.NewSystemMessage(
		mirror.SupportType, mirror.TradeId, mirror.TraderId,
		fmt.Sprintf(
			peerOpenedSystemMessage, mirror.SupportType, mirror.ShortTradeId(),
		),
		s.network.NodeAddress(),
	))
	if err := disputeRepo.AddDispute(ctx, mirror); err != nil {
		return err
	}

	s.sendMessage(
		ctx, mirror.TradeId, mirror.Id, mirror.ChatMessages[0].Uid,
		peersAddress, peersPubKeyRing, ports.NewPeerOpenedDisputeMessage(*mirror),
	)
	return nil
}

// OnPeerOpenedDisputeMessage is the trader learning that the peer opened a
// dispute for their trade. Only the agent of the trade for the support type
// can send it.
func (s *Service) OnPeerOpenedDisputeMessage(
	ctx context.Context, sender domain.PubKeyRing,
	msg *ports.PeerOpenedDisputeMessage,
) error {
	if err := s.requireRole(RoleTrader); err != nil {
		return err
	}

	dispute := msg.Dispute
	if !dispute.TraderPubKeyRing.Equal(s.network.PubKeyRing()) {
		return fmt.Errorf(
			"%w: peer dispute of trade %s addressed to another trader",
			ErrContractViolation, dispute.ShortTradeId(),
		)
	}
	t, err := s.tradeSvc.GetTrade(ctx, dispute.TradeId)
	if err != nil && !errors.Is(err, domain.ErrTradeNotFound) {
		return err
	}
	agentPubKeyRing := dispute.AgentPubKeyRing
	if t != nil {
		_, agentPubKeyRing = agentOf(t, dispute.SupportType)
	}
	if agentPubKeyRing.IsEmpty() || !sender.Equal(agentPubKeyRing) {
		return fmt.Errorf(
			"%w: peer dispute of trade %s not sent by its agent",
			ErrContractViolation, dispute.ShortTradeId(),
		)
	}

	disputeRepo := s.repoManager.DisputeRepository()
	existing, err := disputeRepo.GetDispute(ctx, dispute.Id)
	if err != nil && !errors.Is(err, domain.ErrDisputeNotFound) {
		return err
	}
	if existing != nil && !existing.IsClosed() {
		log.Warnf(
			"dispute %s already known for trade %s, dropping message",
			dispute.Id, dispute.ShortTradeId(),
		)
		return nil
	}

	if existing != nil {
		if _, _, err := s.updateDispute(
			ctx, existing.Id, func(d *domain.Dispute) (bool, error) {
				d.ReOpen()
				return true, nil
			},
		); err != nil {
			return err
		}
	} else if err := disputeRepo.AddDispute(ctx, &dispute); err != nil {
		return err
	}
	log.Infof(
		"peer opened %s dispute for trade %s",
		dispute.SupportType, dispute.ShortTradeId(),
	)

	if _, err := s.tradeSvc.SetDisputeState(
		ctx, dispute.TradeId, dispute.SupportType.StartedByPeerDisputeState(),
	); err != nil {
		if !errors.Is(err, domain.ErrTradeNotFound) {
			return err
		}
		log.Warnf("no trade found for peer dispute %s", dispute.Id)
	}

	s.pubsub.Publish(domain.DisputeOpened{
		Id:          dispute.TradeId,
		DisputeId:   dispute.Id,
		SupportType: dispute.SupportType,
		ByPeer:      true,
		Timestamp:   nowUnix(),
	})
	return nil
}

func (s *Service) newDispute(
	t *domain.Trade, supportType domain.SupportType,
	agentAddress domain.NodeAddress, agentPubKeyRing domain.PubKeyRing,
) *domain.Dispute {
	myPubKeyRing := s.network.PubKeyRing()
	dispute := domain.NewDispute(
		t.Id, myPubKeyRing, supportType, t.Role.IsBuyer(), t.Role.IsMaker(),
	)
	dispute.AgentPubKeyRing = agentPubKeyRing
	dispute.AgentNodeAddress = agentAddress
	dispute.TradeDate = t.Date
	dispute.TradePeriodEnd = t.MaxTradePeriodDate(timeNow()).Unix()
	contract := *t.Contract
	dispute.Contract = &contract
	dispute.ContractHash = t.ContractHash
	dispute.ContractAsJson = t.ContractAsJson
	dispute.MakerContractSignature = t.MakerContractSignature
	dispute.TakerContractSignature = t.TakerContractSignature
	dispute.DepositTxSerialized = t.DepositTx
	dispute.DepositTxId = t.DepositTxId
	dispute.PayoutTxId = t.PayoutTxId
	dispute.DelayedPayoutTxId = t.DelayedPayoutTxId

	dispute.AddChatMessage(domain.NewSystemMessage(
		supportType, t.Id, dispute.TraderId,
		fmt.Sprintf(openedSystemMessage, supportType, t.ShortId(), dispute.RoleString()),
		s.network.NodeAddress(),
	))
	return dispute
}

// isTradeParty returns whether the ring belongs to the maker or the taker of
// the contract.
func isTradeParty(contract *domain.Contract, ring domain.PubKeyRing) bool {
	return contract.MakerPubKeyRing.Equal(ring) ||
		contract.TakerPubKeyRing.Equal(ring)
}

func agentOf(
	t *domain.Trade, supportType domain.SupportType,
) (domain.NodeAddress, domain.PubKeyRing) {
	switch supportType {
	case domain.SupportTypeMediation:
		return t.MediatorNodeAddress, t.MediatorPubKeyRing
	case domain.SupportTypeRefund:
		return t.RefundAgentNodeAddress, t.RefundAgentPubKeyRing
	default:
		return t.ArbitratorNodeAddress, t.ArbitratorPubKeyRing
	}
}
