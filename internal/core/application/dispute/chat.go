package dispute

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
)

// SendChatMessage adds an evidence message to the dispute and sends it to
// the other side: the agent if this node is a trader, the trader owning the
// dispute otherwise.
func (s *Service) SendChatMessage(
	ctx context.Context, params ChatMessageParams,
) (*domain.ChatMessage, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	dispute, err := s.GetDispute(ctx, params.DisputeId)
	if err != nil {
		return nil, err
	}
	if dispute.IsClosed() {
		return nil, ErrDisputeClosed
	}

	senderIsTrader := s.role == RoleTrader
	var address domain.NodeAddress
	var pubKeyRing domain.PubKeyRing
	if senderIsTrader {
		if !dispute.TraderPubKeyRing.Equal(s.network.PubKeyRing()) {
			return nil, fmt.Errorf(
				"%w: trader cannot send messages to another trader",
				ErrContractViolation,
			)
		}
		address, pubKeyRing = dispute.AgentNodeAddress, dispute.AgentPubKeyRing
	} else {
		if dispute.Contract == nil {
			return nil, fmt.Errorf("%w: dispute without contract", ErrContractViolation)
		}
		pubKeyRing = dispute.TraderPubKeyRing
		address = dispute.Contract.MyNodeAddress(pubKeyRing)
	}

	msg := domain.NewChatMessage(
		dispute.SupportType, dispute.TradeId, dispute.TraderId, senderIsTrader,
		params.Message, s.network.NodeAddress(),
	)
	msg.Attachments = params.Attachments

	if _, _, err := s.updateDispute(
		ctx, dispute.Id, func(d *domain.Dispute) (bool, error) {
			return d.AddChatMessage(msg), nil
		},
	); err != nil {
		return nil, err
	}
	s.publishChatMessage(msg, dispute.Id)

	s.sendMessage(
		ctx, dispute.TradeId, dispute.Id, msg.Uid, address, pubKeyRing,
		&ports.ChatMessage{Message: msg},
	)
	return &msg, nil
}

// OnChatMessage stores an evidence message received from the other side of
// the dispute: a trader accepts messages from its agent only, the agent from
// the trader owning the dispute only.
func (s *Service) OnChatMessage(
	ctx context.Context, sender domain.PubKeyRing, msg *ports.ChatMessage,
) error {
	m := msg.Message
	if s.role == RoleTrader && m.SenderIsTrader {
		return fmt.Errorf(
			"%w: trader received a chat message from another trader",
			ErrContractViolation,
		)
	}
	if s.role == RoleAgent && !m.SenderIsTrader {
		return fmt.Errorf(
			"%w: agent received a chat message from another agent",
			ErrContractViolation,
		)
	}

	disputeId := domain.DisputeId(m.TradeId, m.TraderId)
	if s.role == RoleTrader && disputeId != s.myDisputeId(m.TradeId) {
		return fmt.Errorf(
			"%w: chat message for dispute %s addressed to another trader",
			ErrContractViolation, disputeId,
		)
	}

	dispute, err := s.GetDispute(ctx, disputeId)
	if err != nil {
		return err
	}
	expectedSender := dispute.AgentPubKeyRing
	if s.role == RoleAgent {
		expectedSender = dispute.TraderPubKeyRing
	}
	if !sender.Equal(expectedSender) {
		return fmt.Errorf(
			"%w: chat message for dispute %s from unexpected sender",
			ErrContractViolation, disputeId,
		)
	}

	m.WasDisplayed = false
	m.Arrived = true
	_, added, err := s.updateDispute(
		ctx, disputeId, func(d *domain.Dispute) (bool, error) {
			if d.IsClosed() {
				log.Debugf("received chat message for closed dispute %s", d.Id)
			}
			return d.AddChatMessage(m), nil
		},
	)
	if err != nil {
		return err
	}
	if added {
		s.publishChatMessage(m, disputeId)
	}
	return nil
}
