package dispute

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
	"github.com/tdex-network/tdex-escrow/pkg/escrowtx"
)

const resultSummaryMessage = "Ticket closed on %s.\n" +
	"Winner: %s\nReason: %s\n" +
	"Buyer payout: %s\nSeller payout: %s\nAgent payout: %s\n\n" +
	"Summary notes:\n%s"

// CloseDispute is the agent ruling the dispute pair of the trade. The result
// is signed with the node key and, for arbitration, comes with the agent
// signature of the payout tx. Both traders receive it.
func (s *Service) CloseDispute(
	ctx context.Context, params CloseDisputeParams,
) (*domain.DisputeResult, error) {
	if err := s.requireRole(RoleAgent); err != nil {
		return nil, err
	}

	dispute, err := s.GetDispute(ctx, params.DisputeId)
	if err != nil {
		return nil, err
	}
	if dispute.IsClosed() || dispute.HasResult() {
		return nil, ErrDisputeClosed
	}

	result := &domain.DisputeResult{
		TradeId:                 dispute.TradeId,
		TraderId:                dispute.TraderId,
		Winner:                  params.Winner,
		Reason:                  params.Reason,
		FeePolicy:               params.FeePolicy,
		TamperProofEvidence:     params.TamperProofEvidence,
		IdVerification:          params.IdVerification,
		ScreenCast:              params.ScreenCast,
		SummaryNotes:            params.SummaryNotes,
		BuyerPayoutAmount:       params.BuyerPayoutAmount,
		SellerPayoutAmount:      params.SellerPayoutAmount,
		ArbitratorPayoutAmount:  params.ArbitratorPayoutAmount,
		ArbitratorAddressString: params.ArbitratorAddress,
		IsLoserPublisher:        params.IsLoserPublisher,
		CloseDate:               nowUnix(),
	}
	if err := result.Validate(); err != nil {
		return nil, err
	}

	if dispute.SupportType == domain.SupportTypeArbitration {
		if err := s.signPayout(ctx, dispute, result); err != nil {
			s.failDispute(ctx, dispute.TradeId, dispute.Id, "sign disputed payout", err)
			return nil, err
		}
	}
	result.Sign(s.nodeKey)

	disputes, err := s.repoManager.DisputeRepository().GetDisputesByTradeId(
		ctx, dispute.TradeId,
	)
	if err != nil {
		return nil, err
	}
	for _, d := range disputes {
		if d.HasResult() {
			continue
		}
		if err := s.closeWithResult(ctx, d, *result); err != nil {
			return nil, err
		}
	}
	log.Infof(
		"closed %s dispute of trade %s, winner %s",
		dispute.SupportType, dispute.ShortTradeId(), result.Winner,
	)

	s.pubsub.Publish(domain.DisputeClosed{
		Id:        dispute.TradeId,
		DisputeId: dispute.Id,
		Winner:    result.Winner,
		Timestamp: nowUnix(),
	})
	return result, nil
}

// OnDisputeResultMessage is the trader applying the ruling to its dispute.
// A result is applied only once. For arbitration only one of the traders
// publishes the payout, the other waits for the published tx. If no trade
// exists for the dispute, the open offer is closed instead.
func (s *Service) OnDisputeResultMessage(
	ctx context.Context, sender domain.PubKeyRing,
	msg *ports.DisputeResultMessage,
) error {
	if err := s.requireRole(RoleTrader); err != nil {
		return err
	}

	result := msg.Result
	disputeId := domain.DisputeId(result.TradeId, result.TraderId)
	if disputeId != s.myDisputeId(result.TradeId) {
		return fmt.Errorf(
			"%w: dispute result %s addressed to another trader",
			ErrContractViolation, disputeId,
		)
	}

	dispute, err := s.GetDispute(ctx, disputeId)
	if err != nil {
		return err
	}
	if !sender.Equal(dispute.AgentPubKeyRing) {
		return fmt.Errorf(
			"%w: dispute result %s not sent by its agent",
			ErrContractViolation, disputeId,
		)
	}
	if dispute.HasResult() {
		log.Warnf(
			"result already applied to dispute %s, dropping message", dispute.Id,
		)
		return nil
	}
	if err := result.VerifySummarySignature(
		dispute.AgentPubKeyRing.SignaturePubKey,
	); err != nil {
		s.failDispute(ctx, result.TradeId, disputeId, "verify dispute result", err)
		return err
	}
	if err := result.Validate(); err != nil {
		s.failDispute(ctx, result.TradeId, disputeId, "verify dispute result", err)
		return err
	}

	t, err := s.tradeSvc.GetTrade(ctx, result.TradeId)
	if err != nil && !errors.Is(err, domain.ErrTradeNotFound) {
		return err
	}
	mustPublish := t != nil && isPayoutPublisher(dispute, t, &result)

	dispute, _, err = s.updateDispute(
		ctx, disputeId, func(d *domain.Dispute) (bool, error) {
			d.Result = &result
			if result.ChatMessage != nil {
				m := *result.ChatMessage
				m.Arrived = true
				d.AddChatMessage(m)
			}
			if !mustPublish {
				d.SetIsClosed()
			}
			return true, nil
		},
	)
	if err != nil {
		return err
	}
	log.Infof(
		"applied %s result to dispute of trade %s, winner %s",
		dispute.SupportType, dispute.ShortTradeId(), result.Winner,
	)
	s.pubsub.Publish(domain.DisputeClosed{
		Id:        result.TradeId,
		DisputeId: disputeId,
		Winner:    result.Winner,
		Timestamp: nowUnix(),
	})

	if t == nil {
		return s.closeOpenOffer(ctx, result.TradeId)
	}

	switch dispute.SupportType {
	case domain.SupportTypeMediation:
		_, err := s.tradeSvc.ApplyMediationResult(
			ctx, t.Id, result.BuyerPayoutAmount, result.SellerPayoutAmount,
		)
		return err
	case domain.SupportTypeRefund:
		return s.closeTrade(ctx, t.Id, dispute.SupportType)
	default:
		if mustPublish {
			return s.publishDisputedPayout(ctx, dispute, t)
		}
		log.Infof(
			"peer publishes the disputed payout of trade %s", t.ShortId(),
		)
		return s.closeTrade(ctx, t.Id, dispute.SupportType)
	}
}

// RetryDisputedPayout publishes again the disputed payout of a trade whose
// previous attempt failed.
func (s *Service) RetryDisputedPayout(
	ctx context.Context, disputeId string,
) (*domain.Dispute, error) {
	if err := s.requireRole(RoleTrader); err != nil {
		return nil, err
	}

	dispute, err := s.GetDispute(ctx, disputeId)
	if err != nil {
		return nil, err
	}
	if dispute.IsClosed() || !dispute.HasResult() {
		return nil, ErrDisputeClosed
	}
	t, err := s.tradeSvc.GetTrade(ctx, dispute.TradeId)
	if err != nil {
		return nil, err
	}
	if !isPayoutPublisher(dispute, t, dispute.Result) {
		return nil, fmt.Errorf("payout of trade %s is published by the peer", t.ShortId())
	}

	if err := s.publishDisputedPayout(ctx, dispute, t); err != nil {
		return nil, err
	}
	return s.GetDispute(ctx, disputeId)
}

// OnPeerPublishedDisputePayoutTx is the non publishing trader receiving the
// disputed payout from the trading peer. The tx must execute the result of
// the dispute, then it is only imported in the wallet.
func (s *Service) OnPeerPublishedDisputePayoutTx(
	ctx context.Context, sender domain.PubKeyRing,
	msg *ports.PeerPublishedDisputePayoutTxMessage,
) error {
	if err := s.requireRole(RoleTrader); err != nil {
		return err
	}

	tx, err := escrowtx.DecodeTx(msg.Transaction)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrContractViolation, err)
	}
	txid := tx.TxHash().String()

	disputeId := s.myDisputeId(msg.TradeId)
	dispute, err := s.GetDispute(ctx, disputeId)
	if err != nil {
		return err
	}
	if dispute.Contract == nil {
		return fmt.Errorf("%w: dispute without contract", ErrContractViolation)
	}
	peersPubKeyRing := dispute.Contract.PeersPubKeyRing(s.network.PubKeyRing())
	if !sender.Equal(peersPubKeyRing) {
		return fmt.Errorf(
			"%w: disputed payout of trade %s not sent by the trading peer",
			ErrContractViolation, dispute.ShortTradeId(),
		)
	}
	if dispute.DisputePayoutTxId == txid {
		log.Warnf(
			"disputed payout %s already known for trade %s, dropping message",
			txid, dispute.ShortTradeId(),
		)
		return nil
	}
	if !dispute.HasResult() {
		return fmt.Errorf(
			"%w: disputed payout of trade %s", ErrDisputeResultNotFound,
			dispute.ShortTradeId(),
		)
	}

	t, err := s.tradeSvc.GetTrade(ctx, msg.TradeId)
	if err != nil && !errors.Is(err, domain.ErrTradeNotFound) {
		return err
	}
	if err := s.resolver.VerifyPeerPayout(
		ctx, dispute, t, dispute.Result, tx,
	); err != nil {
		return fmt.Errorf(
			"%w: disputed payout %s of trade %s: %s",
			ErrContractViolation, txid, dispute.ShortTradeId(), err,
		)
	}

	if _, err := s.wallet.AddTransactionToWallet(ctx, tx); err != nil {
		s.failDispute(ctx, msg.TradeId, disputeId, "import disputed payout", err)
		return err
	}
	if _, _, err := s.updateDispute(
		ctx, disputeId, func(d *domain.Dispute) (bool, error) {
			d.DisputePayoutTxId = txid
			d.SetIsClosed()
			return true, nil
		},
	); err != nil {
		return err
	}
	log.Infof(
		"imported disputed payout %s published by peer for trade %s",
		txid, dispute.ShortTradeId(),
	)

	if t == nil {
		return nil
	}
	if _, err := s.tradeSvc.OnDisputedPayoutPublished(
		ctx, msg.TradeId, txid,
	); err != nil {
		return err
	}
	return s.closeTrade(ctx, msg.TradeId, dispute.SupportType)
}

func (s *Service) publishDisputedPayout(
	ctx context.Context, dispute *domain.Dispute, t *domain.Trade,
) error {
	tx, err := s.resolver.Resolve(ctx, dispute, t, dispute.Result)
	if err != nil {
		s.failDispute(ctx, t.Id, dispute.Id, "resolve disputed payout", err)
		return err
	}
	txid, err := s.wallet.BroadcastTx(ctx, tx)
	if err != nil {
		s.failDispute(ctx, t.Id, dispute.Id, "publish disputed payout", err)
		return err
	}
	log.Infof("published disputed payout %s of trade %s", txid, t.ShortId())

	if _, _, err := s.updateDispute(
		ctx, dispute.Id, func(d *domain.Dispute) (bool, error) {
			d.DisputePayoutTxId = txid
			d.FaultMessage = ""
			d.SetIsClosed()
			return true, nil
		},
	); err != nil {
		return err
	}
	if _, err := s.tradeSvc.OnDisputedPayoutPublished(ctx, t.Id, txid); err != nil {
		return err
	}

	rawTx, err := escrowtx.SerializeTx(tx)
	if err != nil {
		return err
	}
	myPubKeyRing := s.network.PubKeyRing()
	s.sendMessage(
		ctx, t.Id, dispute.Id, "",
		dispute.Contract.PeersNodeAddress(myPubKeyRing),
		dispute.Contract.PeersPubKeyRing(myPubKeyRing),
		ports.NewPeerPublishedDisputePayoutTxMessage(t.Id, rawTx, dispute.SupportType),
	)

	return s.closeTrade(ctx, t.Id, dispute.SupportType)
}

// signPayout adds the agent signature of the payout tx to the result.
func (s *Service) signPayout(
	ctx context.Context, dispute *domain.Dispute, result *domain.DisputeResult,
) error {
	if result.ArbitratorPayoutAmount > 0 && len(result.ArbitratorAddressString) <= 0 {
		entry, err := s.wallet.GetAddressEntry(ctx, dispute.TradeId)
		if err != nil {
			return err
		}
		result.ArbitratorAddressString = entry.Address
	}
	result.ArbitratorPubKey = s.wallet.MultiSigPubKey()

	depositTx, err := s.resolver.depositTx(ctx, dispute, nil)
	if err != nil {
		return err
	}
	args, err := s.resolver.PayoutArgs(dispute.Contract, depositTx, result)
	if err != nil {
		return err
	}
	sig, err := s.wallet.ArbitratorSignDisputedPayoutTx(ctx, args)
	if err != nil {
		return err
	}
	result.ArbitratorSignature = sig
	return nil
}

// closeWithResult stores the result on the dispute of one trader and sends
// it to them.
func (s *Service) closeWithResult(
	ctx context.Context, dispute *domain.Dispute, result domain.DisputeResult,
) error {
	summary := domain.NewChatMessage(
		dispute.SupportType, dispute.TradeId, dispute.TraderId, false,
		fmt.Sprintf(
			resultSummaryMessage,
			time.Unix(result.CloseDate, 0).UTC().Format(time.RFC1123),
			result.Winner, result.Reason, result.BuyerPayoutAmount,
			result.SellerPayoutAmount, result.ArbitratorPayoutAmount,
			result.SummaryNotes,
		),
		s.network.NodeAddress(),
	)
	result.TraderId = dispute.TraderId
	result.ChatMessage = &summary

	if _, _, err := s.updateDispute(
		ctx, dispute.Id, func(d *domain.Dispute) (bool, error) {
			d.Result = &result
			d.AddChatMessage(summary)
			d.SetIsClosed()
			return true, nil
		},
	); err != nil {
		return err
	}
	s.publishChatMessage(summary, dispute.Id)

	if dispute.Contract == nil {
		return fmt.Errorf("%w: dispute without contract", ErrContractViolation)
	}
	s.sendMessage(
		ctx, dispute.TradeId, dispute.Id, summary.Uid,
		dispute.Contract.MyNodeAddress(dispute.TraderPubKeyRing),
		dispute.TraderPubKeyRing,
		ports.NewDisputeResultMessage(result, dispute.SupportType),
	)
	return nil
}

func (s *Service) closeTrade(
	ctx context.Context, tradeId string, supportType domain.SupportType,
) error {
	_, err := s.tradeSvc.CloseDisputedTrade(
		ctx, tradeId, supportType.ClosedDisputeState(),
	)
	return err
}

func (s *Service) closeOpenOffer(ctx context.Context, offerId string) error {
	closed, err := s.offers.CloseOpenOffer(ctx, offerId)
	if err != nil {
		if errors.Is(err, domain.ErrOpenOfferNotFound) {
			log.Warnf("no trade nor open offer found for dispute of %s", offerId)
			return nil
		}
		return err
	}
	if closed {
		log.Infof("closed open offer %s after dispute result", offerId)
	}
	return nil
}

// isPayoutPublisher tells whether this trader broadcasts the arbitration
// payout. Nothing is published once the trade has a payout.
func isPayoutPublisher(
	dispute *domain.Dispute, t *domain.Trade, result *domain.DisputeResult,
) bool {
	if dispute.SupportType != domain.SupportTypeArbitration &&
		dispute.SupportType != domain.SupportTypeTrade {
		return false
	}
	if _, ok := t.PayoutTxIdIfPublished(); ok {
		return false
	}
	return result.ShouldPublish(t.Role.IsBuyer())
}
