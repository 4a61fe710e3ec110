package trade

import (
	"context"

	"github.com/btcsuite/btcd/btcutil"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-escrow/pkg/escrowtx"
)

// SetState applies the state even if it regresses the trade phase.
func (s *Service) SetState(
	ctx context.Context, tradeId string, state domain.State,
) (*domain.Trade, error) {
	if !state.IsValid() {
		return nil, domain.ErrUnknownEnumValue
	}
	return s.updateTrade(ctx, tradeId, func(t *domain.Trade) (bool, error) {
		if t.State == state {
			return false, nil
		}
		t.SetState(state)
		return true, nil
	})
}

// SetStateIfValidTransitionTo applies the state only if it does not regress
// the trade phase and returns whether it was applied.
func (s *Service) SetStateIfValidTransitionTo(
	ctx context.Context, tradeId string, state domain.State,
) (bool, error) {
	if !state.IsValid() {
		return false, domain.ErrUnknownEnumValue
	}
	applied := false
	if _, err := s.updateTrade(
		ctx, tradeId, func(t *domain.Trade) (bool, error) {
			if t.State == state {
				applied = true
				return false, nil
			}
			applied = t.SetStateIfValidTransitionTo(state)
			return applied, nil
		},
	); err != nil {
		return false, err
	}
	return applied, nil
}

func (s *Service) OnTakerFeePublished(
	ctx context.Context, tradeId, txid string,
) (*domain.Trade, error) {
	return s.updateTrade(ctx, tradeId, func(t *domain.Trade) (bool, error) {
		if t.IsTakerFeePublished() {
			return false, nil
		}
		return t.TakerFeePublished(txid)
	})
}

// PublishDepositTx broadcasts the deposit tx signed by both traders. Only
// the seller publishes the deposit.
func (s *Service) PublishDepositTx(
	ctx context.Context, tradeId string, rawTx []byte,
) (*domain.Trade, error) {
	trade, err := s.repoManager.TradeRepository().GetTrade(ctx, tradeId)
	if err != nil {
		return nil, err
	}
	if !trade.Role.IsSeller() {
		return nil, domain.ErrTradeMustBeSeller
	}
	if trade.IsDepositPublished() {
		return trade, nil
	}

	tx, err := escrowtx.DecodeTx(rawTx)
	if err != nil {
		return nil, err
	}
	txid, err := s.wallet.BroadcastTx(ctx, tx)
	if err != nil {
		s.failTrade(ctx, tradeId, "publish deposit", err)
		return nil, err
	}
	log.Infof("published deposit tx %s of trade %s", txid, trade.ShortId())

	return s.OnDepositPublished(ctx, tradeId, DepositInfo{TxId: txid, Tx: rawTx})
}

// OnDepositPublished attaches the deposit tx to the trade and arms the
// confirmation watcher.
func (s *Service) OnDepositPublished(
	ctx context.Context, tradeId string, deposit DepositInfo,
) (*domain.Trade, error) {
	if len(deposit.TxId) <= 0 {
		return nil, domain.ErrDepositNotPublished
	}

	trade, err := s.updateTrade(ctx, tradeId, func(t *domain.Trade) (bool, error) {
		if t.IsDepositPublished() {
			return false, nil
		}
		return t.DepositPublished(deposit.TxId, deposit.Tx)
	})
	if err != nil {
		return nil, err
	}

	if !trade.IsDepositConfirmed() {
		s.watchDeposit(trade.Id, trade.DepositTxId)
	}
	return trade, nil
}

// ConfirmPaymentSent is the buyer confirming the fiat payment was started.
func (s *Service) ConfirmPaymentSent(
	ctx context.Context, tradeId string,
) (*domain.Trade, error) {
	return s.updateTrade(ctx, tradeId, func(t *domain.Trade) (bool, error) {
		if t.Role.IsBuyer() && t.IsFiatSent() {
			return false, nil
		}
		return t.ConfirmPaymentSent()
	})
}

// OnPaymentSentMessage is the seller learning that the buyer started the
// fiat payment.
func (s *Service) OnPaymentSentMessage(
	ctx context.Context, tradeId string,
) (*domain.Trade, error) {
	return s.updateTrade(ctx, tradeId, func(t *domain.Trade) (bool, error) {
		if t.Role.IsSeller() && t.IsFiatSent() {
			return false, nil
		}
		return t.PaymentSentMessageReceived()
	})
}

// ConfirmPaymentReceived is the seller confirming the receipt of the fiat
// payment. It is refused while ConfirmPermitted is false.
func (s *Service) ConfirmPaymentReceived(
	ctx context.Context, tradeId string,
) (*domain.Trade, error) {
	return s.updateTrade(ctx, tradeId, func(t *domain.Trade) (bool, error) {
		if t.Role.IsSeller() && t.IsFiatReceived() {
			return false, nil
		}
		return t.ConfirmPaymentReceived()
	})
}

func (s *Service) OnPayoutPublished(
	ctx context.Context, tradeId, txid string,
) (*domain.Trade, error) {
	return s.updateTrade(ctx, tradeId, func(t *domain.Trade) (bool, error) {
		if t.IsPayoutPublished() {
			return false, nil
		}
		return t.PayoutPublished(txid)
	})
}

// OnDisputedPayoutPublished records the payout resolving a dispute. The
// trade state is left untouched, the trade is closed by the dispute.
func (s *Service) OnDisputedPayoutPublished(
	ctx context.Context, tradeId, txid string,
) (*domain.Trade, error) {
	return s.updateTrade(ctx, tradeId, func(t *domain.Trade) (bool, error) {
		if t.PayoutTxId == txid {
			return false, nil
		}
		if !t.IsDepositPublished() {
			return false, domain.ErrDepositNotPublished
		}
		t.PayoutTxId = txid
		return true, nil
	})
}

// Withdraw completes the trade and closes it.
func (s *Service) Withdraw(
	ctx context.Context, tradeId string,
) (*domain.Trade, error) {
	return s.updateTrade(ctx, tradeId, func(t *domain.Trade) (bool, error) {
		if t.IsWithdrawn() && t.IsClosed() {
			return false, nil
		}
		if _, err := t.Withdraw(); err != nil {
			return false, err
		}
		t.Close()
		return true, nil
	})
}

// CloseDisputedTrade sets the final dispute state and closes the trade. It
// returns false if the trade was already closed, so that closing happens
// exactly once per trade.
func (s *Service) CloseDisputedTrade(
	ctx context.Context, tradeId string, disputeState domain.DisputeState,
) (bool, error) {
	closed := false
	if _, err := s.updateTrade(
		ctx, tradeId, func(t *domain.Trade) (bool, error) {
			closed = t.CloseDisputed(disputeState)
			if closed {
				t.MaybeClearSensitiveData()
			}
			return closed, nil
		},
	); err != nil {
		return false, err
	}
	if closed {
		log.Infof("closed disputed trade %s with %s", tradeId, disputeState)
	}
	return closed, nil
}

func (s *Service) SetDisputeState(
	ctx context.Context, tradeId string, disputeState domain.DisputeState,
) (*domain.Trade, error) {
	return s.updateTrade(ctx, tradeId, func(t *domain.Trade) (bool, error) {
		if t.DisputeState == disputeState {
			return false, nil
		}
		if t.IsClosed() {
			return false, domain.ErrTradeClosed
		}
		t.DisputeState = disputeState
		return true, nil
	})
}

// ApplyMediationResult records the payouts suggested by the mediator and
// moves the trade to MEDIATION_CLOSED.
func (s *Service) ApplyMediationResult(
	ctx context.Context, tradeId string,
	buyerPayout, sellerPayout btcutil.Amount,
) (*domain.Trade, error) {
	return s.updateTrade(ctx, tradeId, func(t *domain.Trade) (bool, error) {
		if buyerPayout < 0 || sellerPayout < 0 {
			return false, domain.ErrNegativePayoutAmount
		}
		changed := t.ApplyMediationResult(buyerPayout, sellerPayout)
		if changed && t.MediationResultAppliedPenaltyToSeller() {
			log.Infof(
				"mediation result of trade %s applied a penalty to the seller",
				t.ShortId(),
			)
		}
		return changed, nil
	})
}

func lockedAmount(t *domain.Trade) btcutil.Amount {
	if t.Role.IsBuyer() {
		return t.Offer.BuyerSecurityDeposit
	}
	return t.Offer.SellerSecurityDeposit + t.Amount
}
