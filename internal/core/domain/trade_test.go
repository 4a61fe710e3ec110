package domain_test

import (
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/stretchr/testify/require"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
)

func TestNewTrade(t *testing.T) {
	trade := newTestTrade(domain.Buyer, domain.Maker)
	require.Equal(t, domain.StatePreparation, trade.State)
	require.Equal(t, domain.PhaseInit, trade.Phase())
	require.True(t, trade.IsInPreparation())
	require.Equal(t, "01234567", trade.ShortId())

	tests := []struct {
		name   string
		id     string
		amount btcutil.Amount
		price  int64
		err    error
	}{
		{"missing_id", "", tradeAmount, 1, domain.ErrTradeMissingId},
		{"zero_amount", "id", 0, 1, domain.ErrInvalidTradeAmount},
		{"zero_price", "id", tradeAmount, 0, domain.ErrInvalidTradePrice},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			trade, err := domain.NewTrade(
				tt.id, domain.TradeRole{}, newTestOffer(), tt.amount, tt.price, 0, 0,
			)
			require.ErrorIs(t, err, tt.err)
			require.Nil(t, trade)
		})
	}
}

func TestTradeBuyerHappyPath(t *testing.T) {
	trade := newTestTrade(domain.Buyer, domain.Taker)

	steps := []struct {
		name     string
		apply    func() (bool, error)
		expState domain.State
	}{
		{
			"taker_fee_published",
			func() (bool, error) { return trade.TakerFeePublished("takerfeetxid") },
			domain.StateTakerPublishedTakerFeeTx,
		},
		{
			"deposit_published",
			func() (bool, error) { return trade.DepositPublished("deposittxid", []byte{0x01}) },
			domain.StateBuyerSawDepositTxInNetwork,
		},
		{
			"deposit_confirmed",
			func() (bool, error) { return trade.DepositConfirmed(time.Now().Unix()) },
			domain.StateDepositConfirmedInBlockChain,
		},
		{
			"payment_sent",
			trade.ConfirmPaymentSent,
			domain.StateBuyerConfirmedInUIFiatPaymentInitiated,
		},
		{
			"payout_published",
			func() (bool, error) { return trade.PayoutPublished("payouttxid") },
			domain.StateBuyerSawPayoutTxInNetwork,
		},
		{
			"withdrawn",
			trade.Withdraw,
			domain.StateWithdrawCompleted,
		},
	}

	for _, step := range steps {
		ok, err := step.apply()
		require.NoError(t, err, step.name)
		require.True(t, ok, step.name)
		require.Equal(t, step.expState, trade.State, step.name)

		// Applying the same step twice is a no-op.
		ok, err = step.apply()
		require.NoError(t, err, step.name)
		require.True(t, ok, step.name)
		require.Equal(t, step.expState, trade.State, step.name)
	}

	require.True(t, trade.IsCompleted())
	require.True(t, trade.IsPayoutPublished())
	require.False(t, trade.IsFundsLockedIn())

	txid, ok := trade.DepositTxIdIfPublished()
	require.True(t, ok)
	require.Equal(t, "deposittxid", txid)
	txid, ok = trade.PayoutTxIdIfPublished()
	require.True(t, ok)
	require.Equal(t, "payouttxid", txid)
}

func TestTradeSellerHappyPath(t *testing.T) {
	trade := newTestTrade(domain.Seller, domain.Maker)

	_, err := trade.TakerFeePublished("takerfeetxid")
	require.NoError(t, err)
	_, err = trade.DepositPublished("deposittxid", []byte{0x01})
	require.NoError(t, err)
	require.Equal(t, domain.StateSellerPublishedDepositTx, trade.State)

	_, err = trade.DepositConfirmed(time.Now().Unix())
	require.NoError(t, err)

	ok, err := trade.PaymentSentMessageReceived()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, domain.StateSellerReceivedFiatPaymentInitiatedMsg, trade.State)

	ok, err = trade.ConfirmPaymentReceived()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, domain.StateSellerConfirmedInUIFiatPaymentReceipt, trade.State)

	ok, err = trade.PayoutPublished("payouttxid")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, domain.StateSellerPublishedPayoutTx, trade.State)
}

func TestFailingTradeTransitions(t *testing.T) {
	tests := []struct {
		name  string
		trade func() *domain.Trade
		apply func(*domain.Trade) (bool, error)
		err   error
	}{
		{
			name:  "seller_confirms_payment_sent",
			trade: func() *domain.Trade { return newTestTrade(domain.Seller, domain.Taker) },
			apply: func(tr *domain.Trade) (bool, error) { return tr.ConfirmPaymentSent() },
			err:   domain.ErrTradeMustBeBuyer,
		},
		{
			name:  "buyer_confirms_payment_received",
			trade: func() *domain.Trade { return newTestTrade(domain.Buyer, domain.Taker) },
			apply: func(tr *domain.Trade) (bool, error) { return tr.ConfirmPaymentReceived() },
			err:   domain.ErrTradeMustBeSeller,
		},
		{
			name:  "payment_sent_before_deposit_confirmed",
			trade: func() *domain.Trade { return newTestTrade(domain.Buyer, domain.Taker) },
			apply: func(tr *domain.Trade) (bool, error) { return tr.ConfirmPaymentSent() },
			err:   domain.ErrDepositNotConfirmed,
		},
		{
			name:  "payment_received_before_payment_sent",
			trade: func() *domain.Trade { return newTestTrade(domain.Seller, domain.Taker) },
			apply: func(tr *domain.Trade) (bool, error) { return tr.ConfirmPaymentReceived() },
			err:   domain.ErrFiatNotSent,
		},
		{
			name:  "deposit_confirmed_before_published",
			trade: func() *domain.Trade { return newTestTrade(domain.Seller, domain.Taker) },
			apply: func(tr *domain.Trade) (bool, error) { return tr.DepositConfirmed(1) },
			err:   domain.ErrDepositNotPublished,
		},
		{
			name:  "withdraw_before_payout",
			trade: func() *domain.Trade { return newTestTrade(domain.Seller, domain.Taker) },
			apply: func(tr *domain.Trade) (bool, error) { return tr.Withdraw() },
			err:   domain.ErrPayoutNotPublished,
		},
		{
			name: "buyer_payment_sent_while_arbitrated",
			trade: func() *domain.Trade {
				tr := newTestTrade(domain.Buyer, domain.Taker)
				advanceToDepositConfirmed(tr)
				tr.DisputeState = domain.DisputeStateDisputeRequested
				return tr
			},
			apply: func(tr *domain.Trade) (bool, error) { return tr.ConfirmPaymentSent() },
			err:   domain.ErrConfirmNotPermitted,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			trade := tt.trade()
			state := trade.State
			ok, err := tt.apply(trade)
			require.False(t, ok)
			require.ErrorIs(t, err, tt.err)
			require.Equal(t, state, trade.State)
		})
	}
}

func TestTradeSetState(t *testing.T) {
	t.Run("set_if_valid_refuses_regression", func(t *testing.T) {
		trade := newTestTrade(domain.Buyer, domain.Taker)
		advanceToDepositConfirmed(trade)

		ok := trade.SetStateIfValidTransitionTo(domain.StateBuyerSawDepositTxInNetwork)
		require.False(t, ok)
		require.Equal(t, domain.StateDepositConfirmedInBlockChain, trade.State)
	})

	t.Run("set_if_valid_allows_same_phase", func(t *testing.T) {
		trade := newTestTrade(domain.Buyer, domain.Taker)
		advanceToDepositConfirmed(trade)
		trade.SetState(domain.StateBuyerConfirmedInUIFiatPaymentInitiated)

		ok := trade.SetStateIfValidTransitionTo(domain.StateBuyerSentFiatPaymentInitiatedMsg)
		require.True(t, ok)
		ok = trade.SetStateIfValidTransitionTo(domain.StateBuyerConfirmedInUIFiatPaymentInitiated)
		require.True(t, ok)
	})

	t.Run("set_state_applies_regression", func(t *testing.T) {
		trade := newTestTrade(domain.Buyer, domain.Taker)
		advanceToDepositConfirmed(trade)

		trade.SetState(domain.StateBuyerSawDepositTxInNetwork)
		require.Equal(t, domain.StateBuyerSawDepositTxInNetwork, trade.State)
		require.Equal(t, domain.PhaseDepositPublished, trade.Phase())
	})
}

func TestTradeIsFundsLockedIn(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(*domain.Trade)
		expected bool
	}{
		{
			name:     "in_preparation",
			setup:    func(tr *domain.Trade) {},
			expected: false,
		},
		{
			name: "deposit_published_unconfirmed",
			setup: func(tr *domain.Trade) {
				tr.TakerFeePublished("takerfeetxid")
				tr.DepositPublished("deposittxid", []byte{0x01})
			},
			expected: false,
		},
		{
			name:     "deposit_confirmed",
			setup:    advanceToDepositConfirmed,
			expected: true,
		},
		{
			name: "payout_published",
			setup: func(tr *domain.Trade) {
				advanceToDepositConfirmed(tr)
				tr.PayoutPublished("payouttxid")
			},
			expected: false,
		},
		{
			name: "arbitration_requested",
			setup: func(tr *domain.Trade) {
				advanceToDepositConfirmed(tr)
				tr.DisputeState = domain.DisputeStateDisputeRequested
			},
			expected: true,
		},
		{
			name: "mediation_closed_payout_pending",
			setup: func(tr *domain.Trade) {
				advanceToDepositConfirmed(tr)
				tr.DisputeState = domain.DisputeStateMediationClosed
				tr.MediationResultState = domain.MediationResultSigMsgSent
			},
			expected: true,
		},
		{
			name: "mediation_closed_payout_published",
			setup: func(tr *domain.Trade) {
				advanceToDepositConfirmed(tr)
				tr.DisputeState = domain.DisputeStateMediationClosed
				tr.MediationResultState = domain.MediationResultPayoutTxSeenInNetwork
			},
			expected: false,
		},
		{
			name: "refund_requested",
			setup: func(tr *domain.Trade) {
				advanceToDepositConfirmed(tr)
				tr.DisputeState = domain.DisputeStateRefundRequested
			},
			expected: false,
		},
		{
			name: "refund_closed",
			setup: func(tr *domain.Trade) {
				advanceToDepositConfirmed(tr)
				tr.DisputeState = domain.DisputeStateRefundRequestClosed
			},
			expected: false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			trade := newTestTrade(domain.Seller, domain.Taker)
			tt.setup(trade)
			require.Equal(t, tt.expected, trade.IsFundsLockedIn())
		})
	}
}

func TestTradePayoutAmount(t *testing.T) {
	buyer := newTestTrade(domain.Buyer, domain.Maker)
	require.Equal(t, buyerDeposit+tradeAmount, buyer.PayoutAmount())

	seller := newTestTrade(domain.Seller, domain.Taker)
	require.Equal(t, sellerDeposit, seller.PayoutAmount())
}

func TestTradeConfirmPermitted(t *testing.T) {
	tests := []struct {
		direction    domain.TradeDirection
		disputeState domain.DisputeState
		sellerPayout btcutil.Amount
		expected     bool
	}{
		{domain.Buyer, domain.DisputeStateNoDispute, 0, true},
		{domain.Buyer, domain.DisputeStateMediationRequested, 0, true},
		{domain.Buyer, domain.DisputeStateMediationStartedByPeer, 0, true},
		{domain.Buyer, domain.DisputeStateMediationClosed, 0, true},
		{domain.Buyer, domain.DisputeStateDisputeRequested, 0, false},
		{domain.Buyer, domain.DisputeStateRefundRequested, 0, false},
		{domain.Buyer, domain.DisputeStateRefundRequestClosed, 0, false},
		{domain.Seller, domain.DisputeStateNoDispute, 0, true},
		{domain.Seller, domain.DisputeStateMediationRequested, 0, false},
		{domain.Seller, domain.DisputeStateMediationStartedByPeer, 0, false},
		{domain.Seller, domain.DisputeStateMediationClosed, sellerDeposit, true},
		{domain.Seller, domain.DisputeStateMediationClosed, sellerDeposit - 1, false},
		{domain.Seller, domain.DisputeStateDisputeStartedByPeer, sellerDeposit, false},
		{domain.Seller, domain.DisputeStateRefundRequested, sellerDeposit, false},
	}

	for _, tt := range tests {
		trade := newTestTrade(tt.direction, domain.Maker)
		trade.DisputeState = tt.disputeState
		trade.SellerPayoutAmountFromMediation = tt.sellerPayout
		require.Equalf(
			t, tt.expected, trade.ConfirmPermitted(),
			"%s with %s", tt.direction, tt.disputeState,
		)
	}
}

func TestMediationPenaltyBlocksSellerConfirmation(t *testing.T) {
	trade := newTestTrade(domain.Seller, domain.Maker)
	advanceToDepositConfirmed(trade)
	_, err := trade.PaymentSentMessageReceived()
	require.NoError(t, err)

	changed := trade.ApplyMediationResult(buyerDeposit+tradeAmount+sellerDeposit, 0)
	require.True(t, changed)
	require.Equal(t, domain.DisputeStateMediationClosed, trade.DisputeState)
	require.True(t, trade.MediationResultAppliedPenaltyToSeller())

	// Same result applied twice is a no-op.
	require.False(t, trade.ApplyMediationResult(buyerDeposit+tradeAmount+sellerDeposit, 0))

	ok, err := trade.ConfirmPaymentReceived()
	require.ErrorIs(t, err, domain.ErrConfirmNotPermitted)
	require.False(t, ok)

	// Without penalty the seller may confirm.
	require.True(t, trade.ApplyMediationResult(buyerDeposit+tradeAmount, sellerDeposit))
	require.False(t, trade.MediationResultAppliedPenaltyToSeller())
	ok, err = trade.ConfirmPaymentReceived()
	require.NoError(t, err)
	require.True(t, ok)
}

func TestTradeUpdateTradePeriodState(t *testing.T) {
	trade := newTestTrade(domain.Buyer, domain.Taker)

	// The period doesn't start until the deposit is confirmed.
	require.False(t, trade.UpdateTradePeriodState(time.Now().Add(30*24*time.Hour)))

	advanceToDepositConfirmed(trade)
	start := time.Unix(trade.DepositBlockTime, 0)
	period := trade.Offer.MaxTradePeriod

	require.False(t, trade.UpdateTradePeriodState(start.Add(time.Hour)))
	require.Equal(t, domain.TradePeriodFirstHalf, trade.TradePeriodState)

	require.True(t, trade.UpdateTradePeriodState(start.Add(period/2)))
	require.Equal(t, domain.TradePeriodSecondHalf, trade.TradePeriodState)

	require.True(t, trade.UpdateTradePeriodState(start.Add(period)))
	require.Equal(t, domain.TradePeriodOver, trade.TradePeriodState)

	// Never moves back.
	require.False(t, trade.UpdateTradePeriodState(start))
	require.Equal(t, domain.TradePeriodOver, trade.TradePeriodState)
}

func TestTradeStartTime(t *testing.T) {
	now := time.Now()
	trade := newTestTrade(domain.Buyer, domain.Taker)
	require.Equal(t, now, trade.TradeStartTime(now))

	advanceToDepositConfirmed(trade)

	trade.DepositBlockTime = now.Add(time.Hour).Unix()
	require.Equal(t, now, trade.TradeStartTime(now))

	trade.DepositBlockTime = trade.Date - 100
	require.Equal(t, time.Unix(trade.Date, 0), trade.TradeStartTime(now))

	trade.Date = now.Add(-time.Hour).Unix()
	trade.DepositBlockTime = now.Add(-time.Minute).Unix()
	require.Equal(t, time.Unix(trade.DepositBlockTime, 0), trade.TradeStartTime(now))
}

func TestTradeChatMessages(t *testing.T) {
	trade := newTestTrade(domain.Buyer, domain.Taker)
	msg := domain.NewChatMessage(
		domain.SupportTypeTrade, trade.Id, 1, true, "hello", "peer.onion:9999",
	)

	require.True(t, trade.AddChatMessage(msg))
	require.False(t, trade.AddChatMessage(msg))
	require.Len(t, trade.ChatMessages, 1)
}

func TestTradeMaybeClearSensitiveData(t *testing.T) {
	contract := newTestContract(newTestPubKeyRing(), newTestPubKeyRing())
	trade := newTestTrade(domain.Buyer, domain.Maker)
	_, err := trade.AcceptContract(contract, "makersig", "takersig")
	require.NoError(t, err)
	trade.AddChatMessage(domain.NewChatMessage(
		domain.SupportTypeTrade, trade.Id, 1, true, "hello", "peer.onion:9999",
	))

	change := trade.MaybeClearSensitiveData()
	require.Contains(t, change, "contract;")
	require.Contains(t, change, "contractAsJson;")
	require.Contains(t, change, "chat messages;")
	require.Nil(t, trade.Contract.MakerPaymentAccountPayload)
	require.NotContains(t, trade.ContractAsJson, "DE00000000000000000000")
	require.NotEmpty(t, trade.Contract.HashOfMakersPaymentAccountPayload)

	require.Empty(t, trade.MaybeClearSensitiveData())
}

func TestTradeAcceptContract(t *testing.T) {
	contract := newTestContract(newTestPubKeyRing(), newTestPubKeyRing())
	trade := newTestTrade(domain.Buyer, domain.Maker)

	ok, err := trade.AcceptContract(contract, "makersig", "takersig")
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEmpty(t, trade.ContractHash)
	require.Equal(t, "takerfeetxid", trade.TakerFeeTxId)

	ok, err = trade.AcceptContract(contract, "makersig", "takersig")
	require.NoError(t, err)
	require.True(t, ok)

	advanceToDepositConfirmed(trade)
	other := newTestContract(newTestPubKeyRing(), newTestPubKeyRing())
	ok, err = trade.AcceptContract(other, "makersig", "takersig")
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	require.False(t, ok)

	ok, err = trade.AcceptContract(nil, "", "")
	require.ErrorIs(t, err, domain.ErrTradeMissingContract)
	require.False(t, ok)
}

func TestTradeActionsFromInvalidStates(t *testing.T) {
	atFiatSent := func(direction domain.TradeDirection) func() *domain.Trade {
		return func() *domain.Trade {
			tr := newTestTrade(direction, domain.Taker)
			advanceToDepositConfirmed(tr)
			tr.SetState(domain.StateSellerReceivedFiatPaymentInitiatedMsg)
			return tr
		}
	}
	closedAtDepositConfirmed := func(direction domain.TradeDirection) func() *domain.Trade {
		return func() *domain.Trade {
			tr := newTestTrade(direction, domain.Taker)
			advanceToDepositConfirmed(tr)
			tr.CloseDisputed(domain.DisputeStateDisputeClosed)
			return tr
		}
	}

	tests := []struct {
		name  string
		trade func() *domain.Trade
		apply func(*domain.Trade) (bool, error)
		err   error
	}{
		{
			name:  "taker_fee_without_txid",
			trade: func() *domain.Trade { return newTestTrade(domain.Buyer, domain.Taker) },
			apply: func(tr *domain.Trade) (bool, error) { return tr.TakerFeePublished("") },
			err:   domain.ErrTradeMissingTxId,
		},
		{
			name:  "deposit_without_tx",
			trade: func() *domain.Trade { return newTestTrade(domain.Seller, domain.Taker) },
			apply: func(tr *domain.Trade) (bool, error) { return tr.DepositPublished("deposittxid", nil) },
			err:   domain.ErrTradeMissingTxId,
		},
		{
			name: "deposit_on_closed_trade",
			trade: func() *domain.Trade {
				tr := newTestTrade(domain.Seller, domain.Taker)
				tr.Close()
				return tr
			},
			apply: func(tr *domain.Trade) (bool, error) { return tr.DepositPublished("deposittxid", []byte{0x01}) },
			err:   domain.ErrTradeClosed,
		},
		{
			name: "payment_sent_message_before_deposit",
			trade: func() *domain.Trade {
				tr := newTestTrade(domain.Seller, domain.Taker)
				tr.TakerFeePublished("takerfeetxid")
				return tr
			},
			apply: func(tr *domain.Trade) (bool, error) { return tr.PaymentSentMessageReceived() },
			err:   domain.ErrDepositNotPublished,
		},
		{
			name:  "payment_sent_message_to_buyer",
			trade: atFiatSent(domain.Buyer),
			apply: func(tr *domain.Trade) (bool, error) { return tr.PaymentSentMessageReceived() },
			err:   domain.ErrTradeMustBeSeller,
		},
		{
			name:  "buyer_payment_sent_on_closed_trade",
			trade: closedAtDepositConfirmed(domain.Buyer),
			apply: func(tr *domain.Trade) (bool, error) { return tr.ConfirmPaymentSent() },
			err:   domain.ErrTradeClosed,
		},
		{
			name: "seller_payment_received_on_closed_trade",
			trade: func() *domain.Trade {
				tr := atFiatSent(domain.Seller)()
				tr.Close()
				return tr
			},
			apply: func(tr *domain.Trade) (bool, error) { return tr.ConfirmPaymentReceived() },
			err:   domain.ErrTradeClosed,
		},
		{
			name: "seller_payment_received_while_mediation_requested",
			trade: func() *domain.Trade {
				tr := atFiatSent(domain.Seller)()
				tr.DisputeState = domain.DisputeStateMediationRequested
				return tr
			},
			apply: func(tr *domain.Trade) (bool, error) { return tr.ConfirmPaymentReceived() },
			err:   domain.ErrConfirmNotPermitted,
		},
		{
			name: "payout_before_deposit_confirmed",
			trade: func() *domain.Trade {
				tr := newTestTrade(domain.Buyer, domain.Taker)
				tr.TakerFeePublished("takerfeetxid")
				tr.DepositPublished("deposittxid", []byte{0x01})
				return tr
			},
			apply: func(tr *domain.Trade) (bool, error) { return tr.PayoutPublished("payouttxid") },
			err:   domain.ErrDepositNotConfirmed,
		},
		{
			name: "payout_without_txid",
			trade: func() *domain.Trade {
				tr := newTestTrade(domain.Buyer, domain.Taker)
				advanceToDepositConfirmed(tr)
				return tr
			},
			apply: func(tr *domain.Trade) (bool, error) { return tr.PayoutPublished("") },
			err:   domain.ErrTradeMissingTxId,
		},
		{
			name:  "withdraw_at_fiat_sent",
			trade: atFiatSent(domain.Seller),
			apply: func(tr *domain.Trade) (bool, error) { return tr.Withdraw() },
			err:   domain.ErrPayoutNotPublished,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			trade := tt.trade()
			state := trade.State
			ok, err := tt.apply(trade)
			require.False(t, ok)
			require.ErrorIs(t, err, tt.err)
			require.Equal(t, state, trade.State)
		})
	}
}

func TestSellerConfirmGatedByDisputeState(t *testing.T) {
	tests := []struct {
		name         string
		disputeState domain.DisputeState
		sellerPayout btcutil.Amount
		err          error
	}{
		{"no_dispute", domain.DisputeStateNoDispute, 0, nil},
		{"mediation_requested", domain.DisputeStateMediationRequested, 0, domain.ErrConfirmNotPermitted},
		{"mediation_started_by_peer", domain.DisputeStateMediationStartedByPeer, 0, domain.ErrConfirmNotPermitted},
		{"mediation_closed_no_penalty", domain.DisputeStateMediationClosed, sellerDeposit, nil},
		{"mediation_closed_penalty", domain.DisputeStateMediationClosed, sellerDeposit - 1, domain.ErrConfirmNotPermitted},
		{"dispute_requested", domain.DisputeStateDisputeRequested, 0, domain.ErrConfirmNotPermitted},
		{"refund_requested", domain.DisputeStateRefundRequested, 0, domain.ErrConfirmNotPermitted},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			trade := newTestTrade(domain.Seller, domain.Maker)
			advanceToDepositConfirmed(trade)
			_, err := trade.PaymentSentMessageReceived()
			require.NoError(t, err)
			trade.DisputeState = tt.disputeState
			trade.SellerPayoutAmountFromMediation = tt.sellerPayout

			ok, err := trade.ConfirmPaymentReceived()
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				require.False(t, ok)
				require.Equal(t, domain.StateSellerReceivedFiatPaymentInitiatedMsg, trade.State)
				return
			}
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, domain.StateSellerConfirmedInUIFiatPaymentReceipt, trade.State)
		})
	}
}

func TestTradeDepositConfirmedTwice(t *testing.T) {
	trade := newTestTrade(domain.Buyer, domain.Taker)
	_, err := trade.TakerFeePublished("takerfeetxid")
	require.NoError(t, err)
	_, err = trade.DepositPublished("deposittxid", []byte{0x01})
	require.NoError(t, err)

	blockTime := time.Now().Add(-time.Hour).Unix()
	ok, err := trade.DepositConfirmed(blockTime)
	require.NoError(t, err)
	require.True(t, ok)

	// A later confirmation notification keeps the first block time.
	ok, err = trade.DepositConfirmed(blockTime + 600)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, blockTime, trade.DepositBlockTime)
	require.Equal(t, domain.StateDepositConfirmedInBlockChain, trade.State)

	// Once fiat is sent a late confirmation doesn't move the trade back.
	_, err = trade.ConfirmPaymentSent()
	require.NoError(t, err)
	ok, err = trade.DepositConfirmed(blockTime)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, domain.StateBuyerConfirmedInUIFiatPaymentInitiated, trade.State)
}

func TestTradeCloseDisputedOnce(t *testing.T) {
	trade := newTestTrade(domain.Seller, domain.Taker)
	advanceToDepositConfirmed(trade)
	trade.DisputeState = domain.DisputeStateDisputeRequested

	require.True(t, trade.CloseDisputed(domain.DisputeStateDisputeClosed))
	require.True(t, trade.IsClosed())
	closedAt := trade.ClosedAt
	require.Equal(t, domain.DisputeStateDisputeClosed, trade.DisputeState)

	require.False(t, trade.CloseDisputed(domain.DisputeStateRefundRequestClosed))
	require.Equal(t, domain.DisputeStateDisputeClosed, trade.DisputeState)
	require.Equal(t, closedAt, trade.ClosedAt)
	require.False(t, trade.Close())
}

func TestTradeWithUnknownDirection(t *testing.T) {
	_, err := domain.NewTrade(
		"id", domain.TradeRole{Direction: domain.TradeDirection(7)},
		newTestOffer(), tradeAmount, 1, 0, 0,
	)
	require.ErrorIs(t, err, domain.ErrUnknownEnumValue)

	// A role decoded from corrupted data must not panic.
	trade := newTestTrade(domain.Buyer, domain.Taker)
	trade.Role.Direction = domain.TradeDirection(7)
	require.Zero(t, trade.PayoutAmount())
	require.False(t, trade.ConfirmPermitted())
}
