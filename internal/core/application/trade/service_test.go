package trade

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tdex-network/tdex-escrow/internal/core/application/pubsub"
	"github.com/tdex-network/tdex-escrow/internal/core/application/tradelock"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
	"github.com/tdex-network/tdex-escrow/internal/infrastructure/storage/db/inmemory"
	"github.com/tdex-network/tdex-escrow/pkg/escrowtx"
)

var (
	ctx = context.Background()

	buyerAsTaker  = domain.TradeRole{Direction: domain.Buyer, Initiator: domain.Taker}
	sellerAsMaker = domain.TradeRole{Direction: domain.Seller, Initiator: domain.Maker}
)

type testService struct {
	*Service
	wallet      *mockWallet
	repoManager ports.RepoManager
	events      *eventRecorder
}

func newTestService(t *testing.T) *testService {
	wallet := &mockWallet{}
	repoManager := inmemory.NewRepoManager()
	notifier := pubsub.NewService(nil)
	events := &eventRecorder{}
	notifier.Subscribe(events.record)

	svc, err := NewService(
		wallet, notifier, repoManager, tradelock.New(), time.Minute,
	)
	require.NoError(t, err)
	t.Cleanup(svc.Stop)

	return &testService{svc, wallet, repoManager, events}
}

func newTradeParams(role domain.TradeRole) TradeParams {
	return TradeParams{
		Id:   uuid.New().String(),
		Role: role,
		Offer: domain.Offer{
			Id:                    uuid.New().String(),
			Direction:             domain.DirectionBuy,
			PaymentMethodId:       domain.PaymentMethodSepa,
			CurrencyCode:          "EUR",
			BuyerSecurityDeposit:  150000,
			SellerSecurityDeposit: 150000,
			MaxTradePeriod:        8 * 24 * time.Hour,
			OfferFeePaymentTxId:   "offerfee",
		},
		Amount:                1000000,
		Price:                 250000000,
		TxFee:                 2000,
		TakerFee:              7000,
		PeerNodeAddress:       "peer.onion:9999",
		ArbitratorNodeAddress: "arbitrator.onion:9999",
	}
}

func newDepositTx(t *testing.T) (string, []byte) {
	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{0x01}, 0), nil, nil))
	tx.AddTxOut(wire.NewTxOut(1300000, []byte{0x00, 0x20}))
	raw, err := escrowtx.SerializeTx(tx)
	require.NoError(t, err)
	return tx.TxHash().String(), raw
}

// expectDepositWatcher makes the wallet return a confidence channel for the
// deposit and returns the sending side.
func (s *testService) expectDepositWatcher(txid string) chan ports.TxConfidence {
	ch := make(chan ports.TxConfidence, 1)
	s.wallet.On("OnConfidenceChanged", mock.Anything, txid, 1).
		Return((<-chan ports.TxConfidence)(ch), nil).Once()
	return ch
}

func (s *testService) waitForState(t *testing.T, tradeId string, state domain.State) {
	require.Eventually(t, func() bool {
		trade, err := s.GetTrade(ctx, tradeId)
		return err == nil && trade.State == state
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNewService(t *testing.T) {
	wallet := &mockWallet{}
	notifier := pubsub.NewService(nil)
	repoManager := inmemory.NewRepoManager()
	locker := tradelock.New()

	tests := []struct {
		name        string
		wallet      ports.WalletService
		notifier    *pubsub.Service
		repoManager ports.RepoManager
		locker      *tradelock.Locker
		err         string
	}{
		{"missing_wallet", nil, notifier, repoManager, locker, "missing wallet service"},
		{"missing_pubsub", wallet, nil, repoManager, locker, "missing pubsub service"},
		{"missing_repo_manager", wallet, notifier, nil, locker, "missing repo manager"},
		{"missing_locker", wallet, notifier, repoManager, nil, "missing trade locker"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc, err := NewService(tt.wallet, tt.notifier, tt.repoManager, tt.locker, 0)
			require.EqualError(t, err, tt.err)
			require.Nil(t, svc)
		})
	}

	svc, err := NewService(wallet, notifier, repoManager, locker, 0)
	require.NoError(t, err)
	require.Equal(t, defaultTradePeriodCheckInterval, svc.tradePeriodCheckInterval)
}

func TestAddTrade(t *testing.T) {
	svc := newTestService(t)

	params := newTradeParams(buyerAsTaker)
	trade, err := svc.AddTrade(ctx, params)
	require.NoError(t, err)
	require.Equal(t, domain.StatePreparation, trade.State)
	require.Equal(t, params.ArbitratorNodeAddress, trade.ArbitratorNodeAddress)

	_, err = svc.AddTrade(ctx, params)
	require.ErrorIs(t, err, domain.ErrTradeAlreadyExists)

	invalidParams := newTradeParams(buyerAsTaker)
	invalidParams.PeerNodeAddress = ""
	_, err = svc.AddTrade(ctx, invalidParams)
	require.Error(t, err)

	invalidParams = newTradeParams(buyerAsTaker)
	invalidParams.Amount = 0
	_, err = svc.AddTrade(ctx, invalidParams)
	require.ErrorIs(t, err, domain.ErrInvalidTradeAmount)

	trades, err := svc.ListTrades(ctx, true)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	require.Len(t, svc.events.byTopic(domain.TopicTradeState), 1)
}

func TestBuyerHappyPath(t *testing.T) {
	svc := newTestService(t)
	trade, err := svc.AddTrade(ctx, newTradeParams(buyerAsTaker))
	require.NoError(t, err)

	_, err = svc.OnTakerFeePublished(ctx, trade.Id, "takerfee")
	require.NoError(t, err)

	txid, rawTx := newDepositTx(t)
	confidence := svc.expectDepositWatcher(txid)

	trade, err = svc.OnDepositPublished(ctx, trade.Id, DepositInfo{txid, rawTx})
	require.NoError(t, err)
	require.Equal(t, domain.StateBuyerSawDepositTxInNetwork, trade.State)

	// Redelivery must not arm a second watcher.
	_, err = svc.OnDepositPublished(ctx, trade.Id, DepositInfo{txid, rawTx})
	require.NoError(t, err)

	_, err = svc.ConfirmPaymentSent(ctx, trade.Id)
	require.ErrorIs(t, err, domain.ErrDepositNotConfirmed)

	blockTime := time.Now().Add(-time.Minute).Unix()
	confidence <- ports.TxConfidence{
		TxId: txid, Depth: 1, BlockHeight: 100, BlockTime: blockTime,
	}
	svc.waitForState(t, trade.Id, domain.StateDepositConfirmedInBlockChain)

	trade, err = svc.ConfirmPaymentSent(ctx, trade.Id)
	require.NoError(t, err)
	require.True(t, trade.IsFiatSent())
	require.Equal(t, blockTime, trade.DepositBlockTime)

	trade, err = svc.OnPayoutPublished(ctx, trade.Id, "payout")
	require.NoError(t, err)
	require.Equal(t, domain.StateBuyerSawPayoutTxInNetwork, trade.State)
	require.False(t, trade.IsCompleted())

	trade, err = svc.Withdraw(ctx, trade.Id)
	require.NoError(t, err)
	require.Equal(t, domain.StateWithdrawCompleted, trade.State)
	require.True(t, trade.IsCompleted())
	require.True(t, trade.IsClosed())

	trades, err := svc.ListTrades(ctx, true)
	require.NoError(t, err)
	require.Empty(t, trades)

	// Phases observed through events never go backward.
	events := svc.events.byTopic(domain.TopicTradeState)
	require.NotEmpty(t, events)
	lastPhase := domain.PhaseInit
	for _, e := range events {
		phase := e.(domain.TradeStateChanged).Phase
		require.GreaterOrEqual(t, phase, lastPhase)
		lastPhase = phase
	}
	require.Len(t, svc.events.byTopic(domain.TopicPayoutPublished), 1)
	svc.wallet.AssertNumberOfCalls(t, "OnConfidenceChanged", 1)
}

func TestSellerPublishDeposit(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		svc := newTestService(t)
		trade, err := svc.AddTrade(ctx, newTradeParams(sellerAsMaker))
		require.NoError(t, err)

		txid, rawTx := newDepositTx(t)
		svc.wallet.On("BroadcastTx", mock.Anything, mock.Anything).Return(txid, nil)
		confidence := svc.expectDepositWatcher(txid)

		trade, err = svc.PublishDepositTx(ctx, trade.Id, rawTx)
		require.NoError(t, err)
		require.Equal(t, domain.StateSellerPublishedDepositTx, trade.State)

		confidence <- ports.TxConfidence{TxId: txid, Depth: 1}
		svc.waitForState(t, trade.Id, domain.StateDepositConfirmedInBlockChain)

		trade, err = svc.OnPaymentSentMessage(ctx, trade.Id)
		require.NoError(t, err)
		require.Equal(t, domain.StateSellerReceivedFiatPaymentInitiatedMsg, trade.State)

		trade, err = svc.ConfirmPaymentReceived(ctx, trade.Id)
		require.NoError(t, err)
		require.True(t, trade.IsFiatReceived())
	})

	t.Run("invalid", func(t *testing.T) {
		svc := newTestService(t)
		buyerTrade, err := svc.AddTrade(ctx, newTradeParams(buyerAsTaker))
		require.NoError(t, err)
		sellerTrade, err := svc.AddTrade(ctx, newTradeParams(sellerAsMaker))
		require.NoError(t, err)

		_, rawTx := newDepositTx(t)
		_, err = svc.PublishDepositTx(ctx, buyerTrade.Id, rawTx)
		require.ErrorIs(t, err, domain.ErrTradeMustBeSeller)

		_, err = svc.PublishDepositTx(ctx, sellerTrade.Id, []byte{0x01})
		require.Error(t, err)

		broadcastErr := errors.New("bad-txns-inputs-missingorspent")
		svc.wallet.On("BroadcastTx", mock.Anything, mock.Anything).
			Return("", broadcastErr)
		_, err = svc.PublishDepositTx(ctx, sellerTrade.Id, rawTx)
		require.ErrorIs(t, err, broadcastErr)

		trade, err := svc.GetTrade(ctx, sellerTrade.Id)
		require.NoError(t, err)
		require.Equal(t, domain.StatePreparation, trade.State)
		require.Equal(t, broadcastErr.Error(), trade.ErrorMessage)
		require.Len(t, svc.events.byTopic(domain.TopicFault), 1)
	})
}

func TestConfirmPaymentReceivedPermission(t *testing.T) {
	tests := []struct {
		name         string
		disputeState domain.DisputeState
		sellerPayout int64
		err          error
	}{
		{"no_dispute", domain.DisputeStateNoDispute, 0, nil},
		{"dispute_requested", domain.DisputeStateDisputeRequested, 0, domain.ErrConfirmNotPermitted},
		{"mediation_requested", domain.DisputeStateMediationRequested, 0, domain.ErrConfirmNotPermitted},
		{"refund_requested", domain.DisputeStateRefundRequested, 0, domain.ErrConfirmNotPermitted},
		{"mediation_closed_no_penalty", domain.DisputeStateMediationClosed, 150000, nil},
		{"mediation_closed_with_penalty", domain.DisputeStateMediationClosed, 100000, domain.ErrConfirmNotPermitted},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t)
			trade, err := svc.AddTrade(ctx, newTradeParams(sellerAsMaker))
			require.NoError(t, err)

			err = svc.repoManager.TradeRepository().UpdateTrade(
				ctx, trade.Id, func(t *domain.Trade) (*domain.Trade, error) {
					t.SetState(domain.StateSellerReceivedFiatPaymentInitiatedMsg)
					return t, nil
				},
			)
			require.NoError(t, err)

			if tt.disputeState == domain.DisputeStateMediationClosed {
				_, err = svc.ApplyMediationResult(
					ctx, trade.Id, 1150000, btcutil.Amount(tt.sellerPayout),
				)
			} else if tt.disputeState != domain.DisputeStateNoDispute {
				_, err = svc.SetDisputeState(ctx, trade.Id, tt.disputeState)
			}
			require.NoError(t, err)

			tradeId := trade.Id
			trade, err = svc.ConfirmPaymentReceived(ctx, tradeId)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				stored, err := svc.GetTrade(ctx, tradeId)
				require.NoError(t, err)
				require.Equal(t, domain.StateSellerReceivedFiatPaymentInitiatedMsg, stored.State)
				return
			}
			require.NoError(t, err)
			require.Equal(t, domain.StateSellerConfirmedInUIFiatPaymentReceipt, trade.State)
		})
	}
}

func TestSetState(t *testing.T) {
	svc := newTestService(t)
	trade, err := svc.AddTrade(ctx, newTradeParams(buyerAsTaker))
	require.NoError(t, err)

	trade, err = svc.SetState(ctx, trade.Id, domain.StateBuyerConfirmedInUIFiatPaymentInitiated)
	require.NoError(t, err)
	require.Equal(t, domain.PhaseFiatSent, trade.Phase())

	applied, err := svc.SetStateIfValidTransitionTo(ctx, trade.Id, domain.StateDepositConfirmedInBlockChain)
	require.NoError(t, err)
	require.False(t, applied)

	applied, err = svc.SetStateIfValidTransitionTo(ctx, trade.Id, domain.StateBuyerSentFiatPaymentInitiatedMsg)
	require.NoError(t, err)
	require.True(t, applied)

	// The permissive path still regresses the phase.
	trade, err = svc.SetState(ctx, trade.Id, domain.StateDepositConfirmedInBlockChain)
	require.NoError(t, err)
	require.Equal(t, domain.PhaseDepositConfirmed, trade.Phase())

	_, err = svc.SetState(ctx, trade.Id, domain.State(-1))
	require.ErrorIs(t, err, domain.ErrUnknownEnumValue)

	_, err = svc.SetState(ctx, uuid.New().String(), domain.StatePreparation)
	require.ErrorIs(t, err, domain.ErrTradeNotFound)
}

func TestCloseDisputedTrade(t *testing.T) {
	svc := newTestService(t)
	trade, err := svc.AddTrade(ctx, newTradeParams(buyerAsTaker))
	require.NoError(t, err)

	_, err = svc.SetDisputeState(ctx, trade.Id, domain.DisputeStateDisputeRequested)
	require.NoError(t, err)

	closed, err := svc.CloseDisputedTrade(ctx, trade.Id, domain.DisputeStateDisputeClosed)
	require.NoError(t, err)
	require.True(t, closed)

	closed, err = svc.CloseDisputedTrade(ctx, trade.Id, domain.DisputeStateDisputeClosed)
	require.NoError(t, err)
	require.False(t, closed)

	_, err = svc.SetDisputeState(ctx, trade.Id, domain.DisputeStateMediationRequested)
	require.ErrorIs(t, err, domain.ErrTradeClosed)

	trade, err = svc.GetTrade(ctx, trade.Id)
	require.NoError(t, err)
	require.Equal(t, domain.DisputeStateDisputeClosed, trade.DisputeState)
	require.Len(t, svc.events.byTopic(domain.TopicDisputeState), 2)
}

func TestFundsLockedIn(t *testing.T) {
	svc := newTestService(t)

	confirm := func(role domain.TradeRole) *domain.Trade {
		trade, err := svc.AddTrade(ctx, newTradeParams(role))
		require.NoError(t, err)
		_, err = svc.SetState(ctx, trade.Id, domain.StateDepositConfirmedInBlockChain)
		require.NoError(t, err)
		return trade
	}

	buyerTrade := confirm(buyerAsTaker)
	sellerTrade := confirm(sellerAsMaker)
	refundTrade := confirm(buyerAsTaker)
	_, err := svc.SetDisputeState(ctx, refundTrade.Id, domain.DisputeStateRefundRequested)
	require.NoError(t, err)
	_, err = svc.AddTrade(ctx, newTradeParams(buyerAsTaker))
	require.NoError(t, err)

	amount, tradeIds, err := svc.FundsLockedIn(ctx)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{buyerTrade.Id, sellerTrade.Id}, tradeIds)
	require.Equal(t, btcutil.Amount(150000+150000+1000000), amount)
}

func TestStartRearmsWatchers(t *testing.T) {
	svc := newTestService(t)
	trade, err := svc.AddTrade(ctx, newTradeParams(buyerAsTaker))
	require.NoError(t, err)

	txid, rawTx := newDepositTx(t)
	err = svc.repoManager.TradeRepository().UpdateTrade(
		ctx, trade.Id, func(t *domain.Trade) (*domain.Trade, error) {
			_, err := t.DepositPublished(txid, rawTx)
			return t, err
		},
	)
	require.NoError(t, err)

	confidence := svc.expectDepositWatcher(txid)
	require.NoError(t, svc.Start(ctx))

	confidence <- ports.TxConfidence{TxId: txid, Depth: 3}
	svc.waitForState(t, trade.Id, domain.StateDepositConfirmedInBlockChain)
}

func TestWatcherFailure(t *testing.T) {
	svc := newTestService(t)
	trade, err := svc.AddTrade(ctx, newTradeParams(buyerAsTaker))
	require.NoError(t, err)

	txid, rawTx := newDepositTx(t)
	svc.wallet.On("OnConfidenceChanged", mock.Anything, txid, 1).
		Return(nil, errors.New("explorer unreachable"))

	trade, err = svc.OnDepositPublished(ctx, trade.Id, DepositInfo{txid, rawTx})
	require.NoError(t, err)
	require.True(t, trade.IsDepositPublished())

	trade, err = svc.GetTrade(ctx, trade.Id)
	require.NoError(t, err)
	require.Equal(t, "explorer unreachable", trade.ErrorMessage)
	require.Len(t, svc.events.byTopic(domain.TopicFault), 1)
}

func TestUpdateTradePeriods(t *testing.T) {
	svc := newTestService(t)
	trade, err := svc.AddTrade(ctx, newTradeParams(buyerAsTaker))
	require.NoError(t, err)

	blockTime := time.Now().Add(-time.Hour)
	err = svc.repoManager.TradeRepository().UpdateTrade(
		ctx, trade.Id, func(t *domain.Trade) (*domain.Trade, error) {
			if _, err := t.DepositPublished("deposit", []byte{0x01}); err != nil {
				return nil, err
			}
			_, err := t.DepositConfirmed(blockTime.Unix())
			return t, err
		},
	)
	require.NoError(t, err)

	tests := []struct {
		now   time.Time
		state domain.TradePeriodState
	}{
		{blockTime.Add(time.Hour), domain.TradePeriodFirstHalf},
		{blockTime.Add(5 * 24 * time.Hour), domain.TradePeriodSecondHalf},
		{blockTime.Add(9 * 24 * time.Hour), domain.TradePeriodOver},
		// The period state never goes back.
		{blockTime.Add(time.Hour), domain.TradePeriodOver},
	}

	for _, tt := range tests {
		now := tt.now
		svc.nowFn = func() time.Time { return now }
		svc.updateTradePeriods(ctx)

		trade, err := svc.GetTrade(ctx, trade.Id)
		require.NoError(t, err)
		require.Equal(t, tt.state, trade.TradePeriodState)
	}
	require.Len(t, svc.events.byTopic(domain.TopicTradePeriod), 2)
}
