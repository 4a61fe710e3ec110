package trade

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-escrow/internal/core/application/pubsub"
	"github.com/tdex-network/tdex-escrow/internal/core/application/tradelock"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
)

var defaultTradePeriodCheckInterval = time.Minute

// Service drives the trades of this node through their protocol states. It
// expects to run under the trade lock, except for the background watchers
// that acquire it by themselves.
type Service struct {
	wallet      ports.WalletService
	pubsub      *pubsub.Service
	repoManager ports.RepoManager
	locker      *tradelock.Locker

	tradePeriodCheckInterval time.Duration
	nowFn                    func() time.Time

	watchers sync.Map
	quit     chan struct{}
	wg       sync.WaitGroup
}

func NewService(
	walletSvc ports.WalletService,
	pubsubSvc *pubsub.Service,
	repoManager ports.RepoManager,
	locker *tradelock.Locker,
	tradePeriodCheckInterval time.Duration,
) (*Service, error) {
	if walletSvc == nil {
		return nil, fmt.Errorf("missing wallet service")
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
	if tradePeriodCheckInterval <= 0 {
		tradePeriodCheckInterval = defaultTradePeriodCheckInterval
	}

	return &Service{
		wallet:                   walletSvc,
		pubsub:                   pubsubSvc,
		repoManager:              repoManager,
		locker:                   locker,
		tradePeriodCheckInterval: tradePeriodCheckInterval,
		nowFn:                    time.Now,
		quit:                     make(chan struct{}),
	}, nil
}

// Start re-arms the deposit watchers of the persisted trades and starts the
// trade period ticker.
func (s *Service) Start(ctx context.Context) error {
	trades, err := s.repoManager.TradeRepository().GetOpenTrades(ctx)
	if err != nil {
		return err
	}

	count := 0
	for _, t := range trades {
		if t.IsDepositPublished() && !t.IsDepositConfirmed() {
			s.watchDeposit(t.Id, t.DepositTxId)
			count++
		}
	}
	if count > 0 {
		log.Infof("re-armed deposit watcher for %d trade(s)", count)
	}

	s.wg.Add(1)
	go s.checkTradePeriods()
	return nil
}

// Stop terminates the background watchers and waits for them to return.
func (s *Service) Stop() {
	close(s.quit)
	s.watchers.Range(func(key, value interface{}) bool {
		value.(context.CancelFunc)()
		return true
	})
	s.wg.Wait()
}

// AddTrade is the handoff from the offer negotiation: it stores a new trade
// in PREPARATION with all its parameters.
func (s *Service) AddTrade(ctx context.Context, params TradeParams) (*domain.Trade, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	trade, err := domain.NewTrade(
		params.Id, params.Role, params.Offer, params.Amount, params.Price,
		params.TxFee, params.TakerFee,
	)
	if err != nil {
		return nil, err
	}
	trade.PeerNodeAddress = params.PeerNodeAddress
	trade.ArbitratorNodeAddress = params.ArbitratorNodeAddress
	trade.ArbitratorPubKeyRing = params.ArbitratorPubKeyRing
	trade.ArbitratorBtcPubKey = params.ArbitratorBtcPubKey
	trade.MediatorNodeAddress = params.MediatorNodeAddress
	trade.MediatorPubKeyRing = params.MediatorPubKeyRing
	trade.RefundAgentNodeAddress = params.RefundAgentNodeAddress
	trade.RefundAgentPubKeyRing = params.RefundAgentPubKeyRing

	if params.Contract != nil {
		if _, err := trade.AcceptContract(
			params.Contract, params.MakerContractSignature,
			params.TakerContractSignature,
		); err != nil {
			return nil, err
		}
	}

	if err := s.repoManager.TradeRepository().AddTrade(ctx, trade); err != nil {
		return nil, err
	}
	log.Infof("added new trade %s as %s", trade.ShortId(), trade.Role)

	s.pubsub.Publish(domain.TradeStateChanged{
		Id:        trade.Id,
		OldState:  trade.State,
		NewState:  trade.State,
		Phase:     trade.Phase(),
		Timestamp: s.nowFn().Unix(),
	})
	return trade, nil
}

func (s *Service) GetTrade(ctx context.Context, tradeId string) (*domain.Trade, error) {
	return s.repoManager.TradeRepository().GetTrade(ctx, tradeId)
}

// ListTrades returns all trades, or only those not yet closed.
func (s *Service) ListTrades(ctx context.Context, openOnly bool) ([]*domain.Trade, error) {
	if openOnly {
		return s.repoManager.TradeRepository().GetOpenTrades(ctx)
	}
	return s.repoManager.TradeRepository().GetAllTrades(ctx)
}

// FundsLockedIn returns the total of the funds this node has locked in
// escrow along with the ids of the trades locking them. It reads a snapshot
// of the open trades without taking any trade lock.
func (s *Service) FundsLockedIn(ctx context.Context) (btcutil.Amount, []string, error) {
	trades, err := s.repoManager.TradeRepository().GetOpenTrades(ctx)
	if err != nil {
		return 0, nil, err
	}

	total := btcutil.Amount(0)
	tradeIds := make([]string, 0)
	for _, t := range trades {
		if !t.IsFundsLockedIn() {
			continue
		}
		total += lockedAmount(t)
		tradeIds = append(tradeIds, t.Id)
	}
	return total, tradeIds, nil
}

// updateTrade applies fn to the stored trade and publishes the events
// matching the changes. An error returned by fn leaves the stored trade
// untouched and is returned as is.
func (s *Service) updateTrade(
	ctx context.Context, tradeId string, fn func(t *domain.Trade) (bool, error),
) (*domain.Trade, error) {
	var before domain.Trade
	var after *domain.Trade
	changed := false

	if err := s.repoManager.TradeRepository().UpdateTrade(
		ctx, tradeId, func(t *domain.Trade) (*domain.Trade, error) {
			before = *t
			ok, err := fn(t)
			if err != nil {
				return nil, err
			}
			changed = ok
			after = t
			return t, nil
		},
	); err != nil {
		return nil, err
	}

	if changed {
		s.publishChanges(&before, after)
	}
	return after, nil
}

// failTrade records the error of a failed operation on the trade so that it
// can be queried, and emits it as a fault event.
func (s *Service) failTrade(
	ctx context.Context, tradeId, operation string, opErr error,
) {
	log.WithError(opErr).Warnf("%s failed for trade %s", operation, tradeId)
	if err := s.repoManager.TradeRepository().UpdateTrade(
		ctx, tradeId, func(t *domain.Trade) (*domain.Trade, error) {
			t.Fail(opErr)
			return t, nil
		},
	); err != nil {
		log.WithError(err).Warnf("failed to record error on trade %s", tradeId)
	}
	s.publishFault(tradeId, operation, opErr.Error())
}

func (s *Service) publishChanges(before, after *domain.Trade) {
	now := s.nowFn().Unix()
	if before.State != after.State {
		s.pubsub.Publish(domain.TradeStateChanged{
			Id:        after.Id,
			OldState:  before.State,
			NewState:  after.State,
			Phase:     after.Phase(),
			Timestamp: now,
		})
	}
	if before.DisputeState != after.DisputeState {
		s.pubsub.Publish(domain.DisputeStateChanged{
			Id:           after.Id,
			DisputeState: after.DisputeState,
			Timestamp:    now,
		})
	}
	if before.TradePeriodState != after.TradePeriodState {
		s.pubsub.Publish(domain.TradePeriodStateChanged{
			Id:          after.Id,
			PeriodState: after.TradePeriodState,
			Timestamp:   now,
		})
	}
	if before.PayoutTxId != after.PayoutTxId && len(after.PayoutTxId) > 0 {
		s.pubsub.Publish(domain.PayoutPublished{
			Id:        after.Id,
			TxId:      after.PayoutTxId,
			Disputed:  !after.DisputeState.IsNotDisputed(),
			Timestamp: now,
		})
	}
}

func (s *Service) publishFault(tradeId, operation, message string) {
	s.pubsub.Publish(domain.FaultEvent{
		Id:        tradeId,
		Operation: operation,
		Message:   message,
		Timestamp: s.nowFn().Unix(),
	})
}
