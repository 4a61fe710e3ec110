package trade

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
)

const depositConfirmationDepth = 1

// watchDeposit registers a one-shot confidence watcher for the deposit of
// the trade. The callback acquires the trade lock before mutating the trade.
func (s *Service) watchDeposit(tradeId, txid string) {
	ctx, cancel := context.WithCancel(context.Background())
	if _, loaded := s.watchers.LoadOrStore(tradeId, context.CancelFunc(cancel)); loaded {
		cancel()
		return
	}

	confidence, err := s.wallet.OnConfidenceChanged(ctx, txid, depositConfirmationDepth)
	if err != nil {
		s.watchers.Delete(tradeId)
		cancel()
		s.failTrade(context.Background(), tradeId, "watch deposit", err)
		return
	}
	log.Debugf("watching deposit tx %s of trade %s", txid, tradeId)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.watchers.Delete(tradeId)
		defer cancel()

		select {
		case <-s.quit:
			return
		case c, ok := <-confidence:
			if !ok {
				return
			}
			s.locker.Run(tradeId, func() {
				s.onDepositConfirmed(context.Background(), tradeId, c)
			})
		}
	}()
}

func (s *Service) onDepositConfirmed(
	ctx context.Context, tradeId string, confidence ports.TxConfidence,
) {
	blockTime := confidence.BlockTime
	if blockTime <= 0 {
		blockTime = s.nowFn().Unix()
	}

	if _, err := s.updateTrade(
		ctx, tradeId, func(t *domain.Trade) (bool, error) {
			if t.IsDepositConfirmed() {
				return false, nil
			}
			if t.DepositTxId != confidence.TxId {
				log.Warnf(
					"confirmed tx %s is not the deposit of trade %s",
					confidence.TxId, t.ShortId(),
				)
				return false, nil
			}
			if _, err := t.DepositConfirmed(blockTime); err != nil {
				return false, err
			}
			t.UpdateTradePeriodState(s.nowFn())
			return true, nil
		},
	); err != nil {
		s.failTrade(ctx, tradeId, "confirm deposit", err)
		return
	}
	log.Infof(
		"deposit tx %s of trade %s confirmed in block %d",
		confidence.TxId, tradeId, confidence.BlockHeight,
	)
}

func (s *Service) checkTradePeriods() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tradePeriodCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.quit:
			return
		case <-ticker.C:
			s.updateTradePeriods(context.Background())
		}
	}
}

// updateTradePeriods moves forward the trade period state of every trade
// whose deposit is confirmed and whose payout is not yet published.
func (s *Service) updateTradePeriods(ctx context.Context) {
	trades, err := s.repoManager.TradeRepository().GetOpenTrades(ctx)
	if err != nil {
		log.WithError(err).Warn("failed to fetch open trades")
		return
	}

	for _, t := range trades {
		if !t.IsDepositConfirmed() || t.IsPayoutPublished() {
			continue
		}
		tradeId := t.Id
		s.locker.Run(tradeId, func() {
			trade, err := s.updateTrade(
				ctx, tradeId, func(t *domain.Trade) (bool, error) {
					return t.UpdateTradePeriodState(s.nowFn()), nil
				},
			)
			if err != nil {
				log.WithError(err).Warnf(
					"failed to update trade period of trade %s", tradeId,
				)
				return
			}
			if trade.TradePeriodState == domain.TradePeriodOver {
				log.Debugf("trade period of trade %s is over", trade.ShortId())
			}
		})
	}
}
