package inmemory

import (
	"context"
	"sort"

	"github.com/tdex-network/tdex-escrow/internal/core/domain"
)

type tradeRepositoryImpl struct {
	store store[domain.Trade]
}

// NewTradeRepositoryImpl returns a new inmemory TradeRepository implementation.
func NewTradeRepositoryImpl() domain.TradeRepository {
	return &tradeRepositoryImpl{newStore[domain.Trade]()}
}

func (r *tradeRepositoryImpl) AddTrade(_ context.Context, trade *domain.Trade) error {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	if _, ok := r.store.values[trade.Id]; ok {
		return domain.ErrTradeAlreadyExists
	}
	return r.store.put(trade.Id, trade)
}

func (r *tradeRepositoryImpl) GetTrade(_ context.Context, tradeId string) (*domain.Trade, error) {
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	trade, ok := r.store.get(tradeId)
	if !ok {
		return nil, domain.ErrTradeNotFound
	}
	return trade, nil
}

func (r *tradeRepositoryImpl) GetAllTrades(_ context.Context) ([]*domain.Trade, error) {
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	return sortTrades(r.store.all()), nil
}

func (r *tradeRepositoryImpl) GetOpenTrades(_ context.Context) ([]*domain.Trade, error) {
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	trades := make([]*domain.Trade, 0)
	for _, t := range r.store.all() {
		if !t.IsClosed() {
			trades = append(trades, t)
		}
	}
	return sortTrades(trades), nil
}

func (r *tradeRepositoryImpl) GetTradeByDepositTxId(
	_ context.Context, txId string,
) (*domain.Trade, error) {
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	for _, t := range r.store.all() {
		if t.DepositTxId == txId {
			return t, nil
		}
	}
	return nil, domain.ErrTradeNotFound
}

func (r *tradeRepositoryImpl) UpdateTrade(
	_ context.Context,
	tradeId string,
	updateFn func(t *domain.Trade) (*domain.Trade, error),
) error {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	currentTrade, ok := r.store.get(tradeId)
	if !ok {
		return domain.ErrTradeNotFound
	}

	updatedTrade, err := updateFn(currentTrade)
	if err != nil {
		return err
	}
	return r.store.put(tradeId, updatedTrade)
}

func sortTrades(trades []*domain.Trade) []*domain.Trade {
	sort.SliceStable(trades, func(i, j int) bool {
		if trades[i].Date == trades[j].Date {
			return trades[i].Id < trades[j].Id
		}
		return trades[i].Date < trades[j].Date
	})
	return trades
}
