package dbbadger

import (
	"context"
	"sort"

	"github.com/dgraph-io/badger/v3"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

type tradeRepositoryImpl struct {
	store *badgerhold.Store
}

func NewTradeRepositoryImpl(store *badgerhold.Store) domain.TradeRepository {
	return &tradeRepositoryImpl{store}
}

func (r *tradeRepositoryImpl) AddTrade(
	_ context.Context, trade *domain.Trade,
) error {
	if err := r.store.Insert(trade.Id, *trade); err != nil {
		if err == badgerhold.ErrKeyExists {
			return domain.ErrTradeAlreadyExists
		}
		return err
	}
	return nil
}

func (r *tradeRepositoryImpl) GetTrade(
	_ context.Context, tradeId string,
) (*domain.Trade, error) {
	var trade domain.Trade
	if err := r.store.Get(tradeId, &trade); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, domain.ErrTradeNotFound
		}
		return nil, err
	}
	return &trade, nil
}

func (r *tradeRepositoryImpl) GetAllTrades(
	_ context.Context,
) ([]*domain.Trade, error) {
	return r.findTrades(nil)
}

func (r *tradeRepositoryImpl) GetOpenTrades(
	_ context.Context,
) ([]*domain.Trade, error) {
	query := badgerhold.Where("ClosedAt").Eq(int64(0))
	return r.findTrades(query)
}

func (r *tradeRepositoryImpl) GetTradeByDepositTxId(
	_ context.Context, txId string,
) (*domain.Trade, error) {
	query := badgerhold.Where("DepositTxId").Eq(txId)
	trades, err := r.findTrades(query)
	if err != nil {
		return nil, err
	}
	if len(trades) <= 0 {
		return nil, domain.ErrTradeNotFound
	}
	return trades[0], nil
}

func (r *tradeRepositoryImpl) UpdateTrade(
	_ context.Context,
	tradeId string,
	updateFn func(t *domain.Trade) (*domain.Trade, error),
) error {
	return r.store.Badger().Update(func(tx *badger.Txn) error {
		var trade domain.Trade
		if err := r.store.TxGet(tx, tradeId, &trade); err != nil {
			if err == badgerhold.ErrNotFound {
				return domain.ErrTradeNotFound
			}
			return err
		}

		updatedTrade, err := updateFn(&trade)
		if err != nil {
			return err
		}
		return r.store.TxUpdate(tx, tradeId, *updatedTrade)
	})
}

func (r *tradeRepositoryImpl) findTrades(
	query *badgerhold.Query,
) ([]*domain.Trade, error) {
	var list []domain.Trade
	if err := r.store.Find(&list, query); err != nil {
		return nil, err
	}

	trades := make([]*domain.Trade, 0, len(list))
	for i := range list {
		trades = append(trades, &list[i])
	}
	sort.SliceStable(trades, func(i, j int) bool {
		if trades[i].Date == trades[j].Date {
			return trades[i].Id < trades[j].Id
		}
		return trades[i].Date < trades[j].Date
	})
	return trades, nil
}
