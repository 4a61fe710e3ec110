package dbbadger

import (
	"context"
	"sort"

	"github.com/dgraph-io/badger/v3"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

type disputeRepositoryImpl struct {
	store *badgerhold.Store
}

func NewDisputeRepositoryImpl(store *badgerhold.Store) domain.DisputeRepository {
	return &disputeRepositoryImpl{store}
}

func (r *disputeRepositoryImpl) AddDispute(
	_ context.Context, dispute *domain.Dispute,
) error {
	if err := r.store.Insert(dispute.Id, *dispute); err != nil {
		if err == badgerhold.ErrKeyExists {
			return domain.ErrDisputeAlreadyExists
		}
		return err
	}
	return nil
}

func (r *disputeRepositoryImpl) GetDispute(
	_ context.Context, disputeId string,
) (*domain.Dispute, error) {
	var dispute domain.Dispute
	if err := r.store.Get(disputeId, &dispute); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, domain.ErrDisputeNotFound
		}
		return nil, err
	}
	return &dispute, nil
}

func (r *disputeRepositoryImpl) GetDisputeByTradeId(
	ctx context.Context, tradeId string, traderId int,
) (*domain.Dispute, error) {
	return r.GetDispute(ctx, domain.DisputeId(tradeId, traderId))
}

func (r *disputeRepositoryImpl) GetDisputesByTradeId(
	_ context.Context, tradeId string,
) ([]*domain.Dispute, error) {
	query := badgerhold.Where("TradeId").Eq(tradeId)
	return r.findDisputes(query)
}

func (r *disputeRepositoryImpl) GetAllDisputes(
	_ context.Context,
) ([]*domain.Dispute, error) {
	return r.findDisputes(nil)
}

func (r *disputeRepositoryImpl) UpdateDispute(
	_ context.Context,
	disputeId string,
	updateFn func(d *domain.Dispute) (*domain.Dispute, error),
) error {
	return r.store.Badger().Update(func(tx *badger.Txn) error {
		var dispute domain.Dispute
		if err := r.store.TxGet(tx, disputeId, &dispute); err != nil {
			if err == badgerhold.ErrNotFound {
				return domain.ErrDisputeNotFound
			}
			return err
		}

		updatedDispute, err := updateFn(&dispute)
		if err != nil {
			return err
		}
		return r.store.TxUpdate(tx, disputeId, *updatedDispute)
	})
}

func (r *disputeRepositoryImpl) findDisputes(
	query *badgerhold.Query,
) ([]*domain.Dispute, error) {
	var list []domain.Dispute
	if err := r.store.Find(&list, query); err != nil {
		return nil, err
	}

	disputes := make([]*domain.Dispute, 0, len(list))
	for i := range list {
		disputes = append(disputes, &list[i])
	}
	sort.SliceStable(disputes, func(i, j int) bool {
		if disputes[i].OpeningDate == disputes[j].OpeningDate {
			return disputes[i].Id < disputes[j].Id
		}
		return disputes[i].OpeningDate < disputes[j].OpeningDate
	})
	return disputes, nil
}
