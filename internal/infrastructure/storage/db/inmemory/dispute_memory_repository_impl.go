package inmemory

import (
	"context"
	"sort"

	"github.com/tdex-network/tdex-escrow/internal/core/domain"
)

type disputeRepositoryImpl struct {
	store store[domain.Dispute]
}

// NewDisputeRepositoryImpl returns a new inmemory DisputeRepository
// implementation.
func NewDisputeRepositoryImpl() domain.DisputeRepository {
	return &disputeRepositoryImpl{newStore[domain.Dispute]()}
}

func (r *disputeRepositoryImpl) AddDispute(_ context.Context, dispute *domain.Dispute) error {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	if _, ok := r.store.values[dispute.Id]; ok {
		return domain.ErrDisputeAlreadyExists
	}
	return r.store.put(dispute.Id, dispute)
}

func (r *disputeRepositoryImpl) GetDispute(_ context.Context, disputeId string) (*domain.Dispute, error) {
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	dispute, ok := r.store.get(disputeId)
	if !ok {
		return nil, domain.ErrDisputeNotFound
	}
	return dispute, nil
}

func (r *disputeRepositoryImpl) GetDisputeByTradeId(
	ctx context.Context, tradeId string, traderId int,
) (*domain.Dispute, error) {
	return r.GetDispute(ctx, domain.DisputeId(tradeId, traderId))
}

func (r *disputeRepositoryImpl) GetDisputesByTradeId(
	_ context.Context, tradeId string,
) ([]*domain.Dispute, error) {
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	disputes := make([]*domain.Dispute, 0)
	for _, d := range r.store.all() {
		if d.TradeId == tradeId {
			disputes = append(disputes, d)
		}
	}
	return sortDisputes(disputes), nil
}

func (r *disputeRepositoryImpl) GetAllDisputes(_ context.Context) ([]*domain.Dispute, error) {
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	return sortDisputes(r.store.all()), nil
}

func (r *disputeRepositoryImpl) UpdateDispute(
	_ context.Context,
	disputeId string,
	updateFn func(d *domain.Dispute) (*domain.Dispute, error),
) error {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	currentDispute, ok := r.store.get(disputeId)
	if !ok {
		return domain.ErrDisputeNotFound
	}

	updatedDispute, err := updateFn(currentDispute)
	if err != nil {
		return err
	}
	return r.store.put(disputeId, updatedDispute)
}

func sortDisputes(disputes []*domain.Dispute) []*domain.Dispute {
	sort.SliceStable(disputes, func(i, j int) bool {
		if disputes[i].OpeningDate == disputes[j].OpeningDate {
			return disputes[i].Id < disputes[j].Id
		}
		return disputes[i].OpeningDate < disputes[j].OpeningDate
	})
	return disputes
}
