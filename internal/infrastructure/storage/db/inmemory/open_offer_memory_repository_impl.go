package inmemory

import (
	"context"
	"sort"

	"github.com/tdex-network/tdex-escrow/internal/core/domain"
)

type openOfferRepositoryImpl struct {
	store store[domain.OpenOffer]
}

// NewOpenOfferRepositoryImpl returns a new inmemory OpenOfferRepository
// implementation.
func NewOpenOfferRepositoryImpl() domain.OpenOfferRepository {
	return &openOfferRepositoryImpl{newStore[domain.OpenOffer]()}
}

func (r *openOfferRepositoryImpl) AddOpenOffer(_ context.Context, offer *domain.OpenOffer) error {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	if _, ok := r.store.values[offer.Offer.Id]; ok {
		return domain.ErrOpenOfferAlreadyExists
	}
	return r.store.put(offer.Offer.Id, offer)
}

func (r *openOfferRepositoryImpl) GetOpenOffer(_ context.Context, offerId string) (*domain.OpenOffer, error) {
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	offer, ok := r.store.get(offerId)
	if !ok {
		return nil, domain.ErrOpenOfferNotFound
	}
	return offer, nil
}

func (r *openOfferRepositoryImpl) GetAllOpenOffers(_ context.Context) ([]*domain.OpenOffer, error) {
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	offers := r.store.all()
	sort.SliceStable(offers, func(i, j int) bool {
		return offers[i].Offer.Id < offers[j].Offer.Id
	})
	return offers, nil
}

func (r *openOfferRepositoryImpl) UpdateOpenOffer(
	_ context.Context,
	offerId string,
	updateFn func(o *domain.OpenOffer) (*domain.OpenOffer, error),
) error {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	currentOffer, ok := r.store.get(offerId)
	if !ok {
		return domain.ErrOpenOfferNotFound
	}

	updatedOffer, err := updateFn(currentOffer)
	if err != nil {
		return err
	}
	return r.store.put(offerId, updatedOffer)
}
