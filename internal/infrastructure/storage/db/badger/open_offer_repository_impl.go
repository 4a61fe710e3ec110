package dbbadger

import (
	"context"
	"sort"

	"github.com/dgraph-io/badger/v3"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

type openOfferRepositoryImpl struct {
	store *badgerhold.Store
}

func NewOpenOfferRepositoryImpl(store *badgerhold.Store) domain.OpenOfferRepository {
	return &openOfferRepositoryImpl{store}
}

func (r *openOfferRepositoryImpl) AddOpenOffer(
	_ context.Context, offer *domain.OpenOffer,
) error {
	if err := r.store.Insert(offer.Offer.Id, *offer); err != nil {
		if err == badgerhold.ErrKeyExists {
			return domain.ErrOpenOfferAlreadyExists
		}
		return err
	}
	return nil
}

func (r *openOfferRepositoryImpl) GetOpenOffer(
	_ context.Context, offerId string,
) (*domain.OpenOffer, error) {
	var offer domain.OpenOffer
	if err := r.store.Get(offerId, &offer); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, domain.ErrOpenOfferNotFound
		}
		return nil, err
	}
	return &offer, nil
}

func (r *openOfferRepositoryImpl) GetAllOpenOffers(
	_ context.Context,
) ([]*domain.OpenOffer, error) {
	var list []domain.OpenOffer
	if err := r.store.Find(&list, nil); err != nil {
		return nil, err
	}

	offers := make([]*domain.OpenOffer, 0, len(list))
	for i := range list {
		offers = append(offers, &list[i])
	}
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
	return r.store.Badger().Update(func(tx *badger.Txn) error {
		var offer domain.OpenOffer
		if err := r.store.TxGet(tx, offerId, &offer); err != nil {
			if err == badgerhold.ErrNotFound {
				return domain.ErrOpenOfferNotFound
			}
			return err
		}

		updatedOffer, err := updateFn(&offer)
		if err != nil {
			return err
		}
		return r.store.TxUpdate(tx, offerId, *updatedOffer)
	})
}
