// Package offerbook keeps the open offers of the node.
package offerbook

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
)

type service struct {
	repo domain.OpenOfferRepository
}

func NewService(repo domain.OpenOfferRepository) (ports.OpenOfferManager, error) {
	if repo == nil {
		return nil, fmt.Errorf("missing open offer repository")
	}
	return &service{repo}, nil
}

func (s *service) AddOpenOffer(ctx context.Context, offer domain.Offer) error {
	if len(offer.Id) <= 0 {
		return ErrMissingOfferId
	}
	if offer.MaxTradePeriod <= 0 {
		return ErrInvalidTradePeriod
	}
	if err := s.repo.AddOpenOffer(ctx, &domain.OpenOffer{
		Offer: offer,
		State: domain.OpenOfferAvailable,
	}); err != nil {
		return err
	}
	log.Infof("added open offer %s", offer.Id)
	return nil
}

func (s *service) GetOpenOffer(
	ctx context.Context, offerId string,
) (*domain.OpenOffer, error) {
	return s.repo.GetOpenOffer(ctx, offerId)
}

func (s *service) ListOpenOffers(ctx context.Context) ([]*domain.OpenOffer, error) {
	return s.repo.GetAllOpenOffers(ctx)
}

func (s *service) CloseOpenOffer(ctx context.Context, offerId string) (bool, error) {
	closed := false
	if err := s.repo.UpdateOpenOffer(
		ctx, offerId, func(o *domain.OpenOffer) (*domain.OpenOffer, error) {
			closed = o.Close()
			return o, nil
		},
	); err != nil {
		return false, err
	}
	return closed, nil
}
