package ports

import (
	"context"

	"github.com/tdex-network/tdex-escrow/internal/core/domain"
)

// OpenOfferManager is the offer book of the node. Disputes fall back to
// closing the open offer when no trade exists for it.
type OpenOfferManager interface {
	AddOpenOffer(ctx context.Context, offer domain.Offer) error
	GetOpenOffer(ctx context.Context, offerId string) (*domain.OpenOffer, error)
	ListOpenOffers(ctx context.Context) ([]*domain.OpenOffer, error)
	// CloseOpenOffer returns whether the offer was closed by this call.
	CloseOpenOffer(ctx context.Context, offerId string) (bool, error)
}
