package offerbook_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-escrow/internal/infrastructure/offerbook"
	"github.com/tdex-network/tdex-escrow/internal/infrastructure/storage/db/inmemory"
)

var ctx = context.Background()

func TestOfferBook(t *testing.T) {
	repoManager := inmemory.NewRepoManager()
	svc, err := offerbook.NewService(repoManager.OpenOfferRepository())
	require.NoError(t, err)

	offer := domain.Offer{
		Id:              "offer-1",
		Direction:       domain.DirectionBuy,
		PaymentMethodId: domain.PaymentMethodSepa,
		CurrencyCode:    "EUR",
		MaxTradePeriod:  24 * time.Hour,
	}
	require.NoError(t, svc.AddOpenOffer(ctx, offer))
	require.ErrorIs(
		t, svc.AddOpenOffer(ctx, offer), domain.ErrOpenOfferAlreadyExists,
	)

	offers, err := svc.ListOpenOffers(ctx)
	require.NoError(t, err)
	require.Len(t, offers, 1)

	closed, err := svc.CloseOpenOffer(ctx, offer.Id)
	require.NoError(t, err)
	require.True(t, closed)

	closed, err = svc.CloseOpenOffer(ctx, offer.Id)
	require.NoError(t, err)
	require.False(t, closed)

	got, err := svc.GetOpenOffer(ctx, offer.Id)
	require.NoError(t, err)
	require.True(t, got.IsClosed())
	require.NotZero(t, got.ClosedAt)

	_, err = svc.CloseOpenOffer(ctx, "unknown")
	require.ErrorIs(t, err, domain.ErrOpenOfferNotFound)
}

func TestAddInvalidOffer(t *testing.T) {
	svc, err := offerbook.NewService(inmemory.NewRepoManager().OpenOfferRepository())
	require.NoError(t, err)

	err = svc.AddOpenOffer(ctx, domain.Offer{MaxTradePeriod: time.Hour})
	require.ErrorIs(t, err, offerbook.ErrMissingOfferId)

	err = svc.AddOpenOffer(ctx, domain.Offer{Id: "offer"})
	require.ErrorIs(t, err, offerbook.ErrInvalidTradePeriod)

	_, err = offerbook.NewService(nil)
	require.Error(t, err)
}
