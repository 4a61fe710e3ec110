package domain

import (
	"context"
	"time"
)

type OpenOfferState int

const (
	OpenOfferAvailable OpenOfferState = iota
	OpenOfferReserved
	OpenOfferClosed
	OpenOfferCanceled
)

var openOfferStateNames = []string{"AVAILABLE", "RESERVED", "CLOSED", "CANCELED"}

func (s OpenOfferState) String() string {
	return enumName(openOfferStateNames, int(s))
}

func (s OpenOfferState) MarshalText() ([]byte, error) {
	return marshalEnum(openOfferStateNames, int(s), "open offer state")
}

func (s *OpenOfferState) UnmarshalText(text []byte) error {
	i, err := parseEnum(openOfferStateNames, string(text))
	if err != nil {
		return err
	}
	*s = OpenOfferState(i)
	return nil
}

// OpenOffer is an offer of this node still listed or reserved by a taker.
// Disputes of trades never created locally close the offer instead.
type OpenOffer struct {
	Offer    Offer
	State    OpenOfferState
	ClosedAt int64
}

func (o *OpenOffer) IsClosed() bool {
	return o.State == OpenOfferClosed
}

// Close moves the offer to CLOSED and returns whether it changed.
func (o *OpenOffer) Close() bool {
	if o.IsClosed() {
		return false
	}
	o.State = OpenOfferClosed
	o.ClosedAt = time.Now().Unix()
	return true
}

// OpenOfferRepository persists the open offers of this node.
type OpenOfferRepository interface {
	AddOpenOffer(ctx context.Context, offer *OpenOffer) error
	GetOpenOffer(ctx context.Context, offerId string) (*OpenOffer, error)
	GetAllOpenOffers(ctx context.Context) ([]*OpenOffer, error)
	UpdateOpenOffer(
		ctx context.Context,
		offerId string,
		updateFn func(o *OpenOffer) (*OpenOffer, error),
	) error
}
