package domain

import (
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/shopspring/decimal"
)

const (
	// PaymentMethodSepa and PaymentMethodSepaInstant are the only pair of
	// different payment methods a contract accepts.
	PaymentMethodSepa        = "SEPA"
	PaymentMethodSepaInstant = "SEPA_INSTANT"

	fiatPricePrecision   = 4
	cryptoPricePrecision = 8
)

// Direction is the side of the offer maker.
type Direction int

const (
	DirectionBuy Direction = iota
	DirectionSell
)

var directionNames = []string{"BUY", "SELL"}

func (d Direction) String() string {
	return enumName(directionNames, int(d))
}

func (d Direction) MarshalText() ([]byte, error) {
	return marshalEnum(directionNames, int(d), "direction")
}

func (d *Direction) UnmarshalText(text []byte) error {
	i, err := parseEnum(directionNames, string(text))
	if err != nil {
		return err
	}
	*d = Direction(i)
	return nil
}

// Offer holds the terms of the offer a trade was taken from.
type Offer struct {
	Id                    string         `json:"id"`
	Direction             Direction      `json:"direction"`
	PaymentMethodId       string         `json:"paymentMethodId"`
	CurrencyCode          string         `json:"currencyCode"`
	IsCryptoCurrency      bool           `json:"isCryptoCurrency"`
	BuyerSecurityDeposit  btcutil.Amount `json:"buyerSecurityDeposit"`
	SellerSecurityDeposit btcutil.Amount `json:"sellerSecurityDeposit"`
	MakerFee              btcutil.Amount `json:"makerFee"`
	MaxTradePeriod        time.Duration  `json:"maxTradePeriod"`
	OfferFeePaymentTxId   string         `json:"offerFeePaymentTxId"`
	Date                  int64          `json:"date"`
}

// PricePrecision is the number of decimals of a price expressed as long.
func (o Offer) PricePrecision() int32 {
	if o.IsCryptoCurrency {
		return cryptoPricePrecision
	}
	return fiatPricePrecision
}

// PriceFromLong converts the persisted long representation of a price.
func (o Offer) PriceFromLong(price int64) decimal.Decimal {
	return decimal.New(price, -o.PricePrecision())
}

// Volume returns the amount of quote currency for the given bitcoin amount
// at the given price. Fiat volumes are rounded to the unit.
func (o Offer) Volume(amount btcutil.Amount, price decimal.Decimal) decimal.Decimal {
	volume := decimal.NewFromFloat(amount.ToBTC()).Mul(price)
	if o.IsCryptoCurrency {
		return volume.Round(cryptoPricePrecision)
	}
	return volume.Round(0)
}
