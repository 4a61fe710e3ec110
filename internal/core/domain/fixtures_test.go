package domain_test

import (
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
)

var (
	buyerDeposit  = btcutil.Amount(150000)
	sellerDeposit = btcutil.Amount(150000)
	tradeAmount   = btcutil.Amount(1000000)
)

func newTestOffer() domain.Offer {
	return domain.Offer{
		Id:                    "offer-id",
		Direction:             domain.DirectionBuy,
		PaymentMethodId:       domain.PaymentMethodSepa,
		CurrencyCode:          "EUR",
		BuyerSecurityDeposit:  buyerDeposit,
		SellerSecurityDeposit: sellerDeposit,
		MakerFee:              5000,
		MaxTradePeriod:        8 * 24 * time.Hour,
		OfferFeePaymentTxId:   "offerfeetxid",
	}
}

func newTestTrade(direction domain.TradeDirection, initiator domain.TradeInitiator) *domain.Trade {
	trade, err := domain.NewTrade(
		"0123456789abcdef", domain.TradeRole{Direction: direction, Initiator: initiator},
		newTestOffer(), tradeAmount, 250000000, 2000, 3000,
	)
	if err != nil {
		panic(err)
	}
	return trade
}

func newTestPubKeyRing() domain.PubKeyRing {
	sigKey, _ := btcec.NewPrivateKey()
	encKey, _ := btcec.NewPrivateKey()
	return domain.PubKeyRing{
		SignaturePubKey:  sigKey.PubKey().SerializeCompressed(),
		EncryptionPubKey: encKey.PubKey().SerializeCompressed(),
	}
}

func newTestContract(maker, taker domain.PubKeyRing) *domain.Contract {
	return domain.MustNewContract(domain.Contract{
		Offer:                      newTestOffer(),
		TradeAmount:                tradeAmount,
		TradePrice:                 250000000,
		TakerFeeTxId:               "takerfeetxid",
		BuyerNodeAddress:           "buyer.onion:9999",
		SellerNodeAddress:          "seller.onion:9999",
		MediatorNodeAddress:        "mediator.onion:9999",
		IsBuyerMakerAndSellerTaker: true,
		MakerAccountId:             "maker-account",
		TakerAccountId:             "taker-account",
		MakerPubKeyRing:            maker,
		TakerPubKeyRing:            taker,
		MakerPayoutAddressString:   "bc1qmaker",
		TakerPayoutAddressString:   "bc1qtaker",
		MakerMultiSigPubKey:        []byte{0x02, 0x01},
		TakerMultiSigPubKey:        []byte{0x03, 0x01},
		RefundAgentNodeAddress:     "refund.onion:9999",
		MakerPaymentAccountPayload: &domain.PaymentAccountPayload{
			Id:              "maker-payment-account",
			PaymentMethodId: domain.PaymentMethodSepa,
			Details:         map[string]string{"iban": "DE00000000000000000000"},
		},
		TakerPaymentAccountPayload: &domain.PaymentAccountPayload{
			Id:              "taker-payment-account",
			PaymentMethodId: domain.PaymentMethodSepaInstant,
			Details:         map[string]string{"iban": "FR00000000000000000000"},
		},
		HashOfMakersPaymentAccountPayload: []byte("makerhash"),
		HashOfTakersPaymentAccountPayload: []byte("takerhash"),
		MakerPaymentMethodId:              domain.PaymentMethodSepa,
		TakerPaymentMethodId:              domain.PaymentMethodSepaInstant,
	})
}

// advanceToDepositConfirmed brings the trade to the DEPOSIT_CONFIRMED phase.
func advanceToDepositConfirmed(trade *domain.Trade) {
	trade.TakerFeePublished("takerfeetxid")
	trade.DepositPublished("deposittxid", []byte{0x01})
	trade.DepositConfirmed(time.Now().Unix())
}
