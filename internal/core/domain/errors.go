package domain

import "errors"

var (
	// ErrUnknownEnumValue is returned when decoding an unknown enum name.
	ErrUnknownEnumValue = errors.New("unknown enum value")
	// ErrTradeMissingId ...
	ErrTradeMissingId = errors.New("trade id must not be empty")
	// ErrInvalidTradeAmount ...
	ErrInvalidTradeAmount = errors.New("trade amount must be positive")
	// ErrInvalidTradePrice ...
	ErrInvalidTradePrice = errors.New("trade price must be positive")
	// ErrPaymentMethodMismatch is a contract violation: maker and taker must
	// share the payment method.
	ErrPaymentMethodMismatch = errors.New(
		"payment methods of maker and taker must be the same",
	)
	// ErrMalformedContract ...
	ErrMalformedContract = errors.New("malformed contract json")
	// ErrTradeMissingTxId ...
	ErrTradeMissingTxId = errors.New("tx id must not be empty")
	// ErrTradeMissingContract ...
	ErrTradeMissingContract = errors.New("trade has no contract")

	// ErrTradeNotFound ...
	ErrTradeNotFound = errors.New("trade not found")
	// ErrTradeAlreadyExists ...
	ErrTradeAlreadyExists = errors.New("trade already exists")
	// ErrDisputeNotFound ...
	ErrDisputeNotFound = errors.New("dispute not found")
	// ErrDisputeAlreadyExists ...
	ErrDisputeAlreadyExists = errors.New("dispute already exists")
	// ErrOpenOfferNotFound ...
	ErrOpenOfferNotFound = errors.New("open offer not found")
	// ErrOpenOfferAlreadyExists ...
	ErrOpenOfferAlreadyExists = errors.New("open offer already exists")

	// ErrTradeMustBeBuyer ...
	ErrTradeMustBeBuyer = errors.New("operation allowed only to the buyer")
	// ErrTradeMustBeSeller ...
	ErrTradeMustBeSeller = errors.New("operation allowed only to the seller")
	// ErrDepositNotPublished ...
	ErrDepositNotPublished = errors.New("deposit tx is not published")
	// ErrDepositNotConfirmed ...
	ErrDepositNotConfirmed = errors.New("deposit tx is not confirmed")
	// ErrFiatNotSent ...
	ErrFiatNotSent = errors.New("payment has not been sent yet")
	// ErrPayoutNotPublished ...
	ErrPayoutNotPublished = errors.New("payout tx is not published")
	// ErrConfirmNotPermitted is returned when the dispute state of the trade
	// does not allow to confirm.
	ErrConfirmNotPermitted = errors.New("confirmation not permitted in current dispute state")
	// ErrInvalidTransition is returned when a state change would move the
	// trade to a previous phase.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrTradeClosed ...
	ErrTradeClosed = errors.New("trade is closed")

	// ErrNegativePayoutAmount ...
	ErrNegativePayoutAmount = errors.New("payout amounts must not be negative")
	// ErrEmptyPayout ...
	ErrEmptyPayout = errors.New("payout allocation must not be empty")
	// ErrFeePolicyMismatch ...
	ErrFeePolicyMismatch = errors.New("waived fee policy requires zero agent payout")
	// ErrMissingResultSignature ...
	ErrMissingResultSignature = errors.New("dispute result is not signed")
	// ErrInvalidResultSignature ...
	ErrInvalidResultSignature = errors.New("invalid dispute result signature")
)
