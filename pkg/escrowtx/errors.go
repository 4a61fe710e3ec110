package escrowtx

import "errors"

var (
	// ErrNullDepositTx ...
	ErrNullDepositTx = errors.New("deposit tx must not be null")
	// ErrNullNetwork ...
	ErrNullNetwork = errors.New("network params are null")
	// ErrInvalidPubKey ...
	ErrInvalidPubKey = errors.New("pubkey must be a valid compressed secp256k1 key")
	// ErrInvalidAddress ...
	ErrInvalidAddress = errors.New("payout address is invalid for the network")
	// ErrNegativeAmount ...
	ErrNegativeAmount = errors.New("payout amounts must not be negative")
	// ErrEmptyPayout ...
	ErrEmptyPayout = errors.New("payout must have at least one output")
	// ErrPayoutExceedsDeposit ...
	ErrPayoutExceedsDeposit = errors.New("payout amounts exceed the deposit output")
	// ErrMultiSigOutputNotFound ...
	ErrMultiSigOutputNotFound = errors.New(
		"deposit tx has no output locked to the escrow script",
	)
	// ErrPayoutMismatch is returned when a finalized payout differs from
	// the expected one.
	ErrPayoutMismatch = errors.New("payout tx does not match the expected payout")
	// ErrInvalidSignature ...
	ErrInvalidSignature = errors.New("signature verification failed")
	// ErrUnknownSigner ...
	ErrUnknownSigner = errors.New("signer pubkey is not part of the escrow script")
	// ErrNotEnoughSignatures ...
	ErrNotEnoughSignatures = errors.New("escrow script requires 2 distinct signatures")
)
