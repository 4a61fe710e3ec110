package esplorawallet

import "errors"

var (
	// ErrMissingExplorerURL ...
	ErrMissingExplorerURL = errors.New("missing explorer url")
	// ErrMissingKey ...
	ErrMissingKey = errors.New("missing wallet key")
	// ErrMissingNetwork ...
	ErrMissingNetwork = errors.New("missing network params")
	// ErrInvalidRateLimit ...
	ErrInvalidRateLimit = errors.New("explorer rate limit must be positive")
	// ErrInvalidPollInterval ...
	ErrInvalidPollInterval = errors.New("confirmation poll interval must be positive")
	// ErrTxNotFound is returned if the explorer does not know the tx.
	ErrTxNotFound = errors.New("transaction not found")
	// ErrNotMyEntry is returned if the wallet is asked to sign for an escrow
	// key it does not own.
	ErrNotMyEntry = errors.New("address entry does not belong to the wallet")
	// ErrWalletClosed ...
	ErrWalletClosed = errors.New("wallet is closed")
)
