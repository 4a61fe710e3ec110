package offerbook

import "errors"

var (
	// ErrMissingOfferId ...
	ErrMissingOfferId = errors.New("offer id must not be empty")
	// ErrInvalidTradePeriod ...
	ErrInvalidTradePeriod = errors.New("offer max trade period must be positive")
)
