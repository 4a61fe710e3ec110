package dispute

import "errors"

var (
	// ErrContractViolation marks a message or call that the protocol never
	// produces, it denotes a bug of the sender.
	ErrContractViolation = errors.New("protocol contract violation")
	// ErrNotAgent ...
	ErrNotAgent = errors.New("operation allowed only to dispute agents")
	// ErrNotTrader ...
	ErrNotTrader = errors.New("operation allowed only to traders")
	// ErrMissingAgent is returned when the trade has no agent for the
	// requested support type.
	ErrMissingAgent = errors.New("trade has no agent for the support type")
	// ErrDisputeClosed ...
	ErrDisputeClosed = errors.New("dispute is closed")
	// ErrMissingDepositTx ...
	ErrMissingDepositTx = errors.New("deposit tx of the disputed trade is unknown")
	// ErrArbitratorKeyMismatch is returned when the result is signed by a
	// key other than the arbitrator one of the trade.
	ErrArbitratorKeyMismatch = errors.New(
		"dispute result signed by unexpected arbitrator key",
	)
	// ErrMissingArbitratorSignature ...
	ErrMissingArbitratorSignature = errors.New(
		"dispute result has no arbitrator payout signature",
	)
	// ErrDisputeResultNotFound is returned when a disputed payout arrives
	// before the result it executes.
	ErrDisputeResultNotFound = errors.New("dispute has no result yet")
	// ErrEmptyChatMessage ...
	ErrEmptyChatMessage = errors.New("chat message must not be empty")
)
