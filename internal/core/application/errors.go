package application

import "errors"

var (
	// ErrMissingMessage ...
	ErrMissingMessage = errors.New("inbound message must not be null")
	// ErrUnknownMessageType ...
	ErrUnknownMessageType = errors.New("unknown message type")
	// ErrTradingDisabled is returned by trade operations invoked on an agent
	// node.
	ErrTradingDisabled = errors.New("trade operations are not available on agent nodes")
	// ErrUnknownDBType ...
	ErrUnknownDBType = errors.New("unknown db type")
	// ErrServiceUnavailable is returned by the coordinator once stopped.
	ErrServiceUnavailable = errors.New("service is unavailable, try again later")
)
