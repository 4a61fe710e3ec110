package httpmailbox

import "errors"

var (
	// ErrMissingNodeAddress ...
	ErrMissingNodeAddress = errors.New("missing node address")
	// ErrMissingKey ...
	ErrMissingKey = errors.New("missing node key")
	// ErrMalformedEnvelope ...
	ErrMalformedEnvelope = errors.New("malformed mailbox envelope")
	// ErrInvalidSender ...
	ErrInvalidSender = errors.New("invalid envelope sender")
	// ErrInvalidSignature ...
	ErrInvalidSignature = errors.New("invalid envelope signature")
	// ErrServiceClosed ...
	ErrServiceClosed = errors.New("mailbox service is closed")
)
