package ports

import (
	"context"

	"github.com/tdex-network/tdex-escrow/internal/core/domain"
)

// NetworkService delivers messages to peers. Delivery is asynchronous, the
// outcome is reported through the listener.
type NetworkService interface {
	SendEncryptedMailboxMessage(
		ctx context.Context, address domain.NodeAddress,
		pubKeyRing domain.PubKeyRing, msg Message,
		listener SendMailboxMessageListener,
	)
	NodeAddress() domain.NodeAddress
	PubKeyRing() domain.PubKeyRing
	Close()
}

// SendMailboxMessageListener is notified of the outcome of a send. Exactly
// one of the methods is called per message.
type SendMailboxMessageListener interface {
	OnArrived()
	OnStoredInMailbox()
	OnFault(errMsg string)
}

// ListenerFuncs adapts plain funcs to a SendMailboxMessageListener. Nil
// funcs are skipped.
type ListenerFuncs struct {
	Arrived         func()
	StoredInMailbox func()
	Fault           func(errMsg string)
}

func (l ListenerFuncs) OnArrived() {
	if l.Arrived != nil {
		l.Arrived()
	}
}

func (l ListenerFuncs) OnStoredInMailbox() {
	if l.StoredInMailbox != nil {
		l.StoredInMailbox()
	}
}

func (l ListenerFuncs) OnFault(errMsg string) {
	if l.Fault != nil {
		l.Fault(errMsg)
	}
}

// InboundMessage is a decrypted message together with its verified sender.
type InboundMessage struct {
	SenderNodeAddress domain.NodeAddress
	SenderPubKeyRing  domain.PubKeyRing
	Message           Message
}

// MessageHandler consumes inbound messages.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg InboundMessage) error
}
