package httpmailbox

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
)

// Envelope is the wire format of a mailbox message. The signature of the
// sender covers type and payload.
type Envelope struct {
	Type              string             `json:"type"`
	SenderNodeAddress domain.NodeAddress `json:"senderNodeAddress"`
	SenderPubKeyRing  domain.PubKeyRing  `json:"senderPubKeyRing"`
	Payload           json.RawMessage    `json:"payload"`
	Signature         []byte             `json:"signature"`
}

func newEnvelope(
	msg ports.Message, address domain.NodeAddress, ring domain.PubKeyRing,
	key *btcec.PrivateKey,
) (*Envelope, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	env := &Envelope{
		Type:              msg.Type(),
		SenderNodeAddress: address,
		SenderPubKeyRing:  ring,
		Payload:           payload,
	}
	env.Signature = ecdsa.Sign(key, env.hash()).Serialize()
	return env, nil
}

func (e *Envelope) hash() []byte {
	h := sha256.New()
	h.Write([]byte(e.Type))
	h.Write([]byte{0})
	h.Write(e.Payload)
	return h.Sum(nil)
}

func (e *Envelope) verify() error {
	pubkey, err := btcec.ParsePubKey(e.SenderPubKeyRing.SignaturePubKey)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSender, err)
	}
	sig, err := ecdsa.ParseDERSignature(e.Signature)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}
	if !sig.Verify(e.hash(), pubkey) {
		return ErrInvalidSignature
	}
	return nil
}

// DecodeEnvelope parses the envelope, checks the signature of the sender and
// decodes the carried message.
func DecodeEnvelope(buf []byte) (ports.InboundMessage, error) {
	var env Envelope
	if err := json.Unmarshal(buf, &env); err != nil {
		return ports.InboundMessage{}, fmt.Errorf("%w: %s", ErrMalformedEnvelope, err)
	}
	if len(env.SenderNodeAddress) <= 0 {
		return ports.InboundMessage{}, ErrInvalidSender
	}
	if err := env.verify(); err != nil {
		return ports.InboundMessage{}, err
	}

	msg, err := ports.NewMessageOfType(env.Type)
	if err != nil {
		return ports.InboundMessage{}, fmt.Errorf("%w: %s", ErrMalformedEnvelope, err)
	}
	if err := json.Unmarshal(env.Payload, msg); err != nil {
		return ports.InboundMessage{}, fmt.Errorf("%w: %s", ErrMalformedEnvelope, err)
	}

	return ports.InboundMessage{
		SenderNodeAddress: env.SenderNodeAddress,
		SenderPubKeyRing:  env.SenderPubKeyRing,
		Message:           msg,
	}, nil
}
