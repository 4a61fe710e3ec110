package domain

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/shopspring/decimal"
)

// NodeAddress is the network address of a peer, ie. host:port.
type NodeAddress string

// PubKeyRing identifies a node. Both keys are compressed secp256k1 keys.
type PubKeyRing struct {
	SignaturePubKey  []byte `json:"signaturePubKey"`
	EncryptionPubKey []byte `json:"encryptionPubKey"`
}

func (p PubKeyRing) Equal(other PubKeyRing) bool {
	return bytes.Equal(p.SignaturePubKey, other.SignaturePubKey) &&
		bytes.Equal(p.EncryptionPubKey, other.EncryptionPubKey)
}

func (p PubKeyRing) IsEmpty() bool {
	return len(p.SignaturePubKey) == 0 && len(p.EncryptionPubKey) == 0
}

// PaymentAccountPayload carries the payment account details of a trader.
// Only its hash is needed once the trade is over.
type PaymentAccountPayload struct {
	Id              string            `json:"id"`
	PaymentMethodId string            `json:"paymentMethodId"`
	Details         map[string]string `json:"details,omitempty"`
}

// Hash returns the sha256 of the json encoding of the payload.
func (p PaymentAccountPayload) Hash() []byte {
	buf, _ := json.Marshal(p)
	h := sha256.Sum256(buf)
	return h[:]
}

// Contract is the set of trade terms signed by both traders.
type Contract struct {
	Offer                      Offer          `json:"offerPayload"`
	TradeAmount                btcutil.Amount `json:"tradeAmount"`
	TradePrice                 int64          `json:"tradePrice"`
	TakerFeeTxId               string         `json:"takerFeeTxID"`
	BuyerNodeAddress           NodeAddress    `json:"buyerNodeAddress"`
	SellerNodeAddress          NodeAddress    `json:"sellerNodeAddress"`
	MediatorNodeAddress        NodeAddress    `json:"mediatorNodeAddress"`
	IsBuyerMakerAndSellerTaker bool           `json:"isBuyerMakerAndSellerTaker"`
	MakerAccountId             string         `json:"makerAccountId"`
	TakerAccountId             string         `json:"takerAccountId"`
	MakerPubKeyRing            PubKeyRing     `json:"makerPubKeyRing"`
	TakerPubKeyRing            PubKeyRing     `json:"takerPubKeyRing"`
	MakerPayoutAddressString   string         `json:"makerPayoutAddressString"`
	TakerPayoutAddressString   string         `json:"takerPayoutAddressString"`
	MakerMultiSigPubKey        []byte         `json:"makerMultiSigPubKey"`
	TakerMultiSigPubKey        []byte         `json:"takerMultiSigPubKey"`
	LockTime                   uint32         `json:"lockTime"`
	RefundAgentNodeAddress     NodeAddress    `json:"refundAgentNodeAddress"`

	HashOfMakersPaymentAccountPayload []byte                 `json:"hashOfMakersPaymentAccountPayload,omitempty"`
	HashOfTakersPaymentAccountPayload []byte                 `json:"hashOfTakersPaymentAccountPayload,omitempty"`
	MakerPaymentAccountPayload        *PaymentAccountPayload `json:"makerPaymentAccountPayload"`
	TakerPaymentAccountPayload        *PaymentAccountPayload `json:"takerPaymentAccountPayload"`
	MakerPaymentMethodId              string                 `json:"makerPaymentMethodId,omitempty"`
	TakerPaymentMethodId              string                 `json:"takerPaymentMethodId,omitempty"`
}

// NewContract validates the terms and returns the contract. Maker and taker
// must use the same payment method, with the exception of a SEPA maker
// accepting a SEPA_INSTANT taker.
func NewContract(c Contract) (*Contract, error) {
	if !paymentMethodsMatch(c.MakerPaymentMethodId, c.TakerPaymentMethodId) {
		return nil, fmt.Errorf(
			"%w: maker %s, taker %s",
			ErrPaymentMethodMismatch, c.MakerPaymentMethodId, c.TakerPaymentMethodId,
		)
	}
	if c.TradeAmount <= 0 {
		return nil, ErrInvalidTradeAmount
	}
	if c.TradePrice <= 0 {
		return nil, ErrInvalidTradePrice
	}
	contract := c
	return &contract, nil
}

// MustNewContract is like NewContract but panics on invalid terms.
func MustNewContract(c Contract) *Contract {
	contract, err := NewContract(c)
	if err != nil {
		panic(err)
	}
	return contract
}

func paymentMethodsMatch(maker, taker string) bool {
	if maker == PaymentMethodSepa && taker == PaymentMethodSepaInstant {
		return true
	}
	return maker == taker
}

func (c *Contract) BuyerPayoutAddressString() string {
	if c.IsBuyerMakerAndSellerTaker {
		return c.MakerPayoutAddressString
	}
	return c.TakerPayoutAddressString
}

func (c *Contract) SellerPayoutAddressString() string {
	if c.IsBuyerMakerAndSellerTaker {
		return c.TakerPayoutAddressString
	}
	return c.MakerPayoutAddressString
}

func (c *Contract) BuyerPubKeyRing() PubKeyRing {
	if c.IsBuyerMakerAndSellerTaker {
		return c.MakerPubKeyRing
	}
	return c.TakerPubKeyRing
}

func (c *Contract) SellerPubKeyRing() PubKeyRing {
	if c.IsBuyerMakerAndSellerTaker {
		return c.TakerPubKeyRing
	}
	return c.MakerPubKeyRing
}

func (c *Contract) BuyerMultiSigPubKey() []byte {
	if c.IsBuyerMakerAndSellerTaker {
		return c.MakerMultiSigPubKey
	}
	return c.TakerMultiSigPubKey
}

func (c *Contract) SellerMultiSigPubKey() []byte {
	if c.IsBuyerMakerAndSellerTaker {
		return c.TakerMultiSigPubKey
	}
	return c.MakerMultiSigPubKey
}

func (c *Contract) BuyerPaymentAccountPayload() *PaymentAccountPayload {
	if c.IsBuyerMakerAndSellerTaker {
		return c.MakerPaymentAccountPayload
	}
	return c.TakerPaymentAccountPayload
}

func (c *Contract) SellerPaymentAccountPayload() *PaymentAccountPayload {
	if c.IsBuyerMakerAndSellerTaker {
		return c.TakerPaymentAccountPayload
	}
	return c.MakerPaymentAccountPayload
}

// SetPaymentAccountPayloads stores the clear payloads once exchanged with the
// peer.
func (c *Contract) SetPaymentAccountPayloads(
	peers, mine *PaymentAccountPayload, myPubKeyRing PubKeyRing,
) {
	if c.IsMyRoleMaker(myPubKeyRing) {
		c.MakerPaymentAccountPayload = mine
		c.TakerPaymentAccountPayload = peers
		return
	}
	c.TakerPaymentAccountPayload = mine
	c.MakerPaymentAccountPayload = peers
}

func (c *Contract) HashOfPeersPaymentAccountPayload(myPubKeyRing PubKeyRing) []byte {
	if c.IsMyRoleMaker(myPubKeyRing) {
		return c.HashOfTakersPaymentAccountPayload
	}
	return c.HashOfMakersPaymentAccountPayload
}

func (c *Contract) PaymentMethodId() string {
	if c.MakerPaymentMethodId != "" {
		return c.MakerPaymentMethodId
	}
	return c.Offer.PaymentMethodId
}

func (c *Contract) Price() decimal.Decimal {
	return c.Offer.PriceFromLong(c.TradePrice)
}

func (c *Contract) TradeVolume() decimal.Decimal {
	return c.Offer.Volume(c.TradeAmount, c.Price())
}

func (c *Contract) MyNodeAddress(myPubKeyRing PubKeyRing) NodeAddress {
	if myPubKeyRing.Equal(c.BuyerPubKeyRing()) {
		return c.BuyerNodeAddress
	}
	return c.SellerNodeAddress
}

func (c *Contract) PeersNodeAddress(myPubKeyRing PubKeyRing) NodeAddress {
	if myPubKeyRing.Equal(c.SellerPubKeyRing()) {
		return c.BuyerNodeAddress
	}
	return c.SellerNodeAddress
}

func (c *Contract) PeersPubKeyRing(myPubKeyRing PubKeyRing) PubKeyRing {
	if myPubKeyRing.Equal(c.SellerPubKeyRing()) {
		return c.BuyerPubKeyRing()
	}
	return c.SellerPubKeyRing()
}

func (c *Contract) IsMyRoleBuyer(myPubKeyRing PubKeyRing) bool {
	return c.BuyerPubKeyRing().Equal(myPubKeyRing)
}

func (c *Contract) IsMyRoleMaker(myPubKeyRing PubKeyRing) bool {
	return c.IsBuyerMakerAndSellerTaker == c.IsMyRoleBuyer(myPubKeyRing)
}

// MaybeClearSensitiveData drops the clear payment account payloads and
// returns whether anything changed. Their hashes are retained.
func (c *Contract) MaybeClearSensitiveData() bool {
	changed := false
	if c.MakerPaymentAccountPayload != nil {
		c.MakerPaymentAccountPayload = nil
		changed = true
	}
	if c.TakerPaymentAccountPayload != nil {
		c.TakerPaymentAccountPayload = nil
		changed = true
	}
	return changed
}

// JSON returns the canonical json encoding both traders sign.
func (c *Contract) JSON() (string, error) {
	buf, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

// Hash returns the sha256 of the canonical json encoding.
func (c *Contract) Hash() ([]byte, error) {
	str, err := c.JSON()
	if err != nil {
		return nil, err
	}
	h := sha256.Sum256([]byte(str))
	return h[:], nil
}

// SanitizeContractAsJSON returns the given contract json without the clear
// payment account payloads.
func SanitizeContractAsJSON(contractAsJSON string) (string, error) {
	c := &Contract{}
	if err := json.Unmarshal([]byte(contractAsJSON), c); err != nil {
		return "", fmt.Errorf("%w: %s", ErrMalformedContract, err)
	}
	if !c.MaybeClearSensitiveData() {
		return contractAsJSON, nil
	}
	return c.JSON()
}
