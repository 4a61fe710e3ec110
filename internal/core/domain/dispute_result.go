package domain

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
)

type Winner int

const (
	WinnerBuyer Winner = iota
	WinnerSeller
	WinnerStaleMate
)

var winnerNames = []string{"BUYER", "SELLER", "STALE_MATE"}

func (w Winner) String() string {
	return enumName(winnerNames, int(w))
}

func (w Winner) MarshalText() ([]byte, error) {
	return marshalEnum(winnerNames, int(w), "winner")
}

func (w *Winner) UnmarshalText(text []byte) error {
	i, err := parseEnum(winnerNames, string(text))
	if err != nil {
		return err
	}
	*w = Winner(i)
	return nil
}

// FeePolicy tells who pays the agent fee.
type FeePolicy int

const (
	FeePolicyLoserPays FeePolicy = iota
	FeePolicySplit
	FeePolicyWaived
)

var feePolicyNames = []string{"LOSER_PAYS", "SPLIT", "WAIVED"}

func (f FeePolicy) String() string {
	return enumName(feePolicyNames, int(f))
}

func (f FeePolicy) MarshalText() ([]byte, error) {
	return marshalEnum(feePolicyNames, int(f), "fee policy")
}

func (f *FeePolicy) UnmarshalText(text []byte) error {
	i, err := parseEnum(feePolicyNames, string(text))
	if err != nil {
		return err
	}
	*f = FeePolicy(i)
	return nil
}

type Reason int

const (
	ReasonOther Reason = iota
	ReasonBug
	ReasonUsability
	ReasonScam
	ReasonProtocolViolation
	ReasonNoReply
	ReasonBankProblems
	ReasonOptionTrade
	ReasonSellerNotResponding
	ReasonWrongSenderAccount
	ReasonTradeAlreadySettled
	ReasonPeerWasLate
)

var reasonNames = []string{
	"OTHER",
	"BUG",
	"USABILITY",
	"SCAM",
	"PROTOCOL_VIOLATION",
	"NO_REPLY",
	"BANK_PROBLEMS",
	"OPTION_TRADE",
	"SELLER_NOT_RESPONDING",
	"WRONG_SENDER_ACCOUNT",
	"TRADE_ALREADY_SETTLED",
	"PEER_WAS_LATE",
}

func (r Reason) String() string {
	return enumName(reasonNames, int(r))
}

func (r Reason) MarshalText() ([]byte, error) {
	return marshalEnum(reasonNames, int(r), "reason")
}

func (r *Reason) UnmarshalText(text []byte) error {
	i, err := parseEnum(reasonNames, string(text))
	if err != nil {
		return err
	}
	*r = Reason(i)
	return nil
}

// DisputeResult is the ruling of the agent. Once signed it is immutable.
type DisputeResult struct {
	TradeId                 string         `json:"tradeId"`
	TraderId                int            `json:"traderId"`
	Winner                  Winner         `json:"winner"`
	Reason                  Reason         `json:"reason"`
	FeePolicy               FeePolicy      `json:"feePolicy"`
	TamperProofEvidence     bool           `json:"tamperProofEvidence"`
	IdVerification          bool           `json:"idVerification"`
	ScreenCast              bool           `json:"screenCast"`
	SummaryNotes            string         `json:"summaryNotes"`
	ChatMessage             *ChatMessage   `json:"chatMessage,omitempty"`
	BuyerPayoutAmount       btcutil.Amount `json:"buyerPayoutAmount"`
	SellerPayoutAmount      btcutil.Amount `json:"sellerPayoutAmount"`
	ArbitratorPayoutAmount  btcutil.Amount `json:"arbitratorPayoutAmount"`
	ArbitratorAddressString string         `json:"arbitratorAddressString"`
	ArbitratorPubKey        []byte         `json:"arbitratorPubKey"`
	// ArbitratorSignature is the DER signature of the arbitrator over the
	// disputed payout tx.
	ArbitratorSignature []byte `json:"arbitratorSignature"`
	// SummarySignature is the signature of the agent node key over
	// AllocationHash.
	SummarySignature        []byte `json:"summarySignature"`
	IsLoserPublisher        bool   `json:"isLoserPublisher"`
	PayoutAdjustmentPercent string `json:"payoutAdjustmentPercent,omitempty"`
	CloseDate               int64  `json:"closeDate"`
}

// Validate checks the consistency of the ruling.
func (r *DisputeResult) Validate() error {
	if len(r.TradeId) <= 0 {
		return ErrTradeMissingId
	}
	if int(r.Winner) < 0 || int(r.Winner) >= len(winnerNames) {
		return fmt.Errorf("%w: winner %d", ErrUnknownEnumValue, int(r.Winner))
	}
	if r.BuyerPayoutAmount < 0 || r.SellerPayoutAmount < 0 ||
		r.ArbitratorPayoutAmount < 0 {
		return ErrNegativePayoutAmount
	}
	if r.FeePolicy == FeePolicyWaived && r.ArbitratorPayoutAmount > 0 {
		return ErrFeePolicyMismatch
	}
	if r.BuyerPayoutAmount+r.SellerPayoutAmount+r.ArbitratorPayoutAmount <= 0 {
		return ErrEmptyPayout
	}
	return nil
}

// TotalPayoutAmount is the sum of the three allocations.
func (r *DisputeResult) TotalPayoutAmount() btcutil.Amount {
	return r.BuyerPayoutAmount + r.SellerPayoutAmount + r.ArbitratorPayoutAmount
}

// PublisherIsBuyer implements the single publisher policy: the buyer
// publishes if ruled winner or on stale mate, the seller only if ruled
// winner. IsLoserPublisher swaps the roles.
func (r *DisputeResult) PublisherIsBuyer() bool {
	buyerPublishes := r.Winner == WinnerBuyer || r.Winner == WinnerStaleMate
	if r.IsLoserPublisher {
		return !buyerPublishes
	}
	return buyerPublishes
}

// ShouldPublish returns whether the trader on the given side broadcasts the
// disputed payout.
func (r *DisputeResult) ShouldPublish(isBuyer bool) bool {
	return r.PublisherIsBuyer() == isBuyer
}

// AllocationHash commits to the trade and to the payout allocation.
func (r *DisputeResult) AllocationHash() []byte {
	h := sha256.New()
	h.Write([]byte(r.TradeId))
	h.Write([]byte{byte(r.Winner), byte(r.FeePolicy)})
	for _, amount := range []btcutil.Amount{
		r.BuyerPayoutAmount, r.SellerPayoutAmount, r.ArbitratorPayoutAmount,
	} {
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(amount))
		h.Write(buf[:])
	}
	h.Write([]byte(r.ArbitratorAddressString))
	h.Write(r.ArbitratorPubKey)
	h.Write(r.ArbitratorSignature)
	return h.Sum(nil)
}

// Sign sets the summary signature with the agent node key.
func (r *DisputeResult) Sign(key *btcec.PrivateKey) {
	r.SummarySignature = ecdsa.Sign(key, r.AllocationHash()).Serialize()
}

// VerifySummarySignature checks the result was signed by the given agent
// pub key.
func (r *DisputeResult) VerifySummarySignature(agentPubKey []byte) error {
	if len(r.SummarySignature) <= 0 {
		return ErrMissingResultSignature
	}
	pubkey, err := btcec.ParsePubKey(agentPubKey)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidResultSignature, err)
	}
	sig, err := ecdsa.ParseDERSignature(r.SummarySignature)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidResultSignature, err)
	}
	if !sig.Verify(r.AllocationHash(), pubkey) {
		return ErrInvalidResultSignature
	}
	return nil
}
