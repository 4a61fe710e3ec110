package dispute

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
)

// NodeRole tells whether the node takes part to disputes as a trader or as
// the agent resolving them.
type NodeRole int

const (
	RoleTrader NodeRole = iota
	RoleAgent
)

func (r NodeRole) String() string {
	if r == RoleAgent {
		return "agent"
	}
	return "trader"
}

// ParseNodeRole is the inverse of String.
func ParseNodeRole(s string) (NodeRole, error) {
	switch strings.ToLower(s) {
	case "trader":
		return RoleTrader, nil
	case "agent":
		return RoleAgent, nil
	default:
		return 0, fmt.Errorf("unknown node role %s", s)
	}
}

// CloseDisputeParams is the ruling the agent closes a dispute with.
type CloseDisputeParams struct {
	DisputeId              string
	Winner                 domain.Winner
	Reason                 domain.Reason
	FeePolicy              domain.FeePolicy
	BuyerPayoutAmount      btcutil.Amount
	SellerPayoutAmount     btcutil.Amount
	ArbitratorPayoutAmount btcutil.Amount
	// ArbitratorAddress receives the arbitrator payout. If empty, the
	// address of the wallet entry of the trade is used.
	ArbitratorAddress   string
	SummaryNotes        string
	IsLoserPublisher    bool
	TamperProofEvidence bool
	IdVerification      bool
	ScreenCast          bool
}

// ChatMessageParams is a new evidence message.
type ChatMessageParams struct {
	DisputeId   string
	Message     string
	Attachments []domain.Attachment
}

func (p ChatMessageParams) validate() error {
	if len(strings.TrimSpace(p.Message)) <= 0 && len(p.Attachments) <= 0 {
		return ErrEmptyChatMessage
	}
	return nil
}
