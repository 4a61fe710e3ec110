package trade

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
)

// TradeParams is what the offer negotiation hands over to start a trade.
type TradeParams struct {
	Id       string
	Role     domain.TradeRole
	Offer    domain.Offer
	Amount   btcutil.Amount
	Price    int64
	TxFee    btcutil.Amount
	TakerFee btcutil.Amount

	PeerNodeAddress        domain.NodeAddress
	ArbitratorNodeAddress  domain.NodeAddress
	ArbitratorPubKeyRing   domain.PubKeyRing
	ArbitratorBtcPubKey    []byte
	MediatorNodeAddress    domain.NodeAddress
	MediatorPubKeyRing     domain.PubKeyRing
	RefundAgentNodeAddress domain.NodeAddress
	RefundAgentPubKeyRing  domain.PubKeyRing

	Contract               *domain.Contract
	MakerContractSignature string
	TakerContractSignature string
}

func (p TradeParams) validate() error {
	if len(p.PeerNodeAddress) <= 0 {
		return fmt.Errorf("missing peer node address")
	}
	if len(p.ArbitratorNodeAddress) <= 0 && len(p.MediatorNodeAddress) <= 0 &&
		len(p.RefundAgentNodeAddress) <= 0 {
		return fmt.Errorf("missing agent node address")
	}
	if p.Offer.MaxTradePeriod <= 0 {
		return fmt.Errorf("offer max trade period must be positive")
	}
	return nil
}

// DepositInfo is the deposit tx attached to a trade.
type DepositInfo struct {
	TxId string
	Tx   []byte
}

// FundsLockedInInfo is the total this node has locked in escrow.
type FundsLockedInInfo struct {
	Amount   btcutil.Amount
	TradeIds []string
}
