package domain

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
)

type TradeDirection int

const (
	Buyer TradeDirection = iota
	Seller
)

var tradeDirectionNames = []string{"BUYER", "SELLER"}

func (d TradeDirection) String() string {
	return enumName(tradeDirectionNames, int(d))
}

func (d TradeDirection) MarshalText() ([]byte, error) {
	return marshalEnum(tradeDirectionNames, int(d), "trade direction")
}

func (d *TradeDirection) UnmarshalText(text []byte) error {
	i, err := parseEnum(tradeDirectionNames, string(text))
	if err != nil {
		return err
	}
	*d = TradeDirection(i)
	return nil
}

type TradeInitiator int

const (
	Maker TradeInitiator = iota
	Taker
)

var tradeInitiatorNames = []string{"MAKER", "TAKER"}

func (i TradeInitiator) String() string {
	return enumName(tradeInitiatorNames, int(i))
}

func (i TradeInitiator) MarshalText() ([]byte, error) {
	return marshalEnum(tradeInitiatorNames, int(i), "trade initiator")
}

func (i *TradeInitiator) UnmarshalText(text []byte) error {
	v, err := parseEnum(tradeInitiatorNames, string(text))
	if err != nil {
		return err
	}
	*i = TradeInitiator(v)
	return nil
}

// TradeRole is fixed at trade creation and never changes.
type TradeRole struct {
	Direction TradeDirection `json:"direction"`
	Initiator TradeInitiator `json:"initiator"`
}

func (r TradeRole) IsBuyer() bool { return r.Direction == Buyer }
func (r TradeRole) IsSeller() bool { return r.Direction == Seller }
func (r TradeRole) IsMaker() bool { return r.Initiator == Maker }
func (r TradeRole) IsTaker() bool { return r.Initiator == Taker }

// Validate returns an error if direction or initiator is unknown.
func (r TradeRole) Validate() error {
	if !validEnum(tradeDirectionNames, int(r.Direction)) {
		return fmt.Errorf("%w: trade direction %d", ErrUnknownEnumValue, int(r.Direction))
	}
	if !validEnum(tradeInitiatorNames, int(r.Initiator)) {
		return fmt.Errorf("%w: trade initiator %d", ErrUnknownEnumValue, int(r.Initiator))
	}
	return nil
}

func (r TradeRole) String() string {
	return fmt.Sprintf("%s_AS_%s", r.Direction, r.Initiator)
}

// roleRules holds the behaviour that differs between buyer and seller.
type roleRules struct {
	payoutAmount     func(t *Trade) btcutil.Amount
	confirmPermitted func(t *Trade) bool
}

var rulesByDirection = map[TradeDirection]roleRules{
	Buyer: {
		payoutAmount: func(t *Trade) btcutil.Amount {
			return t.Offer.BuyerSecurityDeposit + t.Amount
		},
		confirmPermitted: func(t *Trade) bool {
			return !t.DisputeState.IsArbitrated()
		},
	},
	Seller: {
		payoutAmount: func(t *Trade) btcutil.Amount {
			return t.Offer.SellerSecurityDeposit
		},
		confirmPermitted: func(t *Trade) bool {
			switch t.DisputeState {
			case DisputeStateNoDispute:
				return true
			case DisputeStateMediationClosed:
				return !t.MediationResultAppliedPenaltyToSeller()
			default:
				return false
			}
		},
	},
}

// noRules applies to a role with an unknown direction: no payout and no
// confirmation.
var noRules = roleRules{
	payoutAmount:     func(*Trade) btcutil.Amount { return 0 },
	confirmPermitted: func(*Trade) bool { return false },
}

func (r TradeRole) rules() roleRules {
	rules, ok := rulesByDirection[r.Direction]
	if !ok {
		return noRules
	}
	return rules
}
