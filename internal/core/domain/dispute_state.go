package domain

import "fmt"

// DisputeState tracks the support sub-flow of a trade. It is orthogonal to
// the trade phase.
type DisputeState int

const (
	DisputeStateNoDispute DisputeState = iota
	DisputeStateDisputeRequested
	DisputeStateDisputeStartedByPeer
	DisputeStateDisputeClosed
	DisputeStateMediationRequested
	DisputeStateMediationStartedByPeer
	DisputeStateMediationClosed
	DisputeStateRefundRequested
	DisputeStateRefundRequestStartedByPeer
	DisputeStateRefundRequestClosed
)

var disputeStateNames = []string{
	"NO_DISPUTE",
	"DISPUTE_REQUESTED",
	"DISPUTE_STARTED_BY_PEER",
	"DISPUTE_CLOSED",
	"MEDIATION_REQUESTED",
	"MEDIATION_STARTED_BY_PEER",
	"MEDIATION_CLOSED",
	"REFUND_REQUESTED",
	"REFUND_REQUEST_STARTED_BY_PEER",
	"REFUND_REQUEST_CLOSED",
}

func (d DisputeState) String() string {
	return enumName(disputeStateNames, int(d))
}

func (d DisputeState) IsNotDisputed() bool {
	return d == DisputeStateNoDispute
}

func (d DisputeState) IsMediated() bool {
	return d == DisputeStateMediationRequested ||
		d == DisputeStateMediationStartedByPeer ||
		d == DisputeStateMediationClosed
}

// IsArbitrated includes the refund agent sub-states, the refund agent being
// the arbitrator of the current protocol.
func (d DisputeState) IsArbitrated() bool {
	return d == DisputeStateDisputeRequested ||
		d == DisputeStateDisputeStartedByPeer ||
		d == DisputeStateDisputeClosed ||
		d.IsRefund()
}

func (d DisputeState) IsRefund() bool {
	return d == DisputeStateRefundRequested ||
		d == DisputeStateRefundRequestStartedByPeer ||
		d == DisputeStateRefundRequestClosed
}

func (d DisputeState) MarshalText() ([]byte, error) {
	return marshalEnum(disputeStateNames, int(d), "dispute state")
}

func (d *DisputeState) UnmarshalText(text []byte) error {
	i, err := parseEnum(disputeStateNames, string(text))
	if err != nil {
		return err
	}
	*d = DisputeState(i)
	return nil
}

// TradePeriodState tells how much of the max trade period has elapsed.
type TradePeriodState int

const (
	TradePeriodFirstHalf TradePeriodState = iota
	TradePeriodSecondHalf
	TradePeriodOver
)

var tradePeriodStateNames = []string{
	"FIRST_HALF",
	"SECOND_HALF",
	"TRADE_PERIOD_OVER",
}

func (p TradePeriodState) String() string {
	return enumName(tradePeriodStateNames, int(p))
}

func (p TradePeriodState) MarshalText() ([]byte, error) {
	return marshalEnum(tradePeriodStateNames, int(p), "trade period state")
}

func (p *TradePeriodState) UnmarshalText(text []byte) error {
	i, err := parseEnum(tradePeriodStateNames, string(text))
	if err != nil {
		return err
	}
	*p = TradePeriodState(i)
	return nil
}

// MediationResultState is compared by position: every state from
// PAYOUT_TX_PUBLISHED onward means the mediated payout is on chain.
type MediationResultState int

const (
	MediationResultUndefined MediationResultState = iota
	MediationResultAccepted
	MediationResultRejected
	MediationResultSigMsgSent
	MediationResultSigMsgArrived
	MediationResultSigMsgInMailbox
	MediationResultSigMsgSendFailed
	MediationResultReceivedSigMsg
	MediationResultPayoutTxPublished
	MediationResultPayoutTxPublishedMsgSent
	MediationResultPayoutTxPublishedMsgArrived
	MediationResultPayoutTxPublishedMsgInMailbox
	MediationResultPayoutTxPublishedMsgSendFailed
	MediationResultReceivedPayoutTxPublishedMsg
	MediationResultPayoutTxSeenInNetwork
)

var mediationResultStateNames = []string{
	"UNDEFINED_MEDIATION_RESULT",
	"MEDIATION_RESULT_ACCEPTED",
	"MEDIATION_RESULT_REJECTED",
	"SIG_MSG_SENT",
	"SIG_MSG_ARRIVED",
	"SIG_MSG_IN_MAILBOX",
	"SIG_MSG_SEND_FAILED",
	"RECEIVED_SIG_MSG",
	"PAYOUT_TX_PUBLISHED",
	"PAYOUT_TX_PUBLISHED_MSG_SENT",
	"PAYOUT_TX_PUBLISHED_MSG_ARRIVED",
	"PAYOUT_TX_PUBLISHED_MSG_IN_MAILBOX",
	"PAYOUT_TX_PUBLISHED_MSG_SEND_FAILED",
	"RECEIVED_PAYOUT_TX_PUBLISHED_MSG",
	"PAYOUT_TX_SEEN_IN_NETWORK",
}

func (m MediationResultState) String() string {
	return enumName(mediationResultStateNames, int(m))
}

func (m MediationResultState) IsPayoutPublished() bool {
	return m >= MediationResultPayoutTxPublished
}

func (m MediationResultState) MarshalText() ([]byte, error) {
	return marshalEnum(mediationResultStateNames, int(m), "mediation result state")
}

func (m *MediationResultState) UnmarshalText(text []byte) error {
	i, err := parseEnum(mediationResultStateNames, string(text))
	if err != nil {
		return err
	}
	*m = MediationResultState(i)
	return nil
}

type RefundResultState int

const (
	RefundResultUndefined RefundResultState = iota
)

var refundResultStateNames = []string{
	"UNDEFINED_REFUND_RESULT",
}

func (r RefundResultState) String() string {
	return enumName(refundResultStateNames, int(r))
}

func (r RefundResultState) MarshalText() ([]byte, error) {
	return marshalEnum(refundResultStateNames, int(r), "refund result state")
}

func (r *RefundResultState) UnmarshalText(text []byte) error {
	i, err := parseEnum(refundResultStateNames, string(text))
	if err != nil {
		return err
	}
	*r = RefundResultState(i)
	return nil
}

func marshalEnum(names []string, i int, kind string) ([]byte, error) {
	if !validEnum(names, i) {
		return nil, fmt.Errorf("%w: %s %d", ErrUnknownEnumValue, kind, i)
	}
	return []byte(names[i]), nil
}
