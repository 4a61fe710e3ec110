package domain

// Event is a change notification of a trade or dispute. The set of events is
// closed, see the isEvent implementations below.
type Event interface {
	// Topic is the pubsub topic the event is published to.
	Topic() string
	// TradeId is the trade the event refers to.
	TradeId() string
	isEvent()
}

const (
	TopicTradeState      = "TRADE_STATE"
	TopicTradePeriod     = "TRADE_PERIOD"
	TopicDisputeState    = "DISPUTE_STATE"
	TopicDisputeOpened   = "DISPUTE_OPENED"
	TopicDisputeClosed   = "DISPUTE_CLOSED"
	TopicChatMessage     = "CHAT_MESSAGE"
	TopicPayoutPublished = "PAYOUT_PUBLISHED"
	TopicFault           = "FAULT"
)

type TradeStateChanged struct {
	Id        string `json:"tradeId"`
	OldState  State  `json:"oldState"`
	NewState  State  `json:"newState"`
	Phase     Phase  `json:"phase"`
	Timestamp int64  `json:"timestamp"`
}

type TradePeriodStateChanged struct {
	Id          string           `json:"tradeId"`
	PeriodState TradePeriodState `json:"tradePeriodState"`
	Timestamp   int64            `json:"timestamp"`
}

type DisputeStateChanged struct {
	Id           string       `json:"tradeId"`
	DisputeState DisputeState `json:"disputeState"`
	Timestamp    int64        `json:"timestamp"`
}

type DisputeOpened struct {
	Id          string      `json:"tradeId"`
	DisputeId   string      `json:"disputeId"`
	SupportType SupportType `json:"supportType"`
	ByPeer      bool        `json:"byPeer"`
	Timestamp   int64       `json:"timestamp"`
}

type DisputeClosed struct {
	Id        string `json:"tradeId"`
	DisputeId string `json:"disputeId"`
	Winner    Winner `json:"winner"`
	Timestamp int64  `json:"timestamp"`
}

type ChatMessageAdded struct {
	Id        string `json:"tradeId"`
	DisputeId string `json:"disputeId"`
	Uid       string `json:"uid"`
	Timestamp int64  `json:"timestamp"`
}

type PayoutPublished struct {
	Id        string `json:"tradeId"`
	TxId      string `json:"txid"`
	Disputed  bool   `json:"disputed"`
	Timestamp int64  `json:"timestamp"`
}

// FaultEvent carries the error of a failed operation so that it can be
// surfaced to the operator.
type FaultEvent struct {
	Id        string `json:"tradeId"`
	Operation string `json:"operation"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

func (e TradeStateChanged) Topic() string       { return TopicTradeState }
func (e TradePeriodStateChanged) Topic() string { return TopicTradePeriod }
func (e DisputeStateChanged) Topic() string     { return TopicDisputeState }
func (e DisputeOpened) Topic() string           { return TopicDisputeOpened }
func (e DisputeClosed) Topic() string           { return TopicDisputeClosed }
func (e ChatMessageAdded) Topic() string        { return TopicChatMessage }
func (e PayoutPublished) Topic() string         { return TopicPayoutPublished }
func (e FaultEvent) Topic() string              { return TopicFault }

func (e TradeStateChanged) TradeId() string       { return e.Id }
func (e TradePeriodStateChanged) TradeId() string { return e.Id }
func (e DisputeStateChanged) TradeId() string     { return e.Id }
func (e DisputeOpened) TradeId() string           { return e.Id }
func (e DisputeClosed) TradeId() string           { return e.Id }
func (e ChatMessageAdded) TradeId() string        { return e.Id }
func (e PayoutPublished) TradeId() string         { return e.Id }
func (e FaultEvent) TradeId() string              { return e.Id }

func (TradeStateChanged) isEvent()       {}
func (TradePeriodStateChanged) isEvent() {}
func (DisputeStateChanged) isEvent()     {}
func (DisputeOpened) isEvent()           {}
func (DisputeClosed) isEvent()           {}
func (ChatMessageAdded) isEvent()        {}
func (PayoutPublished) isEvent()         {}
func (FaultEvent) isEvent()              {}
