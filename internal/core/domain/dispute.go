package domain

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// DisputeStatus is the lifecycle of a single Dispute object.
type DisputeStatus int

const (
	DisputeStatusNeedsUpgrade DisputeStatus = iota
	DisputeStatusNew
	DisputeStatusOpen
	DisputeStatusReopened
	DisputeStatusClosed
)

var disputeStatusNames = []string{
	"NEEDS_UPGRADE",
	"NEW",
	"OPEN",
	"REOPENED",
	"CLOSED",
}

func (s DisputeStatus) String() string {
	return enumName(disputeStatusNames, int(s))
}

func (s DisputeStatus) MarshalText() ([]byte, error) {
	return marshalEnum(disputeStatusNames, int(s), "dispute status")
}

func (s *DisputeStatus) UnmarshalText(text []byte) error {
	i, err := parseEnum(disputeStatusNames, string(text))
	if err != nil {
		return err
	}
	*s = DisputeStatus(i)
	return nil
}

// SupportType is the kind of agent handling a dispute.
type SupportType int

const (
	SupportTypeArbitration SupportType = iota
	SupportTypeMediation
	SupportTypeTrade
	SupportTypeRefund
)

var supportTypeNames = []string{
	"ARBITRATION",
	"MEDIATION",
	"TRADE",
	"REFUND",
}

func (s SupportType) String() string {
	return enumName(supportTypeNames, int(s))
}

func (s SupportType) MarshalText() ([]byte, error) {
	return marshalEnum(supportTypeNames, int(s), "support type")
}

func (s *SupportType) UnmarshalText(text []byte) error {
	i, err := parseEnum(supportTypeNames, string(text))
	if err != nil {
		return err
	}
	*s = SupportType(i)
	return nil
}

// RequestedDisputeState is the trade dispute state of the opener.
func (s SupportType) RequestedDisputeState() DisputeState {
	switch s {
	case SupportTypeMediation:
		return DisputeStateMediationRequested
	case SupportTypeRefund:
		return DisputeStateRefundRequested
	default:
		return DisputeStateDisputeRequested
	}
}

// StartedByPeerDisputeState is the trade dispute state of the peer of the
// opener.
func (s SupportType) StartedByPeerDisputeState() DisputeState {
	switch s {
	case SupportTypeMediation:
		return DisputeStateMediationStartedByPeer
	case SupportTypeRefund:
		return DisputeStateRefundRequestStartedByPeer
	default:
		return DisputeStateDisputeStartedByPeer
	}
}

// ClosedDisputeState is the trade dispute state once a result is applied.
func (s SupportType) ClosedDisputeState() DisputeState {
	switch s {
	case SupportTypeMediation:
		return DisputeStateMediationClosed
	case SupportTypeRefund:
		return DisputeStateRefundRequestClosed
	default:
		return DisputeStateDisputeClosed
	}
}

// TraderIdFromPubKeyRing derives the numeric trader id used in dispute ids.
func TraderIdFromPubKeyRing(pubKeyRing PubKeyRing) int {
	h := sha256.Sum256(append(
		append([]byte{}, pubKeyRing.SignaturePubKey...),
		pubKeyRing.EncryptionPubKey...,
	))
	return int(binary.BigEndian.Uint32(h[:4]) & 0x7fffffff)
}

// DisputeId returns the id of the dispute of the given trader.
func DisputeId(tradeId string, traderId int) string {
	return fmt.Sprintf("%s_%d", tradeId, traderId)
}

// Dispute is the case of one trader of a disputed trade. Each disputed trade
// has two of them, one per trader, referencing the same agent.
type Dispute struct {
	Id                     string
	TradeId                string
	TraderId               int
	OpeningDate            int64
	DisputeOpenerIsBuyer   bool
	DisputeOpenerIsMaker   bool
	TraderPubKeyRing       PubKeyRing
	AgentPubKeyRing        PubKeyRing
	AgentNodeAddress       NodeAddress
	TradeDate              int64
	TradePeriodEnd         int64
	Contract               *Contract
	ContractHash           []byte
	ContractAsJson         string
	DepositTxSerialized    []byte
	PayoutTxSerialized     []byte
	DepositTxId            string
	PayoutTxId             string
	MakerContractSignature string
	TakerContractSignature string
	IsSupportTicket        bool
	SupportType            SupportType
	Status                 DisputeStatus
	ChatMessages           []ChatMessage
	Result                 *DisputeResult
	DisputePayoutTxId      string
	MediatorsDisputeResult string
	DelayedPayoutTxId      string
	ExtraData              map[string]string
	// FaultMessage is the error of the last failed operation on the dispute.
	FaultMessage string
}

// NewDispute returns a dispute in NEW status for the given trader.
func NewDispute(
	tradeId string, traderPubKeyRing PubKeyRing, supportType SupportType,
	openerIsBuyer, openerIsMaker bool,
) *Dispute {
	traderId := TraderIdFromPubKeyRing(traderPubKeyRing)
	return &Dispute{
		Id:                   DisputeId(tradeId, traderId),
		TradeId:              tradeId,
		TraderId:             traderId,
		OpeningDate:          time.Now().Unix(),
		DisputeOpenerIsBuyer: openerIsBuyer,
		DisputeOpenerIsMaker: openerIsMaker,
		TraderPubKeyRing:     traderPubKeyRing,
		SupportType:          supportType,
		Status:               DisputeStatusNew,
	}
}

func (d *Dispute) ShortTradeId() string {
	if len(d.TradeId) <= shortIdLen {
		return d.TradeId
	}
	return d.TradeId[:shortIdLen]
}

func (d *Dispute) IsNew() bool {
	return d.Status == DisputeStatusNew
}

func (d *Dispute) IsClosed() bool {
	return d.Status == DisputeStatusClosed
}

func (d *Dispute) SetIsClosed() {
	d.Status = DisputeStatusClosed
}

func (d *Dispute) ReOpen() {
	d.Status = DisputeStatusReopened
}

// SetDisputeSeen moves a NEW dispute to OPEN.
func (d *Dispute) SetDisputeSeen() {
	if d.Status == DisputeStatusNew {
		d.Status = DisputeStatusOpen
	}
}

// HasResult returns whether a result was already applied.
func (d *Dispute) HasResult() bool {
	return d.Result != nil
}

// AddChatMessage appends the message unless one with the same uid exists and
// returns whether it was added.
func (d *Dispute) AddChatMessage(msg ChatMessage) bool {
	for _, m := range d.ChatMessages {
		if m.Uid == msg.Uid {
			log.Warnf("chat message %s already exists in dispute %s", msg.Uid, d.Id)
			return false
		}
	}
	d.ChatMessages = append(d.ChatMessages, msg)
	return true
}

// FindChatMessage returns the message with the given uid, if any.
func (d *Dispute) FindChatMessage(uid string) (*ChatMessage, bool) {
	for i := range d.ChatMessages {
		if d.ChatMessages[i].Uid == uid {
			return &d.ChatMessages[i], true
		}
	}
	return nil, false
}

// OpeningMessage returns the system message added when the dispute was
// opened. Its delivery flags track the open request sent to the agent.
func (d *Dispute) OpeningMessage() (*ChatMessage, bool) {
	if len(d.ChatMessages) <= 0 || !d.ChatMessages[0].IsSystemMessage {
		return nil, false
	}
	return &d.ChatMessages[0], true
}

// RemoveAllChatMessages keeps only the first message, the system message
// opening the dispute.
func (d *Dispute) RemoveAllChatMessages() bool {
	if len(d.ChatMessages) <= 1 {
		return false
	}
	d.ChatMessages = d.ChatMessages[:1]
	return true
}

// UnreadMessageCount counts the messages not yet displayed coming from the
// given side or from the system.
func (d *Dispute) UnreadMessageCount(senderIsTrader bool) int {
	count := 0
	for _, m := range d.ChatMessages {
		if (m.SenderIsTrader == senderIsTrader || m.IsSystemMessage) && !m.WasDisplayed {
			count++
		}
	}
	return count
}

func (d *Dispute) SetChatMessagesSeen() {
	for i := range d.ChatMessages {
		d.ChatMessages[i].WasDisplayed = true
	}
}

func (d *Dispute) SetExtraData(key, value string) {
	if len(key) <= 0 || len(value) <= 0 {
		return
	}
	if d.ExtraData == nil {
		d.ExtraData = make(map[string]string)
	}
	d.ExtraData[key] = value
}

// RoleString returns the opener role, ie. BUYER_MAKER.
func (d *Dispute) RoleString() string {
	direction, initiator := "SELLER", "TAKER"
	if d.DisputeOpenerIsBuyer {
		direction = "BUYER"
	}
	if d.DisputeOpenerIsMaker {
		initiator = "MAKER"
	}
	return direction + "_" + initiator
}

// MaybeClearSensitiveData behaves like Trade.MaybeClearSensitiveData.
func (d *Dispute) MaybeClearSensitiveData() string {
	change := ""
	if d.Contract != nil && d.Contract.MaybeClearSensitiveData() {
		change += "contract;"
	}
	if len(d.ContractAsJson) > 0 {
		edited, err := SanitizeContractAsJSON(d.ContractAsJson)
		if err != nil {
			log.WithError(err).Warnf(
				"unable to sanitize contract json of dispute %s", d.Id,
			)
		} else if edited != d.ContractAsJson {
			d.ContractAsJson = edited
			change += "contractAsJson;"
		}
	}
	if d.RemoveAllChatMessages() {
		change += "chat messages;"
	}
	if len(change) > 0 {
		log.Infof(
			"cleared sensitive data from %s of dispute for trade %s",
			change, d.ShortTradeId(),
		)
	}
	return change
}

// Mirror returns the dispute of the peer of the opener: same trade data,
// opposite opener flags and the peer's pub key ring.
func (d *Dispute) Mirror(peersPubKeyRing PubKeyRing) *Dispute {
	mirror := *d
	traderId := TraderIdFromPubKeyRing(peersPubKeyRing)
	mirror.Id = DisputeId(d.TradeId, traderId)
	mirror.TraderId = traderId
	mirror.TraderPubKeyRing = peersPubKeyRing
	mirror.DisputeOpenerIsBuyer = !d.DisputeOpenerIsBuyer
	mirror.DisputeOpenerIsMaker = !d.DisputeOpenerIsMaker
	mirror.OpeningDate = time.Now().Unix()
	mirror.Status = DisputeStatusNew
	mirror.ChatMessages = nil
	mirror.Result = nil
	mirror.DisputePayoutTxId = ""
	mirror.FaultMessage = ""
	if d.Contract != nil {
		contract := *d.Contract
		mirror.Contract = &contract
	}
	mirror.ExtraData = nil
	for k, v := range d.ExtraData {
		mirror.SetExtraData(k, v)
	}
	return &mirror
}

// IsTraderBuyer returns whether the owner of this dispute is the buyer.
func (d *Dispute) IsTraderBuyer() bool {
	if d.Contract == nil {
		return d.DisputeOpenerIsBuyer
	}
	return d.Contract.IsMyRoleBuyer(d.TraderPubKeyRing)
}
