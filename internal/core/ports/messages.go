package ports

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
)

const (
	MessageTypeOpenNewDispute               = "OpenNewDisputeMessage"
	MessageTypePeerOpenedDispute            = "PeerOpenedDisputeMessage"
	MessageTypeChat                         = "ChatMessage"
	MessageTypeDisputeResult                = "DisputeResultMessage"
	MessageTypePeerPublishedDisputePayoutTx = "PeerPublishedDisputePayoutTxMessage"
)

// Message is a mailbox message of the dispute protocol.
type Message interface {
	Type() string
	GetUid() string
	GetTradeId() string
	GetSupportType() domain.SupportType
}

// OpenNewDisputeMessage is sent by a trader to the agent.
type OpenNewDisputeMessage struct {
	Uid         string             `json:"uid"`
	Dispute     domain.Dispute     `json:"dispute"`
	SupportType domain.SupportType `json:"supportType"`
}

// PeerOpenedDisputeMessage is sent by the agent to the trader who did not
// open the dispute.
type PeerOpenedDisputeMessage struct {
	Uid         string             `json:"uid"`
	Dispute     domain.Dispute     `json:"dispute"`
	SupportType domain.SupportType `json:"supportType"`
}

// ChatMessage carries evidence between a trader and the agent.
type ChatMessage struct {
	Message domain.ChatMessage `json:"chatMessage"`
}

// DisputeResultMessage carries the signed ruling of the agent.
type DisputeResultMessage struct {
	Uid         string               `json:"uid"`
	Result      domain.DisputeResult `json:"disputeResult"`
	SupportType domain.SupportType   `json:"supportType"`
}

// PeerPublishedDisputePayoutTxMessage is sent by the publishing trader to
// the other one with the finalized payout tx.
type PeerPublishedDisputePayoutTxMessage struct {
	Uid         string             `json:"uid"`
	TradeId     string             `json:"tradeId"`
	Transaction []byte             `json:"transaction"`
	SupportType domain.SupportType `json:"supportType"`
}

func NewOpenNewDisputeMessage(dispute domain.Dispute) *OpenNewDisputeMessage {
	return &OpenNewDisputeMessage{
		Uid:         uuid.New().String(),
		Dispute:     dispute,
		SupportType: dispute.SupportType,
	}
}

func NewPeerOpenedDisputeMessage(dispute domain.Dispute) *PeerOpenedDisputeMessage {
	return &PeerOpenedDisputeMessage{
		Uid:         uuid.New().String(),
		Dispute:     dispute,
		SupportType: dispute.SupportType,
	}
}

func NewDisputeResultMessage(
	result domain.DisputeResult, supportType domain.SupportType,
) *DisputeResultMessage {
	return &DisputeResultMessage{
		Uid:         uuid.New().String(),
		Result:      result,
		SupportType: supportType,
	}
}

func NewPeerPublishedDisputePayoutTxMessage(
	tradeId string, tx []byte, supportType domain.SupportType,
) *PeerPublishedDisputePayoutTxMessage {
	return &PeerPublishedDisputePayoutTxMessage{
		Uid:         uuid.New().String(),
		TradeId:     tradeId,
		Transaction: tx,
		SupportType: supportType,
	}
}

func (m *OpenNewDisputeMessage) Type() string                       { return MessageTypeOpenNewDispute }
func (m *OpenNewDisputeMessage) GetUid() string                     { return m.Uid }
func (m *OpenNewDisputeMessage) GetTradeId() string                 { return m.Dispute.TradeId }
func (m *OpenNewDisputeMessage) GetSupportType() domain.SupportType { return m.SupportType }

func (m *PeerOpenedDisputeMessage) Type() string                       { return MessageTypePeerOpenedDispute }
func (m *PeerOpenedDisputeMessage) GetUid() string                     { return m.Uid }
func (m *PeerOpenedDisputeMessage) GetTradeId() string                 { return m.Dispute.TradeId }
func (m *PeerOpenedDisputeMessage) GetSupportType() domain.SupportType { return m.SupportType }

func (m *ChatMessage) Type() string                       { return MessageTypeChat }
func (m *ChatMessage) GetUid() string                     { return m.Message.Uid }
func (m *ChatMessage) GetTradeId() string                 { return m.Message.TradeId }
func (m *ChatMessage) GetSupportType() domain.SupportType { return m.Message.SupportType }

func (m *DisputeResultMessage) Type() string                       { return MessageTypeDisputeResult }
func (m *DisputeResultMessage) GetUid() string                     { return m.Uid }
func (m *DisputeResultMessage) GetTradeId() string                 { return m.Result.TradeId }
func (m *DisputeResultMessage) GetSupportType() domain.SupportType { return m.SupportType }

func (m *PeerPublishedDisputePayoutTxMessage) Type() string {
	return MessageTypePeerPublishedDisputePayoutTx
}
func (m *PeerPublishedDisputePayoutTxMessage) GetUid() string     { return m.Uid }
func (m *PeerPublishedDisputePayoutTxMessage) GetTradeId() string { return m.TradeId }
func (m *PeerPublishedDisputePayoutTxMessage) GetSupportType() domain.SupportType {
	return m.SupportType
}

// NewMessageOfType returns an empty message of the given type, ready to be
// decoded into.
func NewMessageOfType(msgType string) (Message, error) {
	switch msgType {
	case MessageTypeOpenNewDispute:
		return &OpenNewDisputeMessage{}, nil
	case MessageTypePeerOpenedDispute:
		return &PeerOpenedDisputeMessage{}, nil
	case MessageTypeChat:
		return &ChatMessage{}, nil
	case MessageTypeDisputeResult:
		return &DisputeResultMessage{}, nil
	case MessageTypePeerPublishedDisputePayoutTx:
		return &PeerPublishedDisputePayoutTxMessage{}, nil
	default:
		return nil, fmt.Errorf("unknown message type %s", msgType)
	}
}
