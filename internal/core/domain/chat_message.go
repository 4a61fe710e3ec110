package domain

import (
	"time"

	"github.com/google/uuid"
)

// Attachment is a file attached to a chat message.
type Attachment struct {
	FileName string `json:"fileName"`
	Bytes    []byte `json:"bytes"`
}

// ChatMessage is an evidence message exchanged between a trader and the
// agent handling the dispute.
type ChatMessage struct {
	Uid             string       `json:"uid"`
	SupportType     SupportType  `json:"supportType"`
	TradeId         string       `json:"tradeId"`
	TraderId        int          `json:"traderId"`
	SenderIsTrader  bool         `json:"senderIsTrader"`
	Message         string       `json:"message"`
	Attachments     []Attachment `json:"attachments,omitempty"`
	SenderAddress   NodeAddress  `json:"senderNodeAddress"`
	Date            int64        `json:"date"`
	IsSystemMessage bool         `json:"isSystemMessage"`
	Arrived         bool         `json:"arrived"`
	StoredInMailbox bool         `json:"storedInMailbox"`
	WasDisplayed    bool         `json:"wasDisplayed"`
	SendMessageErr  string       `json:"sendMessageError,omitempty"`
}

// NewChatMessage returns a message with a fresh uid.
func NewChatMessage(
	supportType SupportType, tradeId string, traderId int,
	senderIsTrader bool, message string, sender NodeAddress,
) ChatMessage {
	return ChatMessage{
		Uid:            uuid.New().String(),
		SupportType:    supportType,
		TradeId:        tradeId,
		TraderId:       traderId,
		SenderIsTrader: senderIsTrader,
		Message:        message,
		SenderAddress:  sender,
		Date:           time.Now().Unix(),
	}
}

// NewSystemMessage returns a system chat message, the first message added
// to every dispute.
func NewSystemMessage(
	supportType SupportType, tradeId string, traderId int,
	message string, sender NodeAddress,
) ChatMessage {
	msg := NewChatMessage(supportType, tradeId, traderId, true, message, sender)
	msg.IsSystemMessage = true
	return msg
}
