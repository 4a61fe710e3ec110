package httpinterface

import (
	"net/http"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/go-chi/chi/v5"
	"github.com/tdex-network/tdex-escrow/internal/core/application/dispute"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
)

type openDisputeRequest struct {
	SupportType domain.SupportType `json:"supportType"`
}

type chatMessageRequest struct {
	Message     string              `json:"message"`
	Attachments []domain.Attachment `json:"attachments"`
}

type closeDisputeRequest struct {
	Winner                 domain.Winner    `json:"winner"`
	Reason                 domain.Reason    `json:"reason"`
	FeePolicy              domain.FeePolicy `json:"feePolicy"`
	BuyerPayoutAmount      btcutil.Amount   `json:"buyerPayoutAmount"`
	SellerPayoutAmount     btcutil.Amount   `json:"sellerPayoutAmount"`
	ArbitratorPayoutAmount btcutil.Amount   `json:"arbitratorPayoutAmount"`
	ArbitratorAddress      string           `json:"arbitratorAddress"`
	SummaryNotes           string           `json:"summaryNotes"`
	IsLoserPublisher       bool             `json:"isLoserPublisher"`
	TamperProofEvidence    bool             `json:"tamperProofEvidence"`
	IdVerification         bool             `json:"idVerification"`
	ScreenCast             bool             `json:"screenCast"`
}

func (h *handler) listDisputes(w http.ResponseWriter, r *http.Request) {
	h.writeDisputes(w, r, r.URL.Query().Get("tradeId"))
}

func (h *handler) listTradeDisputes(w http.ResponseWriter, r *http.Request) {
	h.writeDisputes(w, r, chi.URLParam(r, "tradeId"))
}

func (h *handler) writeDisputes(
	w http.ResponseWriter, r *http.Request, tradeId string,
) {
	disputes, err := h.Disputes.ListDisputes(r.Context(), tradeId)
	if err != nil {
		writeError(w, err)
		return
	}
	if disputes == nil {
		disputes = []*domain.Dispute{}
	}
	writeJSON(w, http.StatusOK, disputes)
}

func (h *handler) getDispute(w http.ResponseWriter, r *http.Request) {
	d, err := h.Disputes.GetDispute(r.Context(), chi.URLParam(r, "disputeId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *handler) openDispute(w http.ResponseWriter, r *http.Request) {
	var req openDisputeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	d, err := h.Coordinator.OpenDispute(
		r.Context(), chi.URLParam(r, "tradeId"), req.SupportType,
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (h *handler) sendChatMessage(w http.ResponseWriter, r *http.Request) {
	var req chatMessageRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	msg, err := h.Coordinator.SendChatMessage(r.Context(), dispute.ChatMessageParams{
		DisputeId:   chi.URLParam(r, "disputeId"),
		Message:     req.Message,
		Attachments: req.Attachments,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (h *handler) closeDispute(w http.ResponseWriter, r *http.Request) {
	var req closeDisputeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	result, err := h.Coordinator.CloseDispute(r.Context(), dispute.CloseDisputeParams{
		DisputeId:              chi.URLParam(r, "disputeId"),
		Winner:                 req.Winner,
		Reason:                 req.Reason,
		FeePolicy:              req.FeePolicy,
		BuyerPayoutAmount:      req.BuyerPayoutAmount,
		SellerPayoutAmount:     req.SellerPayoutAmount,
		ArbitratorPayoutAmount: req.ArbitratorPayoutAmount,
		ArbitratorAddress:      req.ArbitratorAddress,
		SummaryNotes:           req.SummaryNotes,
		IsLoserPublisher:       req.IsLoserPublisher,
		TamperProofEvidence:    req.TamperProofEvidence,
		IdVerification:         req.IdVerification,
		ScreenCast:             req.ScreenCast,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) retryDisputedPayout(w http.ResponseWriter, r *http.Request) {
	d, err := h.Coordinator.RetryDisputedPayout(
		r.Context(), chi.URLParam(r, "disputeId"),
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
