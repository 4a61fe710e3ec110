package httpinterface

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/go-chi/chi/v5"
	"github.com/tdex-network/tdex-escrow/internal/core/application"
	"github.com/tdex-network/tdex-escrow/internal/core/application/trade"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
)

type addTradeRequest struct {
	Id       string           `json:"id"`
	Role     domain.TradeRole `json:"role"`
	Offer    domain.Offer     `json:"offer"`
	Amount   btcutil.Amount   `json:"amount"`
	Price    int64            `json:"price"`
	TxFee    btcutil.Amount   `json:"txFee"`
	TakerFee btcutil.Amount   `json:"takerFee"`

	PeerNodeAddress        domain.NodeAddress `json:"peerNodeAddress"`
	ArbitratorNodeAddress  domain.NodeAddress `json:"arbitratorNodeAddress"`
	ArbitratorPubKeyRing   domain.PubKeyRing  `json:"arbitratorPubKeyRing"`
	ArbitratorBtcPubKey    []byte             `json:"arbitratorBtcPubKey"`
	MediatorNodeAddress    domain.NodeAddress `json:"mediatorNodeAddress"`
	MediatorPubKeyRing     domain.PubKeyRing  `json:"mediatorPubKeyRing"`
	RefundAgentNodeAddress domain.NodeAddress `json:"refundAgentNodeAddress"`
	RefundAgentPubKeyRing  domain.PubKeyRing  `json:"refundAgentPubKeyRing"`

	Contract               *domain.Contract `json:"contract"`
	MakerContractSignature string           `json:"makerContractSignature"`
	TakerContractSignature string           `json:"takerContractSignature"`
}

func (r addTradeRequest) toParams() trade.TradeParams {
	return trade.TradeParams{
		Id:                     r.Id,
		Role:                   r.Role,
		Offer:                  r.Offer,
		Amount:                 r.Amount,
		Price:                  r.Price,
		TxFee:                  r.TxFee,
		TakerFee:               r.TakerFee,
		PeerNodeAddress:        r.PeerNodeAddress,
		ArbitratorNodeAddress:  r.ArbitratorNodeAddress,
		ArbitratorPubKeyRing:   r.ArbitratorPubKeyRing,
		ArbitratorBtcPubKey:    r.ArbitratorBtcPubKey,
		MediatorNodeAddress:    r.MediatorNodeAddress,
		MediatorPubKeyRing:     r.MediatorPubKeyRing,
		RefundAgentNodeAddress: r.RefundAgentNodeAddress,
		RefundAgentPubKeyRing:  r.RefundAgentPubKeyRing,
		Contract:               r.Contract,
		MakerContractSignature: r.MakerContractSignature,
		TakerContractSignature: r.TakerContractSignature,
	}
}

type setStateRequest struct {
	State domain.State `json:"state"`
}

type txRequest struct {
	TxId  string `json:"txid"`
	TxHex string `json:"txHex"`
}

func (r txRequest) rawTx() ([]byte, error) {
	if len(r.TxHex) <= 0 {
		return nil, fmt.Errorf("%w: missing tx hex", ErrMalformedRequest)
	}
	tx, err := hex.DecodeString(r.TxHex)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid tx hex", ErrMalformedRequest)
	}
	return tx, nil
}

type fundsResponse struct {
	Amount   btcutil.Amount `json:"amount"`
	TradeIds []string       `json:"tradeIds"`
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %s", ErrMalformedRequest, err)
	}
	return nil
}

func (h *handler) tradeReader() (TradeReader, error) {
	if h.Trades == nil {
		return nil, application.ErrTradingDisabled
	}
	return h.Trades, nil
}

func (h *handler) listTrades(w http.ResponseWriter, r *http.Request) {
	trades, err := h.tradeReader()
	if err != nil {
		writeError(w, err)
		return
	}
	openOnly := r.URL.Query().Get("open") == "true"
	list, err := trades.ListTrades(r.Context(), openOnly)
	if err != nil {
		writeError(w, err)
		return
	}
	if list == nil {
		list = []*domain.Trade{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handler) getTrade(w http.ResponseWriter, r *http.Request) {
	trades, err := h.tradeReader()
	if err != nil {
		writeError(w, err)
		return
	}
	t, err := trades.GetTrade(r.Context(), chi.URLParam(r, "tradeId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *handler) getFundsLockedIn(w http.ResponseWriter, r *http.Request) {
	trades, err := h.tradeReader()
	if err != nil {
		writeError(w, err)
		return
	}
	amount, ids, err := trades.FundsLockedIn(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, fundsResponse{amount, ids})
}

func (h *handler) addTrade(w http.ResponseWriter, r *http.Request) {
	var req addTradeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	t, err := h.Coordinator.AddTrade(r.Context(), req.toParams())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *handler) setTradeState(w http.ResponseWriter, r *http.Request) {
	var req setStateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	t, err := h.Coordinator.SetState(
		r.Context(), chi.URLParam(r, "tradeId"), req.State,
	)
	writeTrade(w, t, err)
}

func (h *handler) takerFeePublished(w http.ResponseWriter, r *http.Request) {
	var req txRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	t, err := h.Coordinator.OnTakerFeePublished(
		r.Context(), chi.URLParam(r, "tradeId"), req.TxId,
	)
	writeTrade(w, t, err)
}

func (h *handler) publishDeposit(w http.ResponseWriter, r *http.Request) {
	var req txRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	rawTx, err := req.rawTx()
	if err != nil {
		writeError(w, err)
		return
	}
	t, err := h.Coordinator.PublishDepositTx(
		r.Context(), chi.URLParam(r, "tradeId"), rawTx,
	)
	writeTrade(w, t, err)
}

func (h *handler) depositPublished(w http.ResponseWriter, r *http.Request) {
	var req txRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	rawTx, err := req.rawTx()
	if err != nil {
		writeError(w, err)
		return
	}
	t, err := h.Coordinator.OnDepositPublished(
		r.Context(), chi.URLParam(r, "tradeId"),
		trade.DepositInfo{TxId: req.TxId, Tx: rawTx},
	)
	writeTrade(w, t, err)
}

func (h *handler) confirmPaymentSent(w http.ResponseWriter, r *http.Request) {
	t, err := h.Coordinator.ConfirmPaymentSent(
		r.Context(), chi.URLParam(r, "tradeId"),
	)
	writeTrade(w, t, err)
}

func (h *handler) paymentSentMessage(w http.ResponseWriter, r *http.Request) {
	t, err := h.Coordinator.OnPaymentSentMessage(
		r.Context(), chi.URLParam(r, "tradeId"),
	)
	writeTrade(w, t, err)
}

func (h *handler) confirmPaymentReceived(w http.ResponseWriter, r *http.Request) {
	t, err := h.Coordinator.ConfirmPaymentReceived(
		r.Context(), chi.URLParam(r, "tradeId"),
	)
	writeTrade(w, t, err)
}

func (h *handler) payoutPublished(w http.ResponseWriter, r *http.Request) {
	var req txRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	t, err := h.Coordinator.OnPayoutPublished(
		r.Context(), chi.URLParam(r, "tradeId"), req.TxId,
	)
	writeTrade(w, t, err)
}

func (h *handler) withdraw(w http.ResponseWriter, r *http.Request) {
	t, err := h.Coordinator.Withdraw(r.Context(), chi.URLParam(r, "tradeId"))
	writeTrade(w, t, err)
}

func writeTrade(w http.ResponseWriter, t *domain.Trade, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}
