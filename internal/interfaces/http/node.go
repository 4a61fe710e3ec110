package httpinterface

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-escrow/internal/core/application/pubsub"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	httpmailbox "github.com/tdex-network/tdex-escrow/internal/infrastructure/http-mailbox"
)

type infoResponse struct {
	NodeAddress domain.NodeAddress `json:"nodeAddress"`
	PubKeyRing  domain.PubKeyRing  `json:"pubKeyRing"`
	Role        string             `json:"role"`
}

type addWebhookRequest struct {
	Topic    string `json:"topic"`
	Endpoint string `json:"endpoint"`
	Secret   string `json:"secret"`
}

type addWebhookResponse struct {
	Id string `json:"id"`
}

type closeOfferResponse struct {
	Closed bool `json:"closed"`
}

func (h *handler) getInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, infoResponse{
		NodeAddress: h.Network.NodeAddress(),
		PubKeyRing:  h.Network.PubKeyRing(),
		Role:        h.Disputes.Role().String(),
	})
}

// receiveMailboxMessage is where peers deliver their messages. The reply
// is sent once the message is handled so that the sender learns whether it
// arrived.
func (h *handler) receiveMailboxMessage(w http.ResponseWriter, r *http.Request) {
	buf, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		writeError(w, err)
		return
	}
	inbound, err := httpmailbox.DecodeEnvelope(buf)
	if err != nil {
		log.WithError(err).Debug("rejected mailbox message")
		writeError(w, err)
		return
	}
	if err := h.Coordinator.HandleMessage(r.Context(), inbound); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *handler) listWebhooks(w http.ResponseWriter, r *http.Request) {
	hooks, err := h.PubSub.ListWebhooks(r.Context(), r.URL.Query().Get("topic"))
	if err != nil {
		writeError(w, err)
		return
	}
	if hooks == nil {
		hooks = []pubsub.WebhookInfo{}
	}
	writeJSON(w, http.StatusOK, hooks)
}

func (h *handler) addWebhook(w http.ResponseWriter, r *http.Request) {
	var req addWebhookRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	id, err := h.PubSub.AddWebhook(r.Context(), req.Topic, req.Endpoint, req.Secret)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, addWebhookResponse{id})
}

func (h *handler) removeWebhook(w http.ResponseWriter, r *http.Request) {
	if err := h.PubSub.RemoveWebhook(
		r.Context(), chi.URLParam(r, "webhookId"),
	); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) listOffers(w http.ResponseWriter, r *http.Request) {
	offers, err := h.OfferManager.ListOpenOffers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if offers == nil {
		offers = []*domain.OpenOffer{}
	}
	writeJSON(w, http.StatusOK, offers)
}

func (h *handler) addOffer(w http.ResponseWriter, r *http.Request) {
	var offer domain.Offer
	if err := decodeBody(r, &offer); err != nil {
		writeError(w, err)
		return
	}
	if err := h.OfferManager.AddOpenOffer(r.Context(), offer); err != nil {
		writeError(w, err)
		return
	}
	o, err := h.OfferManager.GetOpenOffer(r.Context(), offer.Id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *handler) getOffer(w http.ResponseWriter, r *http.Request) {
	o, err := h.OfferManager.GetOpenOffer(r.Context(), chi.URLParam(r, "offerId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *handler) closeOffer(w http.ResponseWriter, r *http.Request) {
	closed, err := h.OfferManager.CloseOpenOffer(
		r.Context(), chi.URLParam(r, "offerId"),
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, closeOfferResponse{closed})
}
