package httpinterface

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-escrow/internal/core/application"
	"github.com/tdex-network/tdex-escrow/internal/core/application/dispute"
	"github.com/tdex-network/tdex-escrow/internal/core/application/pubsub"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	httpmailbox "github.com/tdex-network/tdex-escrow/internal/infrastructure/http-mailbox"
	"github.com/tdex-network/tdex-escrow/internal/infrastructure/offerbook"
	webhookpubsub "github.com/tdex-network/tdex-escrow/internal/infrastructure/pubsub"
)

var (
	// ErrMalformedRequest ...
	ErrMalformedRequest = errors.New("malformed request body")
)

var (
	notFoundErrors = []error{
		domain.ErrTradeNotFound,
		domain.ErrDisputeNotFound,
		domain.ErrOpenOfferNotFound,
		webhookpubsub.ErrSubscriptionNotFound,
	}
	conflictErrors = []error{
		domain.ErrTradeAlreadyExists,
		domain.ErrDisputeAlreadyExists,
		domain.ErrOpenOfferAlreadyExists,
		domain.ErrTradeMustBeBuyer,
		domain.ErrTradeMustBeSeller,
		domain.ErrDepositNotPublished,
		domain.ErrDepositNotConfirmed,
		domain.ErrFiatNotSent,
		domain.ErrPayoutNotPublished,
		domain.ErrConfirmNotPermitted,
		domain.ErrInvalidTransition,
		domain.ErrTradeClosed,
		dispute.ErrDisputeClosed,
	}
	forbiddenErrors = []error{
		application.ErrTradingDisabled,
		dispute.ErrNotAgent,
		dispute.ErrNotTrader,
		pubsub.ErrWebhooksDisabled,
	}
	badRequestErrors = []error{
		ErrMalformedRequest,
		httpmailbox.ErrMalformedEnvelope,
		httpmailbox.ErrInvalidSender,
		httpmailbox.ErrInvalidSignature,
		application.ErrMissingMessage,
		application.ErrUnknownMessageType,
		domain.ErrUnknownEnumValue,
		domain.ErrTradeMissingId,
		domain.ErrInvalidTradeAmount,
		domain.ErrInvalidTradePrice,
		domain.ErrNegativePayoutAmount,
		domain.ErrEmptyPayout,
		domain.ErrFeePolicyMismatch,
		dispute.ErrEmptyChatMessage,
		dispute.ErrMissingAgent,
		pubsub.ErrUnknownTopic,
		webhookpubsub.ErrMissingTopic,
		webhookpubsub.ErrInvalidEndpoint,
		offerbook.ErrMissingOfferId,
		offerbook.ErrInvalidTradePeriod,
	}
)

func statusCode(err error) int {
	switch {
	case isAny(err, notFoundErrors):
		return http.StatusNotFound
	case isAny(err, forbiddenErrors):
		return http.StatusForbidden
	case isAny(err, conflictErrors):
		return http.StatusConflict
	case isAny(err, badRequestErrors):
		return http.StatusBadRequest
	case errors.Is(err, application.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, err error) {
	status := statusCode(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).Warn("request failed")
	}
	writeJSON(w, status, errorResponse{err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Debug("failed to write response")
	}
}
