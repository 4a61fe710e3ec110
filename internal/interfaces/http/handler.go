package httpinterface

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-escrow/internal/core/application"
	"github.com/tdex-network/tdex-escrow/internal/core/application/dispute"
	"github.com/tdex-network/tdex-escrow/internal/core/application/trade"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
	httpmailbox "github.com/tdex-network/tdex-escrow/internal/infrastructure/http-mailbox"
)

const (
	maxBodySize = 1 << 20
)

// Coordinator serializes the mutations of trades and disputes.
type Coordinator interface {
	ports.MessageHandler

	AddTrade(ctx context.Context, params trade.TradeParams) (*domain.Trade, error)
	SetState(
		ctx context.Context, tradeId string, state domain.State,
	) (*domain.Trade, error)
	OnTakerFeePublished(
		ctx context.Context, tradeId, txid string,
	) (*domain.Trade, error)
	PublishDepositTx(
		ctx context.Context, tradeId string, rawTx []byte,
	) (*domain.Trade, error)
	OnDepositPublished(
		ctx context.Context, tradeId string, deposit trade.DepositInfo,
	) (*domain.Trade, error)
	ConfirmPaymentSent(ctx context.Context, tradeId string) (*domain.Trade, error)
	OnPaymentSentMessage(ctx context.Context, tradeId string) (*domain.Trade, error)
	ConfirmPaymentReceived(ctx context.Context, tradeId string) (*domain.Trade, error)
	OnPayoutPublished(
		ctx context.Context, tradeId, txid string,
	) (*domain.Trade, error)
	Withdraw(ctx context.Context, tradeId string) (*domain.Trade, error)

	OpenDispute(
		ctx context.Context, tradeId string, supportType domain.SupportType,
	) (*domain.Dispute, error)
	SendChatMessage(
		ctx context.Context, params dispute.ChatMessageParams,
	) (*domain.ChatMessage, error)
	CloseDispute(
		ctx context.Context, params dispute.CloseDisputeParams,
	) (*domain.DisputeResult, error)
	RetryDisputedPayout(
		ctx context.Context, disputeId string,
	) (*domain.Dispute, error)
}

// TradeReader is the read side of the trade service.
type TradeReader interface {
	GetTrade(ctx context.Context, tradeId string) (*domain.Trade, error)
	ListTrades(ctx context.Context, openOnly bool) ([]*domain.Trade, error)
	FundsLockedIn(ctx context.Context) (btcutil.Amount, []string, error)
}

// DisputeReader is the read side of the dispute service.
type DisputeReader interface {
	Role() dispute.NodeRole
	GetDispute(ctx context.Context, disputeId string) (*domain.Dispute, error)
	ListDisputes(ctx context.Context, tradeId string) ([]*domain.Dispute, error)
}

// Opts are the dependencies of the handler. Trades is nil for agent nodes,
// Gatherer is optional.
type Opts struct {
	Coordinator  Coordinator
	Trades       TradeReader
	Disputes     DisputeReader
	PubSub       application.PubSubService
	OfferManager ports.OpenOfferManager
	Network      ports.NetworkService
	Gatherer     prometheus.Gatherer
}

func (o Opts) validate() error {
	if o.Coordinator == nil {
		return fmt.Errorf("missing coordinator")
	}
	if o.Disputes == nil {
		return fmt.Errorf("missing dispute reader")
	}
	if o.PubSub == nil {
		return fmt.Errorf("missing pubsub service")
	}
	if o.OfferManager == nil {
		return fmt.Errorf("missing open offer manager")
	}
	if o.Network == nil {
		return fmt.Errorf("missing network service")
	}
	return nil
}

type handler struct {
	Opts
}

// NewHandler returns the REST api of the node, including the mailbox
// endpoint peers deliver their messages to.
func NewHandler(opts Opts) (http.Handler, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	h := &handler{opts}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger)
	r.Use(chimw.Recoverer)

	r.Post(httpmailbox.MailboxPath, h.receiveMailboxMessage)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/info", h.getInfo)
		r.Get("/funds", h.getFundsLockedIn)
		r.Get("/events", h.streamEvents)

		r.Route("/trades", func(r chi.Router) {
			r.Get("/", h.listTrades)
			r.Post("/", h.addTrade)
			r.Route("/{tradeId}", func(r chi.Router) {
				r.Get("/", h.getTrade)
				r.Post("/state", h.setTradeState)
				r.Post("/taker-fee", h.takerFeePublished)
				r.Post("/deposit", h.publishDeposit)
				r.Post("/deposit-published", h.depositPublished)
				r.Post("/payment-sent", h.confirmPaymentSent)
				r.Post("/payment-sent-message", h.paymentSentMessage)
				r.Post("/payment-received", h.confirmPaymentReceived)
				r.Post("/payout", h.payoutPublished)
				r.Post("/withdraw", h.withdraw)
				r.Get("/disputes", h.listTradeDisputes)
				r.Post("/disputes", h.openDispute)
			})
		})

		r.Route("/disputes", func(r chi.Router) {
			r.Get("/", h.listDisputes)
			r.Route("/{disputeId}", func(r chi.Router) {
				r.Get("/", h.getDispute)
				r.Post("/messages", h.sendChatMessage)
				r.Post("/close", h.closeDispute)
				r.Post("/retry-payout", h.retryDisputedPayout)
			})
		})

		r.Route("/webhooks", func(r chi.Router) {
			r.Get("/", h.listWebhooks)
			r.Post("/", h.addWebhook)
			r.Delete("/{webhookId}", h.removeWebhook)
		})

		r.Route("/offers", func(r chi.Router) {
			r.Get("/", h.listOffers)
			r.Post("/", h.addOffer)
			r.Get("/{offerId}", h.getOffer)
			r.Delete("/{offerId}", h.closeOffer)
		})
	})

	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	return r, nil
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			log.Debugf(
				"%s %s %d %s", r.Method, r.URL.Path, ww.Status(), time.Since(start),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}
