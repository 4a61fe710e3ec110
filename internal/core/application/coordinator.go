package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-escrow/internal/core/application/dispute"
	"github.com/tdex-network/tdex-escrow/internal/core/application/trade"
	"github.com/tdex-network/tdex-escrow/internal/core/application/tradelock"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
)

// Coordinator is the single entry point mutating trades and disputes. Every
// mutation, whether requested by the operator or by an inbound message, runs
// under the lock of its trade.
type Coordinator struct {
	tradeSvc   TradeService
	disputeSvc DisputeService
	locker     *tradelock.Locker
	retryDelay time.Duration

	wg       sync.WaitGroup
	quit     chan struct{}
	stopOnce sync.Once
}

// NewCoordinator returns a coordinator. tradeSvc is nil for agent nodes.
func NewCoordinator(
	tradeSvc TradeService, disputeSvc DisputeService,
	locker *tradelock.Locker, retryDelay time.Duration,
) (*Coordinator, error) {
	if disputeSvc == nil {
		return nil, fmt.Errorf("missing dispute service")
	}
	if locker == nil {
		return nil, fmt.Errorf("missing trade locker")
	}
	if retryDelay <= 0 {
		return nil, fmt.Errorf("retry delay must be positive")
	}
	return &Coordinator{
		tradeSvc:   tradeSvc,
		disputeSvc: disputeSvc,
		locker:     locker,
		retryDelay: retryDelay,
		quit:       make(chan struct{}),
	}, nil
}

// Stop drops the pending retries and waits for those in progress.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() {
		close(c.quit)
	})
	c.wg.Wait()
}

// HandleMessage dispatches the inbound message to the dispute service
// together with its authenticated sender. Contract violations are logged and
// the message is dropped. A dispute result or a disputed payout received
// before the dispute it refers to is retried once after a delay.
func (c *Coordinator) HandleMessage(
	ctx context.Context, inbound ports.InboundMessage,
) error {
	msg := inbound.Message
	if msg == nil {
		return ErrMissingMessage
	}
	if c.isStopped() {
		return ErrServiceUnavailable
	}

	err := c.dispatch(ctx, inbound)
	if err == nil {
		return nil
	}

	if errors.Is(err, dispute.ErrContractViolation) {
		log.WithError(err).Errorf(
			"dropping %s for trade %s from %s",
			msg.Type(), msg.GetTradeId(), inbound.SenderNodeAddress,
		)
		return nil
	}
	if arrivedEarly(msg, err) {
		log.Debugf(
			"%s for trade %s arrived before its dispute, retrying in %s",
			msg.Type(), msg.GetTradeId(), c.retryDelay,
		)
		c.retryLater(inbound)
		return nil
	}
	return err
}

// arrivedEarly tells whether the message can be handled once the dispute
// it refers to is known.
func arrivedEarly(msg ports.Message, err error) bool {
	switch msg.Type() {
	case ports.MessageTypeDisputeResult:
		return errors.Is(err, domain.ErrDisputeNotFound)
	case ports.MessageTypePeerPublishedDisputePayoutTx:
		return errors.Is(err, domain.ErrDisputeNotFound) ||
			errors.Is(err, dispute.ErrDisputeResultNotFound)
	default:
		return false
	}
}

func (c *Coordinator) dispatch(
	ctx context.Context, inbound ports.InboundMessage,
) error {
	var err error
	c.locker.Run(inbound.Message.GetTradeId(), func() {
		err = c.handle(ctx, inbound.SenderPubKeyRing, inbound.Message)
	})
	return err
}

func (c *Coordinator) handle(
	ctx context.Context, sender domain.PubKeyRing, msg ports.Message,
) error {
	switch m := msg.(type) {
	case *ports.OpenNewDisputeMessage:
		return c.disputeSvc.OnOpenNewDisputeMessage(ctx, sender, m)
	case *ports.PeerOpenedDisputeMessage:
		return c.disputeSvc.OnPeerOpenedDisputeMessage(ctx, sender, m)
	case *ports.ChatMessage:
		return c.disputeSvc.OnChatMessage(ctx, sender, m)
	case *ports.DisputeResultMessage:
		return c.disputeSvc.OnDisputeResultMessage(ctx, sender, m)
	case *ports.PeerPublishedDisputePayoutTxMessage:
		return c.disputeSvc.OnPeerPublishedDisputePayoutTx(ctx, sender, m)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownMessageType, msg.Type())
	}
}

func (c *Coordinator) retryLater(inbound ports.InboundMessage) {
	msg := inbound.Message
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		select {
		case <-c.quit:
			return
		case <-time.After(c.retryDelay):
		}

		if err := c.dispatch(context.Background(), inbound); err != nil {
			log.WithError(err).Warnf(
				"dropping %s for trade %s after retry", msg.Type(), msg.GetTradeId(),
			)
		}
	}()
}

func (c *Coordinator) isStopped() bool {
	select {
	case <-c.quit:
		return true
	default:
		return false
	}
}

// **** Trade operations ****

func (c *Coordinator) runTrade(
	tradeId string, fn func(svc TradeService) (*domain.Trade, error),
) (*domain.Trade, error) {
	if c.tradeSvc == nil {
		return nil, ErrTradingDisabled
	}
	var t *domain.Trade
	var err error
	c.locker.Run(tradeId, func() {
		t, err = fn(c.tradeSvc)
	})
	return t, err
}

func (c *Coordinator) AddTrade(
	ctx context.Context, params trade.TradeParams,
) (*domain.Trade, error) {
	return c.runTrade(params.Id, func(svc TradeService) (*domain.Trade, error) {
		return svc.AddTrade(ctx, params)
	})
}

func (c *Coordinator) SetState(
	ctx context.Context, tradeId string, state domain.State,
) (*domain.Trade, error) {
	return c.runTrade(tradeId, func(svc TradeService) (*domain.Trade, error) {
		return svc.SetState(ctx, tradeId, state)
	})
}

func (c *Coordinator) OnTakerFeePublished(
	ctx context.Context, tradeId, txid string,
) (*domain.Trade, error) {
	return c.runTrade(tradeId, func(svc TradeService) (*domain.Trade, error) {
		return svc.OnTakerFeePublished(ctx, tradeId, txid)
	})
}

func (c *Coordinator) PublishDepositTx(
	ctx context.Context, tradeId string, rawTx []byte,
) (*domain.Trade, error) {
	return c.runTrade(tradeId, func(svc TradeService) (*domain.Trade, error) {
		return svc.PublishDepositTx(ctx, tradeId, rawTx)
	})
}

func (c *Coordinator) OnDepositPublished(
	ctx context.Context, tradeId string, deposit trade.DepositInfo,
) (*domain.Trade, error) {
	return c.runTrade(tradeId, func(svc TradeService) (*domain.Trade, error) {
		return svc.OnDepositPublished(ctx, tradeId, deposit)
	})
}

func (c *Coordinator) ConfirmPaymentSent(
	ctx context.Context, tradeId string,
) (*domain.Trade, error) {
	return c.runTrade(tradeId, func(svc TradeService) (*domain.Trade, error) {
		return svc.ConfirmPaymentSent(ctx, tradeId)
	})
}

func (c *Coordinator) OnPaymentSentMessage(
	ctx context.Context, tradeId string,
) (*domain.Trade, error) {
	return c.runTrade(tradeId, func(svc TradeService) (*domain.Trade, error) {
		return svc.OnPaymentSentMessage(ctx, tradeId)
	})
}

func (c *Coordinator) ConfirmPaymentReceived(
	ctx context.Context, tradeId string,
) (*domain.Trade, error) {
	return c.runTrade(tradeId, func(svc TradeService) (*domain.Trade, error) {
		return svc.ConfirmPaymentReceived(ctx, tradeId)
	})
}

func (c *Coordinator) OnPayoutPublished(
	ctx context.Context, tradeId, txid string,
) (*domain.Trade, error) {
	return c.runTrade(tradeId, func(svc TradeService) (*domain.Trade, error) {
		return svc.OnPayoutPublished(ctx, tradeId, txid)
	})
}

func (c *Coordinator) Withdraw(
	ctx context.Context, tradeId string,
) (*domain.Trade, error) {
	return c.runTrade(tradeId, func(svc TradeService) (*domain.Trade, error) {
		return svc.Withdraw(ctx, tradeId)
	})
}

// **** Dispute operations ****

func (c *Coordinator) OpenDispute(
	ctx context.Context, tradeId string, supportType domain.SupportType,
) (*domain.Dispute, error) {
	var d *domain.Dispute
	var err error
	c.locker.Run(tradeId, func() {
		d, err = c.disputeSvc.OpenDispute(ctx, tradeId, supportType)
	})
	return d, err
}

func (c *Coordinator) SendChatMessage(
	ctx context.Context, params dispute.ChatMessageParams,
) (*domain.ChatMessage, error) {
	d, err := c.disputeSvc.GetDispute(ctx, params.DisputeId)
	if err != nil {
		return nil, err
	}

	var msg *domain.ChatMessage
	c.locker.Run(d.TradeId, func() {
		msg, err = c.disputeSvc.SendChatMessage(ctx, params)
	})
	return msg, err
}

func (c *Coordinator) CloseDispute(
	ctx context.Context, params dispute.CloseDisputeParams,
) (*domain.DisputeResult, error) {
	d, err := c.disputeSvc.GetDispute(ctx, params.DisputeId)
	if err != nil {
		return nil, err
	}

	var result *domain.DisputeResult
	c.locker.Run(d.TradeId, func() {
		result, err = c.disputeSvc.CloseDispute(ctx, params)
	})
	return result, err
}

func (c *Coordinator) RetryDisputedPayout(
	ctx context.Context, disputeId string,
) (*domain.Dispute, error) {
	d, err := c.disputeSvc.GetDispute(ctx, disputeId)
	if err != nil {
		return nil, err
	}

	c.locker.Run(d.TradeId, func() {
		d, err = c.disputeSvc.RetryDisputedPayout(ctx, disputeId)
	})
	return d, err
}
