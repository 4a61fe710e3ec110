// Package metrics exposes the domain events as prometheus collectors.
package metrics

import (
	"context"
	"strconv"
	"sync"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
)

const namespace = "escrow"

// FundsLockedInFunc returns the total amount locked in the open trades.
type FundsLockedInFunc func(ctx context.Context) (btcutil.Amount, []string, error)

type Collector struct {
	tradesByPhase      *prometheus.GaugeVec
	stateTransitions   *prometheus.CounterVec
	disputesOpened     *prometheus.CounterVec
	disputesClosed     *prometheus.CounterVec
	payoutsPublished   *prometheus.CounterVec
	chatMessages       prometheus.Counter
	faults             *prometheus.CounterVec
	tradePeriodChanges *prometheus.CounterVec

	lock        sync.Mutex
	tradePhases map[string]domain.Phase
}

// NewCollector registers the collectors to the given registerer. The funds
// locked gauge is collected only if fundsLockedIn is not nil, agent nodes
// have no funds at stake.
func NewCollector(
	reg prometheus.Registerer, fundsLockedIn FundsLockedInFunc,
) (*Collector, error) {
	c := &Collector{
		tradesByPhase: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "trades_by_phase",
			Help:      "Number of trades per phase.",
		}, []string{"phase"}),
		stateTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trade_state_transitions_total",
			Help:      "Number of trade state changes per new state.",
		}, []string{"state"}),
		disputesOpened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "disputes_opened_total",
			Help:      "Number of disputes opened per support type.",
		}, []string{"support_type", "by_peer"}),
		disputesClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "disputes_closed_total",
			Help:      "Number of disputes closed per winner.",
		}, []string{"winner"}),
		payoutsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payouts_published_total",
			Help:      "Number of payout txs published.",
		}, []string{"disputed"}),
		chatMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_messages_total",
			Help:      "Number of dispute chat messages added.",
		}),
		faults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "faults_total",
			Help:      "Number of failed operations.",
		}, []string{"operation"}),
		tradePeriodChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trade_period_changes_total",
			Help:      "Number of trade period state changes.",
		}, []string{"period_state"}),
		tradePhases: make(map[string]domain.Phase),
	}

	collectors := []prometheus.Collector{
		c.tradesByPhase, c.stateTransitions, c.disputesOpened,
		c.disputesClosed, c.payoutsPublished, c.chatMessages, c.faults,
		c.tradePeriodChanges,
	}
	if fundsLockedIn != nil {
		collectors = append(collectors, prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "funds_locked_in_satoshis",
				Help:      "Amount locked in the open trades.",
			},
			func() float64 {
				total, _, err := fundsLockedIn(context.Background())
				if err != nil {
					log.WithError(err).Warn("failed to collect funds locked in")
					return 0
				}
				return float64(total)
			},
		))
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Seed initializes the per-phase gauge with the persisted trades.
func (c *Collector) Seed(trades []*domain.Trade) {
	c.lock.Lock()
	defer c.lock.Unlock()

	for _, t := range trades {
		c.setPhase(t.Id, t.State.Phase())
	}
}

// Handle updates the collectors for the event. It is meant to be registered
// as a notifier listener.
func (c *Collector) Handle(event domain.Event) {
	switch e := event.(type) {
	case domain.TradeStateChanged:
		c.stateTransitions.WithLabelValues(e.NewState.String()).Inc()
		c.lock.Lock()
		c.setPhase(e.Id, e.Phase)
		c.lock.Unlock()
	case domain.TradePeriodStateChanged:
		c.tradePeriodChanges.WithLabelValues(e.PeriodState.String()).Inc()
	case domain.DisputeOpened:
		c.disputesOpened.WithLabelValues(
			e.SupportType.String(), strconv.FormatBool(e.ByPeer),
		).Inc()
	case domain.DisputeClosed:
		c.disputesClosed.WithLabelValues(e.Winner.String()).Inc()
	case domain.PayoutPublished:
		c.payoutsPublished.WithLabelValues(strconv.FormatBool(e.Disputed)).Inc()
	case domain.ChatMessageAdded:
		c.chatMessages.Inc()
	case domain.FaultEvent:
		c.faults.WithLabelValues(e.Operation).Inc()
	}
}

func (c *Collector) setPhase(tradeId string, phase domain.Phase) {
	if prev, ok := c.tradePhases[tradeId]; ok {
		if prev == phase {
			return
		}
		c.tradesByPhase.WithLabelValues(prev.String()).Dec()
	}
	c.tradePhases[tradeId] = phase
	c.tradesByPhase.WithLabelValues(phase.String()).Inc()
}
