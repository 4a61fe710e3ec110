package esplorawallet

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
)

// OnConfidenceChanged polls the explorer until the tx reaches the given
// depth. The returned channel receives at most one value and is always
// closed, either after the value or when the context or the wallet is done.
func (s *service) OnConfidenceChanged(
	ctx context.Context, txid string, depth int,
) (<-chan ports.TxConfidence, error) {
	select {
	case <-s.quit:
		return nil, ErrWalletClosed
	default:
	}
	if depth <= 0 {
		depth = 1
	}

	chConfidence := make(chan ports.TxConfidence, 1)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(chConfidence)

		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()

		for {
			confidence, ok := s.checkConfidence(ctx, txid, depth)
			if ok {
				chConfidence <- confidence
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-s.quit:
				return
			case <-ticker.C:
			}
		}
	}()

	return chConfidence, nil
}

func (s *service) checkConfidence(
	ctx context.Context, txid string, depth int,
) (ports.TxConfidence, bool) {
	status, err := s.client.getTransactionStatus(ctx, txid)
	if err != nil {
		if !errors.Is(err, ErrTxNotFound) && ctx.Err() == nil {
			log.WithError(err).Warnf("failed to get status of tx %s", txid)
		}
		return ports.TxConfidence{}, false
	}
	if !status.Confirmed {
		return ports.TxConfidence{}, false
	}

	tip, err := s.client.getTipHeight(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.WithError(err).Warn("failed to get chain tip height")
		}
		return ports.TxConfidence{}, false
	}

	txDepth := 0
	if tip >= status.BlockHeight {
		txDepth = int(tip-status.BlockHeight) + 1
	}
	if txDepth < depth {
		return ports.TxConfidence{}, false
	}
	return ports.TxConfidence{
		TxId:        txid,
		Depth:       txDepth,
		BlockHash:   status.BlockHash,
		BlockHeight: status.BlockHeight,
		BlockTime:   status.BlockTime,
	}, true
}
