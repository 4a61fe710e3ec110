package domain

import "context"

// DisputeRepository persists Disputes keyed by (trade id, trader id).
type DisputeRepository interface {
	// AddDispute stores a new dispute, failing with ErrDisputeAlreadyExists
	// if one with the same id is stored.
	AddDispute(ctx context.Context, dispute *Dispute) error
	// GetDispute returns the dispute with the given id.
	GetDispute(ctx context.Context, disputeId string) (*Dispute, error)
	// GetDisputeByTradeId returns the dispute of the given trade and trader.
	GetDisputeByTradeId(ctx context.Context, tradeId string, traderId int) (*Dispute, error)
	// GetDisputesByTradeId returns every dispute of the given trade, at most
	// one per trader.
	GetDisputesByTradeId(ctx context.Context, tradeId string) ([]*Dispute, error)
	// GetAllDisputes returns all the disputes stored in the repository.
	GetAllDisputes(ctx context.Context) ([]*Dispute, error)
	// UpdateDispute allows to commit multiple changes to the same dispute in a
	// transactional way.
	UpdateDispute(
		ctx context.Context,
		disputeId string,
		updateFn func(d *Dispute) (*Dispute, error),
	) error
}
