package ports

import "github.com/tdex-network/tdex-escrow/internal/core/domain"

// RepoManager gives access to the repositories of the escrow aggregates.
type RepoManager interface {
	TradeRepository() domain.TradeRepository
	DisputeRepository() domain.DisputeRepository
	OpenOfferRepository() domain.OpenOfferRepository

	Close()
}
