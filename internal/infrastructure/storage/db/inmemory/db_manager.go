package inmemory

import (
	"encoding/json"
	"sync"

	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
)

type RepoManager struct {
	tradeRepository     domain.TradeRepository
	disputeRepository   domain.DisputeRepository
	openOfferRepository domain.OpenOfferRepository
}

func NewRepoManager() ports.RepoManager {
	return &RepoManager{
		tradeRepository:     NewTradeRepositoryImpl(),
		disputeRepository:   NewDisputeRepositoryImpl(),
		openOfferRepository: NewOpenOfferRepositoryImpl(),
	}
}

func (d *RepoManager) TradeRepository() domain.TradeRepository {
	return d.tradeRepository
}

func (d *RepoManager) DisputeRepository() domain.DisputeRepository {
	return d.disputeRepository
}

func (d *RepoManager) OpenOfferRepository() domain.OpenOfferRepository {
	return d.openOfferRepository
}

func (d *RepoManager) Close() {}

// store keeps deep copies of the stored values so that callers never share
// slices, maps or pointers with it.
type store[T any] struct {
	lock   *sync.RWMutex
	values map[string][]byte
}

func newStore[T any]() store[T] {
	return store[T]{&sync.RWMutex{}, make(map[string][]byte)}
}

func (s store[T]) get(key string) (*T, bool) {
	buf, ok := s.values[key]
	if !ok {
		return nil, false
	}
	var v T
	if err := json.Unmarshal(buf, &v); err != nil {
		return nil, false
	}
	return &v, true
}

func (s store[T]) put(key string, v *T) error {
	buf, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.values[key] = buf
	return nil
}

func (s store[T]) all() []*T {
	list := make([]*T, 0, len(s.values))
	for key := range s.values {
		if v, ok := s.get(key); ok {
			list = append(list, v)
		}
	}
	return list
}
