package pubsub

import (
	"sort"

	"github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/badger/v3/options"
	dbbadger "github.com/tdex-network/tdex-escrow/internal/infrastructure/storage/db/badger"
	"github.com/timshannon/badgerhold/v4"
)

// store persists the subscriptions indexed by topic.
type store struct {
	db *badgerhold.Store
}

// newStore opens the subscription db in the given dir. An empty dir makes
// it an in-memory store.
func newStore(dbDir string, logger badger.Logger) (*store, error) {
	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger
	if len(dbDir) <= 0 {
		opts.InMemory = true
	} else {
		opts.Compression = options.ZSTD
	}

	db, err := badgerhold.Open(badgerhold.Options{
		Encoder:          dbbadger.JSONEncode,
		Decoder:          dbbadger.JSONDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
	if err != nil {
		return nil, err
	}
	return &store{db}, nil
}

func (s *store) add(sub Subscription) (bool, error) {
	if err := s.db.Insert(sub.ID, sub); err != nil {
		if err == badgerhold.ErrKeyExists {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *store) get(id string) (*Subscription, error) {
	var sub Subscription
	if err := s.db.Get(id, &sub); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

func (s *store) remove(id string) error {
	if err := s.db.Delete(id, Subscription{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return ErrSubscriptionNotFound
		}
		return err
	}
	return nil
}

// list returns the subscriptions for the topic sorted by id, or all of them
// if the topic is empty.
func (s *store) list(topic string) (subscriptions, error) {
	var query *badgerhold.Query
	if len(topic) > 0 {
		query = badgerhold.Where("Event").Eq(topic).Index("Event")
	}

	var list []Subscription
	if err := s.db.Find(&list, query); err != nil {
		return nil, err
	}
	subs := subscriptions(list)
	sort.SliceStable(subs, func(i, j int) bool {
		return subs[i].ID < subs[j].ID
	})
	return subs, nil
}

func (s *store) close() error {
	return s.db.Close()
}
