package dbbadger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/badger/v3/options"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
	"github.com/timshannon/badgerhold/v4"
)

const gcInterval = 30 * time.Minute

type repoManager struct {
	stores []*badgerhold.Store
	quit   chan struct{}

	tradeRepository     domain.TradeRepository
	disputeRepository   domain.DisputeRepository
	openOfferRepository domain.OpenOfferRepository
}

// NewRepoManager opens (or creates if not exists) the badger stores in the
// given directory, one per repository. An empty directory makes them
// in-memory stores.
func NewRepoManager(baseDbDir string, logger badger.Logger) (ports.RepoManager, error) {
	quit := make(chan struct{})

	var tradeDir, disputeDir, offerDir string
	if len(baseDbDir) > 0 {
		tradeDir = filepath.Join(baseDbDir, "trades")
		disputeDir = filepath.Join(baseDbDir, "disputes")
		offerDir = filepath.Join(baseDbDir, "offers")
	}

	tradeDb, err := createDb(tradeDir, logger, quit)
	if err != nil {
		return nil, fmt.Errorf("opening trade db: %w", err)
	}
	disputeDb, err := createDb(disputeDir, logger, quit)
	if err != nil {
		tradeDb.Close()
		return nil, fmt.Errorf("opening dispute db: %w", err)
	}
	offerDb, err := createDb(offerDir, logger, quit)
	if err != nil {
		tradeDb.Close()
		disputeDb.Close()
		return nil, fmt.Errorf("opening open offer db: %w", err)
	}

	return &repoManager{
		stores:              []*badgerhold.Store{tradeDb, disputeDb, offerDb},
		quit:                quit,
		tradeRepository:     NewTradeRepositoryImpl(tradeDb),
		disputeRepository:   NewDisputeRepositoryImpl(disputeDb),
		openOfferRepository: NewOpenOfferRepositoryImpl(offerDb),
	}, nil
}

func (r *repoManager) TradeRepository() domain.TradeRepository {
	return r.tradeRepository
}

func (r *repoManager) DisputeRepository() domain.DisputeRepository {
	return r.disputeRepository
}

func (r *repoManager) OpenOfferRepository() domain.OpenOfferRepository {
	return r.openOfferRepository
}

func (r *repoManager) Close() {
	close(r.quit)
	for _, store := range r.stores {
		if err := store.Close(); err != nil {
			log.WithError(err).Warn("failed to close db")
		}
	}
}

// JSONEncode is a custom JSON based encoder for badger. Enums are stored by
// name.
func JSONEncode(value interface{}) ([]byte, error) {
	var buff bytes.Buffer
	if err := json.NewEncoder(&buff).Encode(value); err != nil {
		return nil, err
	}
	return buff.Bytes(), nil
}

// JSONDecode is a custom JSON based decoder for badger.
func JSONDecode(data []byte, value interface{}) error {
	return json.NewDecoder(bytes.NewReader(data)).Decode(value)
}

func createDb(
	dbDir string, logger badger.Logger, quit chan struct{},
) (*badgerhold.Store, error) {
	isInMemory := len(dbDir) <= 0

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	if isInMemory {
		opts.InMemory = true
	} else {
		opts.Compression = options.ZSTD
	}

	db, err := badgerhold.Open(badgerhold.Options{
		Encoder:          JSONEncode,
		Decoder:          JSONDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
	if err != nil {
		return nil, err
	}

	if !isInMemory {
		go func() {
			ticker := time.NewTicker(gcInterval)
			defer ticker.Stop()
			for {
				select {
				case <-quit:
					return
				case <-ticker.C:
					if err := db.Badger().RunValueLogGC(0.5); err != nil &&
						err != badger.ErrNoRewrite {
						log.Error(err)
					}
				}
			}
		}()
	}

	return db, nil
}
